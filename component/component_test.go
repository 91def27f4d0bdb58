package component

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/relaygate/logger"
)

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "start:"+m.name)
	}
	return m.startErr
}

func (m *mockComponent) Stop(context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "stop:"+m.name)
	}
	return m.stopErr
}

func (m *mockComponent) Health(context.Context) Health { return m.health }

func newRegistry() *Registry { return NewRegistry(logger.Nop()) }

func TestRegisterDuplicate(t *testing.T) {
	r := newRegistry()
	if err := r.Register(&mockComponent{name: "store"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "store"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := newRegistry()
	r.Register(&mockComponent{name: "store"})
	if got := r.Get("store"); got == nil || got.Name() != "store" {
		t.Fatalf("expected registered component, got %v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}
	if len(r.All()) != 1 {
		t.Errorf("expected 1 component, got %d", len(r.All()))
	}
}

func TestStartAndStopOrder(t *testing.T) {
	r := newRegistry()
	var events []string
	for _, name := range []string{"store", "prober", "server"} {
		r.Register(&mockComponent{name: name, events: &events})
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	want := "start:store,start:prober,start:server,stop:server,stop:prober,stop:store"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestStartAllFailureStopsOnlyStarted(t *testing.T) {
	r := newRegistry()
	var events []string
	r.Register(&mockComponent{name: "store", events: &events})
	r.Register(&mockComponent{name: "prober", events: &events, startErr: fmt.Errorf("boom")})
	r.Register(&mockComponent{name: "server", events: &events})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected error from StartAll")
	}
	r.StopAll(context.Background())

	want := "start:store,start:prober,stop:store"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	r := newRegistry()
	r.Register(&mockComponent{name: "a", stopErr: fmt.Errorf("a failed")})
	r.Register(&mockComponent{name: "b", stopErr: fmt.Errorf("b failed")})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected error from StopAll")
	}
	if !strings.Contains(err.Error(), "a failed") || !strings.Contains(err.Error(), "b failed") {
		t.Errorf("expected both errors, got %v", err)
	}
}

func TestHealthAll(t *testing.T) {
	r := newRegistry()
	r.Register(&mockComponent{name: "store", health: Health{Name: "store", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "redis", health: Health{Name: "redis", Status: StatusUnhealthy, Message: "timeout"}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusHealthy || results[1].Status != StatusUnhealthy {
		t.Errorf("unexpected health %v", results)
	}
}
