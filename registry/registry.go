package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultStaleAfter is the heartbeat age beyond which Cleanup removes an instance.
const DefaultStaleAfter = 120 * time.Second

// ErrServiceUnavailable is returned by Resolve when no UP instance of the
// requested name exists.
var ErrServiceUnavailable = errors.New("service unavailable")

// Status is an instance's last observed liveness.
type Status string

const (
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
	StatusUnknown Status = "UNKNOWN"
)

// ParseStatus accepts UP, DOWN or UNKNOWN in any case.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusUp, StatusDown, StatusUnknown:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q: want UP, DOWN or UNKNOWN", s)
}

// ServiceInstance is one registered network endpoint of a named service.
// (Name, Address) identifies it.
type ServiceInstance struct {
	Name          string    `json:"name" yaml:"name"`
	Address       string    `json:"address" yaml:"address"`
	Status        Status    `json:"status" yaml:"status"`
	LastHeartbeat time.Time `json:"lastHeartbeat" yaml:"lastHeartbeat"`
}

// Key returns the instance identity.
func (i ServiceInstance) Key() Key {
	return Key{Name: i.Name, Address: i.Address}
}

// Key identifies an instance.
type Key struct {
	Name    string
	Address string
}

func (k Key) String() string { return k.Name + "|" + k.Address }

// NormalizeAddress strips trailing slashes so "http://h:1/" and "http://h:1"
// name the same instance.
func NormalizeAddress(address string) string {
	return strings.TrimRight(strings.TrimSpace(address), "/")
}

// Store is the shared registry of service instances. Every operation on a
// single key is atomic with respect to every other operation, in this
// process and in any other process sharing the same backend.
type Store interface {
	// Register creates or refreshes an instance with status UNKNOWN.
	Register(ctx context.Context, name, address string) error
	// UpdateStatus sets the status and refreshes the heartbeat. Unknown keys are a no-op.
	UpdateStatus(ctx context.Context, name, address string, status Status) error
	// Heartbeat refreshes the heartbeat only. Unknown keys are a no-op.
	Heartbeat(ctx context.Context, name, address string) error
	// Deregister removes an instance. Unknown keys are a no-op.
	Deregister(ctx context.Context, name, address string) error
	// List returns a snapshot of every instance.
	List(ctx context.Context) ([]ServiceInstance, error)
	// Resolve returns the address of one UP, non-stale instance of name.
	Resolve(ctx context.Context, name string) (string, error)
	// Cleanup removes instances whose heartbeat is older than the staleness
	// threshold and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)
	Close() error
}

// Options configures a Store.
type Options struct {
	StaleAfter time.Duration
	Selector   Selector
	Now        func() time.Time
}

func (o *Options) applyDefaults() {
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.Selector == nil {
		o.Selector = FirstMatch{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

func validateKey(name, address string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("registry: name is required")
	}
	if address == "" {
		return errors.New("registry: address is required")
	}
	return nil
}

// resolveFrom picks one UP instance of name that is not stale at now.
func resolveFrom(instances []ServiceInstance, name string, now time.Time, staleAfter time.Duration, sel Selector) (string, error) {
	var candidates []ServiceInstance
	for _, inst := range instances {
		if inst.Name != name || inst.Status != StatusUp {
			continue
		}
		if now.Sub(inst.LastHeartbeat) > staleAfter {
			continue
		}
		candidates = append(candidates, inst)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("service %s not available: %w", name, ErrServiceUnavailable)
	}
	return sel.Select(name, candidates).Address, nil
}
