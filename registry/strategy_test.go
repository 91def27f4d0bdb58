package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(addrs ...string) []ServiceInstance {
	out := make([]ServiceInstance, len(addrs))
	for i, a := range addrs {
		out[i] = ServiceInstance{Name: "svc", Address: a, Status: StatusUp}
	}
	return out
}

func TestFirstMatchIsStable(t *testing.T) {
	c := candidates("http://c", "http://a", "http://b")
	assert.Equal(t, "http://a", FirstMatch{}.Select("svc", c).Address)
	assert.Equal(t, "http://a", FirstMatch{}.Select("svc", []ServiceInstance{c[2], c[1], c[0]}).Address)
}

func TestRoundRobinCyclesPerName(t *testing.T) {
	rr := NewRoundRobin()
	c := candidates("http://b", "http://a")

	got := []string{
		rr.Select("svc", c).Address,
		rr.Select("svc", c).Address,
		rr.Select("svc", c).Address,
	}
	assert.Equal(t, []string{"http://a", "http://b", "http://a"}, got)
	assert.Equal(t, "http://a", rr.Select("other", c).Address)
}

func TestRandomStaysInCandidates(t *testing.T) {
	c := candidates("http://a", "http://b")
	for i := 0; i < 20; i++ {
		addr := Random{}.Select("svc", c).Address
		assert.Contains(t, []string{"http://a", "http://b"}, addr)
	}
}

func TestNewSelector(t *testing.T) {
	for _, s := range []Strategy{"", StrategyFirstMatch, StrategyRoundRobin, StrategyRandom} {
		sel, err := NewSelector(s)
		require.NoError(t, err, s)
		assert.NotNil(t, sel)
	}
	_, err := NewSelector("least_conn")
	assert.Error(t, err)
}

func TestResolveUsesSelector(t *testing.T) {
	s := NewMemoryStore(Options{Selector: NewRoundRobin()})
	ctx := t.Context()
	for _, a := range []string{"http://a", "http://b"} {
		require.NoError(t, s.Register(ctx, "svc", a))
		require.NoError(t, s.UpdateStatus(ctx, "svc", a, StatusUp))
	}
	first, err := s.Resolve(ctx, "svc")
	require.NoError(t, err)
	second, err := s.Resolve(ctx, "svc")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
