package registry

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
)

// Strategy names a Selector in configuration.
type Strategy string

const (
	StrategyFirstMatch Strategy = "first_match"
	StrategyRoundRobin Strategy = "round_robin"
	StrategyRandom     Strategy = "random"
)

// Selector picks one instance among non-empty UP candidates of a name.
type Selector interface {
	Select(name string, candidates []ServiceInstance) ServiceInstance
}

// NewSelector returns the Selector for a strategy name. Empty means first_match.
func NewSelector(s Strategy) (Selector, error) {
	switch s {
	case "", StrategyFirstMatch:
		return FirstMatch{}, nil
	case StrategyRoundRobin:
		return NewRoundRobin(), nil
	case StrategyRandom:
		return Random{}, nil
	}
	return nil, fmt.Errorf("unknown selection strategy %q", s)
}

// FirstMatch returns the candidate with the lowest address, so repeated
// resolves over an unchanged registry return the same instance.
type FirstMatch struct{}

func (FirstMatch) Select(_ string, candidates []ServiceInstance) ServiceInstance {
	first := candidates[0]
	for _, c := range candidates[1:] {
		if c.Address < first.Address {
			first = c
		}
	}
	return first
}

// RoundRobin cycles through candidates per service name.
type RoundRobin struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func NewRoundRobin() *RoundRobin {
	return &RoundRobin{counters: make(map[string]uint64)}
}

func (r *RoundRobin) Select(name string, candidates []ServiceInstance) ServiceInstance {
	sorted := make([]ServiceInstance, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	r.mu.Lock()
	n := r.counters[name]
	r.counters[name] = n + 1
	r.mu.Unlock()

	return sorted[n%uint64(len(sorted))]
}

// Random picks uniformly.
type Random struct{}

func (Random) Select(_ string, candidates []ServiceInstance) ServiceInstance {
	return candidates[rand.IntN(len(candidates))]
}
