package resilience

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// State is a breaker's derived state.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota
	// StateOpen refuses calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a single trial call through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "closed":
		*s = StateClosed
	case "open":
		*s = StateOpen
	case "half-open":
		*s = StateHalfOpen
	default:
		return fmt.Errorf("unknown breaker state %q", b)
	}
	return nil
}

// ErrCircuitOpen is returned by callers that refuse a call on an open breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig configures a BreakerSet.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens a breaker.
	Threshold int `yaml:"threshold" mapstructure:"threshold"`
	// Cooldown is how long an open breaker refuses calls.
	Cooldown time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
	// TrialTimeout releases a half-open trial slot whose outcome was never
	// reported, so a lost caller cannot wedge the breaker.
	TrialTimeout time.Duration `yaml:"trial_timeout" mapstructure:"trial_timeout"`

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time `yaml:"-" mapstructure:"-"`
	// OnStateChange is called outside the lock after a transition.
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills unset fields.
func (c *BreakerConfig) ApplyDefaults() {
	if c.Threshold <= 0 {
		c.Threshold = 3
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 60 * time.Second
	}
	if c.TrialTimeout <= 0 {
		c.TrialTimeout = 30 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type breakerState struct {
	failures     int
	openUntil    time.Time
	trialStarted time.Time
}

func (b *breakerState) state(now time.Time) State {
	switch {
	case b.openUntil.IsZero():
		return StateClosed
	case now.Before(b.openUntil):
		return StateOpen
	default:
		return StateHalfOpen
	}
}

// BreakerSet holds one breaker per destination name. All operations on it
// are serialized, so a set is safe for concurrent use.
//
// A breaker opens after Threshold consecutive failures and refuses calls
// for Cooldown. After that it is half-open: the first CanCall is granted as
// a trial and later callers are refused until the trial reports back.
// Any success closes the breaker. A failure at or beyond the threshold,
// including a failed trial, increments the counter and restarts the
// cooldown from now.
type BreakerSet struct {
	cfg BreakerConfig

	mu       sync.Mutex
	breakers map[string]*breakerState
}

// NewBreakerSet creates an empty set.
func NewBreakerSet(cfg BreakerConfig) *BreakerSet {
	cfg.ApplyDefaults()
	return &BreakerSet{cfg: cfg, breakers: make(map[string]*breakerState)}
}

// CanCall reports whether a call to name may proceed. In the half-open
// state a true result reserves the single trial slot, so the caller must
// report the outcome with OnSuccess or OnFailure.
func (s *BreakerSet) CanCall(name string) bool {
	s.mu.Lock()
	b, ok := s.breakers[name]
	if !ok {
		s.mu.Unlock()
		return true
	}
	now := s.cfg.Now()
	switch b.state(now) {
	case StateClosed:
		s.mu.Unlock()
		return true
	case StateOpen:
		s.mu.Unlock()
		return false
	}

	if !b.trialStarted.IsZero() && now.Sub(b.trialStarted) < s.cfg.TrialTimeout {
		s.mu.Unlock()
		return false
	}
	b.trialStarted = now
	s.mu.Unlock()
	return true
}

// OnSuccess closes the breaker for name whatever its state.
func (s *BreakerSet) OnSuccess(name string) {
	s.mu.Lock()
	b, ok := s.breakers[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	from := b.state(s.cfg.Now())
	*b = breakerState{}
	s.mu.Unlock()

	s.notify(name, from, StateClosed)
}

// OnFailure records a failed call to name.
func (s *BreakerSet) OnFailure(name string) {
	s.mu.Lock()
	b, ok := s.breakers[name]
	if !ok {
		b = &breakerState{}
		s.breakers[name] = b
	}
	now := s.cfg.Now()
	from := b.state(now)

	b.failures++
	b.trialStarted = time.Time{}
	if b.failures >= s.cfg.Threshold {
		b.openUntil = now.Add(s.cfg.Cooldown)
	}
	to := b.state(now)
	s.mu.Unlock()

	s.notify(name, from, to)
}

// State returns the current derived state for name.
func (s *BreakerSet) State(name string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[name]; ok {
		return b.state(s.cfg.Now())
	}
	return StateClosed
}

// Failures returns the consecutive failure count for name.
func (s *BreakerSet) Failures(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[name]; ok {
		return b.failures
	}
	return 0
}

// Reset forgets name's breaker.
func (s *BreakerSet) Reset(name string) {
	s.mu.Lock()
	b, ok := s.breakers[name]
	var from State
	if ok {
		from = b.state(s.cfg.Now())
		delete(s.breakers, name)
	}
	s.mu.Unlock()
	if ok {
		s.notify(name, from, StateClosed)
	}
}

// BreakerSnapshot is a point-in-time view of one breaker.
type BreakerSnapshot struct {
	Name                string     `json:"name"`
	State               State      `json:"state"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	OpenUntil           *time.Time `json:"openUntil,omitempty"`
	TrialInFlight       bool       `json:"trialInFlight,omitempty"`
}

// Snapshot returns every known breaker sorted by name.
func (s *BreakerSet) Snapshot() []BreakerSnapshot {
	s.mu.Lock()
	now := s.cfg.Now()
	out := make([]BreakerSnapshot, 0, len(s.breakers))
	for name, b := range s.breakers {
		snap := BreakerSnapshot{
			Name:                name,
			State:               b.state(now),
			ConsecutiveFailures: b.failures,
			TrialInFlight:       !b.trialStarted.IsZero(),
		}
		if !b.openUntil.IsZero() {
			until := b.openUntil
			snap.OpenUntil = &until
		}
		out = append(out, snap)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *BreakerSet) notify(name string, from, to State) {
	if from != to && s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(name, from, to)
	}
}
