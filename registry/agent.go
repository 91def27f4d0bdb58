package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/relaygate/component"
	"github.com/kbukum/relaygate/logger"
)

// DefaultHeartbeatInterval keeps a live instance well inside the staleness window.
const DefaultHeartbeatInterval = 30 * time.Second

// AgentConfig describes the instance an Agent keeps registered.
type AgentConfig struct {
	Name     string        `mapstructure:"name" validate:"required"`
	Address  string        `mapstructure:"address" validate:"required,url"`
	Interval time.Duration `mapstructure:"interval"`
	// ReportUp marks the instance UP on every heartbeat instead of leaving
	// status to an external prober.
	ReportUp bool `mapstructure:"report_up"`
}

// Agent registers one instance on Start, refreshes its heartbeat
// periodically, and deregisters it on Stop.
type Agent struct {
	store  Store
	cfg    AgentConfig
	log    *logger.Logger
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

// NewAgent creates a self-registration agent.
func NewAgent(store Store, cfg AgentConfig, log *logger.Logger) *Agent {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultHeartbeatInterval
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Agent{
		store: store,
		cfg:   cfg,
		log: log.WithComponent("agent").WithFields(logger.Fields(
			logger.FieldDestination, cfg.Name,
			logger.FieldAddress, cfg.Address,
		)),
	}
}

var _ component.Component = (*Agent)(nil)

func (a *Agent) Name() string { return "registry-agent" }

// Start registers the instance and begins heartbeating.
func (a *Agent) Start(ctx context.Context) error {
	if err := a.store.Register(ctx, a.cfg.Name, a.cfg.Address); err != nil {
		return fmt.Errorf("register %s: %w", a.cfg.Name, err)
	}
	a.log.Info("Registered instance")

	loopCtx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancel = cancel
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go a.loop(loopCtx, done)
	return nil
}

func (a *Agent) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.beat(ctx)
		}
	}
}

func (a *Agent) beat(ctx context.Context) {
	var err error
	if a.cfg.ReportUp {
		err = a.store.UpdateStatus(ctx, a.cfg.Name, a.cfg.Address, StatusUp)
	} else {
		err = a.store.Heartbeat(ctx, a.cfg.Name, a.cfg.Address)
	}
	if err != nil {
		a.log.WithError(err).Warn("Heartbeat failed")
	}
}

// Stop ends heartbeating and deregisters the instance. Deregistration
// failures are logged; the instance then ages out through Cleanup.
func (a *Agent) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	if err := a.store.Deregister(ctx, a.cfg.Name, a.cfg.Address); err != nil {
		a.log.WithError(err).Warn("Deregister failed")
		return nil
	}
	a.log.Info("Deregistered instance")
	return nil
}

func (a *Agent) Health(_ context.Context) component.Health {
	a.mu.Lock()
	running := a.cancel != nil
	a.mu.Unlock()
	if !running {
		return component.Health{Name: a.Name(), Status: component.StatusUnhealthy, Message: "not registered"}
	}
	return component.Health{Name: a.Name(), Status: component.StatusHealthy}
}
