package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/relaygate/component"
	"github.com/kbukum/relaygate/logger"
)

// LoopComponent runs the prober and the reaper on their own tickers for the
// lifetime of the process. Either may be nil.
type LoopComponent struct {
	prober *Prober
	reaper *Reaper
	log    *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastRun time.Time
}

// NewLoopComponent creates the background loop component.
func NewLoopComponent(prober *Prober, reaper *Reaper, log *logger.Logger) *LoopComponent {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &LoopComponent{prober: prober, reaper: reaper, log: log.WithComponent("registry-loop")}
}

var _ component.Component = (*LoopComponent)(nil)

func (c *LoopComponent) Name() string { return "registry-loop" }

// Start launches the loops. They stop on Stop, not on ctx.
func (c *LoopComponent) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return fmt.Errorf("registry loop already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	if c.prober != nil {
		c.run(ctx, "probe", c.prober.Interval(), func(ctx context.Context) { c.prober.Sweep(ctx) })
	}
	if c.reaper != nil {
		c.run(ctx, "reap", c.reaper.Interval(), func(ctx context.Context) { c.reaper.Reap(ctx) })
	}
	c.log.Info("Registry loops started")
	return nil
}

func (c *LoopComponent) run(ctx context.Context, name string, interval time.Duration, tick func(context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.safeTick(ctx, name, tick)
			}
		}
	}()
}

// safeTick runs one tick; a panic is logged and the loop continues.
func (c *LoopComponent) safeTick(ctx context.Context, name string, tick func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Registry loop tick panicked", logger.Fields(
				logger.FieldOperation, name,
				"panic", fmt.Sprint(r),
			))
		}
	}()
	tick(ctx)
	c.mu.Lock()
	c.lastRun = time.Now()
	c.mu.Unlock()
}

// Stop cancels the loops and waits for an in-flight tick to finish.
func (c *LoopComponent) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *LoopComponent) Health(_ context.Context) component.Health {
	c.mu.Lock()
	running, last := c.cancel != nil, c.lastRun
	c.mu.Unlock()
	if !running {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not running"}
	}
	if last.IsZero() {
		return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: "waiting for first tick"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: "last tick " + last.UTC().Format(time.RFC3339)}
}

// StoreComponent owns a Store opened from Config so it closes with the
// process.
type StoreComponent struct {
	cfg   Config
	log   *logger.Logger
	store Store
}

// NewStoreComponent creates a component that opens the configured backend on Start.
func NewStoreComponent(cfg Config, log *logger.Logger) *StoreComponent {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &StoreComponent{cfg: cfg, log: log.WithComponent("registry")}
}

var _ component.Component = (*StoreComponent)(nil)

func (c *StoreComponent) Name() string { return "registry-store" }

// Store returns the opened store, or nil before Start.
func (c *StoreComponent) Store() Store { return c.store }

func (c *StoreComponent) Start(ctx context.Context) error {
	store, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("registry store: %w", err)
	}
	c.store = store
	c.log.Info("Registry store opened", logger.Fields("backend", c.cfg.Backend))
	return nil
}

func (c *StoreComponent) Stop(_ context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *StoreComponent) Health(ctx context.Context) component.Health {
	if c.store == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "store not opened"}
	}
	if _, err := c.store.List(ctx); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: c.cfg.Backend}
}
