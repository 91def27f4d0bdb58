package registry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/relaygate/httpclient"
	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/metrics"
	"github.com/kbukum/relaygate/observability"
)

const (
	DefaultProbeInterval = 30 * time.Second
	DefaultProbeTimeout  = 3 * time.Second
	// MaxProbeTimeout caps a single probe so one sweep always fits well
	// inside the probe period.
	MaxProbeTimeout   = 3 * time.Second
	DefaultHealthPath = "/health"
)

// ProberConfig configures health probing.
type ProberConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	Timeout    time.Duration `mapstructure:"timeout"`
	HealthPath string        `mapstructure:"health_path" validate:"omitempty,urlpath"`
	// Names restricts probing to these services. Empty probes everything.
	Names []string `mapstructure:"names"`
	// Exclude skips these services, such as the prober's own process.
	Exclude []string `mapstructure:"exclude"`
}

// ApplyDefaults fills zero fields and clamps Timeout to MaxProbeTimeout.
func (c *ProberConfig) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultProbeInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultProbeTimeout
	}
	if c.Timeout > MaxProbeTimeout {
		c.Timeout = MaxProbeTimeout
	}
	if c.HealthPath == "" {
		c.HealthPath = DefaultHealthPath
	}
}

// ProbeResult is the outcome of probing one instance.
type ProbeResult struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Status     Status `json:"status"`
	HTTPStatus int    `json:"httpStatus,omitempty"`
	Error      string `json:"error,omitempty"`
	LatencyMs  int64  `json:"latencyMs"`
}

// Prober checks every registered instance's health endpoint and records
// UP for a 2xx reply and DOWN for anything else.
type Prober struct {
	store   Store
	cfg     ProberConfig
	client  *httpclient.Client
	names   map[string]bool
	exclude map[string]bool
	log     *logger.Logger
}

// NewProber creates a prober over store.
func NewProber(store Store, cfg ProberConfig, log *logger.Logger) (*Prober, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	var names map[string]bool
	if len(cfg.Names) > 0 {
		names = make(map[string]bool, len(cfg.Names))
		for _, n := range cfg.Names {
			names[n] = true
		}
	}
	exclude := make(map[string]bool, len(cfg.Exclude))
	for _, n := range cfg.Exclude {
		exclude[n] = true
	}
	return &Prober{
		store:   store,
		cfg:     cfg,
		client:  client,
		names:   names,
		exclude: exclude,
		log:     log.WithComponent("prober"),
	}, nil
}

// Interval returns the configured sweep period.
func (p *Prober) Interval() time.Duration { return p.cfg.Interval }

// Sweep probes all matching instances concurrently, writes each outcome to
// the store, and returns the results. Store errors are logged, never returned.
func (p *Prober) Sweep(ctx context.Context) []ProbeResult {
	ctx, span := observability.StartSpan(ctx, observability.SpanProbeSweep)
	defer span.End()

	instances, err := p.store.List(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("list").Inc()
		p.log.WithError(err).Warn("Probe sweep could not list instances")
		observability.SetSpanError(ctx, err)
		return nil
	}

	targets := instances[:0:0]
	for _, inst := range instances {
		if p.probes(inst.Name) {
			targets = append(targets, inst)
		}
	}
	span.SetAttributes(attribute.Int(observability.AttrInstances, len(targets)))

	results := make([]ProbeResult, len(targets))
	var wg sync.WaitGroup
	for i, inst := range targets {
		wg.Add(1)
		go func(i int, inst ServiceInstance) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("Probe panicked", logger.Fields(
						logger.FieldDestination, inst.Name,
						logger.FieldAddress, inst.Address,
						"panic", fmt.Sprint(r),
					))
					results[i] = ProbeResult{Name: inst.Name, Address: inst.Address, Status: StatusDown, Error: "probe panicked"}
				}
			}()
			results[i] = p.probe(ctx, inst)
			p.record(ctx, results[i])
		}(i, inst)
	}
	wg.Wait()

	counts := map[Status]int{StatusUp: 0, StatusDown: 0, StatusUnknown: 0}
	for _, inst := range instances {
		if p.probes(inst.Name) {
			continue
		}
		counts[inst.Status]++
	}
	for _, r := range results {
		counts[r.Status]++
	}
	for st, n := range counts {
		metrics.RegistryInstances.WithLabelValues(string(st)).Set(float64(n))
	}
	return results
}

func (p *Prober) probes(name string) bool {
	if p.exclude[name] {
		return false
	}
	return p.names == nil || p.names[name]
}

func (p *Prober) probe(ctx context.Context, inst ServiceInstance) ProbeResult {
	start := time.Now()
	res := ProbeResult{Name: inst.Name, Address: inst.Address, Status: StatusDown}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		URL:    NormalizeAddress(inst.Address) + p.cfg.HealthPath,
	})
	res.LatencyMs = time.Since(start).Milliseconds()
	if resp != nil {
		res.HTTPStatus = resp.StatusCode
	}
	switch {
	case err == nil && resp.IsSuccess():
		res.Status = StatusUp
	case err != nil:
		res.Error = err.Error()
	}
	return res
}

func (p *Prober) record(ctx context.Context, res ProbeResult) {
	metrics.ProbesTotal.WithLabelValues(res.Name, string(res.Status)).Inc()
	if err := p.store.UpdateStatus(ctx, res.Name, res.Address, res.Status); err != nil {
		metrics.StoreErrors.WithLabelValues("update_status").Inc()
		p.log.WithError(err).Warn("Failed to record probe result", logger.Fields(
			logger.FieldDestination, res.Name,
			logger.FieldAddress, res.Address,
		))
		return
	}
	if res.Status == StatusDown {
		p.log.Debug("Instance probed down", logger.Fields(
			logger.FieldDestination, res.Name,
			logger.FieldAddress, res.Address,
			logger.FieldStatus, res.HTTPStatus,
		))
	}
}
