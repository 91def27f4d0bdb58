package gateway

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/relaygate/auth"
	"github.com/kbukum/relaygate/auth/jwt"
	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/registry"
	"github.com/kbukum/relaygate/resilience"
	"github.com/kbukum/relaygate/server"
	"github.com/kbukum/relaygate/server/endpoint"
	"github.com/kbukum/relaygate/server/middleware"
)

const description = "API gateway for the shopping-list services"

// Gateway wires the router, aggregator and operational endpoints over one
// registry store and one breaker set.
type Gateway struct {
	name       string
	store      registry.Store
	prober     *registry.Prober
	forwarder  *Forwarder
	router     *Router
	aggregator *Aggregator
	validator  auth.TokenValidator
	log        *logger.Logger
}

// Option customizes a Gateway.
type Option func(*options)

type options struct {
	forwarder *ForwarderConfig
	validator auth.TokenValidator
	now       func() time.Time
}

// WithForwarderConfig overrides the forwarder settings derived from Config.
func WithForwarderConfig(cfg ForwarderConfig) Option {
	return func(o *options) { o.forwarder = &cfg }
}

// WithValidator replaces the JWT validator built from Config.Auth.
func WithValidator(v auth.TokenValidator) Option {
	return func(o *options) { o.validator = v }
}

// WithClock sets the clock used for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds a Gateway. prober may be nil, in which case /health reports
// the registry without probing.
func New(name string, cfg Config, store registry.Store, prober *registry.Prober, log *logger.Logger, opts ...Option) (*Gateway, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	table, err := NewRouteTable(cfg.Routes)
	if err != nil {
		return nil, err
	}

	fcfg := ForwarderConfig{Timeout: cfg.ForwardTimeout, Breaker: cfg.Breaker}
	if o.forwarder != nil {
		fcfg = *o.forwarder
	}
	fwd, err := NewForwarder(store, fcfg, log)
	if err != nil {
		return nil, err
	}

	validator := o.validator
	if validator == nil && cfg.Auth.Enabled() {
		svc, err := jwt.NewService(&cfg.Auth.JWT, NewClaims)
		if err != nil {
			return nil, err
		}
		validator = auth.NewValidator(svc.ValidatorFunc())
	}

	agg := NewAggregator(fwd, cfg.Fanout, log)
	agg.now = o.now

	return &Gateway{
		name:       name,
		store:      store,
		prober:     prober,
		forwarder:  fwd,
		router:     NewRouter(table, fwd, validator, log),
		aggregator: agg,
		validator:  validator,
		log:        log.WithComponent("gateway"),
	}, nil
}

// Forwarder returns the shared forward pipeline.
func (g *Gateway) Forwarder() *Forwarder { return g.forwarder }

// Breakers returns the shared breaker set.
func (g *Gateway) Breakers() *resilience.BreakerSet { return g.forwarder.Breakers() }

// Register installs the gateway's routes on engine. The route table is
// served from NoRoute so that only unmatched requests reach the proxy.
func (g *Gateway) Register(engine *gin.Engine) {
	engine.GET("/", endpoint.Info(g.name, description, g.endpoints))
	engine.GET("/health", g.health)
	engine.GET("/registry", g.introspect)

	api := engine.Group("/api")
	if g.validator != nil {
		api.Use(middleware.Auth(g.validator))
	}
	api.GET("/search", g.search)
	api.GET("/dashboard", g.dashboard)

	engine.NoRoute(g.router.Handle)
}

func (g *Gateway) search(c *gin.Context) {
	res, err := g.aggregator.Search(c.Request.Context(), c.Query("q"), c.Request.Header)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, res)
}

func (g *Gateway) dashboard(c *gin.Context) {
	res, err := g.aggregator.Dashboard(c.Request.Context(), c.Request.Header)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, res)
}

// listInstances never fails: a store error is logged and reported as an
// empty list.
func (g *Gateway) listInstances(ctx context.Context) []registry.ServiceInstance {
	instances, err := g.store.List(ctx)
	if err != nil {
		g.log.WithContext(ctx).Error("Registry list failed", logger.ErrorFields("list", err))
		return []registry.ServiceInstance{}
	}
	sort.Slice(instances, func(i, j int) bool {
		if instances[i].Name != instances[j].Name {
			return instances[i].Name < instances[j].Name
		}
		return instances[i].Address < instances[j].Address
	})
	return instances
}

func (g *Gateway) breakers() map[string]resilience.BreakerSnapshot {
	snap := g.forwarder.Breakers().Snapshot()
	out := make(map[string]resilience.BreakerSnapshot, len(snap))
	for _, s := range snap {
		out[s.Name] = s
	}
	return out
}

// introspect reports instances and breaker states.
func (g *Gateway) introspect(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services": g.listInstances(c.Request.Context()),
		"breakers": g.breakers(),
	})
}

// health runs an on-demand probe sweep and cleanup, then reports. The
// gateway itself is UP whenever it can answer.
func (g *Gateway) health(c *gin.Context) {
	ctx := c.Request.Context()
	probes := []registry.ProbeResult{}
	if g.prober != nil {
		probes = g.prober.Sweep(ctx)
	}
	if _, err := g.store.Cleanup(ctx); err != nil {
		g.log.WithContext(ctx).Error("Registry cleanup failed", logger.ErrorFields("cleanup", err))
	}
	c.JSON(http.StatusOK, gin.H{
		"gateway":  "UP",
		"services": g.listInstances(ctx),
		"breakers": g.breakers(),
		"probes":   probes,
	})
}

func (g *Gateway) endpoints() []string {
	out := []string{
		"GET /health - on-demand probe sweep and service status",
		"GET /registry - registered instances and breaker states",
		"GET /metrics - Prometheus metrics",
		"GET /api/search?q= - search items and lists",
		"GET /api/dashboard - list totals and categories",
	}
	for _, r := range g.router.Table().Rules() {
		line := r.Method + " " + r.Pattern + " -> " + r.Destination
		if r.AuthRequired {
			line += " (auth)"
		}
		out = append(out, line)
	}
	return out
}
