package observability

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/relaygate/component"
)

// TracerComponent owns the tracer provider lifecycle.
type TracerComponent struct {
	cfg TracerConfig
	tp  *sdktrace.TracerProvider
}

// NewTracerComponent creates a tracing component. A disabled config
// makes Start and Stop no-ops.
func NewTracerComponent(cfg TracerConfig) *TracerComponent {
	return &TracerComponent{cfg: cfg}
}

var _ component.Component = (*TracerComponent)(nil)

func (c *TracerComponent) Name() string { return "tracing" }

func (c *TracerComponent) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	tp, err := InitTracer(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.tp = tp
	return nil
}

func (c *TracerComponent) Stop(ctx context.Context) error {
	if c.tp == nil {
		return nil
	}
	return c.tp.Shutdown(ctx)
}

func (c *TracerComponent) Health(_ context.Context) component.Health {
	msg := "enabled"
	if !c.cfg.Enabled {
		msg = "disabled"
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: msg}
}
