package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/relaygate/errors"
	"github.com/kbukum/relaygate/httpclient"
	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/metrics"
	"github.com/kbukum/relaygate/observability"
	"github.com/kbukum/relaygate/registry"
	"github.com/kbukum/relaygate/resilience"
)

const (
	DefaultForwardTimeout = 10 * time.Second
	MaxForwardTimeout     = 10 * time.Second
)

// forwardedHeaders are the only inbound headers passed to a backend. The
// trace context is injected separately.
var forwardedHeaders = []string{"Authorization", "Content-Type", "Accept", "X-Request-Id"}

// OutboundRequest is one call to a destination service.
type OutboundRequest struct {
	Method   string
	Path     string
	RawQuery string
	Headers  http.Header
	Body     []byte
}

// ForwarderConfig configures a Forwarder.
type ForwarderConfig struct {
	// Timeout bounds each call. Clamped to MaxForwardTimeout.
	Timeout time.Duration
	Breaker resilience.BreakerConfig
	// Client overrides the outbound HTTP client.
	Client *httpclient.Client
}

// Forwarder runs the pipeline every outbound call takes: breaker check,
// registry resolve, forward, breaker update. It never retries.
type Forwarder struct {
	store    registry.Store
	breakers *resilience.BreakerSet
	client   *httpclient.Client
	timeout  time.Duration
	log      *logger.Logger
}

// NewForwarder creates a Forwarder over store. Breaker transitions are
// logged and exported as metrics.
func NewForwarder(store registry.Store, cfg ForwarderConfig, log *logger.Logger) (*Forwarder, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultForwardTimeout
	}
	if cfg.Timeout > MaxForwardTimeout {
		cfg.Timeout = MaxForwardTimeout
	}
	log = log.WithComponent("forwarder")

	client := cfg.Client
	if client == nil {
		var err error
		client, err = httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
		if err != nil {
			return nil, err
		}
	}

	bcfg := cfg.Breaker
	userHook := bcfg.OnStateChange
	bcfg.OnStateChange = func(name string, from, to resilience.State) {
		metrics.ObserveBreakerState(name, to.String())
		log.Warn("Circuit state changed", map[string]interface{}{
			"destination": name,
			"from":        from.String(),
			"to":          to.String(),
		})
		if userHook != nil {
			userHook(name, from, to)
		}
	}

	return &Forwarder{
		store:    store,
		breakers: resilience.NewBreakerSet(bcfg),
		client:   client,
		timeout:  cfg.Timeout,
		log:      log,
	}, nil
}

// Breakers exposes the per-destination breakers for introspection.
func (f *Forwarder) Breakers() *resilience.BreakerSet { return f.breakers }

// Call forwards req to one UP instance of destination. Any HTTP reply,
// including 4xx and 5xx, counts as a breaker success and is returned with a
// nil error. Refusals and transport failures return a 503 AppError; a reply
// over the body limit returns 502 without penalising the breaker.
//
// The outbound call is bounded by the forward timeout alone. Cancellation
// or deadlines on ctx do not reach the destination and never count as a
// failure of it.
func (f *Forwarder) Call(ctx context.Context, destination string, req OutboundRequest) (*httpclient.Response, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanForward,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String(observability.AttrDestination, destination)))
	defer span.End()

	if !f.breakers.CanCall(destination) {
		metrics.ForwardTotal.WithLabelValues(destination, metrics.OutcomeCircuitOpen).Inc()
		return nil, apperrors.CircuitOpen(destination).WithCause(resilience.ErrCircuitOpen)
	}

	detached := context.WithoutCancel(ctx)

	base, err := f.store.Resolve(detached, destination)
	if err != nil {
		f.breakers.OnFailure(destination)
		metrics.ForwardTotal.WithLabelValues(destination, metrics.OutcomeNoInstance).Inc()
		observability.SetSpanError(ctx, err)
		if !errors.Is(err, registry.ErrServiceUnavailable) {
			f.log.WithContext(ctx).Error("Registry resolve failed", map[string]interface{}{
				"destination": destination,
				"error":       err.Error(),
			})
		}
		return nil, apperrors.NoHealthyInstance(destination).WithCause(err)
	}
	span.SetAttributes(attribute.String(observability.AttrAddress, base))

	callCtx, cancel := context.WithTimeout(detached, f.timeout)
	defer cancel()

	header := pickHeaders(req.Headers)
	observability.Inject(ctx, header)

	start := time.Now()
	resp, err := f.client.Do(callCtx, httpclient.Request{
		Method:   req.Method,
		URL:      base + req.Path,
		RawQuery: req.RawQuery,
		Header:   header,
		Body:     req.Body,
	})
	if resp != nil {
		f.breakers.OnSuccess(destination)
		metrics.ForwardTotal.WithLabelValues(destination, metrics.OutcomeRelayed).Inc()
		metrics.ForwardDuration.WithLabelValues(destination).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.Int(observability.AttrStatus, resp.StatusCode))
		return resp, nil
	}
	if httpclient.IsTooLarge(err) {
		f.breakers.OnSuccess(destination)
		metrics.ForwardTotal.WithLabelValues(destination, metrics.OutcomeTooLarge).Inc()
		f.log.WithContext(ctx).Warn("Reply dropped", map[string]interface{}{
			"destination": destination,
			"path":        req.Path,
			"error":       err.Error(),
		})
		return nil, apperrors.ReplyTooLarge(destination).WithCause(err)
	}

	f.breakers.OnFailure(destination)
	metrics.ForwardTotal.WithLabelValues(destination, metrics.OutcomeTransportError).Inc()
	observability.SetSpanError(ctx, err)
	f.log.WithContext(ctx).Warn("Forward failed", map[string]interface{}{
		"destination": destination,
		"address":     base,
		"path":        req.Path,
		"error":       err.Error(),
	})
	if httpclient.IsTimeout(err) {
		return nil, apperrors.Timeout(destination).WithCause(err)
	}
	return nil, apperrors.ConnectionFailed(destination).WithCause(err)
}

func pickHeaders(h http.Header) http.Header {
	out := make(http.Header, len(forwardedHeaders))
	for _, name := range forwardedHeaders {
		if v := h.Values(name); len(v) > 0 {
			out[name] = v
		}
	}
	return out
}
