// Package observability wires OpenTelemetry tracing into the gateway.
//
// TracerComponent installs an OTLP/HTTP exporting provider when tracing is
// enabled. HTTPMiddleware opens a server span per inbound request and the
// forwarder injects the trace context into every backend call, so a request
// shows up as one trace across the gateway and the services behind it.
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanForward)
//	defer span.End()
//	observability.Inject(ctx, header)
package observability
