package observability

import "fmt"

// Span exporters.
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
)

// TracerConfig controls span export. With Enabled false the global no-op
// provider stays installed and spans cost nothing.
type TracerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`
	// Exporter is "otlp" or "stdout".
	Exporter string `mapstructure:"exporter"`
	// Endpoint is the collector's OTLP/HTTP host:port.
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
	// SampleRate is the fraction of new traces recorded. Traces started
	// upstream follow the caller's decision.
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracerConfig targets a local collector and samples everything.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Exporter:       ExporterOTLP,
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1,
	}
}

// ApplyDefaults fills unset fields from DefaultTracerConfig.
func (c *TracerConfig) ApplyDefaults(serviceName string) {
	d := DefaultTracerConfig(serviceName)
	for _, f := range []struct {
		dst *string
		def string
	}{
		{&c.ServiceName, d.ServiceName},
		{&c.ServiceVersion, d.ServiceVersion},
		{&c.Environment, d.Environment},
		{&c.Exporter, d.Exporter},
		{&c.Endpoint, d.Endpoint},
	} {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
	if c.SampleRate == 0 {
		c.SampleRate = d.SampleRate
	}
}

// Validate checks the exporter and the sample rate.
func (c *TracerConfig) Validate() error {
	switch c.Exporter {
	case "", ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("tracing.exporter must be %q or %q (got: %s)", ExporterOTLP, ExporterStdout, c.Exporter)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1] (got: %v)", c.SampleRate)
	}
	return nil
}
