package telemetry

import (
	"os"
	"strconv"
	"strings"
)

// Config holds OpenTelemetry tracing settings.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP collector address. An http:// scheme implies an
	// insecure connection.
	Endpoint string

	// Protocol is "grpc" (default) or "http/protobuf".
	Protocol string
	Headers  map[string]string
	Insecure bool

	// Sampler is one of always_on, always_off, traceidratio,
	// parentbased_always_on, parentbased_always_off, parentbased_traceidratio.
	Sampler string

	// SampleRatio is used by the ratio samplers. Clamped to [0, 1].
	SampleRatio float64

	ResourceAttrs map[string]string
}

// DefaultConfig returns tracing disabled with gRPC export and full sampling.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "profvis",
		ServiceVersion: "dev",
		Protocol:       "grpc",
		Sampler:        "always_on",
		SampleRatio:    1.0,
		Headers:        map[string]string{},
		ResourceAttrs:  map[string]string{},
	}
}

// ApplyEnv overrides fields from the standard OTEL_* environment variables.
// OTEL_ENABLED=true turns tracing on.
func (c *Config) ApplyEnv() *Config {
	if v, ok := os.LookupEnv("OTEL_ENABLED"); ok {
		c.Enabled = strings.EqualFold(v, "true")
	}
	setString(&c.ServiceName, "OTEL_SERVICE_NAME")
	setString(&c.ServiceVersion, "OTEL_SERVICE_VERSION")
	setString(&c.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Protocol, "OTEL_EXPORTER_OTLP_PROTOCOL")
	setString(&c.Sampler, "OTEL_TRACES_SAMPLER")
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		c.Insecure = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		c.SampleRatio = parseRatio(v)
	}
	for k, v := range ParseKeyValuePairs(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")) {
		c.Headers[k] = v
	}
	for k, v := range ParseKeyValuePairs(os.Getenv("OTEL_RESOURCE_ATTRIBUTES")) {
		c.ResourceAttrs[k] = v
	}
	return c
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ParseKeyValuePairs parses "k1=v1,k2=v2". Entries without a key are
// dropped; values may contain '='.
func ParseKeyValuePairs(s string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		result[key] = strings.TrimSpace(value)
	}
	return result
}

// parseRatio returns 1.0 for unparsable input.
func parseRatio(s string) float64 {
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1.0
	}
	return clampRatio(ratio)
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
