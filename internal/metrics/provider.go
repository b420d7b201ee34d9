package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// SetupGlobalMeterProvider wires an OTel Prometheus exporter as the
// global meter provider, returning an http.Handler to mount at /metrics
// (spec §11.4). Call once during startup; instruments NewDispatch created
// earlier through otel.Meter forward to this provider once it is set.
func SetupGlobalMeterProvider() (http.Handler, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, err
	}
	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return promhttp.Handler(), nil
}
