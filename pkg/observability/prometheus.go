package observability

import (
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusHandler builds an independent Prometheus registry backed by an
// OTel MeterProvider reader and returns the /metrics scrape handler for it.
// Every call gets its own registry, so repeated calls (e.g. in tests) never
// collide over collector registration.
func PrometheusHandler() (http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	// The reader has no metrics source until attached to a provider. This
	// provider is discarded and no instrument is created from it, so the
	// REDMetrics/AnalysisMetrics meters built by Init are not exported
	// through this handler.
	_ = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// DiagnosticsServer exposes /healthz, /readyz, and /metrics over HTTP
// alongside the analyzer's main work, for the long-running serve command.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
}

// NewDiagnosticsServer starts the diagnostics HTTP server at addr, gating
// /readyz on checks and serving Prometheus-formatted metrics at /metrics.
func NewDiagnosticsServer(addr string, checks ...ReadyCheck) (*DiagnosticsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(checks...))

	metricsHandler, err := PrometheusHandler()
	if err != nil {
		return nil, fmt.Errorf("create prometheus handler: %w", err)
	}
	mux.Handle("/metrics", metricsHandler)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux}

	go func() {
		_ = srv.Serve(ln)
	}()

	return &DiagnosticsServer{server: srv, listener: ln}, nil
}

// Addr returns the address the diagnostics server is actually listening on.
func (d *DiagnosticsServer) Addr() string { return d.listener.Addr().String() }

// Close gracefully shuts the diagnostics server down.
func (d *DiagnosticsServer) Close() error {
	if err := d.server.Close(); err != nil {
		return fmt.Errorf("close diagnostics server: %w", err)
	}
	return nil
}
