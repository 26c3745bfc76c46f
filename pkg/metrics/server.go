package metrics

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BuildInfo identifies the running binary and the index format it reads or
// writes. It is exported as docsearch_build_info and shown on the landing page.
type BuildInfo struct {
	Component   string
	IndexFormat string
}

// RegisterBuildInfo registers a constant docsearch_build_info gauge with reg.
func RegisterBuildInfo(reg prometheus.Registerer, info BuildInfo) {
	g := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docsearch_build_info",
			Help: "Always 1; labels carry the component, index format and Go version.",
		},
		[]string{"component", "index_format", "go_version"},
	)
	reg.MustRegister(g)
	g.WithLabelValues(info.Component, info.IndexFormat, runtime.Version()).Set(1)
}

func newMux(info BuildInfo) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><h1>docsearch %s metrics</h1><p>elasticlunr index format %s</p><p><a href="/metrics">/metrics</a></p></body></html>`,
			html.EscapeString(info.Component), html.EscapeString(info.IndexFormat))
	})
	return mux
}

// StartServer serves /metrics on its own port and returns its shutdown func.
// It registers the build info gauge with the default registry, so call it
// once per process.
func StartServer(port int, info BuildInfo) (shutdown func(context.Context) error) {
	RegisterBuildInfo(prometheus.DefaultRegisterer, info)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newMux(info),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr, "component", info.Component)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
