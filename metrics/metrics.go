// Package metrics wires an optional Prometheus registry to the
// keyspace and command dispatcher. Grounded on
// aravinth-kanesh-distributed-cache's handler.go, which injects a
// *prometheus.CounterVec and *prometheus.HistogramVec into the command
// handler post-construction (SetMetrics) to avoid a circular import
// between the server and metrics packages, and nil-guards every use so
// the handler works identically with metrics disabled.
//
// Registry only ever has values written into it by the event loop's
// single thread; the HTTP handler that scrapes it runs on a separate
// goroutine, which is safe because prometheus's collector types are
// internally synchronized for exactly this producer/consumer split —
// it does not require a lock around any state this system owns.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the collectors the event loop updates after each
// periodic maintenance pass and each command dispatch.
type Registry struct {
	registry    *prometheus.Registry
	cmdCount    *prometheus.CounterVec
	usedMemory  prometheus.Gauge
	maxMemory   prometheus.Gauge
	evictedKeys prometheus.Gauge
	liveKeys    prometheus.Gauge

	server *http.Server
}

// New builds a Registry and registers its collectors. Metrics are
// inert until Serve is called.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		cmdCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redisloop_commands_total",
			Help: "Number of commands dispatched, by command name.",
		}, []string{"command"}),
		usedMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redisloop_used_memory_bytes",
			Help: "Estimated keyspace memory usage in bytes.",
		}),
		maxMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redisloop_max_memory_bytes",
			Help: "Configured memory ceiling in bytes.",
		}),
		evictedKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redisloop_evicted_keys_total",
			Help: "Cumulative number of keys evicted for memory pressure.",
		}),
		liveKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redisloop_keys",
			Help: "Number of live keys in the keyspace.",
		}),
	}
	reg.MustRegister(r.cmdCount, r.usedMemory, r.maxMemory, r.evictedKeys, r.liveKeys)
	return r
}

// ObserveCommand increments the per-command counter. Called from the
// dispatcher's single thread; safe because CounterVec is designed for
// exactly this write-many/read-elsewhere split.
func (r *Registry) ObserveCommand(name string) {
	if r == nil {
		return
	}
	r.cmdCount.WithLabelValues(name).Inc()
}

// PublishMemoryStats is called once per periodic maintenance pass to
// republish the keyspace's current counters as gauges.
func (r *Registry) PublishMemoryStats(usedBytes, maxBytes, evictedTotal int64, liveKeys int) {
	if r == nil {
		return
	}
	r.usedMemory.Set(float64(usedBytes))
	r.maxMemory.Set(float64(maxBytes))
	r.evictedKeys.Set(float64(evictedTotal))
	r.liveKeys.Set(float64(liveKeys))
}

// Serve starts the metrics HTTP listener on its own goroutine. It
// never touches keyspace or connection state directly; it only serves
// whatever the registry's collectors currently hold.
func (r *Registry) Serve(addr string) {
	if r == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	r.server = &http.Server{Addr: addr, Handler: mux}
	go r.server.ListenAndServe()
}

// Shutdown stops the metrics HTTP listener, if it was started.
func (r *Registry) Shutdown() {
	if r == nil || r.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r.server.Shutdown(ctx)
}
