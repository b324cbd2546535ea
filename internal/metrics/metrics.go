// Package metrics exposes the user lifecycle counters on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder struct {
	registry *prometheus.Registry

	created prometheus.Counter
	updated prometheus.Counter
	deleted prometheus.Counter
	read    prometheus.Counter
}

// New registers the counters on a fresh registry along with the Go runtime
// and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		registry: reg,
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "users_created_total",
			Help: "Total number of users created",
		}),
		updated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "users_updated_total",
			Help: "Total number of users updated",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "users_deleted_total",
			Help: "Total number of users deleted",
		}),
		read: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "users_read_total",
			Help: "Total number of user list reads",
		}),
	}
	reg.MustRegister(r.created, r.updated, r.deleted, r.read)
	return r
}

func (r *Recorder) UserCreated() { r.created.Inc() }
func (r *Recorder) UserUpdated() { r.updated.Inc() }
func (r *Recorder) UserDeleted() { r.deleted.Inc() }
func (r *Recorder) UsersRead()   { r.read.Inc() }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
