// Package metrics exposes the daemon's operational counters. Everything is
// registered on a private registry so tests never collide through the
// prometheus default registerer.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ipmint/go-registrar/pkg/models"
)

type Set struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	uploadedBytes prometheus.Counter
	rpcRequests   *prometheus.CounterVec

	mu       sync.Mutex
	snapshot models.MetricsSnapshot
}

func NewSet() *Set {
	s := &Set{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipmint",
			Name:      "registration_runs_total",
			Help:      "Completed registration runs by result.",
		}, []string{"result"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ipmint",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ipmint",
			Name:      "ipfs_uploaded_bytes_total",
			Help:      "Payload bytes shipped to the pinning node.",
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipmint",
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests by method and outcome.",
		}, []string{"method", "outcome"}),
	}
	s.registry.MustRegister(s.runsTotal, s.stageDuration, s.uploadedBytes, s.rpcRequests)
	return s
}

// Handler serves the registry in the prometheus exposition format.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Set) ObserveRun(success bool) {
	result := "error"
	if success {
		result = "success"
	}
	s.runsTotal.WithLabelValues(result).Inc()

	s.mu.Lock()
	s.snapshot.RunsTotal++
	if success {
		s.snapshot.RunsSucceeded++
	} else {
		s.snapshot.RunsFailed++
	}
	s.snapshot.LastRunAt = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Set) ObserveStage(stage models.WorkflowStatus, elapsed time.Duration) {
	s.stageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}

func (s *Set) AddUploadedBytes(n int) {
	if n <= 0 {
		return
	}
	s.uploadedBytes.Add(float64(n))

	s.mu.Lock()
	s.snapshot.UploadedBytes += int64(n)
	s.mu.Unlock()
}

func (s *Set) ObserveRPC(method string, ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	s.rpcRequests.WithLabelValues(method, outcome).Inc()
}

// Snapshot returns the plain counters served over get_metrics, independent
// of the prometheus exposition endpoint.
func (s *Set) Snapshot() models.MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}
