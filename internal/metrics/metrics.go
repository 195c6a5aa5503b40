package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	Runs           prometheus.Counter
	RuleErrors     prometheus.Counter
	RunLatencySec  prometheus.Histogram
	LastErrorCount prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "onselect_runs_total"})
	ruleErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "onselect_rule_errors_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "onselect_run_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	lastErrs := prometheus.NewGauge(prometheus.GaugeOpts{Name: "onselect_last_error_count"})

	r.MustRegister(runs, ruleErrors, latency, lastErrs)
	return &Registry{
		reg:            r,
		Runs:           runs,
		RuleErrors:     ruleErrors,
		RunLatencySec:  latency,
		LastErrorCount: lastErrs,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
