package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ablizer/ablizer/internal/analysis"
)

// metrics holds the Prometheus collectors for the API.
type metrics struct {
	reportsRecorded *prometheus.CounterVec
	invalidInput    *prometheus.CounterVec
	rateLimited     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, cache *analysis.Cache) *metrics {
	factory := promauto.With(reg)

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "ablizer_result_cache_hits_total",
		Help: "Calculator results served from the cache",
	}, func() float64 {
		hits, _ := cache.Stats()
		return float64(hits)
	})
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "ablizer_result_cache_misses_total",
		Help: "Calculator results computed because they were not cached",
	}, func() float64 {
		_, misses := cache.Stats()
		return float64(misses)
	})

	return &metrics{
		reportsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ablizer_reports_recorded_total",
				Help: "Reports stored through the API by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		invalidInput: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ablizer_invalid_input_total",
				Help: "Count submissions rejected by the calculator, by field",
			},
			[]string{"field"},
		),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "ablizer_rate_limited_total",
			Help: "Count submissions rejected by the rate limiter",
		}),
	}
}
