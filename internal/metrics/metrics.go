package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pantheon",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by route and status code.",
	}, []string{"route", "code"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pantheon",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"route"})
	FigureMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pantheon",
		Name:      "figure_mutations_total",
		Help:      "Figures created, updated or deleted through the record service.",
	}, []string{"op"})
	ImportRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pantheon",
		Name:      "import_rows_total",
		Help:      "Imported rows by outcome.",
	}, []string{"result"})
	SummaryFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pantheon",
		Name:      "summary_fetches_total",
		Help:      "Article summary fetch attempts by outcome.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(FigureMutationsTotal)
	prometheus.MustRegister(ImportRowsTotal)
	prometheus.MustRegister(SummaryFetchesTotal)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument counts and times requests under a fixed route label.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &codeRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type codeRecorder struct {
	http.ResponseWriter
	code int
}

func (c *codeRecorder) WriteHeader(code int) {
	c.code = code
	c.ResponseWriter.WriteHeader(code)
}
