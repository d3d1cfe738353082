package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/checkout-engine/checkout"
)

// =============================================================================
// METRICS - Prometheus collectors on a private registry
// =============================================================================

// Metrics records HTTP traffic and checkout outcomes. It implements
// checkout.Observer.
type Metrics struct {
	registry *prometheus.Registry

	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	Checkouts        *prometheus.CounterVec
	CheckoutDuration prometheus.Histogram
	Revenue          *prometheus.CounterVec
	PointsRedeemed   prometheus.Counter
	PointsEarned     prometheus.Counter
	PartialCommits   prometheus.Counter
}

var _ checkout.Observer = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "attempts_total",
			Help:      "Checkout attempts by final state and abort reason.",
		}, []string{"state", "reason"}),
		CheckoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "duration_seconds",
			Help:      "Time from guard to commit or abort.",
			Buckets:   prometheus.DefBuckets,
		}),
		Revenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "revenue_total",
			Help:      "Sum of committed final totals by payment method.",
		}, []string{"method"}),
		PointsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "points_redeemed_total",
			Help:      "Loyalty points redeemed by committed checkouts.",
		}),
		PointsEarned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "points_earned_total",
			Help:      "Loyalty points accrued by committed checkouts.",
		}),
		PartialCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "partial_commits_total",
			Help:      "Compensation steps that failed while unwinding a checkout.",
		}),
	}
	m.registry.MustRegister(
		m.Requests, m.LatencyMS,
		m.Checkouts, m.CheckoutDuration, m.Revenue,
		m.PointsRedeemed, m.PointsEarned, m.PartialCommits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Register adds extra collectors, such as the open cart gauge.
func (m *Metrics) Register(cs ...prometheus.Collector) {
	m.registry.MustRegister(cs...)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCheckout implements checkout.Observer.
func (m *Metrics) ObserveCheckout(res checkout.Result, elapsed time.Duration) {
	m.Checkouts.WithLabelValues(string(res.State), string(res.Reason())).Inc()
	m.CheckoutDuration.Observe(elapsed.Seconds())
	m.PartialCommits.Add(float64(len(res.Warnings)))

	if !res.Committed() || res.Receipt == nil {
		return
	}
	m.Revenue.WithLabelValues(string(res.Receipt.PaymentMethod)).Add(res.Receipt.FinalTotal.Value.InexactFloat64())
	m.PointsRedeemed.Add(float64(res.Receipt.PointsRedeemed))
	m.PointsEarned.Add(float64(res.Receipt.PointsEarned))
}

// Middleware counts requests by chi route pattern, so ids in the path do
// not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}
