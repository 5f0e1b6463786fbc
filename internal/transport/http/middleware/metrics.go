package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pickfast_http_requests_total",
		Help: "HTTP requests, by engine, route, method and status.",
	}, []string{"engine", "route", "method", "status"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pickfast_http_request_duration_seconds",
		Help:    "HTTP request latency, by engine and route.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"engine", "route", "method"})
	httpInFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pickfast_http_requests_in_flight",
		Help: "HTTP requests being served, by engine.",
	}, []string{"engine"})
)

func init() { prometheus.MustRegister(httpRequests, httpDuration, httpInFlight) }

// Metrics instruments one engine ("api" or "admin"). Routes are labelled by
// template; requests that match no route share the "unmatched" label.
func Metrics(engine string) gin.HandlerFunc {
	inFlight := httpInFlight.WithLabelValues(engine)
	return func(c *gin.Context) {
		start := time.Now()
		inFlight.Inc()
		defer inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(engine, route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(engine, route, method).Observe(time.Since(start).Seconds())
	}
}
