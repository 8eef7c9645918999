package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "geohunt"

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	HuntsStarted     prometheus.Counter
	CluesSolved      prometheus.Counter
	SolveRejections  *prometheus.CounterVec
	HuntsCompleted   *prometheus.CounterVec
	Redemptions      *prometheus.CounterVec
	ActivityFailures prometheus.Counter

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		HuntsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hunts_started_total",
			Help:      "Hunts started for the first time by a participant",
		}),
		CluesSolved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clues_solved_total",
			Help:      "Accepted clue answers",
		}),
		SolveRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solve_rejections_total",
			Help:      "Rejected clue submissions by reason",
		}, []string{"reason"}),
		HuntsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hunts_completed_total",
			Help:      "Completed hunts, labelled by whether a prize was issued",
		}, []string{"prize"}),
		Redemptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Credential redemption attempts by result",
		}, []string{"result"}),
		ActivityFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_failures_total",
			Help:      "Activity events that could not be recorded",
		}),
		RequestCounter: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of requests",
		}, []string{"route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
