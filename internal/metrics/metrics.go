// Package metrics holds the Prometheus collectors for the swipe, match and
// chat lifecycle.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	Registry *prometheus.Registry

	Swipes      *prometheus.CounterVec
	Matches     *prometheus.CounterVec
	Messages    *prometheus.CounterVec
	BotReplies  *prometheus.CounterVec
	Candidates  prometheus.Histogram
	HTTPLatency *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, so tests can build as
// many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catmatch",
			Name:      "swipes_total",
			Help:      "Swipe decisions recorded, by outcome.",
		}, []string{"liked"}),
		Matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catmatch",
			Name:      "matches_total",
			Help:      "Match reconciliations, by resulting status and path.",
		}, []string{"status", "via"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catmatch",
			Name:      "messages_total",
			Help:      "Chat messages appended, by author kind.",
		}, []string{"author"}),
		BotReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catmatch",
			Name:      "bot_replies_total",
			Help:      "Scheduled bot replies, by result.",
		}, []string{"result"}),
		Candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "catmatch",
			Name:      "candidates_returned",
			Help:      "Candidate list sizes handed to clients.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catmatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.Swipes, m.Matches, m.Messages, m.BotReplies, m.Candidates, m.HTTPLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveSwipe(liked bool) {
	m.Swipes.WithLabelValues(strconv.FormatBool(liked)).Inc()
}

func (m *Metrics) ObserveMatch(status, via string) {
	m.Matches.WithLabelValues(status, via).Inc()
}

func (m *Metrics) ObserveMessage(author string) {
	m.Messages.WithLabelValues(author).Inc()
}

func (m *Metrics) ObserveBotReply(result string) {
	m.BotReplies.WithLabelValues(result).Inc()
}
