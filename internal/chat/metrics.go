package chat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_events_applied_total",
			Help: "Total number of events reduced into the chat store",
		},
		[]string{"event"},
	)

	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_commands_total",
			Help: "Total number of chat commands by outcome",
		},
		[]string{"command", "outcome"},
	)

	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_command_duration_seconds",
			Help:    "Time spent waiting on the network per chat command",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
)

// observeCommand records the outcome of a command started at start.
func observeCommand(command string, start time.Time, err error) {
	commandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	commandsTotal.WithLabelValues(command, string(Classify(err))).Inc()
}
