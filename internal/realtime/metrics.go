package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dialAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_socket_dial_attempts_total",
		Help: "Socket dial attempts by outcome.",
	}, []string{"outcome"})

	framesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_socket_frames_received_total",
		Help: "Server frames received by event name.",
	}, []string{"event"})

	framesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_socket_frames_sent_total",
		Help: "Client frames queued by event name.",
	}, []string{"event"})

	connectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chatsync_socket_status",
		Help: "1 for the current connection status, 0 otherwise.",
	}, []string{"status"})
)

func recordStatus(current Status) {
	for _, s := range allStatuses {
		value := 0.0
		if s == current {
			value = 1
		}
		connectionStatus.WithLabelValues(string(s)).Set(value)
	}
}
