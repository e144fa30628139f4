package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		gatewayConnections,
		gatewayEventsDelivered,
		gatewayEventsDropped,
	)
}

var (
	gatewayConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_connections",
			Help: "Current number of open WebSocket connections.",
		},
	)

	gatewayEventsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_events_delivered_total",
			Help: "Count of job update events delivered to subscribed clients.",
		},
	)

	gatewayEventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_events_dropped_total",
			Help: "Count of events dropped because a client send buffer was full.",
		},
	)
)

// GatewayConnOpened records a new WebSocket connection.
func GatewayConnOpened() {
	gatewayConnections.Inc()
}

// GatewayConnClosed records a closed WebSocket connection.
func GatewayConnClosed() {
	gatewayConnections.Dec()
}

// GatewayEventDelivered records one event handed to a client.
func GatewayEventDelivered() {
	gatewayEventsDelivered.Inc()
}

// GatewayEventDropped records one event discarded for a slow client.
func GatewayEventDropped() {
	gatewayEventsDropped.Inc()
}
