package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Realtime metrics
	WebSocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
	)

	RoomsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rooms_total",
			Help: "Current number of non-empty rooms",
		},
	)

	RoomMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_messages_dropped_total",
			Help: "Messages dropped because a subscriber write buffer was full",
		},
	)

	// Business metrics
	RidesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rides_total",
			Help: "Total number of ride transitions by resulting status",
		},
		[]string{"status"},
	)

	AcceptRaceLosses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ride_accept_race_losses_total",
			Help: "Accept calls rejected because the ride was already assigned",
		},
	)

	LocationSamplesAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "location_samples_accepted_total",
			Help: "Location samples accepted by the broadcast pipeline",
		},
	)

	LocationSamplesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "location_samples_dropped_total",
			Help: "Location samples dropped as stale",
		},
	)

	SOSIncidentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_incidents_total",
			Help: "SOS incidents created by declared type",
		},
		[]string{"type"},
	)

	DispatchCandidatesNotified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_candidates_notified_total",
			Help: "Ride offers sent to candidate drivers",
		},
	)

	// Broker metrics
	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"routing_key", "status"},
	)

	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_published_total",
			Help: "Total number of messages written to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(routingKey string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RabbitMQMessagesPublished.WithLabelValues(routingKey, status).Inc()
}

// RecordKafkaPublish records Kafka publish metrics
func RecordKafkaPublish(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
