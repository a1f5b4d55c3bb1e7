package types

// Action names used in the structured log context.
const (
	ActionRabbitMQConnected      = "rabbitmq_connected"
	ActionRabbitConnectionClosed = "rabbitmq_connection_closed"
	ActionRabbitReconnected      = "rabbitmq_reconnected"
	ActionKafkaConnected         = "kafka_connected"
	ActionRedisConnected         = "redis_connected"
)
