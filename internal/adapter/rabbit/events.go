package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/metrics"
	"github.com/Temutjin2k/ride-coordination/pkg/rabbit"
)

const RideExchange = "ride_topic"

// EventBroker публикует события поездок и SOS во внешний мир.
// Downstream consumers (billing, analytics, responder workflow) bind their
// own queues to the topic exchange.
type EventBroker struct {
	client   *rabbit.RabbitMQ
	exchange string

	l logger.Logger
}

func NewEventBroker(client *rabbit.RabbitMQ, log logger.Logger) (*EventBroker, error) {
	b := &EventBroker{
		client:   client,
		exchange: RideExchange,
		l:        log,
	}

	if err := b.client.Channel.ExchangeDeclare(
		b.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("event broker: declare exchange: %w", err)
	}

	return b, nil
}

// публикует событие об изменении статуса поездки.
// отправляет в exchange 'ride_topic' с ключом 'ride.status.{status}'.
func (b *EventBroker) PublishRideStatus(ctx context.Context, msg models.RideStatusMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_ride_status")

	key := fmt.Sprintf("ride.status.%s", msg.Status)

	err := b.publish(ctx, key, msg)
	metrics.RecordRabbitMQPublish(key, err)
	return err
}

// публикует сигнал SOS для службы реагирования.
// отправляет в exchange 'ride_topic' с ключом 'sos.alert.{type}'.
func (b *EventBroker) PublishSOSAlert(ctx context.Context, msg models.SOSAlertMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_sos_alert")

	key := fmt.Sprintf("sos.alert.%s", msg.Type)

	err := b.publish(ctx, key, msg)
	metrics.RecordRabbitMQPublish(key, err)
	return err
}

func (b *EventBroker) publish(ctx context.Context, key string, msg any) error {
	// Проверяем и восстанавливаем соединение
	if err := b.client.EnsureConnection(ctx); err != nil {
		b.l.Error(ctx, "ensure connection failed", err)
		return wrap.Error(ctx, err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	if err := retry(5, time.Second, func() error {
		if err := b.client.Channel.PublishWithContext(
			ctx,
			b.exchange, // exchange
			key,        // routing key
			false,      // mandatory
			false,      // immediate
			amqp091.Publishing{
				ContentType:   "application/json",
				CorrelationId: wrap.GetRequestID(ctx),
				Body:          body,
				Timestamp:     time.Now(),
			},
		); err != nil {
			return fmt.Errorf("failed to publish with context: %w", err)
		}
		return nil
	}); err != nil {
		return wrap.Error(ctx, err)
	}

	return nil
}

func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for range n {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(sleep)
	}
	return err
}
