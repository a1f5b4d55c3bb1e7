package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/pkg/metrics"
)

const writeTimeout = 2 * time.Second

// SampleLog пишет принятые отчеты о позиции в Kafka.
// Keyed by driver id so each driver's samples stay ordered in a partition.
type SampleLog struct {
	writer *kafka.Writer
	topic  string
}

func NewSampleLog(brokers []string, topic string) *SampleLog {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &SampleLog{writer: w, topic: topic}
}

func (s *SampleLog) Append(ctx context.Context, sample models.LocationSample) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	body, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("sample log: marshal: %w", err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sample.DriverID.String()),
		Value: body,
	})
	metrics.RecordKafkaPublish(s.topic, err)
	if err != nil {
		return fmt.Errorf("sample log: write: %w", err)
	}
	return nil
}

func (s *SampleLog) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
