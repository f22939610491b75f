package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/aryaranggads/powerpay/internal/core/domain"
)

const statusTopic = "payment.status-changed"

// statusEvent is the payload consumed by the external mailer/alerting
// services.
type statusEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		OrderID       string    `json:"order_id"`
		UserID        string    `json:"user_id"`
		Email         string    `json:"email"`
		Status        string    `json:"status"`
		PaymentType   string    `json:"payment_type"`
		PaymentDetail string    `json:"payment_detail"`
		GrossAmount   int64     `json:"gross_amount"`
		OccurredAt    time.Time `json:"occurred_at"`
	} `json:"data"`
}

// Publisher emits transaction status changes to Kafka. It implements
// payment.EventPublisher.
type Publisher struct {
	producer sarama.SyncProducer
}

func NewPublisher(brokers []string) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &Publisher{producer: producer}, nil
}

func (p *Publisher) StatusChanged(_ context.Context, tx *domain.Transaction) error {
	var ev statusEvent
	ev.EventType = "payment.status-changed"
	ev.Data.OrderID = tx.OrderID
	ev.Data.UserID = tx.UserID
	ev.Data.Email = tx.Email
	ev.Data.Status = string(tx.Status)
	ev.Data.PaymentType = tx.PaymentType
	ev.Data.PaymentDetail = tx.PaymentDetail
	ev.Data.GrossAmount = tx.GrossAmount
	ev.Data.OccurredAt = tx.TransactionTime

	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: statusTopic,
		Key:   sarama.StringEncoder(tx.OrderID),
		Value: sarama.ByteEncoder(raw),
	})
	return err
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
