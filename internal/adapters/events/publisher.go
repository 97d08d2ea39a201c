// Package events publishes certificate workflow events to RabbitMQ.
// Events are sent after the workflow commits; failures are logged and
// returned for the caller to ignore.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names, published through the default exchange
const (
	QueueCertificateSubmitted     = "certificate.submitted"
	QueueCertificateStatusChanged = "certificate.status_changed"
)

// CertificateSubmitted is emitted after a request and its moderator
// notifications are committed
type CertificateSubmitted struct {
	RequestID       uint      `json:"request_id"`
	UserID          uint      `json:"user_id"`
	BarangayID      *uint     `json:"barangay_id"`
	CertificateType string    `json:"certificate_type"`
	ModeratorCount  int       `json:"moderator_count"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// CertificateStatusChanged is emitted after an approve or decline commits
type CertificateStatusChanged struct {
	RequestID uint      `json:"request_id"`
	UserID    uint      `json:"user_id"`
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

// Publisher sends a JSON event to a named queue
type Publisher interface {
	Publish(ctx context.Context, queue string, event interface{}) error
}

// AMQPPublisher dials the broker for each publish
type AMQPPublisher struct {
	url string
}

// NewAMQPPublisher creates a publisher for url
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

// Publish declares the durable queue and sends a persistent JSON message
func (p *AMQPPublisher) Publish(ctx context.Context, queue string, event interface{}) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("⚠️ rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("⚠️ rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		log.Printf("⚠️ rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ rabbitmq: encode %s event failed: %v", queue, err)
		return err
	}

	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	); err != nil {
		log.Printf("⚠️ rabbitmq: publish to %s failed: %v", queue, err)
		return err
	}

	return nil
}
