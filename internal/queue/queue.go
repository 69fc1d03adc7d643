package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/util"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	NotificationQueue = "notification_queue"
	DonorCallQueue    = "donor_call_queue"
	AlertQueue        = "alert_queue"

	AlertsExchange = "pubsub_exchange"
	TopicExpiry    = "alerts.expiry"
	TopicShortage  = "alerts.shortage"

	retryDelayMs = 10000
)

// Queues lists every work queue consumed by the worker.
var Queues = []string{NotificationQueue, DonorCallQueue, AlertQueue}

// Init dials RabbitMQ from the RABBITMQ_* environment.
func Init() (*amqp091.Connection, error) {
	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnvString("RABBITMQ_USER", "guest"),
		util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
		util.GetEnvString("RABBITMQ_HOST", "localhost"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	return conn, nil
}

// SetupQueues declares the alerts exchange and, per queue, the queue itself
// with a dead letter queue and a retry queue that routes back after a delay.
// The alert queue is bound to every alerts.* topic.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	if err := declareExchange(ch); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryDelayMs),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("declare %s: %w", retryName, err)
		}
	}

	for _, name := range queueNames {
		if name != AlertQueue {
			continue
		}
		if err := ch.QueueBind(AlertQueue, "alerts.*", AlertsExchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", AlertQueue, err)
		}
	}

	logger.Debug("[Queue] Queues declared", "queues", queueNames)
	return nil
}

func declareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		AlertsExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

// Publisher sends message bodies to a work queue or to the alerts exchange.
type Publisher interface {
	PublishFIFO(queueName string, data []byte) error
	PublishTopic(topic string, data []byte) error
}

// ChannelPublisher publishes over a single AMQP channel. Channels are not
// safe for concurrent publishing, so calls are serialised.
type ChannelPublisher struct {
	mu sync.Mutex
	ch *amqp091.Channel
}

func NewChannelPublisher(ch *amqp091.Channel) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func persistent(data []byte) amqp091.Publishing {
	return amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}
}

func (p *ChannelPublisher) PublishFIFO(queueName string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	q, err := p.ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}
	return p.ch.Publish("", q.Name, false, false, persistent(data))
}

func (p *ChannelPublisher) PublishTopic(topic string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := declareExchange(p.ch); err != nil {
		return err
	}
	return p.ch.Publish(AlertsExchange, topic, false, false, persistent(data))
}
