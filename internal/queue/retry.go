package queue

import (
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MaxRetries is the number of redeliveries before a message is dead-lettered.
const MaxRetries = 10

const retriesHeader = "x-retries"

// retryCount reads the retry header. AMQP decodes integers as int32 or
// int64 depending on how they were written.
func retryCount(headers amqp.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// nextRoute decides where a failed message goes: the retry queue with an
// incremented header, or the dead letter queue once MaxRetries is reached.
func nextRoute(queueName string, headers amqp.Table) (target string, out amqp.Table) {
	retries := retryCount(headers)

	out = amqp.Table{}
	for k, v := range headers {
		out[k] = v
	}
	if retries >= MaxRetries {
		return queueName + "_dlq", out
	}
	out[retriesHeader] = int32(retries + 1)
	return queueName + "_retry", out
}

// HandleProcessingError republishes a failed delivery to its retry or dead
// letter queue and acks the original. If republishing fails the delivery
// is requeued.
func HandleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	target, headers := nextRoute(queueName, msg.Headers)
	if target == queueName+"_dlq" {
		logger.Info("[Queue] Sending message to DLQ", "dlq", target)
	}

	pubErr := ch.Publish(
		"",
		target,
		false,
		false,
		amqp.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to republish message", "target", target, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
