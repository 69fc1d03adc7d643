package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/history"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"
)

// Recorder persists delivered messages. A nil Recorder only logs.
type Recorder interface {
	RecordDelivery(ctx context.Context, d history.Delivery) error
}

// ProcessMessage decodes body according to the queue it came from, logs the
// resulting deliveries and hands them to rec.
func ProcessMessage(ctx context.Context, rec Recorder, queueName string, body []byte) error {
	deliveries, err := decode(queueName, body)
	if err != nil {
		return err
	}
	for _, d := range deliveries {
		logger.Info("[Worker] Delivered",
			"queue", d.Queue,
			"kind", d.Kind,
			"recipient", d.Recipient,
			"message", d.Message,
		)
		if rec == nil {
			continue
		}
		if err := rec.RecordDelivery(ctx, d); err != nil {
			return fmt.Errorf("record delivery for %s: %w", d.Recipient, err)
		}
	}
	return nil
}

func decode(queueName string, body []byte) ([]history.Delivery, error) {
	switch queueName {
	case NotificationQueue:
		var msg NotificationMsg
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		if msg.Notification.Recipient == "" {
			return nil, fmt.Errorf("notification for %s has no recipient", msg.EmergencyID)
		}
		return []history.Delivery{{
			Queue:       queueName,
			EmergencyID: msg.EmergencyID,
			Recipient:   msg.Notification.Recipient,
			Kind:        msg.Notification.Type,
			Message:     msg.Notification.Message,
		}}, nil

	case DonorCallQueue:
		var msg DonorCallMsg
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("decode donor call: %w", err)
		}
		if msg.Donor.DonorID == "" {
			return nil, fmt.Errorf("donor call for %s has no donor", msg.BloodType)
		}
		return []history.Delivery{{
			Queue:     queueName,
			Recipient: msg.Donor.DonorID,
			Kind:      "donor_call",
			Message:   msg.Donor.Message,
		}}, nil

	case AlertQueue:
		var msg AlertMsg
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		out := make([]history.Delivery, 0, len(msg.Expiry)+len(msg.Shortages))
		for _, a := range msg.Expiry {
			out = append(out, history.Delivery{
				Queue:     queueName,
				Recipient: a.From,
				Kind:      "expiry_alert",
				Message:   fmt.Sprintf("Move unit %s to %s: %s", a.UnitID, a.To, a.Reason),
			})
		}
		for _, w := range msg.Shortages {
			out = append(out, history.Delivery{
				Queue:     queueName,
				Recipient: w.HospitalID,
				Kind:      "shortage_alert",
				Message:   fmt.Sprintf("%s risk for %s: %s", w.RiskLevel, w.BloodType, w.RecommendedAction),
			})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown queue %q", queueName)
}
