package queue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/metrics"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"
)

// NotificationMsg carries one emergency notification to the worker.
type NotificationMsg struct {
	EmergencyID  string                    `json:"emergency_id"`
	Notification orchestrator.Notification `json:"notification"`
	CreatedAt    time.Time                 `json:"created_at"`
}

// DonorCallMsg asks the worker to contact one donor.
type DonorCallMsg struct {
	BloodType bloodtype.BloodType         `json:"blood_type"`
	Urgency   string                      `json:"urgency"`
	Donor     orchestrator.DonorCandidate `json:"donor"`
	CreatedAt time.Time                   `json:"created_at"`
}

// AlertMsg is published on the alerts topics by the inventory sweep.
type AlertMsg struct {
	Kind      string                         `json:"kind"`
	Expiry    []orchestrator.ExpiryAction    `json:"expiry,omitempty"`
	Shortages []orchestrator.ShortageWarning `json:"shortages,omitempty"`
	CreatedAt time.Time                      `json:"created_at"`
}

const (
	AlertKindExpiry   = "expiry"
	AlertKindShortage = "shortage"
)

func publishJSON(destination string, v any, send func([]byte) error) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := send(body); err != nil {
		metrics.MessagesPublished.WithLabelValues(destination, "error").Inc()
		return err
	}
	metrics.MessagesPublished.WithLabelValues(destination, "ok").Inc()
	return nil
}

// PublishEmergency queues every notification of res. All notifications are
// attempted; the joined error reports the ones that failed.
func PublishEmergency(p Publisher, res orchestrator.EmergencyResult) error {
	now := time.Now()
	var errs []error
	for _, n := range res.Notifications {
		msg := NotificationMsg{EmergencyID: res.EmergencyID, Notification: n, CreatedAt: now}
		errs = append(errs, publishJSON(NotificationQueue, msg, func(b []byte) error {
			return p.PublishFIFO(NotificationQueue, b)
		}))
	}
	return errors.Join(errs...)
}

// PublishDonorCalls queues one call per donor.
func PublishDonorCalls(p Publisher, bt bloodtype.BloodType, urgency string, donors []orchestrator.DonorCandidate) error {
	now := time.Now()
	var errs []error
	for _, d := range donors {
		msg := DonorCallMsg{BloodType: bt, Urgency: urgency, Donor: d, CreatedAt: now}
		errs = append(errs, publishJSON(DonorCallQueue, msg, func(b []byte) error {
			return p.PublishFIFO(DonorCallQueue, b)
		}))
	}
	return errors.Join(errs...)
}

// PublishAlerts sends the expiry and shortage findings of a sweep. Empty
// findings are not published.
func PublishAlerts(p Publisher, actions []orchestrator.ExpiryAction, warnings []orchestrator.ShortageWarning) error {
	now := time.Now()
	var errs []error
	if len(actions) > 0 {
		msg := AlertMsg{Kind: AlertKindExpiry, Expiry: actions, CreatedAt: now}
		errs = append(errs, publishJSON(TopicExpiry, msg, func(b []byte) error {
			return p.PublishTopic(TopicExpiry, b)
		}))
	}
	if len(warnings) > 0 {
		msg := AlertMsg{Kind: AlertKindShortage, Shortages: warnings, CreatedAt: now}
		errs = append(errs, publishJSON(TopicShortage, msg, func(b []byte) error {
			return p.PublishTopic(TopicShortage, b)
		}))
	}
	return errors.Join(errs...)
}
