package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultListLimit bounds ListOutcomes when no positive limit is given.
const DefaultListLimit = 50

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository stores emergency outcomes and delivered messages in Postgres.
type Repository struct {
	db dbConn
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Outcome is a recorded emergency result.
type Outcome struct {
	EmergencyID   string          `db:"emergency_id" json:"emergency_id"`
	HospitalID    string          `db:"hospital_id" json:"hospital_id"`
	BloodType     string          `db:"blood_type" json:"blood_type"`
	UnitsRequired int32           `db:"units_required" json:"units_required"`
	UnitsSecured  int32           `db:"units_secured" json:"units_secured"`
	Status        string          `db:"status" json:"status"`
	Source        string          `db:"source" json:"source"`
	EtaMinutes    int32           `db:"eta_minutes" json:"eta_minutes"`
	Transfers     json.RawMessage `db:"transfers" json:"transfers"`
	Message       string          `db:"message" json:"message"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Delivery is a message the worker handed to its recipient.
type Delivery struct {
	Queue       string
	EmergencyID string
	Recipient   string
	Kind        string
	Message     string
}

func outcomeArgs(res orchestrator.EmergencyResult) ([]any, error) {
	transfers := res.Transfers
	if transfers == nil {
		transfers = []alloc.Transfer{}
	}
	raw, err := json.Marshal(transfers)
	if err != nil {
		return nil, fmt.Errorf("encode transfers: %w", err)
	}
	return []any{
		res.EmergencyID,
		res.HospitalID,
		string(res.BloodType),
		int32(res.UnitsRequired),
		int32(res.UnitsSecured),
		string(res.Status),
		res.Source,
		int32(res.EtaMinutes),
		raw,
		res.Message,
	}, nil
}

// RecordOutcome upserts the result of an emergency. Re-running an
// emergency id overwrites its previous outcome.
func (r *Repository) RecordOutcome(ctx context.Context, res orchestrator.EmergencyResult) error {
	args, err := outcomeArgs(res)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, upsertOutcomeSQL, args...); err != nil {
		return fmt.Errorf("record outcome %s: %w", res.EmergencyID, err)
	}
	return nil
}

// ListOutcomes returns the most recent outcomes first.
func (r *Repository) ListOutcomes(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.Query(ctx, listOutcomesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Outcome])
}

func (r *Repository) RecordDelivery(ctx context.Context, d Delivery) error {
	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	var emergencyID *string
	if d.EmergencyID != "" {
		emergencyID = &d.EmergencyID
	}
	_, err = r.db.Exec(ctx, insertDeliverySQL, id, d.Queue, emergencyID, d.Recipient, d.Kind, d.Message)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

const upsertOutcomeSQL = `
INSERT INTO emergency_outcomes (
    emergency_id, hospital_id, blood_type, units_required, units_secured,
    status, source, eta_minutes, transfers, message
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (emergency_id) DO UPDATE
SET hospital_id    = EXCLUDED.hospital_id,
    blood_type     = EXCLUDED.blood_type,
    units_required = EXCLUDED.units_required,
    units_secured  = EXCLUDED.units_secured,
    status         = EXCLUDED.status,
    source         = EXCLUDED.source,
    eta_minutes    = EXCLUDED.eta_minutes,
    transfers      = EXCLUDED.transfers,
    message        = EXCLUDED.message,
    created_at     = now();
`

const listOutcomesSQL = `
SELECT emergency_id, hospital_id, blood_type, units_required, units_secured,
       status, source, eta_minutes, transfers, message, created_at
FROM emergency_outcomes
ORDER BY created_at DESC
LIMIT $1;
`

const insertDeliverySQL = `
INSERT INTO delivered_notifications (id, queue, emergency_id, recipient, kind, message)
VALUES ($1, $2, $3, $4, $5, $6);
`
