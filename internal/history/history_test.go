package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs []execCall
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func TestRecordOutcome(t *testing.T) {
	db := &fakeDB{}
	repo := &Repository{db: db}

	res := orchestrator.EmergencyResult{
		EmergencyID:   "e1",
		HospitalID:    "h1",
		BloodType:     bloodtype.APos,
		UnitsRequired: 3,
		UnitsSecured:  2,
		Status:        orchestrator.StatusPartial,
		Transfers: []alloc.Transfer{
			{UnitID: "u1", From: "b1", To: "h1", DistanceKM: 1.5},
		},
		EtaMinutes: 5,
		Message:    "partial",
	}
	require.NoError(t, repo.RecordOutcome(context.Background(), res))
	require.Len(t, db.execs, 1)

	args := db.execs[0].args
	require.Len(t, args, 10)
	assert.Equal(t, "e1", args[0])
	assert.Equal(t, "A+", args[2])
	assert.Equal(t, int32(2), args[4])
	assert.Equal(t, "partial", args[5])

	var transfers []alloc.Transfer
	require.NoError(t, json.Unmarshal(args[8].([]byte), &transfers))
	require.Len(t, transfers, 1)
	assert.Equal(t, "u1", transfers[0].UnitID)
}

func TestRecordOutcomeEncodesEmptyTransfers(t *testing.T) {
	args, err := outcomeArgs(orchestrator.EmergencyResult{EmergencyID: "e2", Status: orchestrator.StatusFailed})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(args[8].([]byte)))
}

func TestRecordOutcomeWrapsError(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	err := (&Repository{db: db}).RecordOutcome(context.Background(), orchestrator.EmergencyResult{EmergencyID: "e3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, db.err)
	assert.Contains(t, err.Error(), "e3")
}

func TestRecordDelivery(t *testing.T) {
	db := &fakeDB{}
	repo := &Repository{db: db}

	require.NoError(t, repo.RecordDelivery(context.Background(), Delivery{
		Queue: "donor_call_queue", Recipient: "d1", Kind: "donor_call", Message: "hi",
	}))
	require.NoError(t, repo.RecordDelivery(context.Background(), Delivery{
		Queue: "notification_queue", EmergencyID: "e1", Recipient: "h1", Kind: "blood_incoming",
	}))
	require.Len(t, db.execs, 2)

	first := db.execs[0].args
	assert.NotEmpty(t, first[0])
	assert.Nil(t, first[2].(*string))

	second := db.execs[1].args
	require.NotNil(t, second[2].(*string))
	assert.Equal(t, "e1", *second[2].(*string))
	assert.NotEqual(t, first[0], second[0])
}
