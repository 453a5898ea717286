package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecobin/ecobin-api/internal/pkg/database"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// AppendTx inserts e inside tx. There is no update or delete.
func (r *Repository) AppendTx(ctx context.Context, tx *sqlx.Tx, e *Event) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO submission_events (id, submission_id, actor_id, event_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.SubmissionID, e.ActorID, string(e.EventType), []byte(e.Metadata), e.CreatedAt)
	return database.StorageErr("append submission event", err)
}

// eventRow scans metadata into a plain []byte so the driver buffer is copied.
type eventRow struct {
	Event
	RawMetadata []byte `db:"metadata"`
}

// ListBySubmission returns events oldest first.
func (r *Repository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*Event, error) {
	rows := make([]eventRow, 0)
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, submission_id, actor_id, event_type, metadata, created_at
		FROM submission_events
		WHERE submission_id = $1
		ORDER BY created_at ASC, id ASC
	`, submissionID)
	if err != nil {
		return nil, database.StorageErr("list submission events", err)
	}

	events := make([]*Event, 0, len(rows))
	for i := range rows {
		e := rows[i].Event
		e.Metadata = rows[i].RawMetadata
		events = append(events, &e)
	}
	return events, nil
}

// AppendCashoutTx inserts e inside tx.
func (r *Repository) AppendCashoutTx(ctx context.Context, tx *sqlx.Tx, e *CashoutEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cashout_events (id, cashout_id, actor_id, event_type, from_status, to_status, metadata, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
	`, e.ID, e.CashoutID, e.ActorID, string(e.EventType), e.FromStatus, e.ToStatus, []byte(e.Metadata), e.CreatedAt)
	return database.StorageErr("append cashout event", err)
}

type cashoutEventRow struct {
	CashoutEvent
	NullableFrom *string `db:"from_status"`
	RawMetadata  []byte  `db:"metadata"`
}

// ListByCashout returns events oldest first.
func (r *Repository) ListByCashout(ctx context.Context, cashoutID uuid.UUID) ([]*CashoutEvent, error) {
	rows := make([]cashoutEventRow, 0)
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, cashout_id, actor_id, event_type, from_status, to_status, metadata, created_at
		FROM cashout_events
		WHERE cashout_id = $1
		ORDER BY created_at ASC, id ASC
	`, cashoutID)
	if err != nil {
		return nil, database.StorageErr("list cashout events", err)
	}

	events := make([]*CashoutEvent, 0, len(rows))
	for i := range rows {
		e := rows[i].CashoutEvent
		if rows[i].NullableFrom != nil {
			e.FromStatus = *rows[i].NullableFrom
		}
		e.Metadata = rows[i].RawMetadata
		events = append(events, &e)
	}
	return events, nil
}
