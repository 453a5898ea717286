package report

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ecobin/ecobin-api/internal/pkg/database"
)

// Repository aggregates over the operational tables
type Repository interface {
	SubmissionsByStatus(ctx context.Context, p Period) ([]StatusCount, error)
	SubmissionTotals(ctx context.Context, p Period) (points int64, contributors int, err error)
	TopBins(ctx context.Context, p Period, limit int) ([]BinActivity, error)
	CashoutsByStatus(ctx context.Context, p Period) ([]CashoutSummary, error)
	WalletTotals(ctx context.Context) (points int64, locked decimal.Decimal, err error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// bounds turns zero times into NULL so "$1::timestamptz IS NULL" matches.
func bounds(p Period) (interface{}, interface{}) {
	var from, to interface{}
	if !p.From.IsZero() {
		from = p.From
	}
	if !p.To.IsZero() {
		to = p.To
	}
	return from, to
}

const periodFilter = `($1::timestamptz IS NULL OR created_at >= $1) AND ($2::timestamptz IS NULL OR created_at < $2)`

func (r *repository) SubmissionsByStatus(ctx context.Context, p Period) ([]StatusCount, error) {
	from, to := bounds(p)
	rows := make([]StatusCount, 0)
	err := r.db.SelectContext(ctx, &rows, `
		SELECT status, COUNT(*) AS count
		FROM video_submissions
		WHERE `+periodFilter+`
		GROUP BY status
		ORDER BY status
	`, from, to)
	if err != nil {
		return nil, database.StorageErr("count submissions by status", err)
	}
	return rows, nil
}

func (r *repository) SubmissionTotals(ctx context.Context, p Period) (int64, int, error) {
	from, to := bounds(p)
	var out struct {
		Points       int64 `db:"points"`
		Contributors int   `db:"contributors"`
	}
	err := r.db.GetContext(ctx, &out, `
		SELECT COALESCE(SUM(points_awarded), 0) AS points, COUNT(DISTINCT user_id) AS contributors
		FROM video_submissions
		WHERE `+periodFilter+`
	`, from, to)
	if err != nil {
		return 0, 0, database.StorageErr("sum submission points", err)
	}
	return out.Points, out.Contributors, nil
}

func (r *repository) TopBins(ctx context.Context, p Period, limit int) ([]BinActivity, error) {
	from, to := bounds(p)
	rows := make([]BinActivity, 0)
	err := r.db.SelectContext(ctx, &rows, `
		SELECT b.id AS bin_id, b.name, COUNT(*) AS submissions
		FROM video_submissions s
		JOIN bin_locations b ON b.id = s.bin_id
		WHERE ($1::timestamptz IS NULL OR s.created_at >= $1) AND ($2::timestamptz IS NULL OR s.created_at < $2)
		GROUP BY b.id, b.name
		ORDER BY submissions DESC, b.name ASC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, database.StorageErr("top bins", err)
	}
	return rows, nil
}

func (r *repository) CashoutsByStatus(ctx context.Context, p Period) ([]CashoutSummary, error) {
	from, to := bounds(p)
	rows := make([]CashoutSummary, 0)
	err := r.db.SelectContext(ctx, &rows, `
		SELECT status, COUNT(*) AS count,
			COALESCE(SUM(points_used), 0) AS points,
			COALESCE(SUM(cash_amount), 0) AS cash
		FROM cashout_requests
		WHERE `+periodFilter+`
		GROUP BY status
		ORDER BY status
	`, from, to)
	if err != nil {
		return nil, database.StorageErr("sum cashouts by status", err)
	}
	return rows, nil
}

func (r *repository) WalletTotals(ctx context.Context) (int64, decimal.Decimal, error) {
	var out struct {
		Points int64           `db:"points"`
		Locked decimal.Decimal `db:"locked"`
	}
	err := r.db.GetContext(ctx, &out, `
		SELECT COALESCE(SUM(points_balance), 0) AS points, COALESCE(SUM(locked_amount), 0) AS locked
		FROM user_wallets
	`)
	if err != nil {
		return 0, decimal.Zero, database.StorageErr("sum wallets", err)
	}
	return out.Points, out.Locked, nil
}

