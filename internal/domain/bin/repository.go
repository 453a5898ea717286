package bin

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecobin/ecobin-api/internal/pkg/database"
	"github.com/ecobin/ecobin-api/internal/pkg/geo"
)

// Repository defines bin registry data access
type Repository interface {
	Create(ctx context.Context, b *Bin) error
	Update(ctx context.Context, b *Bin) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bin, error)
	ListActive(ctx context.Context) ([]*Bin, error)
	ListInBounds(ctx context.Context, box geo.Box) ([]*Bin, error)
	FindActiveNear(ctx context.Context, p geo.Point, toleranceDegrees float64) (*Bin, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// WithUpsertLock runs fn on a repository bound to one transaction that
	// holds the registry-wide upsert lock until it commits.
	WithUpsertLock(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

type repository struct {
	db   *sqlx.DB
	exec sqlx.ExtContext
}

// NewRepository creates new bin repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, exec: db}
}

const upsertLockKey = "bin_locations_upsert"

func (r *repository) WithUpsertLock(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, upsertLockKey); err != nil {
			return database.StorageErr("lock bin upsert", err)
		}
		return fn(ctx, &repository{db: r.db, exec: tx})
	})
}

const binColumns = `id, name, latitude, longitude, radius_meters, is_active, created_at, updated_at`

func (r *repository) Create(ctx context.Context, b *Bin) error {
	query := `
		INSERT INTO bin_locations (` + binColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.exec.ExecContext(ctx, query,
		b.ID,
		b.Name,
		b.Latitude,
		b.Longitude,
		b.RadiusMeters,
		b.IsActive,
		b.CreatedAt,
		b.UpdatedAt,
	)
	return database.StorageErr("insert bin", err)
}

func (r *repository) Update(ctx context.Context, b *Bin) error {
	query := `
		UPDATE bin_locations
		SET name = $2, latitude = $3, longitude = $4, radius_meters = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.exec.ExecContext(ctx, query,
		b.ID,
		b.Name,
		b.Latitude,
		b.Longitude,
		b.RadiusMeters,
		b.IsActive,
		b.UpdatedAt,
	)
	if err != nil {
		return database.StorageErr("update bin", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return database.StorageErr("update bin rows", err)
	}
	if rows == 0 {
		return ErrBinNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Bin, error) {
	var b Bin
	err := sqlx.GetContext(ctx, r.exec, &b, `SELECT `+binColumns+` FROM bin_locations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBinNotFound
		}
		return nil, database.StorageErr("get bin", err)
	}
	return &b, nil
}

func (r *repository) ListActive(ctx context.Context) ([]*Bin, error) {
	bins := make([]*Bin, 0)
	err := sqlx.SelectContext(ctx, r.exec, &bins, `
		SELECT `+binColumns+`
		FROM bin_locations
		WHERE is_active = TRUE
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, database.StorageErr("list active bins", err)
	}
	return bins, nil
}

func (r *repository) ListInBounds(ctx context.Context, box geo.Box) ([]*Bin, error) {
	bins := make([]*Bin, 0)
	err := sqlx.SelectContext(ctx, r.exec, &bins, `
		SELECT `+binColumns+`
		FROM bin_locations
		WHERE is_active = TRUE
		  AND latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY name ASC
	`, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, database.StorageErr("list bins in bounds", err)
	}
	return bins, nil
}

func (r *repository) FindActiveNear(ctx context.Context, p geo.Point, toleranceDegrees float64) (*Bin, error) {
	var b Bin
	err := sqlx.GetContext(ctx, r.exec, &b, `
		SELECT `+binColumns+`
		FROM bin_locations
		WHERE is_active = TRUE
		  AND latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY created_at ASC
		LIMIT 1
	`, p.Lat-toleranceDegrees, p.Lat+toleranceDegrees, p.Lng-toleranceDegrees, p.Lng+toleranceDegrees)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, database.StorageErr("find bin near", err)
	}
	return &b, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.exec.ExecContext(ctx,
		`UPDATE bin_locations SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return database.StorageErr("set bin active", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return database.StorageErr("set bin active rows", err)
	}
	if rows == 0 {
		return ErrBinNotFound
	}
	return nil
}
