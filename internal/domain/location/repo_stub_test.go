package location

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/domain/bin"
	"github.com/ecobin/ecobin-api/internal/pkg/geo"
)

// staticRepo serves a fixed bin set to bin.Service.
type staticRepo struct {
	bins []*bin.Bin
}

func (r staticRepo) Create(context.Context, *bin.Bin) error { return nil }
func (r staticRepo) Update(context.Context, *bin.Bin) error { return nil }

func (r staticRepo) GetByID(_ context.Context, id uuid.UUID) (*bin.Bin, error) {
	for _, b := range r.bins {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, bin.ErrBinNotFound
}

func (r staticRepo) ListActive(context.Context) ([]*bin.Bin, error) { return r.bins, nil }

func (r staticRepo) ListInBounds(context.Context, geo.Box) ([]*bin.Bin, error) { return r.bins, nil }

func (r staticRepo) FindActiveNear(context.Context, geo.Point, float64) (*bin.Bin, error) {
	return nil, nil
}

func (r staticRepo) SetActive(context.Context, uuid.UUID, bool) error { return nil }

func (r staticRepo) WithUpsertLock(ctx context.Context, fn func(ctx context.Context, repo bin.Repository) error) error {
	return fn(ctx, r)
}
