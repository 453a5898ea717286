package bin

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ecobin/ecobin-api/internal/pkg/geo"
)

// Service handles bin registry business logic
type Service struct {
	repo  Repository
	cache Cache
	now   func() time.Time
}

// NewService creates bin service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

// ListActive returns active bins ordered by name.
// Served from the cache when possible; cache failures fall back to Postgres.
func (s *Service) ListActive(ctx context.Context) ([]*Bin, error) {
	if s.cache != nil {
		bins, ok, err := s.cache.GetActive(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("bin cache read failed")
		}
		if ok {
			return bins, nil
		}
	}

	bins, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetActive(ctx, bins); err != nil {
			log.Warn().Err(err).Msg("bin cache write failed")
		}
	}
	return bins, nil
}

// GetByID returns a bin regardless of its active flag.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Bin, error) {
	return s.repo.GetByID(ctx, id)
}

// FindInBounds returns active bins inside box.
func (s *Service) FindInBounds(ctx context.Context, box geo.Box) ([]*Bin, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListInBounds(ctx, box)
}

// FindNearest returns the closest active bin within maxDistance meters, or
// nil when none qualifies. maxDistance <= 0 uses DefaultSearchRadiusMeters.
func (s *Service) FindNearest(ctx context.Context, p geo.Point, maxDistance float64) (*Nearest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if maxDistance <= 0 {
		maxDistance = DefaultSearchRadiusMeters
	}

	bins, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var best *Nearest
	for _, b := range bins {
		if !b.IsActive {
			continue
		}
		d := geo.DistanceMeters(p, b.Point())
		if d > maxDistance {
			continue
		}
		if best == nil || d < best.DistanceMeters {
			best = &Nearest{Bin: b, DistanceMeters: d}
		}
	}
	return best, nil
}

// Upsert updates the active bin within ±0.001° of the requested point in
// both axes, or inserts a new bin when there is none. Lookup and write hold
// the upsert lock so concurrent calls at one spot yield one bin.
func (s *Service) Upsert(ctx context.Context, req *UpsertRequest) (*Bin, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.RadiusMeters <= 0 || math.IsNaN(req.RadiusMeters) || math.IsInf(req.RadiusMeters, 0) {
		return nil, ErrInvalidRadius
	}
	p := geo.Point{Lat: req.Latitude, Lng: req.Longitude}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	now := s.now()
	var (
		result  *Bin
		created bool
	)
	err := s.repo.WithUpsertLock(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.FindActiveNear(ctx, p, sameBinToleranceDegrees)
		if err != nil {
			return err
		}

		if existing != nil {
			existing.Name = name
			existing.Latitude = p.Lat
			existing.Longitude = p.Lng
			existing.RadiusMeters = req.RadiusMeters
			existing.IsActive = active
			existing.UpdatedAt = now
			if err := repo.Update(ctx, existing); err != nil {
				return err
			}
			result = existing
			return nil
		}

		b := &Bin{
			ID:           uuid.New(),
			Name:         name,
			Latitude:     p.Lat,
			Longitude:    p.Lng,
			RadiusMeters: req.RadiusMeters,
			IsActive:     active,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repo.Create(ctx, b); err != nil {
			return err
		}
		result, created = b, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.Info().Str("bin_id", result.ID.String()).Str("name", name).Msg("bin created")
	} else {
		log.Info().Str("bin_id", result.ID.String()).Str("name", name).Msg("bin updated in place")
	}

	s.invalidate(ctx)
	return result, nil
}

// Deactivate hides a bin from lookups. Bins are never deleted.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.invalidate(ctx)
	log.Info().Str("bin_id", id.String()).Msg("bin deactivated")
	return nil
}

// CoverageStats summarizes the active bin set. The average radius is taken
// over TotalBins, which counts the same active set; an empty registry
// yields zeros.
func (s *Service) CoverageStats(ctx context.Context) (*CoverageStats, error) {
	bins, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	stats := &CoverageStats{TotalBins: len(bins)}
	var radiusSum float64
	for _, b := range bins {
		if !b.IsActive {
			continue
		}
		stats.ActiveBins++
		stats.TotalCoverageArea += math.Pi * b.RadiusMeters * b.RadiusMeters
		radiusSum += b.RadiusMeters
	}

	if stats.TotalBins > 0 {
		stats.AverageRadius = radiusSum / float64(stats.TotalBins)
	}
	return stats, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("bin cache invalidation failed")
	}
}
