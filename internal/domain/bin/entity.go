package bin

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/pkg/geo"
)

// DefaultSearchRadiusMeters bounds nearest-bin lookups when no limit is given.
const DefaultSearchRadiusMeters = 5000.0

// sameBinToleranceDegrees is the per-axis window inside which an upsert is
// treated as the same physical bin.
const sameBinToleranceDegrees = 0.001

// Bin is a designated, geofenced waste-disposal location.
type Bin struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Latitude     float64   `db:"latitude" json:"latitude"`
	Longitude    float64   `db:"longitude" json:"longitude"`
	RadiusMeters float64   `db:"radius_meters" json:"radius_meters"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Point returns the bin center.
func (b *Bin) Point() geo.Point {
	return geo.Point{Lat: b.Latitude, Lng: b.Longitude}
}

// Nearest is a bin paired with its distance from a query point.
type Nearest struct {
	Bin            *Bin    `json:"bin"`
	DistanceMeters float64 `json:"distance_meters"`
}

// CoverageStats summarizes the active registry.
type CoverageStats struct {
	TotalBins         int     `json:"total_bins"`
	ActiveBins        int     `json:"active_bins"`
	TotalCoverageArea float64 `json:"total_coverage_area"`
	AverageRadius     float64 `json:"average_radius"`
}
