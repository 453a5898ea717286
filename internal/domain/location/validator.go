package location

import (
	"context"
	"errors"
	"math"

	"github.com/ecobin/ecobin-api/internal/domain/bin"
	"github.com/ecobin/ecobin-api/internal/pkg/geo"
)

const (
	MessageInvalidCoordinates = "Invalid GPS coordinates"
	MessageNoBinNearby        = "No designated waste disposal areas found nearby"
	MessageWithinRadius       = "Location verified at a designated disposal area"
	MessageOutsideRadius      = "Location is outside the nearest disposal area"

	noBinScore      = 0.1
	inRadiusFloor   = 0.8
	outsideCeiling  = 0.5
	penaltyDistance = 1000.0
)

// BinFinder is the part of the bin registry the validator needs.
type BinFinder interface {
	FindNearest(ctx context.Context, p geo.Point, maxDistance float64) (*bin.Nearest, error)
}

// Result is the verdict for one coordinate.
type Result struct {
	IsValid        bool     `json:"is_valid"`
	Score          float64  `json:"score"`
	Bin            *bin.Bin `json:"bin,omitempty"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	WithinRadius   bool     `json:"within_radius"`
	Message        string   `json:"message"`
}

// Validator scores how likely a coordinate is a legitimate disposal spot.
type Validator struct {
	bins   BinFinder
	radius float64
}

func NewValidator(bins BinFinder) *Validator {
	return &Validator{bins: bins, radius: bin.DefaultSearchRadiusMeters}
}

// WithSearchRadius bounds the nearest-bin lookup. Non-positive values keep
// the registry default.
func (v *Validator) WithSearchRadius(meters float64) *Validator {
	if meters > 0 {
		v.radius = meters
	}
	return v
}

// Validate never fails for a missing bin; only storage errors are returned.
func (v *Validator) Validate(ctx context.Context, p geo.Point) (*Result, error) {
	if err := p.Validate(); err != nil {
		return &Result{Score: 0, Message: MessageInvalidCoordinates}, nil
	}

	nearest, err := v.bins.FindNearest(ctx, p, v.radius)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidCoordinates) {
			return &Result{Score: 0, Message: MessageInvalidCoordinates}, nil
		}
		return nil, err
	}
	if nearest == nil {
		return &Result{Score: noBinScore, Message: MessageNoBinNearby}, nil
	}

	d := nearest.DistanceMeters
	r := nearest.Bin.RadiusMeters
	res := &Result{
		Bin:            nearest.Bin,
		DistanceMeters: &d,
	}

	if d <= r {
		res.IsValid = true
		res.WithinRadius = true
		res.Score = math.Max(inRadiusFloor, 1-d/r)
		res.Message = MessageWithinRadius
		return res, nil
	}

	res.Score = math.Max(0, outsideCeiling-math.Min(outsideCeiling, (d-r)/penaltyDistance))
	res.Message = MessageOutsideRadius
	return res, nil
}
