package bin

// UpsertRequest creates a bin or updates the active bin at the same spot.
type UpsertRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Latitude     float64 `json:"latitude" validate:"latitude"`
	Longitude    float64 `json:"longitude" validate:"longitude"`
	RadiusMeters float64 `json:"radius_meters" validate:"gt=0,lte=10000"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// NearestResponse is returned by the nearest-bin lookup.
type NearestResponse struct {
	Found          bool    `json:"found"`
	Bin            *Bin    `json:"bin,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
}
