package domain

// GeoPoint represents a geographic coordinate (WGS 84).
// Longitude comes first in every wire encoding. Immutable once constructed.
type GeoPoint struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}
