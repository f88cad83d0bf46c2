package domain

import "math"

type FenceKind string

const (
	// FenceKindPoi is a plain point of interest ("position" records in fence files).
	FenceKindPoi  FenceKind = "position"
	FenceKindStop FenceKind = "stop"
)

func (k FenceKind) Valid() bool {
	return k == FenceKindPoi || k == FenceKindStop
}

// Fence is a circular zone around a coordinate. Radius is in meters.
type Fence struct {
	ID     string    `json:"id"`
	Kind   FenceKind `json:"kind"`
	Title  string    `json:"title"`
	Lat    float64   `json:"latitude"`
	Lon    float64   `json:"longitude"`
	Radius float64   `json:"radius"`
	Notice string    `json:"notice,omitempty"`
	Media  []string  `json:"media,omitempty"`
}

// Usable reports whether the fence can be evaluated by the engine.
func (f Fence) Usable() bool {
	return f.Radius > 0 && !math.IsInf(f.Radius, 0) && !math.IsNaN(f.Radius)
}

// Clone returns a copy that does not share the media slice.
func (f Fence) Clone() Fence {
	if f.Media != nil {
		f.Media = append([]string(nil), f.Media...)
	}
	return f
}
