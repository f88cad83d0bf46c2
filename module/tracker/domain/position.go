package domain

import "time"

// FixMode is the quality of a position report as announced by the receiver.
type FixMode int

const (
	FixModeNone FixMode = 1
	FixMode2D   FixMode = 2
	FixMode3D   FixMode = 3
)

func (m FixMode) String() string {
	switch {
	case m >= FixMode3D:
		return "3d"
	case m == FixMode2D:
		return "2d"
	default:
		return "none"
	}
}

// Locked reports whether the mode carries a usable position.
func (m FixMode) Locked() bool {
	return m >= FixMode2D
}

type Fix struct {
	Lat    float64   `json:"latitude"`
	Lon    float64   `json:"longitude"`
	Speed  float64   `json:"speed"`
	Course float64   `json:"course"`
	Alt    *float64  `json:"altitude,omitempty"`
	Mode   FixMode   `json:"mode"`
	Time   time.Time `json:"time"`
}

// NoFix is the reading used for unusable or undecodable reports.
func NoFix() Fix {
	return Fix{Mode: FixModeNone, Time: time.Now()}
}
