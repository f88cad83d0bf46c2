// Package source decodes position reports shared by the position adapters.
package source

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
)

const classTPV = "TPV"

// tpvMessage mirrors the fields of a gpsd TPV report the tracker needs.
// Pointers distinguish absent fields from zero values.
type tpvMessage struct {
	Class string   `json:"class"`
	Mode  *int     `json:"mode"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Speed *float64 `json:"speed"`
	Track *float64 `json:"track"`
	Alt   *float64 `json:"alt"`
}

// IsPositionReport reports whether a raw line is a TPV object worth decoding.
// Other gpsd classes (VERSION, DEVICES, WATCH, SKY) are skipped by the adapters.
func IsPositionReport(raw []byte) bool {
	var head struct {
		Class string `json:"class"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		// let DecodeReport log and absorb it
		return true
	}
	return head.Class == "" || head.Class == classTPV
}

// DecodeReport turns a raw report into a fix. Any decode failure or missing
// required field yields a no-fix reading; it is logged, never returned.
func DecodeReport(raw []byte) domain.Fix {
	fix, err := decode(raw)
	if err != nil {
		log.Printf("position report: %v", err)
		return domain.NoFix()
	}
	return fix
}

func decode(raw []byte) (domain.Fix, error) {
	var msg tpvMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.Fix{}, fmt.Errorf("decode: %w", err)
	}
	if msg.Mode == nil {
		return domain.Fix{}, fmt.Errorf("mode: required")
	}

	mode := domain.FixMode(*msg.Mode)
	if !mode.Locked() {
		return domain.Fix{Mode: mode, Time: time.Now()}, nil
	}

	if err := validateTPV(&msg); err != nil {
		return domain.Fix{}, err
	}

	return domain.Fix{
		Lat:    *msg.Lat,
		Lon:    *msg.Lon,
		Speed:  *msg.Speed,
		Course: *msg.Track,
		Alt:    msg.Alt,
		Mode:   mode,
		Time:   time.Now(),
	}, nil
}

func validateTPV(msg *tpvMessage) error {
	switch {
	case msg.Lat == nil:
		return fmt.Errorf("lat: required")
	case msg.Lon == nil:
		return fmt.Errorf("lon: required")
	case msg.Speed == nil:
		return fmt.Errorf("speed: required")
	case msg.Track == nil:
		return fmt.Errorf("track: required")
	}
	if *msg.Lat < -90 || *msg.Lat > 90 || math.IsNaN(*msg.Lat) {
		return fmt.Errorf("lat: must be between -90 and 90")
	}
	if *msg.Lon < -180 || *msg.Lon > 180 || math.IsNaN(*msg.Lon) {
		return fmt.Errorf("lon: must be between -180 and 180")
	}
	return nil
}
