package source

import (
	"testing"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
)

func TestDecodeReport(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantMode domain.FixMode
		wantLat  float64
	}{
		{"3d fix", `{"class":"TPV","mode":3,"lat":52.73,"lon":10.24,"speed":8.5,"track":271.0,"alt":45.2}`, domain.FixMode3D, 52.73},
		{"2d fix without alt", `{"class":"TPV","mode":2,"lat":52.73,"lon":10.24,"speed":0,"track":0}`, domain.FixMode2D, 52.73},
		{"no fix", `{"class":"TPV","mode":1}`, domain.FixModeNone, 0},
		{"mode zero", `{"class":"TPV","mode":0}`, 0, 0},
		{"missing mode", `{"class":"TPV","lat":52.73,"lon":10.24}`, domain.FixModeNone, 0},
		{"missing lat", `{"class":"TPV","mode":3,"lon":10.24,"speed":1,"track":1}`, domain.FixModeNone, 0},
		{"missing speed", `{"class":"TPV","mode":3,"lat":52.73,"lon":10.24,"track":1}`, domain.FixModeNone, 0},
		{"missing track", `{"class":"TPV","mode":3,"lat":52.73,"lon":10.24,"speed":1}`, domain.FixModeNone, 0},
		{"lat out of range", `{"class":"TPV","mode":3,"lat":91,"lon":10.24,"speed":1,"track":1}`, domain.FixModeNone, 0},
		{"invalid json", `{"class":"TPV","mode":`, domain.FixModeNone, 0},
		{"wrong type", `{"class":"TPV","mode":"3"}`, domain.FixModeNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix := DecodeReport([]byte(tt.raw))
			if fix.Mode != tt.wantMode {
				t.Errorf("expected mode %d, got %d", tt.wantMode, fix.Mode)
			}
			if fix.Lat != tt.wantLat {
				t.Errorf("expected lat %f, got %f", tt.wantLat, fix.Lat)
			}
			if fix.Mode.Locked() && fix.Time.IsZero() {
				t.Error("expected fix time to be set")
			}
		})
	}
}

func TestDecodeReport_Alt(t *testing.T) {
	fix := DecodeReport([]byte(`{"class":"TPV","mode":3,"lat":1,"lon":2,"speed":3,"track":4,"alt":45.2}`))
	if fix.Alt == nil || *fix.Alt != 45.2 {
		t.Fatalf("expected alt 45.2, got %v", fix.Alt)
	}
	if fix.Speed != 3 || fix.Course != 4 {
		t.Errorf("expected speed 3 course 4, got %f %f", fix.Speed, fix.Course)
	}
}

func TestIsPositionReport(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"class":"TPV","mode":3}`, true},
		{`{"mode":3}`, true},
		{`{"class":"VERSION","release":"3.22"}`, false},
		{`{"class":"SKY","satellites":[]}`, false},
		{`garbage`, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := IsPositionReport([]byte(tt.raw)); got != tt.want {
				t.Errorf("IsPositionReport(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
