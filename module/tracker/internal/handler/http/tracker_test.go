package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/service"
)

type mockTrackerService struct {
	currentPositionFn func() (domain.Fix, bool)
	activeFenceFn     func() (service.ActiveFence, bool)
	statusFn          func() service.Status
	fencesFn          func(kind domain.FenceKind) []domain.Fence
}

func (m *mockTrackerService) CurrentPosition() (domain.Fix, bool) {
	return m.currentPositionFn()
}

func (m *mockTrackerService) ActiveFence() (service.ActiveFence, bool) {
	return m.activeFenceFn()
}

func (m *mockTrackerService) Status() service.Status {
	return m.statusFn()
}

func (m *mockTrackerService) Fences(kind domain.FenceKind) []domain.Fence {
	return m.fencesFn(kind)
}

type mockFenceReloader struct {
	reloadFn func(ctx context.Context) (int, error)
}

func (m *mockFenceReloader) Reload(ctx context.Context) (int, error) {
	return m.reloadFn(ctx)
}

func setupRouter(svc trackerService, reloader fenceReloader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewTrackerHandler(svc, reloader)
	h.Register(r.Group(""))
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

var hauptbahnhof = domain.Fence{
	ID:     "stop-1",
	Kind:   domain.FenceKindStop,
	Title:  "Hauptbahnhof",
	Lat:    52.5251,
	Lon:    13.3694,
	Radius: 60,
	Media:  []string{"bahnhof.mp3"},
}

func TestGetPosition_Success(t *testing.T) {
	alt := 34.5
	svc := &mockTrackerService{
		currentPositionFn: func() (domain.Fix, bool) {
			return domain.Fix{Lat: 52.5251, Lon: 13.3694, Speed: 8.3, Course: 271, Alt: &alt, Mode: domain.FixMode3D, Time: time.Unix(1715003456, 0)}, true
		},
	}

	w := serve(setupRouter(svc, nil), "GET", "/position")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp positionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Latitude != 52.5251 {
		t.Errorf("expected 52.5251, got %f", resp.Latitude)
	}
	if resp.Mode != "3d" {
		t.Errorf("expected 3d, got %s", resp.Mode)
	}
	if resp.Altitude == nil || *resp.Altitude != 34.5 {
		t.Errorf("expected altitude 34.5, got %v", resp.Altitude)
	}
	if resp.Timestamp != 1715003456 {
		t.Errorf("expected 1715003456, got %d", resp.Timestamp)
	}
}

func TestGetPosition_NoFix(t *testing.T) {
	svc := &mockTrackerService{
		currentPositionFn: func() (domain.Fix, bool) { return domain.Fix{}, false },
	}

	w := serve(setupRouter(svc, nil), "GET", "/position")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetActiveFence(t *testing.T) {
	t.Run("active stop", func(t *testing.T) {
		svc := &mockTrackerService{
			activeFenceFn: func() (service.ActiveFence, bool) {
				return service.ActiveFence{Fence: hauptbahnhof, Arrived: true}, true
			},
		}

		w := serve(setupRouter(svc, nil), "GET", "/fences/active")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}

		var resp activeFenceResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Fence.Title != "Hauptbahnhof" || resp.Fence.Kind != "stop" {
			t.Errorf("unexpected fence %+v", resp.Fence)
		}
		if !resp.Arrived || resp.Released {
			t.Errorf("expected arrived and not released, got %+v", resp)
		}
	})

	t.Run("none", func(t *testing.T) {
		svc := &mockTrackerService{
			activeFenceFn: func() (service.ActiveFence, bool) { return service.ActiveFence{}, false },
		}

		w := serve(setupRouter(svc, nil), "GET", "/fences/active")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

func TestGetStatus(t *testing.T) {
	deadline := time.Unix(1715003464, 0)
	svc := &mockTrackerService{
		statusFn: func() service.Status {
			return service.Status{
				Running:          true,
				Connected:        true,
				Locked:           true,
				Position:         &domain.Fix{Lat: 1, Lon: 2, Mode: domain.FixMode2D},
				Active:           &service.ActiveFence{Fence: hauptbahnhof},
				StopCandidates:   3,
				PoiCandidates:    1,
				WatchdogDeadline: deadline,
			}
		},
	}

	w := serve(setupRouter(svc, nil), "GET", "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Running || !resp.Connected || !resp.Locked {
		t.Errorf("unexpected flags %+v", resp)
	}
	if resp.Position == nil || resp.Position.Mode != "2d" {
		t.Errorf("expected 2d position, got %+v", resp.Position)
	}
	if resp.Active == nil || resp.Active.Fence.ID != "stop-1" {
		t.Errorf("expected active stop-1, got %+v", resp.Active)
	}
	if resp.StopCandidates != 3 || resp.PoiCandidates != 1 {
		t.Errorf("expected 3/1 candidates, got %d/%d", resp.StopCandidates, resp.PoiCandidates)
	}
	if resp.WatchdogDeadline != 1715003464 {
		t.Errorf("expected 1715003464, got %d", resp.WatchdogDeadline)
	}
}

func TestGetFences(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantKind domain.FenceKind
		wantCode int
	}{
		{name: "all", query: "", wantKind: "", wantCode: http.StatusOK},
		{name: "stops", query: "?kind=stop", wantKind: domain.FenceKindStop, wantCode: http.StatusOK},
		{name: "pois", query: "?kind=position", wantKind: domain.FenceKindPoi, wantCode: http.StatusOK},
		{name: "invalid kind", query: "?kind=tram", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKind domain.FenceKind
			called := false
			svc := &mockTrackerService{
				fencesFn: func(kind domain.FenceKind) []domain.Fence {
					called = true
					gotKind = kind
					return []domain.Fence{hauptbahnhof}
				},
			}

			w := serve(setupRouter(svc, nil), "GET", "/fences"+tt.query)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantCode != http.StatusOK {
				if called {
					t.Error("expected service not to be called")
				}
				return
			}
			if gotKind != tt.wantKind {
				t.Errorf("expected kind %q, got %q", tt.wantKind, gotKind)
			}

			var resp []fenceResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(resp) != 1 || resp[0].Radius != 60 {
				t.Errorf("unexpected fences %+v", resp)
			}
		})
	}
}

func TestReloadFences(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		reloader := &mockFenceReloader{
			reloadFn: func(ctx context.Context) (int, error) { return 12, nil },
		}

		w := serve(setupRouter(&mockTrackerService{}, reloader), "POST", "/fences/reload")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp map[string]int
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp["loaded"] != 12 {
			t.Errorf("expected 12 loaded, got %d", resp["loaded"])
		}
	})

	t.Run("error", func(t *testing.T) {
		reloader := &mockFenceReloader{
			reloadFn: func(ctx context.Context) (int, error) { return 0, errors.New("db down") },
		}

		w := serve(setupRouter(&mockTrackerService{}, reloader), "POST", "/fences/reload")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		w := serve(setupRouter(&mockTrackerService{}, nil), "POST", "/fences/reload")
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
	})
}
