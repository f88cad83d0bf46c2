package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status       string                       `json:"status"`
	Dependencies map[string]map[string]string `json:"dependencies"`
}

func checkHealth(t *testing.T, h *HealthChecker) (int, healthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	r.ServeHTTP(w, req)

	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return w.Code, resp
}

func TestHealth_PositionSourceOnly(t *testing.T) {
	code, resp := checkHealth(t, NewHealthChecker(nil, nil, nil, func() bool { return true }))

	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
	if len(resp.Dependencies) != 1 || resp.Dependencies["position_source"]["status"] != "up" {
		t.Errorf("unexpected dependencies %v", resp.Dependencies)
	}
}

func TestHealth_PositionSourceDown(t *testing.T) {
	code, resp := checkHealth(t, NewHealthChecker(nil, nil, nil, func() bool { return false }))

	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %s", resp.Status)
	}
}

func TestHealth_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectPing()
	code, resp := checkHealth(t, NewHealthChecker(db, nil, nil, func() bool { return true }))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Dependencies["postgres"]["status"] != "up" {
		t.Errorf("expected postgres up, got %v", resp.Dependencies["postgres"])
	}

	mock.ExpectPing().WillReturnError(sqlmock.ErrCancelled)
	code, resp = checkHealth(t, NewHealthChecker(db, nil, nil, func() bool { return true }))
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if resp.Dependencies["postgres"]["status"] != "down" {
		t.Errorf("expected postgres down, got %v", resp.Dependencies["postgres"])
	}
}
