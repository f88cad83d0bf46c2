package http

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/service"
)

type trackerService interface {
	CurrentPosition() (domain.Fix, bool)
	ActiveFence() (service.ActiveFence, bool)
	Status() service.Status
	Fences(kind domain.FenceKind) []domain.Fence
}

type fenceReloader interface {
	Reload(ctx context.Context) (int, error)
}

type positionResponse struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     float64  `json:"speed"`
	Course    float64  `json:"course"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Mode      string   `json:"mode"`
	Timestamp int64    `json:"timestamp"`
}

type fenceResponse struct {
	ID     string   `json:"id"`
	Kind   string   `json:"kind"`
	Title  string   `json:"title"`
	Lat    float64  `json:"latitude"`
	Lon    float64  `json:"longitude"`
	Radius float64  `json:"radius"`
	Notice string   `json:"notice,omitempty"`
	Media  []string `json:"media,omitempty"`
}

type activeFenceResponse struct {
	Fence    fenceResponse `json:"fence"`
	Arrived  bool          `json:"arrived"`
	Released bool          `json:"released"`
}

type statusResponse struct {
	Running          bool                 `json:"running"`
	Connected        bool                 `json:"connected"`
	Locked           bool                 `json:"locked"`
	Position         *positionResponse    `json:"position,omitempty"`
	Active           *activeFenceResponse `json:"active,omitempty"`
	StopCandidates   int                  `json:"stop_candidates"`
	PoiCandidates    int                  `json:"poi_candidates"`
	WatchdogDeadline int64                `json:"watchdog_deadline"`
}

type TrackerHandler struct {
	tracker  trackerService
	reloader fenceReloader
}

// NewTrackerHandler serves the engine's query surface. reloader may be nil
// when no fence source is configured.
func NewTrackerHandler(tracker trackerService, reloader fenceReloader) *TrackerHandler {
	return &TrackerHandler{tracker: tracker, reloader: reloader}
}

func (h *TrackerHandler) Register(r *gin.RouterGroup) {
	r.GET("/position", h.GetPosition)
	r.GET("/status", h.GetStatus)
	r.GET("/fences", h.GetFences)
	r.GET("/fences/active", h.GetActiveFence)
	r.POST("/fences/reload", h.ReloadFences)
}

func (h *TrackerHandler) GetPosition(c *gin.Context) {
	fix, ok := h.tracker.CurrentPosition()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no position fix"})
		return
	}

	c.JSON(http.StatusOK, toPositionResponse(fix))
}

func (h *TrackerHandler) GetActiveFence(c *gin.Context) {
	active, ok := h.tracker.ActiveFence()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active fence"})
		return
	}

	c.JSON(http.StatusOK, toActiveFenceResponse(active))
}

func (h *TrackerHandler) GetStatus(c *gin.Context) {
	s := h.tracker.Status()

	resp := statusResponse{
		Running:          s.Running,
		Connected:        s.Connected,
		Locked:           s.Locked,
		StopCandidates:   s.StopCandidates,
		PoiCandidates:    s.PoiCandidates,
		WatchdogDeadline: s.WatchdogDeadline.Unix(),
	}
	if s.Position != nil {
		p := toPositionResponse(*s.Position)
		resp.Position = &p
	}
	if s.Active != nil {
		a := toActiveFenceResponse(*s.Active)
		resp.Active = &a
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TrackerHandler) GetFences(c *gin.Context) {
	kind := domain.FenceKind(c.Query("kind"))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kind parameter"})
		return
	}

	fences := h.tracker.Fences(kind)
	results := make([]fenceResponse, len(fences))
	for i, f := range fences {
		results[i] = toFenceResponse(f)
	}
	c.JSON(http.StatusOK, results)
}

func (h *TrackerHandler) ReloadFences(c *gin.Context) {
	if h.reloader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no fence source configured"})
		return
	}

	n, err := h.reloader.Reload(c.Request.Context())
	if err != nil {
		log.Printf("fence reload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reload fences"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"loaded": n})
}

func toPositionResponse(fix domain.Fix) positionResponse {
	return positionResponse{
		Latitude:  fix.Lat,
		Longitude: fix.Lon,
		Speed:     fix.Speed,
		Course:    fix.Course,
		Altitude:  fix.Alt,
		Mode:      fix.Mode.String(),
		Timestamp: fix.Time.Unix(),
	}
}

func toFenceResponse(f domain.Fence) fenceResponse {
	return fenceResponse{
		ID:     f.ID,
		Kind:   string(f.Kind),
		Title:  f.Title,
		Lat:    f.Lat,
		Lon:    f.Lon,
		Radius: f.Radius,
		Notice: f.Notice,
		Media:  f.Media,
	}
}

func toActiveFenceResponse(a service.ActiveFence) activeFenceResponse {
	return activeFenceResponse{
		Fence:    toFenceResponse(a.Fence),
		Arrived:  a.Arrived,
		Released: a.Released,
	}
}
