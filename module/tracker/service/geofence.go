package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
)

// PositionSource is a live position feed. Read waits at most wait and returns
// domain.ErrNoReport when nothing arrived; any other error means the
// connection is lost and the engine will reconnect.
type PositionSource interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context, wait time.Duration) (domain.Fix, error)
	Close() error
}

type EngineConfig struct {
	// CoarseRadius is the candidate pre-filter radius in meters.
	CoarseRadius     float64
	WatchdogInterval time.Duration
	// StopInboundRadius replaces a missing or too small stop radius.
	StopInboundRadius float64
	// StopInnerExit is the radius inside which a stop counts as arrived.
	StopInnerExit  float64
	StopExitMargin float64
	PoiHysteresis  float64

	ReconnectInterval time.Duration
	PollInterval      time.Duration
	ReadTimeout       time.Duration
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CoarseRadius:      1500,
		WatchdogInterval:  8 * time.Second,
		StopInboundRadius: 200,
		StopInnerExit:     18,
		StopExitMargin:    5,
		PoiHysteresis:     50,
		ReconnectInterval: 2 * time.Second,
		PollInterval:      500 * time.Millisecond,
		ReadTimeout:       300 * time.Millisecond,
	}
}

// Handlers receive lock and fence transitions. They run synchronously on the
// engine goroutine and must not block for long. OnFenceHit gets nil when the
// active fence is cleared.
type Handlers struct {
	OnLockChanged func(locked bool)
	OnFenceHit    func(fence *domain.Fence)
}

type ActiveFence struct {
	Fence    domain.Fence `json:"fence"`
	Arrived  bool         `json:"arrived"`
	Released bool         `json:"released"`
}

type Status struct {
	Running          bool         `json:"running"`
	Connected        bool         `json:"connected"`
	Locked           bool         `json:"locked"`
	Position         *domain.Fix  `json:"position,omitempty"`
	Active           *ActiveFence `json:"active,omitempty"`
	StopCandidates   int          `json:"stop_candidates"`
	PoiCandidates    int          `json:"poi_candidates"`
	WatchdogDeadline time.Time    `json:"watchdog_deadline"`
}

type activeStop struct {
	fence    domain.Fence
	arrived  bool
	released bool
}

// trackerState is everything the engine shares with readers. Only the engine
// goroutine writes it, always under GeofenceEngine.mu.
type trackerState struct {
	connected      bool
	fix            *domain.Fix
	locked         bool
	stop           *activeStop
	poi            *domain.Fence
	stops          []domain.Fence
	pois           []domain.Fence
	stopCandidates []domain.Fence
	poiCandidates  []domain.Fence
	watchdog       time.Time
	handlers       Handlers
}

type GeofenceEngine struct {
	source PositionSource
	cfg    EngineConfig
	now    func() time.Time

	mu    sync.Mutex
	state trackerState

	started  atomic.Bool
	running  atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

func NewGeofenceEngine(source PositionSource, cfg EngineConfig, handlers Handlers) *GeofenceEngine {
	return &GeofenceEngine{
		source: source,
		cfg:    cfg,
		now:    time.Now,
		state:  trackerState{handlers: handlers},
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the polling loop on its own goroutine until RequestStop is
// called or ctx is cancelled.
func (e *GeofenceEngine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return domain.ErrAlreadyStarted
	}
	e.running.Store(true)
	go e.run(ctx)
	return nil
}

// RequestStop asks the loop to exit and returns immediately.
func (e *GeofenceEngine) RequestStop() {
	e.quitOnce.Do(func() {
		log.Printf("geofence engine shutdown requested")
		close(e.quit)
	})
}

// AwaitStopped blocks up to timeout for the loop to exit and reports whether it did.
func (e *GeofenceEngine) AwaitStopped(timeout time.Duration) bool {
	if !e.started.Load() {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.done:
		return true
	case <-timer.C:
		return false
	}
}

func (e *GeofenceEngine) run(ctx context.Context) {
	defer close(e.done)
	defer e.running.Store(false)
	defer func() {
		if err := e.source.Close(); err != nil {
			log.Printf("position source close: %v", err)
		}
	}()

	log.Printf("geofence engine started")
	for e.active(ctx) {
		if !e.Connected() {
			e.handleDisconnected(ctx)
			continue
		}
		e.drain(ctx)
	}
	log.Printf("geofence engine stopped")
}

func (e *GeofenceEngine) handleDisconnected(ctx context.Context) {
	log.Printf("position source not connected")
	if e.dropFix() {
		e.emitLock(false)
	}

	if err := e.source.Close(); err != nil {
		log.Printf("position source close: %v", err)
	}
	err := e.source.Connect(ctx)
	e.setConnected(err == nil)
	if err != nil {
		log.Printf("position source reconnect: %v", err)
		e.wait(ctx, e.cfg.ReconnectInterval)
	}
}

// drain reads reports until the source fails or the engine is stopped. A
// dropped connection waits out the reconnect interval before returning.
func (e *GeofenceEngine) drain(ctx context.Context) {
	for e.active(ctx) {
		fix, err := e.source.Read(ctx, e.cfg.ReadTimeout)
		if errors.Is(err, domain.ErrNoReport) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("position source read: %v", err)
			e.setConnected(false)
			e.wait(ctx, e.cfg.ReconnectInterval)
			return
		}
		if !e.active(ctx) {
			return
		}
		e.process(fix)
		e.wait(ctx, e.cfg.PollInterval)
	}
}

// process runs one report through the lock state machine, the candidate
// refresh schedule and hit evaluation.
func (e *GeofenceEngine) process(fix domain.Fix) {
	if !fix.Mode.Locked() {
		log.Printf("no position lock (mode %s)", fix.Mode)
		if e.dropFix() {
			e.emitLock(false)
		}
		return
	}

	if e.storeFix(fix) {
		log.Printf("position lock acquired (mode %s)", fix.Mode)
		e.emitLock(true)
		e.refreshCandidates()
	}

	if e.watchdogElapsed() {
		e.refreshCandidates()
	}

	if e.stopRequested() {
		return
	}
	e.evaluate()
}

// storeFix replaces the current fix and reports whether the lock was just gained.
func (e *GeofenceEngine) storeFix(fix domain.Fix) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.fix = &fix
	if e.state.locked {
		return false
	}
	e.state.locked = true
	return true
}

// dropFix clears the current fix and reports whether the lock was just lost.
func (e *GeofenceEngine) dropFix() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.fix = nil
	if !e.state.locked {
		return false
	}
	e.state.locked = false
	return true
}

func (e *GeofenceEngine) watchdogElapsed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.now().Before(e.state.watchdog)
}

func (e *GeofenceEngine) refreshCandidates() {
	e.mu.Lock()
	var ref *domain.Fix
	if e.state.fix != nil {
		fix := *e.state.fix
		ref = &fix
	}
	stops, pois := e.state.stops, e.state.pois
	e.mu.Unlock()

	stopCandidates := Candidates(stops, ref, e.cfg.CoarseRadius)
	poiCandidates := Candidates(pois, ref, e.cfg.CoarseRadius)

	e.mu.Lock()
	e.state.stopCandidates = stopCandidates
	e.state.poiCandidates = poiCandidates
	e.state.watchdog = e.now().Add(e.cfg.WatchdogInterval)
	e.mu.Unlock()

	log.Printf("candidate fences refreshed: %d stops, %d pois", len(stopCandidates), len(poiCandidates))
}

func (e *GeofenceEngine) emitLock(locked bool) {
	e.mu.Lock()
	cb := e.state.handlers.OnLockChanged
	e.mu.Unlock()

	if cb != nil {
		cb(locked)
	}
}

func (e *GeofenceEngine) emitHit(fence *domain.Fence) {
	e.mu.Lock()
	cb := e.state.handlers.OnFenceHit
	e.mu.Unlock()

	if cb == nil {
		return
	}
	if fence == nil {
		cb(nil)
		return
	}
	f := fence.Clone()
	cb(&f)
}

func (e *GeofenceEngine) active(ctx context.Context) bool {
	return !e.stopRequested() && ctx.Err() == nil
}

func (e *GeofenceEngine) stopRequested() bool {
	select {
	case <-e.quit:
		return true
	default:
		return false
	}
}

func (e *GeofenceEngine) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-e.quit:
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (e *GeofenceEngine) setConnected(connected bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.connected = connected
}

// SetFences partitions fences by kind and replaces the engine's fence lists.
// Stop fences with a missing or too small radius get the inbound radius;
// POIs without a usable radius are dropped. The candidate sets are rebuilt
// on the next report.
func (e *GeofenceEngine) SetFences(fences []domain.Fence) {
	var stops, pois []domain.Fence
	for _, f := range fences {
		switch f.Kind {
		case domain.FenceKindStop:
			if !f.Usable() || f.Radius < e.cfg.StopInnerExit {
				f.Radius = e.cfg.StopInboundRadius
			}
			stops = append(stops, f.Clone())
		case domain.FenceKindPoi:
			if !f.Usable() {
				log.Printf("poi %q skipped: invalid radius %v", f.Title, f.Radius)
				continue
			}
			pois = append(pois, f.Clone())
		default:
			log.Printf("fence %q skipped: unknown kind %q", f.Title, f.Kind)
		}
	}

	e.mu.Lock()
	e.state.stops = stops
	e.state.pois = pois
	e.state.watchdog = time.Time{}
	e.mu.Unlock()

	log.Printf("fences set: %d stops, %d pois", len(stops), len(pois))
}

// Fences returns the configured fences of the given kind, or all of them when kind is empty.
func (e *GeofenceEngine) Fences(kind domain.FenceKind) []domain.Fence {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []domain.Fence
	if kind == "" || kind == domain.FenceKindStop {
		for _, f := range e.state.stops {
			out = append(out, f.Clone())
		}
	}
	if kind == "" || kind == domain.FenceKindPoi {
		for _, f := range e.state.pois {
			out = append(out, f.Clone())
		}
	}
	return out
}

func (e *GeofenceEngine) CurrentPosition() (domain.Fix, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.fix == nil {
		return domain.Fix{}, false
	}
	return *e.state.fix, true
}

func (e *GeofenceEngine) ActiveFence() (ActiveFence, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.activeLocked()
	if a == nil {
		return ActiveFence{}, false
	}
	return *a, true
}

func (e *GeofenceEngine) activeLocked() *ActiveFence {
	switch {
	case e.state.stop != nil:
		return &ActiveFence{
			Fence:    e.state.stop.fence.Clone(),
			Arrived:  e.state.stop.arrived,
			Released: e.state.stop.released,
		}
	case e.state.poi != nil:
		return &ActiveFence{Fence: e.state.poi.Clone()}
	default:
		return nil
	}
}

func (e *GeofenceEngine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Running:          e.running.Load(),
		Connected:        e.state.connected,
		Locked:           e.state.locked,
		Active:           e.activeLocked(),
		StopCandidates:   len(e.state.stopCandidates),
		PoiCandidates:    len(e.state.poiCandidates),
		WatchdogDeadline: e.state.watchdog,
	}
	if e.state.fix != nil {
		fix := *e.state.fix
		s.Position = &fix
	}
	return s
}

func (e *GeofenceEngine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.connected
}

func (e *GeofenceEngine) SetHandlers(h Handlers) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.handlers = h
}

func (e *GeofenceEngine) ClearHandlers() {
	e.SetHandlers(Handlers{})
}
