package service

import (
	"log"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/geo"
)

// evaluate runs the hit state machines against the current fix and emits at
// most one fence transition. Stops take priority over POIs.
func (e *GeofenceEngine) evaluate() {
	e.mu.Lock()
	if e.state.fix == nil {
		e.mu.Unlock()
		log.Printf("hit evaluation skipped: %v", domain.ErrNoFix)
		return
	}
	pos := *e.state.fix
	hit, changed := e.evaluateLocked(pos)
	e.mu.Unlock()

	if changed {
		e.emitHit(hit)
	}
}

// evaluateLocked returns the new hit (nil for cleared) and whether it changed.
func (e *GeofenceEngine) evaluateLocked(pos domain.Fix) (*domain.Fence, bool) {
	if e.state.stop != nil {
		return e.trackStopLocked(pos)
	}

	if e.state.poi != nil {
		if stop, d, ok := firstHit(e.state.stopCandidates, pos); ok {
			log.Printf("stop %q preempts poi %q", stop.Title, e.state.poi.Title)
			e.state.poi = nil
			return e.enterStopLocked(stop, d)
		}
		return e.trackPoiLocked(pos)
	}

	if stop, d, ok := firstHit(e.state.stopCandidates, pos); ok {
		return e.enterStopLocked(stop, d)
	}

	if poi, _, ok := firstHit(e.state.poiCandidates, pos); ok {
		e.state.poi = &poi
		log.Printf("HIT poi %q", poi.Title)
		return &poi, true
	}
	return nil, false
}

func (e *GeofenceEngine) enterStopLocked(stop domain.Fence, d float64) (*domain.Fence, bool) {
	e.state.stop = &activeStop{fence: stop}
	log.Printf("HIT stop %q, distance %.0fm", stop.Title, d)
	return &stop, true
}

// trackStopLocked moves the active stop through arrived, released and left.
// Leaving the outer margin without a release still emits the clear, so every
// stop lifecycle ends with exactly one nil hit.
func (e *GeofenceEngine) trackStopLocked(pos domain.Fix) (*domain.Fence, bool) {
	s := e.state.stop
	d := geo.Distance(pos.Lat, pos.Lon, s.fence.Lat, s.fence.Lon)
	outer := s.fence.Radius + e.cfg.StopExitMargin

	switch {
	case d < e.cfg.StopInnerExit:
		if !s.arrived {
			s.arrived = true
			log.Printf("stop %q arrived, distance %.0fm", s.fence.Title, d)
		}
		return nil, false
	case d < outer:
		if s.arrived && !s.released {
			s.released = true
			log.Printf("UNHIT stop %q, distance %.0fm, stop stays locked until %.0fm", s.fence.Title, d, outer)
			return nil, true
		}
		return nil, false
	default:
		log.Printf("left stop %q, distance %.0fm", s.fence.Title, d)
		e.state.stop = nil
		return nil, !s.released
	}
}

func (e *GeofenceEngine) trackPoiLocked(pos domain.Fix) (*domain.Fence, bool) {
	p := e.state.poi
	d := geo.Distance(pos.Lat, pos.Lon, p.Lat, p.Lon)
	limit := p.Radius + e.cfg.PoiHysteresis
	if d < limit {
		log.Printf("poi %q distance %04.0fm while radius %03.0fm (hysteresis %03.0fm)", p.Title, d, p.Radius, limit)
		return nil, false
	}

	log.Printf("UNHIT poi %q", p.Title)
	e.state.poi = nil
	return nil, true
}

// firstHit returns the first fence in list order whose radius contains pos.
func firstHit(fences []domain.Fence, pos domain.Fix) (domain.Fence, float64, bool) {
	for _, f := range fences {
		d := geo.Distance(pos.Lat, pos.Lon, f.Lat, f.Lon)
		if d < f.Radius {
			return f, d, true
		}
	}
	return domain.Fence{}, 0, false
}
