package service

import (
	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/geo"
)

// Candidates returns, in list order, the fences closer to ref than
// coarseRadius meters. Without a usable reference fix the set is empty.
func Candidates(all []domain.Fence, ref *domain.Fix, coarseRadius float64) []domain.Fence {
	if ref == nil || !ref.Mode.Locked() {
		return nil
	}

	var out []domain.Fence
	for _, f := range all {
		if geo.Distance(ref.Lat, ref.Lon, f.Lat, f.Lon) < coarseRadius {
			out = append(out, f)
		}
	}
	return out
}
