package database

import (
	"context"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
)

type FenceRepository interface {
	ListFences(ctx context.Context) ([]domain.Fence, error)
}
