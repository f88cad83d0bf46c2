package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/internal/repository/database"
)

var _ database.FenceRepository = (*FenceRepo)(nil)

// FenceRepo reads fences from the fences table:
//
//	id text, kind text, title text, latitude double precision,
//	longitude double precision, radius double precision null,
//	notice text null, media text[] null, enabled bool, sort_order int
type FenceRepo struct {
	db *sql.DB
}

func NewFenceRepo(db *sql.DB) *FenceRepo {
	return &FenceRepo{db: db}
}

// ListFences returns enabled fences in configured order. A null radius is
// returned as 0 and left to the engine's defaulting.
func (r *FenceRepo) ListFences(ctx context.Context) ([]domain.Fence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, title, latitude, longitude, radius, notice, media FROM fences WHERE enabled ORDER BY sort_order, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query fences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Fence
	for rows.Next() {
		var (
			f      domain.Fence
			kind   string
			radius sql.NullFloat64
			notice sql.NullString
			media  pq.StringArray
		)
		if err := rows.Scan(&f.ID, &kind, &f.Title, &f.Lat, &f.Lon, &radius, &notice, &media); err != nil {
			return nil, fmt.Errorf("scan fence: %w", err)
		}
		f.Kind = domain.FenceKind(kind)
		f.Radius = radius.Float64
		f.Notice = notice.String
		if len(media) > 0 {
			f.Media = []string(media)
		}
		results = append(results, f)
	}
	return results, rows.Err()
}
