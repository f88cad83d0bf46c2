// Package file loads fence definitions from a YAML file.
package file

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/internal/repository/database"
)

var _ database.FenceRepository = (*FenceRepo)(nil)

type fenceFile struct {
	Fences []fenceRecord `yaml:"fences" validate:"dive"`
}

type fenceRecord struct {
	ID     string   `yaml:"id"`
	Kind   string   `yaml:"kind" validate:"required,oneof=position stop"`
	Title  string   `yaml:"title" validate:"required"`
	Lat    float64  `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon    float64  `yaml:"lon" validate:"gte=-180,lte=180"`
	Radius float64  `yaml:"radius" validate:"gte=0"`
	Notice string   `yaml:"notice"`
	Medium []string `yaml:"medium" validate:"dive,required"`
}

// FenceRepo reads the whole file on every ListFences so edits are picked up
// by a reload.
type FenceRepo struct {
	path     string
	validate *validator.Validate
}

func NewFenceRepo(path string) *FenceRepo {
	return &FenceRepo{path: path, validate: validator.New()}
}

func (r *FenceRepo) ListFences(ctx context.Context) ([]domain.Fence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read fence file: %w", err)
	}
	return r.parse(data)
}

func (r *FenceRepo) parse(data []byte) ([]domain.Fence, error) {
	var ff fenceFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parse fence file %s: %w", r.path, err)
	}
	if err := r.validate.Struct(ff); err != nil {
		return nil, fmt.Errorf("validate fence file %s: %w", r.path, err)
	}

	fences := make([]domain.Fence, 0, len(ff.Fences))
	for i, rec := range ff.Fences {
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", rec.Kind, i+1)
		}
		fences = append(fences, domain.Fence{
			ID:     id,
			Kind:   domain.FenceKind(rec.Kind),
			Title:  rec.Title,
			Lat:    rec.Lat,
			Lon:    rec.Lon,
			Radius: rec.Radius,
			Notice: rec.Notice,
			Media:  rec.Medium,
		})
	}
	return fences, nil
}
