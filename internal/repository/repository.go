package repository

import (
	"context"

	"github.com/StarterX4/steamlinuxchecker/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ScanRepository answers the read-only queries behind the report API.
type ScanRepository interface {
	model.Store
	ListScans(ctx context.Context, userID int64, opts ListOptions) ([]model.Scan, error)
	ListPlaytimes(ctx context.Context, scanID int64) ([]model.Playtime, error)
}
