package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
	"github.com/StarterX4/steamlinuxchecker/internal/model"
	"github.com/StarterX4/steamlinuxchecker/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ScanReport is a stored scan plus its derived Linux share.
type ScanReport struct {
	model.Scan
	Score float64 `json:"score"`
}

// ReportService answers read-only questions about stored scans.
// It never calls Steam.
type ReportService struct {
	repo   repository.ScanRepository
	logger *slog.Logger
}

func NewReportService(repo repository.ScanRepository, logger *slog.Logger) *ReportService {
	return &ReportService{
		repo:   repo,
		logger: logger,
	}
}

// User returns a stored profile.
// Returns apperror.ErrNotFound if the user has never been checked.
func (s *ReportService) User(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "user id must be a positive SteamID")
	}
	e, err := s.repo.Read(ctx, &model.User{ID: id})
	if err != nil {
		return nil, err
	}
	return e.(*model.User), nil
}

// Scans lists a user's scans, newest first.
//
// PAGINATION:
// limit is clamped to 1-100 (default 20) and a negative offset counts as 0.
//
// The scans of a profile that is not public carry no playtime, so they are
// refused with apperror.ErrPrivate rather than reported as zeros.
func (s *ReportService) Scans(ctx context.Context, userID int64, limit, offset int) ([]ScanReport, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Public() {
		return nil, apperror.Private("profile", userID)
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	scans, err := s.repo.ListScans(ctx, userID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list scans",
			slog.Int64("user", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing scans: %w", err)
	}

	reports := make([]ScanReport, len(scans))
	for i, scan := range scans {
		reports[i] = ScanReport{Scan: scan, Score: scan.Score()}
	}
	return reports, nil
}

// Playtimes lists the per-game rows of one scan.
func (s *ReportService) Playtimes(ctx context.Context, scanID int64) ([]model.Playtime, error) {
	if scanID <= 0 {
		return nil, apperror.ValidationFailed("id", "scan id must be positive")
	}
	if _, err := s.repo.Read(ctx, &model.Scan{ID: scanID}); err != nil {
		return nil, err
	}

	playtimes, err := s.repo.ListPlaytimes(ctx, scanID)
	if err != nil {
		s.logger.Error("failed to list playtimes",
			slog.Int64("scan", scanID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing playtimes: %w", err)
	}
	return playtimes, nil
}
