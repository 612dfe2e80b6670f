// Package handler contains the HTTP handlers of the report API.
//
// Handlers only translate between HTTP and the service layer: they parse
// path and query parameters, call a service method, and write the result
// or the mapped error (see response.go).
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
	"github.com/StarterX4/steamlinuxchecker/internal/model"
	"github.com/StarterX4/steamlinuxchecker/internal/service"
)

// Reports is the service behind the handlers. *service.ReportService
// implements it; the tests pass a fake.
type Reports interface {
	User(ctx context.Context, id int64) (*model.User, error)
	Scans(ctx context.Context, userID int64, limit, offset int) ([]service.ScanReport, error)
	Playtimes(ctx context.Context, scanID int64) ([]model.Playtime, error)
}

var _ Reports = (*service.ReportService)(nil)

type ReportHandler struct {
	reports Reports
	logger  *slog.Logger
}

func NewReportHandler(reports Reports, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// HandleGetUser returns a stored profile.
//
// HTTP: GET /api/users/{id}
func (h *ReportHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.reports.User(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleListScans returns a user's scans, newest first.
//
// HTTP: GET /api/users/{id}/scans?limit=20&offset=0
func (h *ReportHandler) HandleListScans(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	scans, err := h.reports.Scans(r.Context(), id, limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scans)
}

// HandleListPlaytimes returns the per-game rows of one scan.
//
// HTTP: GET /api/scans/{id}/playtimes
func (h *ReportHandler) HandleListPlaytimes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	playtimes, err := h.reports.Playtimes(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playtimes)
}

// fail writes err, logging it first when it is not one the client caused.
func (h *ReportHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !apperror.Recoverable(err) {
		h.logger.Error("report request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, err)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("id", "id must be numeric, got "+strconv.Quote(raw))
	}
	return id, nil
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
