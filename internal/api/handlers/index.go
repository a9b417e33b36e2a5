package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quantlab/topescape/internal/pipeline"
	"github.com/quantlab/topescape/internal/rolling"
	"github.com/quantlab/topescape/pkg/logger"
)

// IndexHandler serves the computed escape index over HTTP.
type IndexHandler struct {
	svc    *pipeline.Service
	logger *logger.Logger
}

// NewIndexHandler creates a new index handler.
func NewIndexHandler(svc *pipeline.Service, log *logger.Logger) *IndexHandler {
	return &IndexHandler{svc: svc, logger: log}
}

// IndexRow is one day of the composite in API responses. Missing values
// serialize as null.
type IndexRow struct {
	Date      string   `json:"date"`
	CrowdingZ *float64 `json:"crowding_z"`
	Raw       *float64 `json:"index_raw"`
	Smoothed  *float64 `json:"index_smoothed"`
	Signal    int      `json:"signal"`
	Level     string   `json:"level"`
}

// GetLatest returns the most recent day with a defined smoothed value.
// GET /api/index/latest
func (h *IndexHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.svc.Snapshot()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "Index not computed yet")
		return
	}

	dates := snap.Table.Dates()
	for i := len(dates) - 1; i >= 0; i-- {
		if rolling.IsMissing(snap.Result.Smoothed[i]) {
			continue
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"data":        rowAt(snap, i),
			"computed_at": snap.ComputedAt.Format(time.RFC3339),
		})
		return
	}

	respondError(w, http.StatusNotFound, "No defined index value")
}

// GetHistory returns the composite series, optionally bounded by
// from/to query parameters (YYYY-MM-DD).
// GET /api/index/history
func (h *IndexHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.svc.Snapshot()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "Index not computed yet")
		return
	}

	from, err := parseDateParam(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid from date")
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid to date")
		return
	}

	dates := snap.Table.Dates()
	rows := make([]IndexRow, 0, len(dates))
	for i := range dates {
		if !from.IsZero() && dates[i].Before(from) {
			continue
		}
		if !to.IsZero() && dates[i].After(to) {
			continue
		}
		rows = append(rows, rowAt(snap, i))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(rows),
		"data":    rows,
	})
}

// GetSignals returns the days on which the index fired.
// GET /api/index/signals
func (h *IndexHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.svc.Snapshot()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "Index not computed yet")
		return
	}

	dates := snap.Table.Dates()
	rows := make([]IndexRow, 0)
	for i := range dates {
		if snap.Result.Signal[i] == 1 {
			rows = append(rows, rowAt(snap, i))
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(rows),
		"data":    rows,
	})
}

// Recompute reloads the sources and rebuilds the index.
// POST /api/index/recompute
func (h *IndexHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Refresh(); err != nil {
		h.logger.WithError(err).Error("Failed to recompute index")
		respondError(w, http.StatusInternalServerError, "Failed to recompute index")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Index recomputed",
	})
}

func rowAt(snap *pipeline.Snapshot, i int) IndexRow {
	return IndexRow{
		Date:      snap.Table.Dates()[i].Format("2006-01-02"),
		CrowdingZ: optional(snap.Result.CrowdingZ[i]),
		Raw:       optional(snap.Result.Raw[i]),
		Smoothed:  optional(snap.Result.Smoothed[i]),
		Signal:    snap.Result.Signal[i],
		Level:     snap.Result.Level[i],
	}
}

func optional(v float64) *float64 {
	if rolling.IsMissing(v) {
		return nil
	}
	return &v
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
