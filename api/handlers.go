package api

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/curvewatch/curvewatch/internal/config"
	"github.com/curvewatch/curvewatch/internal/dataset"
	"github.com/curvewatch/curvewatch/internal/report"
	"github.com/curvewatch/curvewatch/pkg/models"
	"github.com/curvewatch/curvewatch/pkg/utils"
)

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"status":  "ok",
		"version": "dev",
	}
	if f, err := s.frameCached(); err == nil {
		data["rows"] = f.Len()
		data["last_date"] = utils.FormatDate(f.LastDate())
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// handleDataset returns processed rows, optionally bounded by
// ?start=YYYY-MM-DD and ?end=YYYY-MM-DD.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	f, err := s.frameCached()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	start, ok := parseDateParam(w, r, "start")
	if !ok {
		return
	}
	end, ok := parseDateParam(w, r, "end")
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"columns": f.Columns,
			"rows":    f.Rows(start, end),
		},
	})
}

// handleCurve returns both countries' curves on the requested date (or
// the closest earlier business day), defaulting to the latest row.
func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	f, err := s.frameCached()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	target, ok := parseDateParam(w, r, "date")
	if !ok {
		return
	}
	if target.IsZero() {
		target = f.LastDate()
	}
	row := f.RowOnOrBefore(target)
	if row < 0 {
		writeError(w, http.StatusNotFound, "dataset is empty")
		return
	}

	var points []models.CurvePoint
	for _, spec := range s.cfg.Series {
		if spec.Country != "US" && spec.Country != "CA" {
			continue
		}
		v := f.Value(row, spec.Name)
		if math.IsNaN(v) {
			continue
		}
		points = append(points, models.CurvePoint{
			Date:    f.Dates[row],
			Country: spec.Country,
			Tenor:   spec.TenorLabel(),
			Yield:   v,
		})
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"date":   utils.FormatDate(f.Dates[row]),
			"points": points,
		},
	})
}

// handleSlopes returns the slope history in basis points.
func (s *Server) handleSlopes(w http.ResponseWriter, r *http.Request) {
	f, err := s.frameCached()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	cols := []string{"US_2s10s", "US_5s30s", "CA_2s10s", "CA_5s30s"}
	rows := make([]map[string]any, 0, f.Len())
	for i, d := range f.Dates {
		row := map[string]any{"date": utils.FormatDate(d)}
		hasVal := false
		for _, c := range cols {
			if !f.HasColumn(c) {
				continue
			}
			v := f.Value(i, c)
			if math.IsNaN(v) {
				row[c+"_bp"] = nil
				continue
			}
			row[c+"_bp"] = v * 100
			hasVal = true
		}
		if hasVal {
			rows = append(rows, row)
		}
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rows})
}

// handleChanges returns the latest tenor changes for one country,
// grouped bucket → column → bp.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	country := strings.ToUpper(chi.URLParam(r, "country"))
	if country != "US" && country != "CA" {
		writeError(w, http.StatusBadRequest, "country must be US or CA")
		return
	}

	f, err := s.frameCached()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	cols := s.cfg.CountryColumns(country)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    dataset.LatestChanges(f, cols),
	})
}

// handleVol returns the latest rolling vol per column in bp/day.
// ?window= overrides the configured window.
func (s *Server) handleVol(w http.ResponseWriter, r *http.Request) {
	f, err := s.frameCached()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	window := s.cfg.Viz.VolWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 2 {
			writeError(w, http.StatusBadRequest, "window must be an integer >= 2")
			return
		}
		window = n
	}

	cols := s.cfg.YieldColumns()
	vol := dataset.RollingVolBP(f, cols, window)
	latest := make(map[string]any, len(cols))
	for _, c := range cols {
		v := lastValid(vol.Column(c))
		if math.IsNaN(v) {
			latest[c] = nil
		} else {
			latest[c] = v
		}
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"window_days": window,
			"vol_bp":      latest,
		},
	})
}

// handleSpread returns the 10Y cross-country spread history with the
// FX rate alongside.
func (s *Server) handleSpread(w http.ResponseWriter, r *http.Request) {
	f, err := s.frameCached()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if !f.HasColumn(dataset.SpreadColumn) {
		writeError(w, http.StatusNotFound, "spread column not available")
		return
	}

	fxCol := ""
	for _, spec := range s.cfg.Series {
		if spec.Country == "FX" && f.HasColumn(spec.Name) {
			fxCol = spec.Name
			break
		}
	}

	rows := make([]map[string]any, 0, f.Len())
	for i, d := range f.Dates {
		v := f.Value(i, dataset.SpreadColumn)
		if math.IsNaN(v) {
			continue
		}
		row := map[string]any{
			"date":      utils.FormatDate(d),
			"spread_bp": v,
		}
		if fxCol != "" {
			if fx := f.Value(i, fxCol); !math.IsNaN(fx) {
				row["fx"] = fx
			}
		}
		rows = append(rows, row)
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rows})
}

// handleProviders lists registered providers and their model coverage.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"providers": s.registry.List(),
			"coverage":  s.registry.ModelCoverage(),
		},
	})
}

// handleReleases returns upstream release announcements. ?q= filters,
// ?limit= caps the result count.
func (s *Server) handleReleases(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var items []models.ReleaseItem
	var err error
	if q := r.URL.Query().Get("q"); q != "" {
		items, err = s.feed.Search(ctx, q, limit)
	} else {
		items, err = s.feed.Latest(ctx, limit)
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: items})
}

// handleConfigKeys reports API key status without exposing values.
func (s *Server) handleConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}

// handleChart serves the latest rendered artifact for a figure name.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validFigure(name) {
		writeError(w, http.StatusBadRequest, "unknown chart name")
		return
	}

	path, err := s.renderer.LatestFigurePath(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ct := "image/png"
	if filepath.Ext(path) == ".svg" {
		ct = "image/svg+xml"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// handleRefresh runs the pipeline in the background and notifies
// WebSocket clients when it finishes.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	go func() {
		s.refreshMu.Lock()
		defer s.refreshMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		s.wsHub.Broadcast(WSMessage{Type: "refresh_started"})
		res, err := s.runner.Run(ctx)
		if err != nil {
			s.logger.Error("refresh failed", zap.Error(err))
			s.wsHub.Broadcast(WSMessage{
				Type: "refresh_failed",
				Data: map[string]any{"error": err.Error()},
			})
			return
		}
		s.wsHub.Broadcast(WSMessage{
			Type: "refresh_complete",
			Data: map[string]any{
				"rows":    res.Rows,
				"fetched": len(res.Fetched),
				"failed":  res.Failed,
			},
		})
	}()

	writeJSON(w, http.StatusAccepted, APIResponse{
		Success: true,
		Data:    map[string]any{"started": true},
	})
}

// ---- helpers ----

// parseDateParam reads an optional YYYY-MM-DD query parameter. On a
// malformed value it writes a 400 and returns ok=false.
func parseDateParam(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, key+" must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func validFigure(name string) bool {
	if name == report.FigOnePager {
		return true
	}
	for _, f := range report.FigureNames {
		if f == name {
			return true
		}
	}
	return false
}

func lastValid(col []float64) float64 {
	for i := len(col) - 1; i >= 0; i-- {
		if !math.IsNaN(col[i]) {
			return col[i]
		}
	}
	return math.NaN()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
