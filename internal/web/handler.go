package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/procsense/procsense/internal/config"
	"github.com/procsense/procsense/internal/database"
	"github.com/procsense/procsense/internal/models"
	"github.com/procsense/procsense/internal/reporter"
	"github.com/procsense/procsense/internal/tracker"
	"github.com/procsense/procsense/pkg/process"
	"github.com/procsense/procsense/pkg/sensing"
	"github.com/procsense/procsense/pkg/window"
)

// TrackerStatus is the view of a running tracker the status endpoint reports.
type TrackerStatus interface {
	IsRunning() bool
	Stats() tracker.Stats
	Current() (tracker.Focus, bool)
}

type Handler struct {
	config   *config.Config
	repo     *database.Repository
	reporter *reporter.Reporter
	sensing  *sensing.Sensor
	cache    *process.Cache
	tracker  TrackerStatus
}

// NewHandler wires the API. trk may be nil when no tracker runs in-process.
func NewHandler(cfg *config.Config, repo *database.Repository, sens *sensing.Sensor, trk TrackerStatus) *Handler {
	return &Handler{
		config:   cfg,
		repo:     repo,
		reporter: reporter.New(cfg, repo),
		sensing:  sens,
		cache:    process.NewCache(sens.Source(), cfg.Tracker.CacheTTL),
		tracker:  trk,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/snapshot", h.handleSnapshot)
	mux.HandleFunc("/api/process", h.handleProcess)
	mux.HandleFunc("/api/active", h.handleActive)
	mux.HandleFunc("/api/samples", h.handleSamples)
	mux.HandleFunc("/api/summary", h.handleSummary)
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/errors", h.handleErrors)

	mux.HandleFunc("/health", h.handleHealth)
}

type snapshotResponse struct {
	Count     int              `json:"count"`
	Capacity  int              `json:"capacity"`
	Processes []process.Record `json:"processes"`
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	if fresh, _ := strconv.ParseBool(query.Get("fresh")); fresh {
		h.cache.Invalidate()
	}

	snap := h.cache.Snapshot()
	records := snap.Records()

	if name := query.Get("name"); name != "" {
		filtered := make([]process.Record, 0)
		for _, rec := range records {
			if strings.Contains(strings.ToLower(rec.Name), strings.ToLower(name)) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	respondJSON(w, http.StatusOK, snapshotResponse{
		Count:     len(records),
		Capacity:  snap.Capacity(),
		Processes: records,
	})
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pid, err := strconv.ParseUint(r.URL.Query().Get("pid"), 10, 32)
	if err != nil || pid == 0 {
		http.Error(w, "pid must be a positive integer", http.StatusBadRequest)
		return
	}

	rec := h.sensing.ResolveProcess(uint32(pid))
	if rec.Partial() && rec.Name == "" {
		respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":   fmt.Sprintf("process %d not found or not accessible", pid),
			"process": rec,
		})
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

type activeResponse struct {
	Window  window.Sample  `json:"window"`
	Process process.Record `json:"process"`
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sample, err := h.sensing.CaptureActiveWindow()
	switch {
	case errors.Is(err, window.ErrNoActiveWindow):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, window.ErrUnavailable):
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	case err != nil:
		http.Error(w, fmt.Sprintf("Failed to capture active window: %v", err), http.StatusInternalServerError)
		return
	}

	rec, ok := h.cache.Snapshot().Lookup(sample.PID)
	if !ok {
		rec = h.sensing.ResolveProcess(sample.PID)
	}

	respondJSON(w, http.StatusOK, activeResponse{Window: sample, Process: rec})
}

func (h *Handler) handleSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	since := time.Now().Add(-24 * time.Hour)
	if periodType := query.Get("period"); periodType != "" {
		period, err := h.reporter.Period(periodType)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		since = period.Start
	}

	samples, err := h.repo.GetSamplesSince(since)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch samples: %v", err), http.StatusInternalServerError)
		return
	}

	limit := 100
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}
	if samples == nil {
		samples = []*models.ActivitySample{}
	}

	respondJSON(w, http.StatusOK, samples)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	if _, err := h.reporter.Period(periodType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]interface{}{
		"display_server":    h.sensing.DisplayServer(),
		"window_status":     h.sensing.Status(),
		"retention":         h.config.Database.Retention.String(),
		"snapshot_interval": h.config.Tracker.SnapshotInterval.String(),
		"window_interval":   h.config.Tracker.WindowInterval.String(),
		"database_path":     h.config.Database.Path,
		"tracking":          false,
	}

	if h.tracker != nil {
		status["tracking"] = h.tracker.IsRunning()
		status["stats"] = h.tracker.Stats()
		if focus, ok := h.tracker.Current(); ok {
			status["focus"] = focus
		}
	}

	if latest, _ := h.repo.GetLatest(); latest != nil {
		status["latest_sample"] = map[string]interface{}{
			"process_key":    latest.ProcessKey,
			"process_name":   latest.ProcessName,
			"window_title":   latest.WindowTitle,
			"timestamp":      latest.Timestamp,
			"display_server": latest.DisplayServer,
		}
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	errorLogs, err := h.repo.GetRecentErrors(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch errors: %v", err), http.StatusInternalServerError)
		return
	}
	if errorLogs == nil {
		errorLogs = []*models.ErrorLog{}
	}

	respondJSON(w, http.StatusOK, errorLogs)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func respondJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
	}
}
