package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MoovFleet/MoovFleet/internal/common/logger"
	"github.com/MoovFleet/MoovFleet/internal/deadline"
	"github.com/MoovFleet/MoovFleet/internal/fleet"
	"github.com/MoovFleet/MoovFleet/internal/syncer"
)

// ActivityLister is the read-only record browsing the dashboard uses.
type ActivityLister interface {
	List(ctx context.Context, driverID, date string, offset, limit int) ([]fleet.ActivityRecord, int64, error)
}

// Handler exposes the sync trigger, the activity record listing and the
// remittance deadline preview.
type Handler struct {
	orch     *syncer.Orchestrator
	records  ActivityLister
	settings syncer.SettingsStore
	log      logger.Logger
	loc      *time.Location
}

func NewHandler(orch *syncer.Orchestrator, records ActivityLister, settings syncer.SettingsStore, log logger.Logger, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{orch: orch, records: records, settings: settings, log: log, loc: loc}
}

// Register mounts the routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.health)
	mux.HandleFunc("/api/sync/run", h.runSync)
	mux.HandleFunc("/api/activity/records", h.listRecords)
	mux.HandleFunc("/api/remittance/deadline", h.remittanceDeadline)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// runSync triggers one reconciliation run. Optional ?date=YYYY-MM-DD; the
// default is yesterday. A run that completed with per-driver errors is still
// a 200: the body's outcome list documents which drivers failed and why.
func (h *Handler) runSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse(fleet.DateLayout, date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date", err.Error())
			return
		}
	}

	summary, err := h.orch.Run(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusBadGateway, "sync run failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type recordsResponse struct {
	Records []fleet.ActivityRecord `json:"records"`
	Total   int64                  `json:"total"`
}

// listRecords pages through stored activity records, newest first. Optional
// driver_id and date filters narrow the listing.
func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	q := r.URL.Query()
	if date := q.Get("date"); date != "" {
		if _, err := time.Parse(fleet.DateLayout, date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date", err.Error())
			return
		}
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	records, total, err := h.records.List(r.Context(), q.Get("driver_id"), q.Get("date"), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list records", err.Error())
		return
	}
	if records == nil {
		records = []fleet.ActivityRecord{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: records, Total: total})
}

type deadlineResponse struct {
	DeadlineAt           time.Time `json:"deadline_at"`
	PreviousDeadlineAt   time.Time `json:"previous_deadline_at"`
	CurrentlyLate        bool      `json:"currently_late"`
	TimeRemainingSeconds int64     `json:"time_remaining_seconds"`
	PenaltyPreview       *float64  `json:"penalty_preview,omitempty"`
}

// remittanceDeadline answers the dashboard's "time remaining" question and,
// when ?amount=N is given, previews the penalty for that gross remittance.
func (h *Handler) remittanceDeadline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	settings, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings", err.Error())
		return
	}
	if settings == nil {
		writeError(w, http.StatusNotFound, "fleet settings not configured", "")
		return
	}

	cfg, err := settings.DeadlineConfig()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "invalid deadline settings", err.Error())
		return
	}

	now := time.Now().In(h.loc)
	window, err := deadline.Next(cfg, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "invalid deadline settings", err.Error())
		return
	}

	resp := deadlineResponse{
		DeadlineAt:           window.DeadlineAt,
		PreviousDeadlineAt:   window.PreviousDeadlineAt,
		CurrentlyLate:        deadline.IsCurrentlyLate(cfg, now),
		TimeRemainingSeconds: int64(window.DeadlineAt.Sub(now).Seconds()),
	}
	if raw := r.URL.Query().Get("amount"); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
			return
		}
		p := deadline.Penalty(amount, cfg)
		resp.PenaltyPreview = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}
