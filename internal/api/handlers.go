package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cymasphere/campaign-engine/internal/engagement"
	"github.com/cymasphere/campaign-engine/internal/pkg/logger"
	"github.com/cymasphere/campaign-engine/internal/promo"
	"github.com/cymasphere/campaign-engine/internal/scheduler"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	scheduler     *scheduler.Scheduler
	ingestor      *engagement.Ingestor
	promotions    *promo.Selector
	controlSecret string
}

// NewHandlers creates the handler set.
func NewHandlers(sched *scheduler.Scheduler, ingestor *engagement.Ingestor, promotions *promo.Selector, controlSecret string) *Handlers {
	return &Handlers{
		scheduler:     sched,
		ingestor:      ingestor,
		promotions:    promotions,
		controlSecret: controlSecret,
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// SchedulerStatus returns the scheduler's control-state snapshot.
func (h *Handlers) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.Status())
}

type schedulerControlRequest struct {
	Action string `json:"action"`
}

// SchedulerControl starts, stops, or triggers the scheduler.
func (h *Handlers) SchedulerControl(w http.ResponseWriter, r *http.Request) {
	var req schedulerControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Action {
	case "start":
		// Starting an already-running scheduler is a no-op; the caller
		// gets the current status either way.
		if err := h.scheduler.Start(); err != nil {
			logger.Debug("scheduler start request ignored", "reason", err.Error())
		}
	case "stop":
		h.scheduler.Stop()
	case "trigger":
		h.scheduler.TriggerNow(r.Context())
	default:
		respondError(w, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"action":  req.Action,
		"status":  h.scheduler.Status(),
	})
}
