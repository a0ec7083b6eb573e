package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cymasphere/campaign-engine/internal/promo"
)

// ActivePromotion returns the highest-priority promotion currently running
// for the caller's plan. A null promotion with success=true means nothing
// is active right now.
func (h *Handlers) ActivePromotion(w http.ResponseWriter, r *http.Request) {
	plan := r.URL.Query().Get("plan")

	selected, count, err := h.promotions.ActiveFor(r.Context(), plan, time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load promotions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"promotion": selected,
		"count":     count,
	})
}

type trackPromotionRequest struct {
	PromotionID string  `json:"promotion_id"`
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
}

// TrackPromotion records a view or conversion against a promotion.
func (h *Handlers) TrackPromotion(w http.ResponseWriter, r *http.Request) {
	var req trackPromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PromotionID == "" || req.Type == "" {
		respondError(w, http.StatusBadRequest, "promotion_id and type are required")
		return
	}

	err := h.promotions.Track(r.Context(), req.PromotionID, promo.TrackKind(req.Type), req.Value)
	switch err {
	case nil:
	case promo.ErrInvalidKind:
		respondError(w, http.StatusBadRequest, "type must be view or conversion")
		return
	case promo.ErrNotFound:
		respondError(w, http.StatusNotFound, "promotion not found")
		return
	default:
		respondError(w, http.StatusInternalServerError, "failed to track promotion")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
