package api

import (
	"encoding/base64"
	"net/http"

	"github.com/cymasphere/campaign-engine/internal/domain"
	"github.com/cymasphere/campaign-engine/internal/engagement"
	"github.com/cymasphere/campaign-engine/internal/pkg/logger"
)

// 1x1 transparent PNG served for every open ping.
var trackingPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

// TrackOpen records an open ping and serves the pixel. The pixel is served
// no matter what: unknown tokens, bot pings, and ingest errors all look
// identical to the caller so the response never leaks classification.
func (h *Handlers) TrackOpen(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("t")
	if token != "" {
		sig := domain.Signature{
			UserAgent: r.UserAgent(),
			IPAddress: r.RemoteAddr,
		}
		if err := h.ingestor.IngestOpen(r.Context(), token, sig); err != nil && err != engagement.ErrUnknownToken {
			logger.Warn("open ingest failed", "error", err.Error())
		}
	}
	servePixel(w)
}

// TrackClick records a click ping and redirects to the original target.
// The redirect happens even when the token is unknown or ingest fails so
// the recipient always lands on the link they clicked.
func (h *Handlers) TrackClick(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		respondError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	token := r.URL.Query().Get("t")
	if token != "" {
		sig := domain.Signature{
			UserAgent: r.UserAgent(),
			IPAddress: r.RemoteAddr,
		}
		if err := h.ingestor.IngestClick(r.Context(), token, sig, target); err != nil && err != engagement.ErrUnknownToken {
			logger.Warn("click ingest failed", "error", err.Error())
		}
	}

	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(trackingPixel)
}
