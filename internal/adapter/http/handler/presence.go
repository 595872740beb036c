package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/internal/service/presence"
	"github.com/ridecore/dispatch/pkg/hasher"
	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
)

// Presence serves the Ably-style signed presence webhook.
type Presence struct {
	presence  *presence.Service
	keyName   string
	keySecret string
	log       logger.Logger
}

func NewPresence(svc *presence.Service, keyName, keySecret string, log logger.Logger) *Presence {
	return &Presence{presence: svc, keyName: keyName, keySecret: keySecret, log: log}
}

// Webhook godoc
// @Summary      Receive an Ably presence webhook batch
// @Tags         Presence
// @Accept       json
// @Produce      json
// @Success      200 {object} map[string]any
// @Failure      403 {object} map[string]any
// @Router       /webhooks/ably/presence [post]
func (h *Presence) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "presence_webhook")

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		badRequestResponse(w, "failed to read request body")
		return
	}

	headerKey := r.Header.Get("X-Ably-Key")
	signature := r.Header.Get("X-Ably-Signature")
	if headerKey == "" || signature == "" {
		errorResponse(w, http.StatusForbidden, types.ErrMissingSignatureHeaders.Error())
		return
	}

	if !h.keyMatches(headerKey) || !hasher.VerifyHMACSHA256([]byte(h.keySecret), body, signature) {
		h.log.Warn(ctx, "presence webhook signature mismatch", "key", headerKey)
		errorResponse(w, http.StatusForbidden, types.ErrSignatureMismatch.Error())
		return
	}

	var batch models.PresenceBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		badRequestResponse(w, "malformed presence batch")
		return
	}

	processed := h.presence.ProcessBatch(ctx, batch)
	writeJSON(w, http.StatusOK, envelope{"ok": true, "processed": processed}, nil)
}

// keyMatches accepts either the full "appId.keyId" key name or just the
// keyId suffix after the last '.'.
func (h *Presence) keyMatches(headerKey string) bool {
	if headerKey == h.keyName {
		return true
	}
	if idx := strings.LastIndex(h.keyName, "."); idx >= 0 {
		return headerKey == h.keyName[idx+1:]
	}
	return false
}
