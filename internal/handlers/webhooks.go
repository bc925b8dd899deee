package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"scribeline/internal/apperr"
	"scribeline/internal/billing"
	"scribeline/internal/db"
	"scribeline/internal/middleware"
	"scribeline/internal/provider"
)

// subscriptionEventTTL bounds how long processed event ids are remembered.
const subscriptionEventTTL = 30 * 24 * time.Hour

// PostSTTWebhook receives the async STT callback. The signature covers
// the raw body; verification failures return 401 with no side effects.
func (h *Handlers) PostSTTWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "could not read body"))
		return
	}
	if !verifySignature(body, r.Header.Get("dg-signature"), h.cfg.STTWebhookSecret) {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "invalid webhook signature"))
		return
	}

	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "task_id is required"))
		return
	}

	result, err := provider.ResultFromListen(body)
	if err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "callback body is not a listen result"))
		return
	}

	if err := h.finalizer.FinalizeFromResult(r.Context(), taskID, result); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type subscriptionEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		UserID string `json:"user_id"`
		Lines  []struct {
			PriceID  string `json:"price_id"`
			Quantity int    `json:"quantity"`
		} `json:"lines"`
	} `json:"data"`
}

// PostSubscriptionWebhook ingests payment events. The event id is the
// idempotency key: duplicates return 200 without reprocessing.
func (h *Handlers) PostSubscriptionWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "could not read body"))
		return
	}
	if !verifySignature(body, r.Header.Get("signature"), h.cfg.SubscriptionWebhookSecret) {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "invalid webhook signature"))
		return
	}

	var event subscriptionEvent
	if err := json.Unmarshal(body, &event); err != nil || event.ID == "" {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "malformed event"))
		return
	}

	fresh, err := h.redis.SetNX(r.Context(), "webhook:subscription:"+event.ID, 1, subscriptionEventTTL).Result()
	if err != nil {
		writeError(w, err)
		return
	}
	if !fresh {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already processed"})
		return
	}

	if event.Type == "invoice.paid" {
		minutes := 0
		for _, line := range event.Data.Lines {
			quantity := line.Quantity
			if quantity <= 0 {
				quantity = 1
			}
			minutes += h.cfg.PlanMinutes[line.PriceID] * quantity
		}
		if minutes > 0 && event.Data.UserID != "" {
			if err := billing.Add(event.Data.UserID, minutes); err != nil {
				log.Printf("failed to credit %d minutes to user %s for event %s: %v", minutes, event.Data.UserID, event.ID, err)
				writeError(w, err)
				return
			}
			log.Printf("credited %d minutes to user %s (event %s)", minutes, event.Data.UserID, event.ID)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type bindTrialRequest struct {
	AnonID string `json:"anon_id" validate:"required"`
}

// PostBindTrial attributes anonymous trial usage to a signed-up user and
// ensures their zero-minute balance row exists.
func (h *Handlers) PostBindTrial(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFrom(r)
	if !caller.Authenticated || caller.UserID == nil {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "authentication required"))
		return
	}

	var req bindTrialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "request body is not valid json"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidInput, err.Error()))
		return
	}

	if err := db.CreateBalance(*caller.UserID); err != nil {
		writeError(w, err)
		return
	}
	if err := billing.BindTrialToUser(*caller.UserID, req.AnonID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// verifySignature checks an HMAC-SHA256 hex signature over body using a
// constant-time comparison.
func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
