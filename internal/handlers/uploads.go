package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"scribeline/internal/apperr"
	"scribeline/internal/middleware"
	"scribeline/internal/storage"
)

const presignExpiry = 15 * time.Minute

type presignRequest struct {
	Filename string `json:"filename" validate:"required"`
}

// PostPresignUpload hands the caller a presigned PUT URL so raw media
// bytes never transit this service.
func (h *Handlers) PostPresignUpload(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFrom(r)
	if !caller.Authenticated && caller.AnonID == nil {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "identity required"))
		return
	}

	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "request body is not valid json"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidInput, err.Error()))
		return
	}

	prefix := "anon"
	if caller.UserID != nil {
		prefix = *caller.UserID
	} else if caller.AnonID != nil {
		prefix = *caller.AnonID
	}

	key := storage.UploadKey(prefix, req.Filename)
	url, err := h.store.PresignPut(r.Context(), key, presignExpiry)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":        url,
		"key":        key,
		"method":     http.MethodPut,
		"expires_at": time.Now().Add(presignExpiry).UTC(),
	})
}
