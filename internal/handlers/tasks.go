package handlers

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"scribeline/internal/admission"
	"scribeline/internal/apperr"
	"scribeline/internal/db"
	"scribeline/internal/middleware"
	"scribeline/internal/models"
)

type createTaskRequest struct {
	SourceType string        `json:"source_type" validate:"required,oneof=upload url youtube"`
	SourceURL  string        `json:"source_url" validate:"required,url"`
	SizeBytes  int64         `json:"size_bytes" validate:"omitempty,min=0"`
	IsTrial    bool          `json:"is_trial"`
	Params     models.Params `json:"params"`
}

func (h *Handlers) PostTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "request body is not valid json"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidInput, err.Error()))
		return
	}

	caller := middleware.CallerFrom(r)
	result, err := h.admission.CreateTask(r.Context(), admission.Request{
		SourceType: req.SourceType,
		SourceURL:  req.SourceURL,
		SizeBytes:  req.SizeBytes,
		IsTrial:    req.IsTrial,
		Params:     req.Params,
		IPHash:     hashValue(remoteIP(r)),
		UAHash:     hashValue(r.UserAgent()),
	}, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

type taskResponse struct {
	TaskID      string          `json:"task_id"`
	Status      string          `json:"status"`
	SourceType  string          `json:"source_type"`
	IsTrial     bool            `json:"is_trial"`
	Engine      *string         `json:"engine,omitempty"`
	DurationSec float64         `json:"duration_sec"`
	CostMinutes int             `json:"cost_minutes"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Segments    models.Segments `json:"segments,omitempty"`
	SRTURL      *string         `json:"srt_url,omitempty"`
	VTTURL      *string         `json:"vtt_url,omitempty"`
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	task, err := db.GetTaskByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, apperr.New(apperr.CodeNotFound, "task not found"))
			return
		}
		writeError(w, err)
		return
	}

	caller := middleware.CallerFrom(r)
	if !caller.Owns(&task) {
		writeError(w, apperr.New(apperr.CodeForbidden, "task belongs to another owner"))
		return
	}

	resp := taskResponseFrom(&task)
	if task.Status == models.StatusSucceeded {
		if transcript, err := db.GetTranscriptByTaskID(task.ID); err == nil {
			resp.Segments = transcript.Segments
			resp.SRTURL = transcript.SRTURL
			resp.VTTURL = transcript.VTTURL
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFrom(r)
	if !caller.Authenticated && caller.AnonID == nil {
		writeError(w, apperr.New(apperr.CodeUnauthorized, "identity required"))
		return
	}

	status := r.URL.Query().Get("status")
	var cursor *time.Time
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, apperr.New(apperr.CodeInvalidInput, "cursor is not an RFC3339 timestamp"))
			return
		}
		cursor = &t
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	tasks, err := db.ListTasks(caller.UserID, caller.AnonID, status, cursor, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskResponseFrom(&tasks[i]))
	}
	var nextCursor string
	if len(tasks) == limit {
		nextCursor = tasks[len(tasks)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":       items,
		"next_cursor": nextCursor,
	})
}

func taskResponseFrom(task *models.Task) taskResponse {
	return taskResponse{
		TaskID:      task.ID,
		Status:      task.Status,
		SourceType:  task.SourceType,
		IsTrial:     task.IsTrial,
		Engine:      task.Engine,
		DurationSec: task.DurationSec,
		CostMinutes: task.CostMinutes,
		Error:       task.Error,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func hashValue(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
