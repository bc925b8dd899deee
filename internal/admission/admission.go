package admission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/google/uuid"

	"scribeline/internal/apperr"
	"scribeline/internal/billing"
	"scribeline/internal/db"
	"scribeline/internal/dispatch"
	"scribeline/internal/models"
	"scribeline/internal/provider"
	"scribeline/pkg/tasks"
)

// Request is an incoming task admission request.
type Request struct {
	SourceType string
	SourceURL  string
	SizeBytes  int64
	IsTrial    bool
	Params     models.Params
	IPHash     string
	UAHash     string
}

// Result is returned to the creation endpoint.
type Result struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	RetryAfter int    `json:"retry_after"`
}

// Service validates requests, enforces the trial, balance and
// concurrency gates, persists the pending task and hands it to the
// dispatcher. Every gate fails closed.
type Service struct {
	metadata          provider.MetadataResolver
	dispatcher        dispatch.Dispatcher
	trialMaxDuration  time.Duration
	retryAfterSeconds int
}

func NewService(metadata provider.MetadataResolver, dispatcher dispatch.Dispatcher, trialMaxDuration time.Duration, retryAfterSeconds int) *Service {
	return &Service{
		metadata:          metadata,
		dispatcher:        dispatcher,
		trialMaxDuration:  trialMaxDuration,
		retryAfterSeconds: retryAfterSeconds,
	}
}

func (s *Service) CreateTask(ctx context.Context, req Request, caller models.Caller) (*Result, error) {
	if err := validateSource(req.SourceType, req.SourceURL); err != nil {
		return nil, err
	}

	// An explicit trial request from an authenticated caller still runs
	// as a trial: free priority, no balance check.
	effectiveTrial := req.IsTrial || !caller.Authenticated

	if !caller.Authenticated && caller.AnonID == nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "anonymous requests require an anon id")
	}

	if effectiveTrial {
		if err := s.trialGate(ctx, req, caller); err != nil {
			return nil, err
		}
	} else {
		if err := s.balanceGate(caller); err != nil {
			return nil, err
		}
	}

	priority := models.PriorityFree
	if caller.Authenticated && !effectiveTrial {
		priority = models.PriorityPaid
	}

	task := &models.Task{
		ID:         uuid.NewString(),
		TaskType:   models.TaskTypeTranscription,
		SourceType: req.SourceType,
		SourceURL:  req.SourceURL,
		Params:     req.Params,
		IsTrial:    effectiveTrial,
		Priority:   priority,
	}
	if caller.Authenticated {
		task.UserID = caller.UserID
	} else {
		task.AnonID = caller.AnonID
	}

	// The conditional insert doubles as the concurrency gate: racing
	// admissions for the same owner resolve to exactly one row.
	if err := db.CreateTask(task); err != nil {
		if errors.Is(err, db.ErrActiveTaskExists) {
			return nil, apperr.New(apperr.CodeConflict, "a task is already in flight for this owner")
		}
		return nil, fmt.Errorf("failed to persist task: %w", err)
	}

	payload := tasks.TranscribeTaskPayload{
		TaskID:     task.ID,
		SourceType: task.SourceType,
		SourceURL:  task.SourceURL,
		Params:     task.Params,
	}
	if err := s.dispatcher.Dispatch(ctx, payload, task.Priority); err != nil {
		// The pending row survives; startup recovery re-enqueues it.
		log.Printf("failed to dispatch task %s: %v", task.ID, err)
	}

	return &Result{TaskID: task.ID, Status: task.Status, RetryAfter: s.retryAfterSeconds}, nil
}

func (s *Service) trialGate(ctx context.Context, req Request, caller models.Caller) error {
	if caller.AnonID != nil {
		if err := db.EnsureAnonToken(*caller.AnonID, req.IPHash, req.UAHash); err != nil {
			return fmt.Errorf("failed to record anon token: %w", err)
		}
	}

	used, err := billing.HasUsedTrial(caller.UserID, caller.AnonID)
	if err != nil {
		return fmt.Errorf("failed to check trial usage: %w", err)
	}
	if used {
		return apperr.New(apperr.CodeTrialExhausted, "trial already consumed")
	}

	if req.SourceType == models.SourceTypeYoutube {
		meta, err := s.metadata.VideoMetadata(ctx, req.SourceURL)
		if err != nil {
			// Never admit optimistically when the duration is unknown.
			return apperr.New(apperr.CodeInvalidInput, "could not resolve video duration")
		}
		if time.Duration(meta.DurationSeconds)*time.Second > s.trialMaxDuration {
			return apperr.New(apperr.CodeDurationExceeded,
				fmt.Sprintf("video exceeds the %d-minute trial cap", int(s.trialMaxDuration.Minutes())))
		}
	}
	return nil
}

func (s *Service) balanceGate(caller models.Caller) error {
	if caller.UserID == nil {
		return apperr.New(apperr.CodeUnauthorized, "authenticated caller has no user id")
	}
	balance, err := db.GetBalance(*caller.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.CodeInsufficientBalance, "no transcription minutes left")
		}
		return fmt.Errorf("failed to load balance: %w", err)
	}
	if balance.MinutesBalance <= 0 {
		return apperr.New(apperr.CodeInsufficientBalance, "no transcription minutes left")
	}
	return nil
}

func validateSource(sourceType, sourceURL string) error {
	switch sourceType {
	case models.SourceTypeUpload, models.SourceTypeURL, models.SourceTypeYoutube:
	default:
		return apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("unsupported source type %q", sourceType))
	}
	u, err := url.ParseRequestURI(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return apperr.New(apperr.CodeInvalidInput, "source url is not a valid http(s) url")
	}
	return nil
}
