package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"golang.org/x/sync/errgroup"

	"scribeline/internal/billing"
	"scribeline/internal/db"
	"scribeline/internal/models"
	"scribeline/internal/normalize"
	"scribeline/internal/provider"
	"scribeline/internal/storage"
	"scribeline/internal/subtitle"
)

// AutoTranscriber is the executor's view of the auto-transcript adapter.
type AutoTranscriber interface {
	Transcribe(ctx context.Context, mediaURL, mode, lang string) (*provider.TranscriptResult, error)
}

// SpeechTranscriber is the executor's view of the sync STT adapter.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, mediaURL string, opts provider.ListenOptions) (*provider.TranscriptResult, error)
}

// fatalError marks a failure that must not be retried: the task row has
// already moved to failed.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatal(err error) error { return &fatalError{err: err} }

// IsFatal reports whether err ended the task permanently.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// Executor drives one task through its state machine: claim, route to a
// provider, normalize, format, persist, settle, finish. Storage errors
// while claiming or loading the row and persist failures are returned as
// retriable errors; everything else either fails the task or is logged
// and absorbed.
type Executor struct {
	auto       AutoTranscriber
	stt        SpeechTranscriber
	normalizer *normalize.Normalizer
	store      storage.ObjectStore
	llmEnabled bool
}

func NewExecutor(auto AutoTranscriber, stt SpeechTranscriber, normalizer *normalize.Normalizer, store storage.ObjectStore, llmEnabled bool) *Executor {
	return &Executor{
		auto:       auto,
		stt:        stt,
		normalizer: normalizer,
		store:      store,
		llmEnabled: llmEnabled,
	}
}

// Execute runs the task to a terminal state. isRetry lets a redelivered
// attempt reclaim its own processing row; a fresh duplicate delivery
// finds the row already claimed and aborts silently.
func (e *Executor) Execute(ctx context.Context, taskID string, isRetry bool) error {
	claimed, err := db.ClaimTask(taskID, isRetry)
	if err != nil {
		return fmt.Errorf("failed to claim task %s: %w", taskID, err)
	}
	if !claimed {
		log.Printf("task %s is not claimable, skipping", taskID)
		return nil
	}

	task, err := db.GetTaskByID(taskID)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	result, engine, err := e.route(ctx, &task)
	if err != nil {
		return e.failTask(taskID, err)
	}

	return e.complete(ctx, &task, result, engine)
}

// FinalizeFromResult finishes a task from a provider webhook callback.
// Already-terminal tasks are a no-op, which makes duplicate deliveries
// idempotent.
func (e *Executor) FinalizeFromResult(ctx context.Context, taskID string, result *provider.TranscriptResult) error {
	task, err := db.GetTaskByID(taskID)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	if task.Terminal() {
		return nil
	}
	if task.Status == models.StatusPending {
		if _, err := db.ClaimTask(taskID, false); err != nil {
			return fmt.Errorf("failed to claim task %s: %w", taskID, err)
		}
	}
	return e.complete(ctx, &task, result, models.EngineSpeechToText)
}

// complete runs the post-provider pipeline: normalize, format, persist,
// settle, finish.
func (e *Executor) complete(ctx context.Context, task *models.Task, result *provider.TranscriptResult, engine string) error {
	segments, err := e.normalizeSegments(ctx, task, result)
	if err != nil {
		return e.failTask(task.ID, err)
	}

	costMinutes := 0
	if result.IsGenerated {
		costMinutes = ceilMinutes(result.Duration)
	}

	// Persist failures are the one retriable stage; the transcript
	// upsert keeps a second attempt idempotent.
	if err := e.persistTranscript(ctx, task.ID, segments, result.Raw); err != nil {
		return fmt.Errorf("failed to persist transcript for task %s: %w", task.ID, err)
	}

	e.settle(task, costMinutes)

	finished, err := db.MarkTaskSucceeded(task.ID, engine, result.Duration, costMinutes)
	if err != nil || !finished {
		// Billing already ran; this needs manual repair, so log everything.
		log.Printf("could not mark task %s succeeded (engine=%s cost=%d): %v", task.ID, engine, costMinutes, err)
	}
	return nil
}

// route picks the provider for the task's source type.
func (e *Executor) route(ctx context.Context, task *models.Task) (*provider.TranscriptResult, string, error) {
	switch task.SourceType {
	case models.SourceTypeYoutube:
		result, err := e.auto.Transcribe(ctx, task.SourceURL, provider.ModeAuto, task.Params.Language())
		if err != nil {
			return nil, "", fmt.Errorf("auto-transcript failed: %w", err)
		}
		if result == nil {
			return nil, "", fmt.Errorf("auto-transcript returned no transcript")
		}
		return result, models.EngineAutoTranscript, nil

	case models.SourceTypeUpload, models.SourceTypeURL:
		result, err := e.stt.Transcribe(ctx, task.SourceURL, provider.ListenOptions{
			Diarize:        true,
			DetectLanguage: true,
		})
		if err != nil {
			return nil, "", fmt.Errorf("stt failed: %w", err)
		}
		return result, models.EngineSpeechToText, nil

	default:
		return nil, "", fmt.Errorf("unknown source type %q", task.SourceType)
	}
}

func (e *Executor) normalizeSegments(ctx context.Context, task *models.Task, result *provider.TranscriptResult) ([]models.Segment, error) {
	useLLM := e.llmEnabled && result.IsGenerated
	segments := e.normalizer.Merge(ctx, result.Segments, useLLM)

	// Translation only applies to the STT path; the auto-transcript
	// provider already honors the language parameter.
	if task.SourceType != models.SourceTypeYoutube && task.Params.Language() != "" && e.llmEnabled {
		translated, err := e.normalizer.Translate(ctx, segments, task.Params.Language())
		if err != nil {
			return nil, err
		}
		segments = translated
	}
	return segments, nil
}

// persistTranscript uploads the subtitle artifacts concurrently and
// upserts the transcript row.
func (e *Executor) persistTranscript(ctx context.Context, taskID string, segments []models.Segment, raw json.RawMessage) error {
	transcript := &models.Transcript{
		TaskID:     taskID,
		Segments:   segments,
		RawPayload: raw,
	}
	if len(raw) == 0 {
		encoded, err := json.Marshal(segments)
		if err != nil {
			return err
		}
		transcript.RawPayload = encoded
	}

	if e.store != nil {
		srt := subtitle.FormatSRT(segments)
		vtt := subtitle.FormatVTT(segments)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			u, err := e.store.Put(gctx, storage.TranscriptKey(taskID, "output.srt"), []byte(srt), "application/x-subrip")
			transcript.SRTURL = &u
			return err
		})
		g.Go(func() error {
			u, err := e.store.Put(gctx, storage.TranscriptKey(taskID, "output.vtt"), []byte(vtt), "text/vtt")
			transcript.VTTURL = &u
			return err
		})
		g.Go(func() error {
			u, err := e.store.Put(gctx, storage.TranscriptKey(taskID, "raw.json"), transcript.RawPayload, "application/json")
			transcript.RawURL = &u
			return err
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("artifact upload failed: %w", err)
		}
	}

	return db.UpsertTranscript(transcript)
}

// settle meters the finished work. Deduction failures never roll the
// task back; prevention is admission's job, so shortfalls are logged and
// the completed work is returned.
func (e *Executor) settle(task *models.Task, costMinutes int) {
	if task.IsTrial {
		if err := billing.RecordTrial(task.UserID, task.AnonID); err != nil {
			log.Printf("failed to record trial usage for task %s (owner %s): %v", task.ID, task.OwnerKey(), err)
		}
		return
	}
	if task.UserID != nil && costMinutes > 0 {
		if _, err := billing.DeductUpTo(*task.UserID, costMinutes); err != nil {
			log.Printf("failed to deduct %d minutes from user %s for task %s: %v", costMinutes, *task.UserID, task.ID, err)
		}
	}
}

func (e *Executor) failTask(taskID string, cause error) error {
	if err := db.MarkTaskFailed(taskID, cause.Error()); err != nil {
		log.Printf("failed to mark task %s failed: %v", taskID, err)
	}
	return fatal(cause)
}

func ceilMinutes(durationSec float64) int {
	if durationSec <= 0 {
		return 0
	}
	return int(math.Ceil(durationSec / 60))
}
