package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
)

const (
	SourceTypeUpload  = "upload"
	SourceTypeURL     = "url"
	SourceTypeYoutube = "youtube"
)

const (
	PriorityPaid = "paid"
	PriorityFree = "free"
)

const TaskTypeTranscription = "transcription"

// Engine tags recorded on the task row after routing.
const (
	EngineAutoTranscript = "autotranscript"
	EngineSpeechToText   = "stt"
)

// Params is a free-form parameter map stored as JSONB.
// Recognized keys: "language" (target subtitle language, may imply
// translation) and "detect_language" (bool).
type Params map[string]interface{}

func (p Params) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Params) Scan(src interface{}) error {
	if src == nil {
		*p = Params{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Params", src)
	}
	if len(b) == 0 {
		*p = Params{}
		return nil
	}
	return json.Unmarshal(b, p)
}

// Language returns the target subtitle language, if requested.
func (p Params) Language() string {
	if v, ok := p["language"].(string); ok {
		return v
	}
	return ""
}

// DetectLanguage reports whether the caller asked for language detection.
func (p Params) DetectLanguage() bool {
	v, ok := p["detect_language"].(bool)
	return ok && v
}

// Task is one transcription request, tracked through a four-state
// lifecycle: pending -> processing -> succeeded | failed.
type Task struct {
	ID          string    `db:"id"`
	UserID      *string   `db:"user_id"`
	AnonID      *string   `db:"anon_id"`
	TaskType    string    `db:"task_type"`
	SourceType  string    `db:"source_type"`
	SourceURL   string    `db:"source_url"`
	Params      Params    `db:"params"`
	IsTrial     bool      `db:"is_trial"`
	Priority    string    `db:"priority"`
	Status      string    `db:"status"`
	Engine      *string   `db:"engine"`
	DurationSec float64   `db:"duration_sec"`
	CostMinutes int       `db:"cost_minutes"`
	Error       *string   `db:"error"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// OwnerKey returns the identity the task is billed and serialized under.
func (t *Task) OwnerKey() string {
	if t.UserID != nil {
		return "user:" + *t.UserID
	}
	if t.AnonID != nil {
		return "anon:" + *t.AnonID
	}
	return ""
}

// Terminal reports whether the task has reached a final state.
func (t *Task) Terminal() bool {
	return t.Status == StatusSucceeded || t.Status == StatusFailed
}
