package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Segments is a JSONB-backed segment list.
type Segments []Segment

func (s Segments) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Segments) Scan(src interface{}) error {
	if src == nil {
		*s = Segments{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Segments", src)
	}
	if len(b) == 0 {
		*s = Segments{}
		return nil
	}
	return json.Unmarshal(b, s)
}

// Transcript is the 1:1 output of a succeeded task. Written once,
// never mutated; the upsert keyed on task_id makes retried attempts
// idempotent.
type Transcript struct {
	TaskID     string    `db:"task_id"`
	Segments   Segments  `db:"segments"`
	RawPayload []byte    `db:"raw_payload"`
	SRTURL     *string   `db:"srt_url"`
	VTTURL     *string   `db:"vtt_url"`
	RawURL     *string   `db:"raw_url"`
	CreatedAt  time.Time `db:"created_at"`
}
