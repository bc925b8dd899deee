package db

import (
	"scribeline/internal/models"
)

// UpsertTranscript writes the transcript keyed on task_id. The upsert
// makes a retried executor attempt idempotent.
func UpsertTranscript(tr *models.Transcript) error {
	_, err := DB.Exec(`
		INSERT INTO transcripts (task_id, segments, raw_payload, srt_url, vtt_url, raw_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (task_id) DO UPDATE SET
			segments = EXCLUDED.segments,
			raw_payload = EXCLUDED.raw_payload,
			srt_url = EXCLUDED.srt_url,
			vtt_url = EXCLUDED.vtt_url,
			raw_url = EXCLUDED.raw_url`,
		tr.TaskID, tr.Segments, tr.RawPayload, tr.SRTURL, tr.VTTURL, tr.RawURL)
	return err
}

func GetTranscriptByTaskID(taskID string) (models.Transcript, error) {
	tr := models.Transcript{}
	err := DB.Get(&tr, "SELECT * FROM transcripts WHERE task_id = $1", taskID)
	return tr, err
}
