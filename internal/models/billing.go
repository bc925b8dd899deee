package models

import "time"

// Balance holds a user's remaining transcription minutes. One row per
// user, created with zero on registration; never negative.
type Balance struct {
	UserID         string    `db:"user_id"`
	MinutesBalance int       `db:"minutes_balance"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// AnonToken identifies an anonymous caller for trial gating. used_trial
// only ever flips false -> true.
type AnonToken struct {
	AnonID    string    `db:"anon_id"`
	IPHash    string    `db:"ip_hash"`
	UAHash    string    `db:"ua_hash"`
	UsedTrial bool      `db:"used_trial"`
	CreatedAt time.Time `db:"created_at"`
}

// TrialUsage is an append-only audit row; at least one of the ids is set.
type TrialUsage struct {
	ID     int64     `db:"id"`
	UserID *string   `db:"user_id"`
	AnonID *string   `db:"anon_id"`
	UsedAt time.Time `db:"used_at"`
}
