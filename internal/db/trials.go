package db

import (
	"scribeline/internal/models"
)

func InsertTrialUsage(userID, anonID *string) error {
	_, err := DB.Exec(
		"INSERT INTO trial_usages (user_id, anon_id) VALUES ($1, $2)",
		userID, anonID)
	return err
}

// HasTrialUsage reports whether the user or anonymous caller has already
// consumed their trial.
func HasTrialUsage(userID, anonID *string) (bool, error) {
	if userID != nil {
		var count int
		err := DB.Get(&count, "SELECT COUNT(*) FROM trial_usages WHERE user_id = $1", *userID)
		if err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	if anonID != nil {
		var used bool
		err := DB.Get(&used, "SELECT COALESCE(bool_or(used_trial), false) FROM anon_tokens WHERE anon_id = $1", *anonID)
		if err != nil {
			return false, err
		}
		if used {
			return true, nil
		}
	}
	return false, nil
}

// EnsureAnonToken records an anonymous caller on first trial admission.
func EnsureAnonToken(anonID, ipHash, uaHash string) error {
	_, err := DB.Exec(`
		INSERT INTO anon_tokens (anon_id, ip_hash, ua_hash, used_trial)
		VALUES ($1, $2, $3, false)
		ON CONFLICT (anon_id) DO NOTHING`,
		anonID, ipHash, uaHash)
	return err
}

// MarkAnonTrialUsed flips used_trial; the upsert makes concurrent flips
// idempotent.
func MarkAnonTrialUsed(anonID string) error {
	_, err := DB.Exec(`
		INSERT INTO anon_tokens (anon_id, used_trial)
		VALUES ($1, true)
		ON CONFLICT (anon_id) DO UPDATE SET used_trial = true`,
		anonID)
	return err
}

func GetAnonToken(anonID string) (models.AnonToken, error) {
	token := models.AnonToken{}
	err := DB.Get(&token, "SELECT * FROM anon_tokens WHERE anon_id = $1", anonID)
	return token, err
}

// BindTrialUsageToUser attributes prior anonymous trial rows to a newly
// signed-up user.
func BindTrialUsageToUser(userID, anonID string) error {
	_, err := DB.Exec(
		"UPDATE trial_usages SET user_id = $1 WHERE anon_id = $2 AND user_id IS NULL",
		userID, anonID)
	return err
}
