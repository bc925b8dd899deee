package billing

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"scribeline/internal/db"
)

// Deduct debits minutes from the user's balance under an optimistic
// guard. ok is false when the balance was insufficient; nothing is
// mutated in that case.
func Deduct(userID string, minutes int) (bool, error) {
	if minutes <= 0 {
		return true, nil
	}
	return db.DeductMinutes(userID, minutes)
}

// DeductUpTo debits minutes, clamping to whatever balance remains when
// the full amount is not covered. Returns the minutes actually debited.
// Settlement never fails a task over a shortfall; the work is done.
func DeductUpTo(userID string, minutes int) (int, error) {
	ok, err := Deduct(userID, minutes)
	if err != nil {
		return 0, err
	}
	if ok {
		return minutes, nil
	}

	balance, err := db.GetBalance(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("billing: user %s owes %d minutes but has no balance row", userID, minutes)
			return 0, nil
		}
		return 0, err
	}
	if balance.MinutesBalance <= 0 {
		log.Printf("billing: user %s owes %d minutes but balance is empty", userID, minutes)
		return 0, nil
	}

	ok, err = Deduct(userID, balance.MinutesBalance)
	if err != nil {
		return 0, err
	}
	if !ok {
		// A concurrent debit moved the balance under us; treat the
		// shortfall like an empty balance.
		log.Printf("billing: user %s owes %d minutes, concurrent debit emptied the balance", userID, minutes)
		return 0, nil
	}
	log.Printf("billing: user %s owed %d minutes, clamped debit to %d", userID, minutes, balance.MinutesBalance)
	return balance.MinutesBalance, nil
}

// Add credits purchased minutes, creating the balance row if missing.
func Add(userID string, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("minutes must be positive, got %d", minutes)
	}
	return db.AddMinutes(userID, minutes)
}

// RecordTrial appends the audit row and flips the anonymous token's
// used_trial flag. At least one id must be set.
func RecordTrial(userID, anonID *string) error {
	if userID == nil && anonID == nil {
		return fmt.Errorf("trial usage needs a user or anon id")
	}
	if err := db.InsertTrialUsage(userID, anonID); err != nil {
		return fmt.Errorf("failed to record trial usage: %w", err)
	}
	if anonID != nil {
		if err := db.MarkAnonTrialUsed(*anonID); err != nil {
			return fmt.Errorf("failed to mark anon trial used: %w", err)
		}
	}
	return nil
}

// HasUsedTrial reports whether the caller has consumed their trial.
func HasUsedTrial(userID, anonID *string) (bool, error) {
	return db.HasTrialUsage(userID, anonID)
}

// BindTrialToUser attributes anonymous trial usage to a fresh signup, so
// a consumed anonymous trial follows the account.
func BindTrialToUser(userID, anonID string) error {
	return db.BindTrialUsageToUser(userID, anonID)
}
