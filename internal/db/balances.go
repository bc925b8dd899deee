package db

import (
	"scribeline/internal/models"
)

func GetBalance(userID string) (models.Balance, error) {
	balance := models.Balance{}
	err := DB.Get(&balance, "SELECT * FROM balances WHERE user_id = $1", userID)
	return balance, err
}

// AddMinutes credits the user, creating the row if missing.
func AddMinutes(userID string, minutes int) error {
	_, err := DB.Exec(`
		INSERT INTO balances (user_id, minutes_balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			minutes_balance = balances.minutes_balance + EXCLUDED.minutes_balance,
			updated_at = NOW()`,
		userID, minutes)
	return err
}

// DeductMinutes debits the user under an optimistic guard. A zero-row
// update means the balance was insufficient; nothing is mutated.
func DeductMinutes(userID string, minutes int) (bool, error) {
	res, err := DB.Exec(`
		UPDATE balances
		SET minutes_balance = minutes_balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND minutes_balance >= $2`,
		userID, minutes)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CreateBalance ensures a zero-minute row exists for a new user.
func CreateBalance(userID string) error {
	_, err := DB.Exec(`
		INSERT INTO balances (user_id, minutes_balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING`,
		userID)
	return err
}
