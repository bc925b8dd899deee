package models

// Caller is the identity a request acts under. Passed explicitly through
// admission and access checks; the executor never inspects it.
type Caller struct {
	UserID        *string
	AnonID        *string
	Authenticated bool
}

// Owns reports whether the caller may read the given task.
func (c Caller) Owns(t *Task) bool {
	if c.Authenticated && c.UserID != nil && t.UserID != nil {
		return *c.UserID == *t.UserID
	}
	if c.AnonID != nil && t.AnonID != nil {
		return *c.AnonID == *t.AnonID
	}
	return false
}
