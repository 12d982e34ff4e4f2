package storage

// NotFoundError is returned when a run doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "run not found"
	}

	return "run not found: " + e.ID
}
