package store

import "errors"

var (
	// ErrNotFound is returned when no pending user has the requested id.
	ErrNotFound = errors.New("User not found")

	// ErrDuplicate is returned when a submission shares a username or email
	// with an active or pending user.
	ErrDuplicate = errors.New("Username or email already exists")

	// ErrInvalidProfile is returned when a submission lacks required fields.
	ErrInvalidProfile = errors.New("invalid profile")
)

// StorageError wraps a failure to load or persist the registry document.
// Its message is the underlying error's message.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
