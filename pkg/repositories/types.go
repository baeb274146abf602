package repositories

import "errors"

// ErrNotFound is returned when a capture or session does not exist.
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	if e.Kind == "" {
		return "not found"
	}
	return e.Kind + " " + e.ID + " not found"
}

func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}
