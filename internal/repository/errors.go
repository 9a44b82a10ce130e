package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when an insert or update hits a unique index.
	ErrDuplicate = errors.New("duplicate key")
	// ErrReferenced is returned when a delete is blocked by a foreign key.
	ErrReferenced = errors.New("row is still referenced")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translate maps postgres constraint failures onto the repository sentinels
// and leaves any other error untouched.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicate
	case pqForeignKeyViolation:
		return ErrReferenced
	}
	return err
}
