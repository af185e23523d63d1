package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Insert errors.
var (
	ErrDuplicate    = errors.New("duplicate record")
	ErrValueTooLong = errors.New("value too long for column")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isValueTooLong(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22001"
}
