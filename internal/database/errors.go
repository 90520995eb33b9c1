package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is wrapped by every "entity absent" error of the store.
var ErrNotFound = errors.New("not found")

var (
	ErrSongbookNotFound    = fmt.Errorf("songbook %w", ErrNotFound)
	ErrSongNotFound        = fmt.Errorf("song %w", ErrNotFound)
	ErrPendingSongNotFound = fmt.Errorf("pending song %w", ErrNotFound)
)

// StorageError is returned when Postgres rejects or fails an operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("error %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeInvalidText         = "22P02"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// IsForeignKeyViolation reports whether err references a missing row, e.g.
// a lyric for an unknown song.
func IsForeignKeyViolation(err error) bool {
	return pqCode(err) == codeForeignKeyViolation
}

func IsUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

// IsConstraintViolation covers the errors caused by the caller's data rather
// than by the database: missing references, duplicates and bad enum values.
func IsConstraintViolation(err error) bool {
	switch pqCode(err) {
	case codeForeignKeyViolation, codeUniqueViolation, codeInvalidText:
		return true
	}
	return false
}
