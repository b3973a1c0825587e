package store

import (
	"errors"
	"fmt"
)

// ErrSchemaNotInitialized is wrapped by any call made against tables that
// InitSchema never created.
var ErrSchemaNotInitialized = errors.New("schema not initialized")

// ReferentialIntegrityError reports a vacancy whose employer row is missing.
type ReferentialIntegrityError struct {
	VacancyID  int64
	EmployerID int64
	Err        error
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("vacancy %d references unknown employer %d", e.VacancyID, e.EmployerID)
}

func (e *ReferentialIntegrityError) Unwrap() error { return e.Err }

// MalformedRecordError names the field that made a raw record unusable.
type MalformedRecordError struct {
	Entity   string // "employer" or "vacancy"
	RecordID string // raw id, may be empty when the id itself is the problem
	Field    string
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	id := e.RecordID
	if id == "" {
		id = "?"
	}
	return fmt.Sprintf("malformed %s record %s: field %q %s", e.Entity, id, e.Field, e.Reason)
}
