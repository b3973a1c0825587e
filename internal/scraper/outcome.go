package scraper

import (
	"fmt"

	"hhvacancies/internal/model"
)

// OutcomeStatus says whether an identifier contributed records to a batch.
type OutcomeStatus string

const (
	StatusFetched OutcomeStatus = "fetched"
	StatusSkipped OutcomeStatus = "skipped"
)

// Outcome is the per-identifier result of a fetch operation.
type Outcome struct {
	ID         string
	Status     OutcomeStatus
	Reason     string // set when skipped
	StatusCode int    // HTTP status behind a skip, 0 for transport/decode failures
	Records    int
}

type outcomes []Outcome

// Skipped returns the outcomes of identifiers that produced no records
// because their request failed.
func (o outcomes) Skipped() []Outcome {
	var out []Outcome
	for _, oc := range o {
		if oc.Status == StatusSkipped {
			out = append(out, oc)
		}
	}
	return out
}

// EmployerBatch is the result of FetchEmployers: every employer record in
// input order, plus one Outcome per requested identifier.
type EmployerBatch struct {
	Records  []model.EmployerRecord
	Outcomes outcomes
}

// Skipped lists the identifiers whose employer request failed.
func (b EmployerBatch) Skipped() []Outcome { return b.Outcomes.Skipped() }

// VacancyBatch is the result of FetchVacancies: the concatenated items of
// every employer page, plus one Outcome per requested identifier.
type VacancyBatch struct {
	Records  []model.VacancyRecord
	Outcomes outcomes
}

// Skipped lists the identifiers whose vacancy request failed.
func (b VacancyBatch) Skipped() []Outcome { return b.Outcomes.Skipped() }

// ─── Errors ───────────────────────────────────────────────────────────────────

// ConnectivityError is returned when the probe that precedes every fetch
// operation does not get a 200 from the API.
type ConnectivityError struct {
	Endpoint   string
	StatusCode int   // 0 when the request never got a response
	Err        error // transport error, if any
}

func (e *ConnectivityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hh.ru unreachable at %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("hh.ru probe %s returned %d", e.Endpoint, e.StatusCode)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// StatusError is a non-200 answer for a single identifier.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("hh.ru returned %d", e.StatusCode)
	}
	return fmt.Sprintf("hh.ru returned %d: %s", e.StatusCode, e.Body)
}
