// Package store persists hh.ru employers and vacancies into a relational
// database and answers the fixed read queries over them.
//
// Two backends implement Store: store/postgres (pgx) and store/sqlite
// (modernc.org/sqlite). Both hold exactly one database connection.
package store

import (
	"context"
	"errors"

	"hhvacancies/internal/model"
)

// Store is the persistence contract shared by every backend.
//
// SaveEmployers must run before SaveVacancies for the employers those
// vacancies reference. Every query returns an error wrapping
// ErrSchemaNotInitialized when the tables do not exist yet.
type Store interface {
	// InitSchema creates the employers and vacancies tables when absent.
	InitSchema(ctx context.Context) error

	SaveEmployers(ctx context.Context, records []model.EmployerRecord) (SaveReport, error)
	SaveVacancies(ctx context.Context, records []model.VacancyRecord) (SaveReport, error)

	// CompaniesWithVacancyCounts counts stored vacancies per employer with a
	// live LEFT JOIN; employers without vacancies are reported with 0.
	CompaniesWithVacancyCounts(ctx context.Context) ([]model.CompanyVacancies, error)
	AllVacancies(ctx context.Context) ([]model.VacancyListing, error)
	// AverageSalary returns nil when no stored vacancy has a salary.
	AverageSalary(ctx context.Context) (*float64, error)
	VacanciesAboveAverage(ctx context.Context) ([]model.VacancyListing, error)
	VacanciesByKeyword(ctx context.Context, keyword string) ([]model.VacancyListing, error)

	Close() error
}

// SaveReport summarises one Save* call.
type SaveReport struct {
	Inserted   int
	Duplicates int
	Rejected   []*MalformedRecordError
}

// Attempted is the number of records the call got through before returning.
func (r SaveReport) Attempted() int {
	return r.Inserted + r.Duplicates + len(r.Rejected)
}

// Save drives a Save* call for any backend: each record is converted with
// convert and written with insert, which reports whether a row was created.
// Malformed records are collected and skipped; any insert error stops the
// batch and is returned together with the partial report.
func Save[R, T any](records []R, convert func(R) (T, error), insert func(T) (bool, error)) (SaveReport, error) {
	var rep SaveReport
	for _, rec := range records {
		row, err := convert(rec)
		if err != nil {
			var bad *MalformedRecordError
			if errors.As(err, &bad) {
				rep.Rejected = append(rep.Rejected, bad)
				continue
			}
			return rep, err
		}

		inserted, err := insert(row)
		if err != nil {
			return rep, err
		}
		if inserted {
			rep.Inserted++
		} else {
			rep.Duplicates++
		}
	}
	return rep, nil
}
