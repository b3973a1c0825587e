// Package postgres is the PostgreSQL store backend, built on pgx/v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hhvacancies/internal/model"
	"hhvacancies/internal/store"
)

// SQLSTATE codes the store maps onto its own errors.
const (
	codeUndefinedTable      = "42P01"
	codeForeignKeyViolation = "23503"
)

const listingSelect = `
	SELECT v.vacancy_id, e.employer_name, COALESCE(v.name, ''), COALESCE(v.area, ''),
	       v.salary, COALESCE(v.url, '')
	FROM vacancies v
	JOIN employers e ON v.employer_id = e.employer_id`

const listingOrder = ` ORDER BY e.employer_name, v.vacancy_id`

// Store implements store.Store on a pgx pool capped at one connection
// (see db.NewPostgresPool).
type Store struct {
	pool      *pgxpool.Pool
	closeOnce sync.Once
}

var _ store.Store = (*Store)(nil)

// New wraps an already verified pool. The Store owns it from here on.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS employers (
		   employer_id    BIGINT PRIMARY KEY,
		   employer_name  VARCHAR(255) NOT NULL,
		   open_vacancies INTEGER,
		   url            TEXT
		 )`,
	); err != nil {
		return fmt.Errorf("create employers: %w", err)
	}

	if _, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS vacancies (
		   vacancy_id  BIGINT PRIMARY KEY,
		   name        VARCHAR,
		   area        VARCHAR,
		   salary      INTEGER,
		   employer_id BIGINT REFERENCES employers(employer_id),
		   url         VARCHAR
		 )`,
	); err != nil {
		return fmt.Errorf("create vacancies: %w", err)
	}
	return nil
}

func (s *Store) SaveEmployers(ctx context.Context, records []model.EmployerRecord) (store.SaveReport, error) {
	return store.Save(records, store.EmployerRow, func(e model.Employer) (bool, error) {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO employers (employer_id, employer_name, open_vacancies, url)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (employer_id) DO NOTHING`,
			e.ID, e.Name, e.OpenVacancies, e.URL,
		)
		if err != nil {
			return false, fmt.Errorf("insert employer %d: %w", e.ID, classify(err))
		}
		return tag.RowsAffected() > 0, nil
	})
}

func (s *Store) SaveVacancies(ctx context.Context, records []model.VacancyRecord) (store.SaveReport, error) {
	return store.Save(records, store.VacancyRow, func(v model.Vacancy) (bool, error) {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO vacancies (vacancy_id, name, area, salary, employer_id, url)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (vacancy_id) DO NOTHING`,
			v.ID, v.Name, v.Area, v.Salary, v.EmployerID, v.URL,
		)
		if err != nil {
			if pgCode(err) == codeForeignKeyViolation {
				return false, &store.ReferentialIntegrityError{VacancyID: v.ID, EmployerID: v.EmployerID, Err: err}
			}
			return false, fmt.Errorf("insert vacancy %d: %w", v.ID, classify(err))
		}
		return tag.RowsAffected() > 0, nil
	})
}

func (s *Store) CompaniesWithVacancyCounts(ctx context.Context) ([]model.CompanyVacancies, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.employer_id, e.employer_name, COUNT(v.vacancy_id)
		 FROM employers e
		 LEFT JOIN vacancies v ON v.employer_id = e.employer_id
		 GROUP BY e.employer_id, e.employer_name
		 ORDER BY e.employer_name, e.employer_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("companies query: %w", classify(err))
	}
	defer rows.Close()

	companies := make([]model.CompanyVacancies, 0)
	for rows.Next() {
		var c model.CompanyVacancies
		if err := rows.Scan(&c.EmployerID, &c.EmployerName, &c.VacancyCount); err != nil {
			return nil, fmt.Errorf("companies scan: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("companies rows: %w", classify(err))
	}
	return companies, nil
}

func (s *Store) AllVacancies(ctx context.Context) ([]model.VacancyListing, error) {
	return s.listings(ctx, "all vacancies", listingSelect+listingOrder)
}

func (s *Store) AverageSalary(ctx context.Context) (*float64, error) {
	var avg *float64
	err := s.pool.QueryRow(ctx, `SELECT AVG(salary)::float8 FROM vacancies`).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("average salary: %w", classify(err))
	}
	return avg, nil
}

func (s *Store) VacanciesAboveAverage(ctx context.Context) ([]model.VacancyListing, error) {
	return s.listings(ctx, "above-average vacancies",
		listingSelect+` WHERE v.salary > (SELECT AVG(salary) FROM vacancies)`+listingOrder)
}

func (s *Store) VacanciesByKeyword(ctx context.Context, keyword string) ([]model.VacancyListing, error) {
	return s.listings(ctx, "keyword vacancies",
		listingSelect+` WHERE v.name ILIKE $1`+listingOrder,
		store.LikePattern(keyword))
}

// Close releases the pool. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(s.pool.Close)
	return nil
}

func (s *Store) listings(ctx context.Context, what, query string, args ...any) ([]model.VacancyListing, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", what, classify(err))
	}
	defer rows.Close()

	out := make([]model.VacancyListing, 0)
	for rows.Next() {
		var l model.VacancyListing
		if err := rows.Scan(&l.VacancyID, &l.EmployerName, &l.Name, &l.Area, &l.Salary, &l.URL); err != nil {
			return nil, fmt.Errorf("%s scan: %w", what, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", what, classify(err))
	}
	return out, nil
}

// ─── Driver error mapping ─────────────────────────────────────────────────────

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func classify(err error) error {
	if pgCode(err) == codeUndefinedTable {
		return fmt.Errorf("%w: %v", store.ErrSchemaNotInitialized, err)
	}
	return err
}
