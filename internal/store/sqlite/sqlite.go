// Package sqlite is the embedded store backend, built on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"

	msqlite "modernc.org/sqlite"

	"hhvacancies/internal/model"
	"hhvacancies/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS employers (
	employer_id    INTEGER PRIMARY KEY,
	employer_name  VARCHAR(255) NOT NULL,
	open_vacancies INTEGER,
	url            TEXT
);

CREATE TABLE IF NOT EXISTS vacancies (
	vacancy_id  INTEGER PRIMARY KEY,
	name        VARCHAR,
	area        VARCHAR,
	salary      INTEGER,
	employer_id INTEGER REFERENCES employers(employer_id),
	url         VARCHAR
);`

const listingSelect = `
	SELECT v.vacancy_id, e.employer_name, COALESCE(v.name, ''), COALESCE(v.area, ''),
	       v.salary, COALESCE(v.url, '')
	FROM vacancies v
	JOIN employers e ON v.employer_id = e.employer_id`

const listingOrder = ` ORDER BY e.employer_name, v.vacancy_id`

// SQLite folds case for ASCII only; vacancy titles are mostly Cyrillic.
func init() {
	msqlite.MustRegisterDeterministicScalarFunction("utf8_lower", 1,
		func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// Store implements store.Store over a single SQLite connection.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at dsn. ":memory:" is accepted.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection for the store's lifetime; for ":memory:" it is also
	// what keeps every statement on the same database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *Store) SaveEmployers(ctx context.Context, records []model.EmployerRecord) (store.SaveReport, error) {
	const q = `INSERT INTO employers (employer_id, employer_name, open_vacancies, url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (employer_id) DO NOTHING`

	return store.Save(records, store.EmployerRow, func(e model.Employer) (bool, error) {
		res, err := s.db.ExecContext(ctx, q, e.ID, e.Name, e.OpenVacancies, e.URL)
		if err != nil {
			return false, fmt.Errorf("insert employer %d: %w", e.ID, classify(err))
		}
		n, _ := res.RowsAffected()
		return n > 0, nil
	})
}

func (s *Store) SaveVacancies(ctx context.Context, records []model.VacancyRecord) (store.SaveReport, error) {
	const q = `INSERT INTO vacancies (vacancy_id, name, area, salary, employer_id, url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (vacancy_id) DO NOTHING`

	return store.Save(records, store.VacancyRow, func(v model.Vacancy) (bool, error) {
		res, err := s.db.ExecContext(ctx, q, v.ID, v.Name, v.Area, v.Salary, v.EmployerID, v.URL)
		if err != nil {
			err = classify(err)
			if isForeignKey(err) {
				return false, &store.ReferentialIntegrityError{VacancyID: v.ID, EmployerID: v.EmployerID, Err: err}
			}
			return false, fmt.Errorf("insert vacancy %d: %w", v.ID, err)
		}
		n, _ := res.RowsAffected()
		return n > 0, nil
	})
}

func (s *Store) CompaniesWithVacancyCounts(ctx context.Context) ([]model.CompanyVacancies, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.employer_id, e.employer_name, COUNT(v.vacancy_id)
		FROM employers e
		LEFT JOIN vacancies v ON v.employer_id = e.employer_id
		GROUP BY e.employer_id, e.employer_name
		ORDER BY e.employer_name, e.employer_id`)
	if err != nil {
		return nil, fmt.Errorf("companies query: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	companies := make([]model.CompanyVacancies, 0)
	for rows.Next() {
		var c model.CompanyVacancies
		if err := rows.Scan(&c.EmployerID, &c.EmployerName, &c.VacancyCount); err != nil {
			return nil, fmt.Errorf("companies scan: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *Store) AllVacancies(ctx context.Context) ([]model.VacancyListing, error) {
	return s.listings(ctx, "all vacancies", listingSelect+listingOrder)
}

func (s *Store) AverageSalary(ctx context.Context) (*float64, error) {
	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `SELECT AVG(salary) FROM vacancies`).Scan(&avg); err != nil {
		return nil, fmt.Errorf("average salary: %w", classify(err))
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

func (s *Store) VacanciesAboveAverage(ctx context.Context) ([]model.VacancyListing, error) {
	return s.listings(ctx, "above-average vacancies",
		listingSelect+` WHERE v.salary > (SELECT AVG(salary) FROM vacancies)`+listingOrder)
}

func (s *Store) VacanciesByKeyword(ctx context.Context, keyword string) ([]model.VacancyListing, error) {
	return s.listings(ctx, "keyword vacancies",
		listingSelect+` WHERE utf8_lower(v.name) LIKE utf8_lower(?) ESCAPE '\'`+listingOrder,
		store.LikePattern(keyword))
}

// Close releases the connection. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *Store) listings(ctx context.Context, what, query string, args ...any) ([]model.VacancyListing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", what, classify(err))
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.VacancyListing, 0)
	for rows.Next() {
		var l model.VacancyListing
		var salary sql.NullInt64
		if err := rows.Scan(&l.VacancyID, &l.EmployerName, &l.Name, &l.Area, &salary, &l.URL); err != nil {
			return nil, fmt.Errorf("%s scan: %w", what, err)
		}
		if salary.Valid {
			v := int(salary.Int64)
			l.Salary = &v
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ─── Driver error mapping ─────────────────────────────────────────────────────

var errForeignKey = errors.New("foreign key constraint failed")

// classify maps driver errors onto the store taxonomy. modernc reports both
// conditions as plain SQLITE_ERROR/SQLITE_CONSTRAINT with a message, so the
// message is what gets matched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such table"):
		return fmt.Errorf("%w: %v", store.ErrSchemaNotInitialized, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", errForeignKey, err)
	}
	return err
}

func isForeignKey(err error) bool { return errors.Is(err, errForeignKey) }
