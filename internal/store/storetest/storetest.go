// Package storetest holds the behaviour every store.Store backend must show.
// Backend test files call Run with a constructor for a fresh, empty store.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hhvacancies/internal/model"
	"hhvacancies/internal/store"
)

// Opener returns an empty store whose tables do not exist yet. The opener
// is responsible for closing it when the test ends.
type Opener func(t *testing.T) store.Store

// Run executes the whole suite against the backend produced by open.
func Run(t *testing.T, open Opener) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"InitSchemaIsIdempotent", testInitSchemaIsIdempotent},
		{"QueriesBeforeInitSchema", testQueriesBeforeInitSchema},
		{"EmployersFirstWriteWins", testEmployersFirstWriteWins},
		{"VacanciesFirstWriteWins", testVacanciesFirstWriteWins},
		{"UnknownEmployerAbortsBatch", testUnknownEmployerAbortsBatch},
		{"MalformedRecordsAreSkipped", testMalformedRecordsAreSkipped},
		{"ZeroVacancyEmployersAreCounted", testZeroVacancyEmployersAreCounted},
		{"AllVacanciesJoinsEmployer", testAllVacanciesJoinsEmployer},
		{"AverageSalaryIgnoresNulls", testAverageSalaryIgnoresNulls},
		{"AverageSalaryNilWithoutSalaries", testAverageSalaryNilWithoutSalaries},
		{"AboveAverageIsStrict", testAboveAverageIsStrict},
		{"KeywordIsCaseInsensitiveSubstring", testKeywordIsCaseInsensitiveSubstring},
		{"KeywordMetacharactersAreLiteral", testKeywordMetacharactersAreLiteral},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			c.fn(t, open(t))
		})
	}
}

// ─── Fixtures ─────────────────────────────────────────────────────────────────

// Employer builds a raw employer record.
func Employer(id, name string) model.EmployerRecord {
	open := 3
	return model.EmployerRecord{ID: id, Name: name, OpenVacancies: &open, SiteURL: "https://example.com/" + id}
}

// Vacancy builds a raw vacancy record; salary nil means no salary block.
func Vacancy(id, name, employerID string, salary *int) model.VacancyRecord {
	rec := model.VacancyRecord{
		ID:       id,
		Name:     name,
		Area:     &model.NamedRef{ID: "1", Name: "Москва"},
		Employer: &model.EmployerRef{ID: employerID},
		URL:      "https://api.hh.ru/vacancies/" + id,
	}
	if salary != nil {
		rec.Salary = &model.SalaryBlock{From: salary, Currency: "RUR"}
	}
	return rec
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func ready(t *testing.T, s store.Store) context.Context {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx))
	return ctx
}

func seed(t *testing.T, s store.Store, employers []model.EmployerRecord, vacancies []model.VacancyRecord) context.Context {
	t.Helper()
	ctx := ready(t, s)
	_, err := s.SaveEmployers(ctx, employers)
	require.NoError(t, err)
	_, err = s.SaveVacancies(ctx, vacancies)
	require.NoError(t, err)
	return ctx
}

func titles(ls []model.VacancyListing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Name)
	}
	return out
}

// ─── Cases ────────────────────────────────────────────────────────────────────

func testInitSchemaIsIdempotent(t *testing.T, s store.Store) {
	ctx := seed(t, s,
		[]model.EmployerRecord{Employer("1", "Alpha")},
		[]model.VacancyRecord{Vacancy("10", "Go Developer", "1", Int(100))},
	)

	require.NoError(t, s.InitSchema(ctx), "second InitSchema must be a no-op")

	all, err := s.AllVacancies(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "InitSchema must not drop data")
}

func testQueriesBeforeInitSchema(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.CompaniesWithVacancyCounts(ctx)
	assert.ErrorIs(t, err, store.ErrSchemaNotInitialized)

	_, err = s.AllVacancies(ctx)
	assert.ErrorIs(t, err, store.ErrSchemaNotInitialized)

	_, err = s.AverageSalary(ctx)
	assert.ErrorIs(t, err, store.ErrSchemaNotInitialized)

	_, err = s.VacanciesAboveAverage(ctx)
	assert.ErrorIs(t, err, store.ErrSchemaNotInitialized)

	_, err = s.VacanciesByKeyword(ctx, "go")
	assert.ErrorIs(t, err, store.ErrSchemaNotInitialized)

	_, err = s.SaveEmployers(ctx, []model.EmployerRecord{Employer("1", "Alpha")})
	assert.ErrorIs(t, err, store.ErrSchemaNotInitialized)
}

func testEmployersFirstWriteWins(t *testing.T, s store.Store) {
	ctx := ready(t, s)

	rep, err := s.SaveEmployers(ctx, []model.EmployerRecord{Employer("1", "Alpha")})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Inserted)

	rep, err = s.SaveEmployers(ctx, []model.EmployerRecord{Employer("1", "Renamed")})
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Inserted)
	assert.Equal(t, 1, rep.Duplicates)

	companies, err := s.CompaniesWithVacancyCounts(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Alpha", companies[0].EmployerName)
}

func testVacanciesFirstWriteWins(t *testing.T, s store.Store) {
	ctx := seed(t, s, []model.EmployerRecord{Employer("1", "Alpha")}, nil)

	first := Vacancy("10", "Go Developer", "1", Int(100))
	second := Vacancy("10", "Changed Title", "1", Int(999))

	rep, err := s.SaveVacancies(ctx, []model.VacancyRecord{first, second})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Inserted)
	assert.Equal(t, 1, rep.Duplicates)

	all, err := s.AllVacancies(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Go Developer", all[0].Name)
	require.NotNil(t, all[0].Salary)
	assert.Equal(t, 100, *all[0].Salary)
}

func testUnknownEmployerAbortsBatch(t *testing.T, s store.Store) {
	ctx := seed(t, s, []model.EmployerRecord{Employer("1", "Alpha")}, nil)

	rep, err := s.SaveVacancies(ctx, []model.VacancyRecord{
		Vacancy("10", "Kept", "1", nil),
		Vacancy("11", "Orphan", "404", nil),
		Vacancy("12", "Never reached", "1", nil),
	})

	var refErr *store.ReferentialIntegrityError
	require.True(t, errors.As(err, &refErr), "expected ReferentialIntegrityError, got %v", err)
	assert.Equal(t, int64(11), refErr.VacancyID)
	assert.Equal(t, int64(404), refErr.EmployerID)
	assert.Equal(t, 1, rep.Inserted)

	all, err := s.AllVacancies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kept"}, titles(all), "earlier inserts stay committed, later ones never run")
}

func testMalformedRecordsAreSkipped(t *testing.T, s store.Store) {
	ctx := ready(t, s)

	rep, err := s.SaveEmployers(ctx, []model.EmployerRecord{
		{ID: "", Name: "No id"},
		Employer("1", "Alpha"),
		{ID: "2", Name: "  "},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Inserted)
	require.Len(t, rep.Rejected, 2)
	assert.Equal(t, "id", rep.Rejected[0].Field)
	assert.Equal(t, "name", rep.Rejected[1].Field)

	noArea := Vacancy("10", "No area", "1", nil)
	noArea.Area = nil
	noEmployer := Vacancy("11", "No employer", "1", nil)
	noEmployer.Employer = nil

	rep, err = s.SaveVacancies(ctx, []model.VacancyRecord{
		noArea,
		noEmployer,
		Vacancy("12", "Fine", "1", Int(50)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Inserted)
	require.Len(t, rep.Rejected, 2)
	assert.Equal(t, "area", rep.Rejected[0].Field)
	assert.Equal(t, "employer", rep.Rejected[1].Field)
	assert.Equal(t, 3, rep.Attempted())
}

func testZeroVacancyEmployersAreCounted(t *testing.T, s store.Store) {
	ctx := seed(t, s,
		[]model.EmployerRecord{Employer("1", "Alpha"), Employer("2", "Beta")},
		[]model.VacancyRecord{
			Vacancy("10", "One", "1", nil),
			Vacancy("11", "Two", "1", nil),
		},
	)

	companies, err := s.CompaniesWithVacancyCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.CompanyVacancies{
		{EmployerID: 1, EmployerName: "Alpha", VacancyCount: 2},
		{EmployerID: 2, EmployerName: "Beta", VacancyCount: 0},
	}, companies)
}

func testAllVacanciesJoinsEmployer(t *testing.T, s store.Store) {
	ctx := seed(t, s,
		[]model.EmployerRecord{Employer("1", "Alpha"), Employer("2", "Beta")},
		[]model.VacancyRecord{
			Vacancy("20", "Analyst", "2", Int(70000)),
			Vacancy("10", "Tester", "1", nil),
		},
	)

	all, err := s.AllVacancies(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "Alpha", all[0].EmployerName)
	assert.Equal(t, "Tester", all[0].Name)
	assert.Equal(t, "Москва", all[0].Area)
	assert.Nil(t, all[0].Salary)
	assert.Equal(t, "https://api.hh.ru/vacancies/10", all[0].URL)

	assert.Equal(t, "Beta", all[1].EmployerName)
	require.NotNil(t, all[1].Salary)
	assert.Equal(t, 70000, *all[1].Salary)
}

func testAverageSalaryIgnoresNulls(t *testing.T, s store.Store) {
	unbounded := Vacancy("12", "Open range", "1", nil)
	unbounded.Salary = &model.SalaryBlock{Currency: "RUR"}

	ctx := seed(t, s,
		[]model.EmployerRecord{Employer("1", "Alpha")},
		[]model.VacancyRecord{
			Vacancy("10", "A", "1", Int(100)),
			Vacancy("11", "B", "1", Int(200)),
			unbounded,
			Vacancy("13", "C", "1", nil),
		},
	)

	avg, err := s.AverageSalary(ctx)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 150.0, *avg, 1e-9)
}

func testAverageSalaryNilWithoutSalaries(t *testing.T, s store.Store) {
	ctx := ready(t, s)

	avg, err := s.AverageSalary(ctx)
	require.NoError(t, err)
	assert.Nil(t, avg, "empty table")

	_, err = s.SaveEmployers(ctx, []model.EmployerRecord{Employer("1", "Alpha")})
	require.NoError(t, err)
	_, err = s.SaveVacancies(ctx, []model.VacancyRecord{Vacancy("10", "A", "1", nil)})
	require.NoError(t, err)

	avg, err = s.AverageSalary(ctx)
	require.NoError(t, err)
	assert.Nil(t, avg, "only null salaries")
}

func testAboveAverageIsStrict(t *testing.T, s store.Store) {
	ctx := seed(t, s,
		[]model.EmployerRecord{Employer("1", "Alpha")},
		[]model.VacancyRecord{
			Vacancy("10", "Low", "1", Int(100)),
			Vacancy("11", "Mid", "1", Int(200)),
			Vacancy("12", "High", "1", Int(300)),
			Vacancy("13", "Unknown", "1", nil),
		},
	)

	avg, err := s.AverageSalary(ctx)
	require.NoError(t, err)
	require.NotNil(t, avg)

	above, err := s.VacanciesAboveAverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"High"}, titles(above))
	for _, l := range above {
		require.NotNil(t, l.Salary)
		assert.Greater(t, float64(*l.Salary), *avg)
	}

	// Recomputed at call time.
	_, err = s.SaveVacancies(ctx, []model.VacancyRecord{Vacancy("14", "Top", "1", Int(1000))})
	require.NoError(t, err)

	above, err = s.VacanciesAboveAverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Top"}, titles(above))
}

func testKeywordIsCaseInsensitiveSubstring(t *testing.T, s store.Store) {
	ctx := seed(t, s,
		[]model.EmployerRecord{Employer("1", "Alpha")},
		[]model.VacancyRecord{
			Vacancy("10", "Senior Developer", "1", nil),
			Vacancy("11", "developer, junior", "1", nil),
			Vacancy("12", "Designer", "1", nil),
		},
	)

	got, err := s.VacanciesByKeyword(ctx, "developer")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Senior Developer", "developer, junior"}, titles(got))

	got, err = s.VacanciesByKeyword(ctx, "DEVELOPER")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.VacanciesByKeyword(ctx, "manager")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testKeywordMetacharactersAreLiteral(t *testing.T, s store.Store) {
	ctx := seed(t, s,
		[]model.EmployerRecord{Employer("1", "Alpha")},
		[]model.VacancyRecord{
			Vacancy("10", "Remote 100% Go", "1", nil),
			Vacancy("11", "Remote 1000 Go", "1", nil),
			Vacancy("12", "snake_case fan", "1", nil),
			Vacancy("13", "snakeXcase fan", "1", nil),
		},
	)

	got, err := s.VacanciesByKeyword(ctx, "100%")
	require.NoError(t, err)
	assert.Equal(t, []string{"Remote 100% Go"}, titles(got))

	got, err = s.VacanciesByKeyword(ctx, "snake_case")
	require.NoError(t, err)
	assert.Equal(t, []string{"snake_case fan"}, titles(got))
}
