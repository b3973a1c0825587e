package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hhvacancies/internal/model"
	"hhvacancies/internal/store"
	"hhvacancies/internal/store/storetest"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return setupTestDB(t)
	})
}

func TestVacanciesByKeyword_Cyrillic(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx))

	_, err := s.SaveEmployers(ctx, []model.EmployerRecord{storetest.Employer("3529", "СБЕР")})
	require.NoError(t, err)
	_, err = s.SaveVacancies(ctx, []model.VacancyRecord{
		storetest.Vacancy("1", "Ведущий Разработчик Go", "3529", nil),
		storetest.Vacancy("2", "разработчик 1С", "3529", nil),
		storetest.Vacancy("3", "Аналитик", "3529", nil),
	})
	require.NoError(t, err)

	got, err := s.VacanciesByKeyword(ctx, "РАЗРАБОТЧИК")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "СБЕР", got[0].EmployerName)
}

func TestData_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hh.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))
	_, err = s.SaveEmployers(ctx, []model.EmployerRecord{storetest.Employer("1", "Alpha")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(ctx))

	companies, err := s.CompaniesWithVacancyCounts(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Alpha", companies[0].EmployerName)
}

func TestClose_Twice(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
