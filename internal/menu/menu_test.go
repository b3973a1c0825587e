package menu_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hhvacancies/internal/menu"
	"hhvacancies/internal/model"
	"hhvacancies/internal/store"
	"hhvacancies/internal/store/sqlite"
	"hhvacancies/internal/store/storetest"
)

func seededStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	require.NoError(t, st.InitSchema(ctx))
	_, err = st.SaveEmployers(ctx, []model.EmployerRecord{
		storetest.Employer("1", "Альфа"),
		storetest.Employer("2", "Бета"),
	})
	require.NoError(t, err)
	_, err = st.SaveVacancies(ctx, []model.VacancyRecord{
		storetest.Vacancy("10", "Go разработчик", "1", storetest.Int(100000)),
		storetest.Vacancy("11", "Аналитик данных", "1", storetest.Int(300000)),
		storetest.Vacancy("12", "Тестировщик", "1", nil),
	})
	require.NoError(t, err)
	return st
}

func run(t *testing.T, st store.Store, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := menu.New(st, strings.NewReader(input), &out).Run(context.Background())
	return out.String(), err
}

func TestRun_Companies(t *testing.T) {
	out, err := run(t, seededStore(t), "1\n6\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Альфа: 3")
	assert.Contains(t, out, "Бета: 0")
	assert.Contains(t, out, "Bye.")
}

func TestRun_AllVacancies(t *testing.T) {
	out, err := run(t, seededStore(t), "2\n6\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Альфа | Go разработчик | from 100000 | https://api.hh.ru/vacancies/10")
	assert.Contains(t, out, "Тестировщик | salary not specified")
}

func TestRun_AverageSalary(t *testing.T) {
	out, err := run(t, seededStore(t), "3\n6\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Average salary: 200000.00")
}

func TestRun_AboveAverage(t *testing.T) {
	out, err := run(t, seededStore(t), "4\n6\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Аналитик данных")
	assert.NotContains(t, out, "Go разработчик")
}

func TestRun_KeywordSearch(t *testing.T) {
	out, err := run(t, seededStore(t), "5\nРАЗРАБОТЧИК\n6\n")
	require.NoError(t, err)
	assert.Contains(t, out, `"РАЗРАБОТЧИК"`)
	assert.Contains(t, out, "Go разработчик")
	assert.NotContains(t, out, "Тестировщик |")
}

func TestRun_InvalidChoiceRePrompts(t *testing.T) {
	out, err := run(t, seededStore(t), "7\nabc\n\n6\n")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "Invalid choice, please enter a number from 1 to 6."))
	assert.Contains(t, out, "Bye.")
}

func TestRun_EOFExits(t *testing.T) {
	out, err := run(t, seededStore(t), "1\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Альфа: 3")
	assert.NotContains(t, out, "Bye.")
}

func TestRun_EmptyStore(t *testing.T) {
	st, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.InitSchema(context.Background()))

	out, err := run(t, st, "1\n3\n6\n")
	require.NoError(t, err)
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "no vacancy has a salary")
}

func TestRun_QueryErrorIsReturned(t *testing.T) {
	st, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	_, err = run(t, st, "2\n6\n")
	assert.ErrorIs(t, err, store.ErrSchemaNotInitialized)
}
