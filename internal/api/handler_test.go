package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hhvacancies/internal/api"
	"hhvacancies/internal/model"
	"hhvacancies/internal/store"
	"hhvacancies/internal/store/sqlite"
	"hhvacancies/internal/store/storetest"
	"hhvacancies/pkg/logging"
)

func newServer(t *testing.T, seed bool) *httptest.Server {
	t.Helper()
	st, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	if seed {
		seedStore(t, st)
	}

	mux := http.NewServeMux()
	api.NewHandler(st, "test", logging.Nop()).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func seedStore(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.InitSchema(ctx))
	_, err := st.SaveEmployers(ctx, []model.EmployerRecord{
		storetest.Employer("1", "Альфа"),
		storetest.Employer("2", "Бета"),
	})
	require.NoError(t, err)
	_, err = st.SaveVacancies(ctx, []model.VacancyRecord{
		storetest.Vacancy("10", "Go разработчик", "1", storetest.Int(100000)),
		storetest.Vacancy("11", "Аналитик", "1", storetest.Int(300000)),
		storetest.Vacancy("12", "Тестировщик", "1", nil),
	})
	require.NoError(t, err)
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newServer(t, false)

	var body map[string]string
	code := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestCompanies(t *testing.T) {
	srv := newServer(t, true)

	var got []model.CompanyVacancies
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/companies", &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Альфа", got[0].EmployerName)
	assert.Equal(t, 3, got[0].VacancyCount)
	assert.Equal(t, "Бета", got[1].EmployerName)
	assert.Zero(t, got[1].VacancyCount)
}

func TestVacancies(t *testing.T) {
	srv := newServer(t, true)

	var all []model.VacancyListing
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/vacancies", &all))
	assert.Len(t, all, 3)

	var matched []model.VacancyListing
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/vacancies?keyword=%D0%90%D0%9D%D0%90%D0%9B%D0%98%D0%A2%D0%98%D0%9A", &matched))
	require.Len(t, matched, 1)
	assert.EqualValues(t, 11, matched[0].VacancyID)
}

func TestAboveAverage(t *testing.T) {
	srv := newServer(t, true)

	var got []model.VacancyListing
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/vacancies/above-average", &got))
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Salary)
	assert.Equal(t, 300000, *got[0].Salary)
}

func TestAverageSalary(t *testing.T) {
	srv := newServer(t, true)

	var got struct {
		Average *float64 `json:"average"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/salary/average", &got))
	require.NotNil(t, got.Average)
	assert.InDelta(t, 200000, *got.Average, 0.001)
}

func TestAverageSalary_NullWithoutSalaries(t *testing.T) {
	st, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.InitSchema(context.Background()))

	mux := http.NewServeMux()
	api.NewHandler(st, "test", logging.Nop()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/salary/average", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"average":null}`, rec.Body.String())
}

func TestBeforeFirstSync(t *testing.T) {
	srv := newServer(t, false)

	var body map[string]string
	code := getJSON(t, srv.URL+"/vacancies", &body)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.NotEmpty(t, body["error"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newServer(t, true)

	for _, path := range []string{"/health", "/companies", "/vacancies", "/vacancies/above-average", "/salary/average"} {
		resp, err := http.Post(srv.URL+path, "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
	}
}
