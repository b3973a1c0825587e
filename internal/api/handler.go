// Package api exposes the stored vacancy data as read-only JSON over HTTP.
//
// Routes:
//
//	GET /health                  → liveness
//	GET /companies               → employers with their vacancy counts
//	GET /vacancies[?keyword=kw]  → all vacancies, or those whose title contains kw
//	GET /vacancies/above-average → vacancies paid above the average salary
//	GET /salary/average          → {"average": number|null}
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"hhvacancies/internal/store"
	"hhvacancies/pkg/logging"
)

// ─── Response types ───────────────────────────────────────────────────────────

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type averageResponse struct {
	Average *float64 `json:"average"`
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	store   store.Store
	version string
	log     *logging.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(st store.Store, version string, log *logging.Logger) *Handler {
	return &Handler{store: st, version: version, log: log.With("component", "api")}
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.get(h.health))
	mux.HandleFunc("/companies", h.get(h.companies))
	mux.HandleFunc("/vacancies", h.get(h.vacancies))
	mux.HandleFunc("/vacancies/above-average", h.get(h.aboveAverage))
	mux.HandleFunc("/salary/average", h.get(h.averageSalary))
}

// get rejects every method but GET.
func (h *Handler) get(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// ─── Routes ───────────────────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, healthResponse{Status: "ok", Service: "hhvacancies", Version: h.version})
}

func (h *Handler) companies(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.CompaniesWithVacancyCounts(r.Context())
	if err != nil {
		h.storeError(w, "companies", err)
		return
	}
	jsonOK(w, out)
}

func (h *Handler) vacancies(w http.ResponseWriter, r *http.Request) {
	if keyword := r.URL.Query().Get("keyword"); keyword != "" {
		out, err := h.store.VacanciesByKeyword(r.Context(), keyword)
		if err != nil {
			h.storeError(w, "keyword vacancies", err)
			return
		}
		jsonOK(w, out)
		return
	}

	out, err := h.store.AllVacancies(r.Context())
	if err != nil {
		h.storeError(w, "all vacancies", err)
		return
	}
	jsonOK(w, out)
}

func (h *Handler) aboveAverage(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.VacanciesAboveAverage(r.Context())
	if err != nil {
		h.storeError(w, "above-average vacancies", err)
		return
	}
	jsonOK(w, out)
}

func (h *Handler) averageSalary(w http.ResponseWriter, r *http.Request) {
	avg, err := h.store.AverageSalary(r.Context())
	if err != nil {
		h.storeError(w, "average salary", err)
		return
	}
	jsonOK(w, averageResponse{Average: avg})
}

// storeError answers 503 until the first sync has created the tables and
// 500 for anything else.
func (h *Handler) storeError(w http.ResponseWriter, query string, err error) {
	if errors.Is(err, store.ErrSchemaNotInitialized) {
		jsonError(w, "no data yet, first sync has not completed", http.StatusServiceUnavailable)
		return
	}
	h.log.Error("query failed", "query", query, "err", err)
	jsonError(w, "database error", http.StatusInternalServerError)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
