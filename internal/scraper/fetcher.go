package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hhvacancies/internal/model"
	"hhvacancies/pkg/logging"
)

const (
	hhBaseURL       = "https://api.hh.ru"
	hhUserAgent     = "HH-User-Agent"
	hhMaxPerPage    = 100
	httpTimeout     = 15 * time.Second
	errorBodyLimit  = 4096
	defaultCacheTTL = 6 * time.Hour
)

// Cache stores raw API bodies between runs. Get reports a miss with
// ok == false; errors are treated as misses by the fetcher.
type Cache interface {
	Get(ctx context.Context, key string) (body []byte, ok bool, err error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// FetcherConfig configures an HHFetcher. Zero values fall back to defaults.
type FetcherConfig struct {
	BaseURL    string
	UserAgent  string
	PerPage    int    // vacancies per employer, clamped to [1, 100]
	SearchText string // optional "text" filter for the vacancy search
	HTTPClient *http.Client
	Cache      Cache
	CacheTTL   time.Duration
}

// HHFetcher reads employers and their open vacancies from the hh.ru API,
// one request per employer identifier and entity type.
type HHFetcher struct {
	baseURL    string
	userAgent  string
	perPage    int
	searchText string
	client     *http.Client
	cache      Cache
	cacheTTL   time.Duration
	log        *logging.Logger
}

// NewHHFetcher constructs a fetcher with defaults filled in.
func NewHHFetcher(cfg FetcherConfig, log *logging.Logger) *HHFetcher {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = hhBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = hhUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: httpTimeout}
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &HHFetcher{
		baseURL:    baseURL,
		userAgent:  ua,
		perPage:    ClampPerPage(cfg.PerPage),
		searchText: cfg.SearchText,
		client:     client,
		cache:      cfg.Cache,
		cacheTTL:   ttl,
		log:        log.With("component", "fetcher"),
	}
}

// ClampPerPage keeps the page size inside what hh.ru accepts for one page.
func ClampPerPage(n int) int {
	switch {
	case n <= 0:
		return hhMaxPerPage
	case n > hhMaxPerPage:
		return hhMaxPerPage
	default:
		return n
	}
}

// ─── Public API ───────────────────────────────────────────────────────────────

// FetchEmployers probes the API, then GETs /employers/{id} for every id.
// Identifiers that fail are recorded as skipped outcomes; only a failed
// probe or a cancelled context is returned as an error.
func (f *HHFetcher) FetchEmployers(ctx context.Context, ids []string) (EmployerBatch, error) {
	var batch EmployerBatch
	if err := f.Probe(ctx); err != nil {
		return batch, err
	}

	for _, id := range ids {
		var rec model.EmployerRecord
		err := f.getJSON(ctx, "hh:employer:"+id, f.baseURL+"/employers/"+url.PathEscape(id), &rec)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			f.log.Warn("employer fetch skipped", "employer_id", id, "reason", err.Error())
			batch.Outcomes = append(batch.Outcomes, skipped(id, err))
			continue
		}
		batch.Records = append(batch.Records, rec)
		batch.Outcomes = append(batch.Outcomes, Outcome{ID: id, Status: StatusFetched, Records: 1})
	}

	f.log.Info("employers fetched", "requested", len(ids), "records", len(batch.Records), "skipped", len(batch.Skipped()))
	return batch, nil
}

// FetchVacancies probes the API, then reads a single page of
// /vacancies?employer_id={id} for every id. No cursor is followed.
func (f *HHFetcher) FetchVacancies(ctx context.Context, ids []string) (VacancyBatch, error) {
	var batch VacancyBatch
	if err := f.Probe(ctx); err != nil {
		return batch, err
	}

	for _, id := range ids {
		var page model.VacanciesPage
		key := fmt.Sprintf("hh:vacancies:%s:%d:%s", id, f.perPage, f.searchText)
		err := f.getJSON(ctx, key, f.vacanciesURL(id), &page)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			f.log.Warn("vacancy fetch skipped", "employer_id", id, "reason", err.Error())
			batch.Outcomes = append(batch.Outcomes, skipped(id, err))
			continue
		}
		batch.Records = append(batch.Records, page.Items...)
		batch.Outcomes = append(batch.Outcomes, Outcome{ID: id, Status: StatusFetched, Records: len(page.Items)})
	}

	f.log.Info("vacancies fetched", "requested", len(ids), "records", len(batch.Records), "skipped", len(batch.Skipped()))
	return batch, nil
}

// Probe issues one GET against the vacancy endpoint and fails with a
// ConnectivityError unless it answers 200.
func (f *HHFetcher) Probe(ctx context.Context) error {
	endpoint := f.baseURL + "/vacancies"
	resp, err := f.do(ctx, endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ConnectivityError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit))

	if resp.StatusCode != http.StatusOK {
		return &ConnectivityError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}
	return nil
}

// ─── HTTP plumbing ────────────────────────────────────────────────────────────

func (f *HHFetcher) vacanciesURL(employerID string) string {
	params := url.Values{}
	params.Set("employer_id", employerID)
	params.Set("per_page", strconv.Itoa(f.perPage))
	if f.searchText != "" {
		params.Set("text", f.searchText)
	}
	return f.baseURL + "/vacancies?" + params.Encode()
}

func (f *HHFetcher) do(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	return resp, nil
}

// getJSON decodes the body behind reqURL into out, going through the cache
// first when one is configured. Only 200 responses are cached.
func (f *HHFetcher) getJSON(ctx context.Context, cacheKey, reqURL string, out any) error {
	if body, ok := f.cached(ctx, cacheKey); ok {
		if err := json.Unmarshal(body, out); err == nil {
			return nil
		}
		f.log.Warn("discarding undecodable cache entry", "key", cacheKey)
	}

	resp, err := f.do(ctx, reqURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, cacheKey, body, f.cacheTTL); err != nil {
			f.log.Warn("cache set failed", "key", cacheKey, "err", err)
		}
	}
	return nil
}

func (f *HHFetcher) cached(ctx context.Context, key string) ([]byte, bool) {
	if f.cache == nil {
		return nil, false
	}
	body, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		f.log.Warn("cache get failed", "key", key, "err", err)
		return nil, false
	}
	return body, ok
}

func skipped(id string, err error) Outcome {
	o := Outcome{ID: id, Status: StatusSkipped, Reason: err.Error()}
	var se *StatusError
	if errors.As(err, &se) {
		o.StatusCode = se.StatusCode
	}
	return o
}
