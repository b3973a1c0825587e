package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hhvacancies/internal/model"
	"hhvacancies/internal/store"
	"hhvacancies/pkg/logging"
)

// Fetcher is what the Worker needs from HHFetcher.
type Fetcher interface {
	FetchEmployers(ctx context.Context, ids []string) (EmployerBatch, error)
	FetchVacancies(ctx context.Context, ids []string) (VacancyBatch, error)
}

// RunReport summarises one pipeline run.
type RunReport struct {
	RunID     string
	Employers EmployerBatch
	Vacancies VacancyBatch
	Excluded  int // vacancies dropped by exclusion terms before persisting

	EmployersSaved store.SaveReport
	VacanciesSaved store.SaveReport

	Started  time.Time
	Duration time.Duration
}

// Worker runs the fetch-and-persist pipeline for a fixed set of employers.
// Stages run strictly in order: fetch employers, fetch vacancies, create
// schema, save employers, save vacancies.
type Worker struct {
	fetcher      Fetcher
	store        store.Store
	employerIDs  []string
	excludeTerms []string
	log          *logging.Logger
}

// NewWorker constructs a Worker.
func NewWorker(fetcher Fetcher, st store.Store, employerIDs, excludeTerms []string, log *logging.Logger) *Worker {
	return &Worker{
		fetcher:      fetcher,
		store:        st,
		employerIDs:  employerIDs,
		excludeTerms: excludeTerms,
		log:          log.With("component", "worker"),
	}
}

// Run executes one pipeline cycle. On error the returned report holds
// whatever was completed before the failing stage.
func (w *Worker) Run(ctx context.Context) (rep RunReport, err error) {
	rep = RunReport{RunID: uuid.NewString(), Started: time.Now()}
	log := w.log.With("run_id", rep.RunID)
	defer func() { rep.Duration = time.Since(rep.Started) }()

	log.Info("pipeline started", "employers", len(w.employerIDs))

	rep.Employers, err = w.fetcher.FetchEmployers(ctx, w.employerIDs)
	if err != nil {
		return rep, fmt.Errorf("fetch employers: %w", err)
	}

	rep.Vacancies, err = w.fetcher.FetchVacancies(ctx, w.employerIDs)
	if err != nil {
		return rep, fmt.Errorf("fetch vacancies: %w", err)
	}

	vacancies := w.filter(rep.Vacancies.Records)
	rep.Excluded = len(rep.Vacancies.Records) - len(vacancies)

	if err := w.store.InitSchema(ctx); err != nil {
		return rep, fmt.Errorf("init schema: %w", err)
	}

	rep.EmployersSaved, err = w.store.SaveEmployers(ctx, rep.Employers.Records)
	logRejected(log, rep.EmployersSaved)
	if err != nil {
		return rep, fmt.Errorf("save employers: %w", err)
	}

	rep.VacanciesSaved, err = w.store.SaveVacancies(ctx, vacancies)
	logRejected(log, rep.VacanciesSaved)
	if err != nil {
		return rep, fmt.Errorf("save vacancies: %w", err)
	}

	log.Info("pipeline done",
		"employers_inserted", rep.EmployersSaved.Inserted,
		"employers_duplicate", rep.EmployersSaved.Duplicates,
		"vacancies_inserted", rep.VacanciesSaved.Inserted,
		"vacancies_duplicate", rep.VacanciesSaved.Duplicates,
		"excluded", rep.Excluded,
		"skipped_ids", len(rep.Employers.Skipped())+len(rep.Vacancies.Skipped()),
	)
	return rep, nil
}

func (w *Worker) filter(records []model.VacancyRecord) []model.VacancyRecord {
	if len(w.excludeTerms) == 0 {
		return records
	}
	kept := make([]model.VacancyRecord, 0, len(records))
	for _, v := range records {
		var area string
		if v.Area != nil {
			area = v.Area.Name
		}
		if ContainsExcluded(v.Name, area, w.excludeTerms) {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

func logRejected(log *logging.Logger, rep store.SaveReport) {
	for _, bad := range rep.Rejected {
		log.Warn("record rejected", "entity", bad.Entity, "record_id", bad.RecordID, "field", bad.Field, "reason", bad.Reason)
	}
}
