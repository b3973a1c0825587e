// Package menu is the interactive text front end over a store.Store.
package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"hhvacancies/internal/model"
	"hhvacancies/internal/store"
)

const header = `
hh.ru vacancy database
  1. Companies and their vacancy counts
  2. All vacancies
  3. Average salary
  4. Vacancies with above-average salary
  5. Search vacancies by keyword
  6. Exit`

const invalidChoice = "Invalid choice, please enter a number from 1 to 6."

// Menu reads choices line by line from in and prints results to out.
type Menu struct {
	store store.Store
	in    *bufio.Scanner
	out   io.Writer
}

// New returns a Menu over st.
func New(st store.Store, in io.Reader, out io.Writer) *Menu {
	return &Menu{store: st, in: bufio.NewScanner(in), out: out}
}

// Run loops until the user picks 6, input ends, or a query fails. A query
// error is returned as is; the caller decides how to exit.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(m.out, header)
		choice, ok := m.prompt("\nChoose an action: ")
		if !ok {
			fmt.Fprintln(m.out)
			return m.in.Err()
		}

		var err error
		switch choice {
		case "1":
			err = m.companies(ctx)
		case "2":
			err = m.listing(ctx, "All vacancies:", m.store.AllVacancies)
		case "3":
			err = m.average(ctx)
		case "4":
			err = m.listing(ctx, "Vacancies with above-average salary:", m.store.VacanciesAboveAverage)
		case "5":
			err = m.search(ctx)
		case "6":
			fmt.Fprintln(m.out, "Bye.")
			return nil
		default:
			fmt.Fprintln(m.out, invalidChoice)
		}
		if err != nil {
			return err
		}
	}
}

// prompt prints label and reads one trimmed line. ok is false at end of input.
func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

// ─── Actions ──────────────────────────────────────────────────────────────────

func (m *Menu) companies(ctx context.Context) error {
	rows, err := m.store.CompaniesWithVacancyCounts(ctx)
	if err != nil {
		return fmt.Errorf("companies: %w", err)
	}

	fmt.Fprintln(m.out, "\nCompanies and their vacancy counts:")
	if len(rows) == 0 {
		fmt.Fprintln(m.out, "  (none)")
	}
	for _, c := range rows {
		fmt.Fprintf(m.out, "  %s: %d\n", c.EmployerName, c.VacancyCount)
	}
	return nil
}

func (m *Menu) average(ctx context.Context) error {
	avg, err := m.store.AverageSalary(ctx)
	if err != nil {
		return fmt.Errorf("average salary: %w", err)
	}
	if avg == nil {
		fmt.Fprintln(m.out, "\nAverage salary: no vacancy has a salary")
		return nil
	}
	fmt.Fprintf(m.out, "\nAverage salary: %.2f\n", *avg)
	return nil
}

func (m *Menu) search(ctx context.Context) error {
	keyword, ok := m.prompt("Keyword: ")
	if !ok {
		return nil
	}
	return m.listing(ctx, fmt.Sprintf("Vacancies with %q in the title:", keyword),
		func(ctx context.Context) ([]model.VacancyListing, error) {
			return m.store.VacanciesByKeyword(ctx, keyword)
		})
}

func (m *Menu) listing(ctx context.Context, title string, query func(context.Context) ([]model.VacancyListing, error)) error {
	rows, err := query(ctx)
	if err != nil {
		return fmt.Errorf("list vacancies: %w", err)
	}

	fmt.Fprintln(m.out, "\n"+title)
	if len(rows) == 0 {
		fmt.Fprintln(m.out, "  (none)")
	}
	for _, v := range rows {
		fmt.Fprintf(m.out, "  %s | %s | %s | %s\n", v.EmployerName, v.Name, formatSalary(v.Salary), v.URL)
	}
	return nil
}

func formatSalary(s *int) string {
	if s == nil {
		return "salary not specified"
	}
	return fmt.Sprintf("from %d", *s)
}
