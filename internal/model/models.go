// Package model defines the records exchanged between the hh.ru fetcher, the
// store and the read surfaces (menu, HTTP API).
package model

// ─── Raw API records ──────────────────────────────────────────────────────────

// EmployerRecord mirrors GET /employers/{id}.
type EmployerRecord struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OpenVacancies *int   `json:"open_vacancies"`
	SiteURL       string `json:"site_url"`
}

// VacancyRecord mirrors one element of GET /vacancies → items[].
type VacancyRecord struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Area     *NamedRef    `json:"area"`
	Salary   *SalaryBlock `json:"salary"` // nil when the block is absent or null
	Employer *EmployerRef `json:"employer"`
	URL      string       `json:"url"`
}

// NamedRef is the {id, name} shape hh.ru uses for areas and similar lookups.
type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EmployerRef is the short employer object nested inside a vacancy.
type EmployerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SalaryBlock is the optional salary object of a vacancy.
type SalaryBlock struct {
	From     *int   `json:"from"`
	To       *int   `json:"to"`
	Currency string `json:"currency"`
}

// VacanciesPage is the envelope of GET /vacancies.
type VacanciesPage struct {
	Items []VacancyRecord `json:"items"`
	Found int             `json:"found"`
	Pages int             `json:"pages"`
}

// ─── Salary ───────────────────────────────────────────────────────────────────

// SalaryKind tells apart the three shapes a vacancy salary can arrive in.
type SalaryKind int

const (
	SalaryMissing   SalaryKind = iota // no salary block at all
	SalaryUnbounded                   // block present, "from" is null
	SalaryFrom                        // block present with a lower bound
)

func (k SalaryKind) String() string {
	switch k {
	case SalaryUnbounded:
		return "unbounded"
	case SalaryFrom:
		return "from"
	default:
		return "missing"
	}
}

// SalaryBound is the lower bound of a vacancy salary. Amount is meaningful
// only when Kind == SalaryFrom.
type SalaryBound struct {
	Kind   SalaryKind
	Amount int
}

// Value returns the bound as a nullable column value.
func (b SalaryBound) Value() *int {
	if b.Kind != SalaryFrom {
		return nil
	}
	v := b.Amount
	return &v
}

// LowerBound classifies the record's salary block.
func (v VacancyRecord) LowerBound() SalaryBound {
	switch {
	case v.Salary == nil:
		return SalaryBound{Kind: SalaryMissing}
	case v.Salary.From == nil:
		return SalaryBound{Kind: SalaryUnbounded}
	default:
		return SalaryBound{Kind: SalaryFrom, Amount: *v.Salary.From}
	}
}

// ─── Rows ─────────────────────────────────────────────────────────────────────

// Employer is one row of the employers table.
type Employer struct {
	ID            int64
	Name          string
	OpenVacancies *int
	URL           string
}

// Vacancy is one row of the vacancies table.
type Vacancy struct {
	ID         int64
	Name       string
	Area       string
	Salary     *int
	EmployerID int64
	URL        string
}

// ─── Query results ────────────────────────────────────────────────────────────

// CompanyVacancies pairs an employer with the number of stored vacancies.
type CompanyVacancies struct {
	EmployerID   int64  `json:"employerId"`
	EmployerName string `json:"employerName"`
	VacancyCount int    `json:"vacancyCount"`
}

// VacancyListing is a vacancy joined with its employer's display name.
type VacancyListing struct {
	VacancyID    int64  `json:"vacancyId"`
	EmployerName string `json:"employerName"`
	Name         string `json:"name"`
	Area         string `json:"area"`
	Salary       *int   `json:"salary"`
	URL          string `json:"url"`
}
