package store

import (
	"strconv"
	"strings"

	"hhvacancies/internal/model"
)

// EmployerRow validates a raw employer record and converts it to a row.
func EmployerRow(rec model.EmployerRecord) (model.Employer, error) {
	id, err := parseID("employer", rec.ID, "id", rec.ID)
	if err != nil {
		return model.Employer{}, err
	}
	if strings.TrimSpace(rec.Name) == "" {
		return model.Employer{}, &MalformedRecordError{Entity: "employer", RecordID: rec.ID, Field: "name", Reason: "is empty"}
	}
	return model.Employer{
		ID:            id,
		Name:          rec.Name,
		OpenVacancies: rec.OpenVacancies,
		URL:           rec.SiteURL,
	}, nil
}

// VacancyRow validates a raw vacancy record and converts it to a row. The
// salary column is filled only when the record carries a lower bound.
func VacancyRow(rec model.VacancyRecord) (model.Vacancy, error) {
	id, err := parseID("vacancy", rec.ID, "id", rec.ID)
	if err != nil {
		return model.Vacancy{}, err
	}

	malformed := func(field, reason string) error {
		return &MalformedRecordError{Entity: "vacancy", RecordID: rec.ID, Field: field, Reason: reason}
	}

	if rec.Name == "" {
		return model.Vacancy{}, malformed("name", "is missing")
	}
	if rec.Area == nil {
		return model.Vacancy{}, malformed("area", "is missing")
	}
	if rec.Area.Name == "" {
		return model.Vacancy{}, malformed("area.name", "is missing")
	}
	if rec.Employer == nil {
		return model.Vacancy{}, malformed("employer", "is missing")
	}
	employerID, err := parseID("vacancy", rec.ID, "employer.id", rec.Employer.ID)
	if err != nil {
		return model.Vacancy{}, err
	}
	if rec.URL == "" {
		return model.Vacancy{}, malformed("url", "is missing")
	}

	return model.Vacancy{
		ID:         id,
		Name:       rec.Name,
		Area:       rec.Area.Name,
		Salary:     rec.LowerBound().Value(),
		EmployerID: employerID,
		URL:        rec.URL,
	}, nil
}

func parseID(entity, recordID, field, raw string) (int64, error) {
	if raw == "" {
		return 0, &MalformedRecordError{Entity: entity, RecordID: recordID, Field: field, Reason: "is missing"}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &MalformedRecordError{Entity: entity, RecordID: recordID, Field: field, Reason: "is not an integer"}
	}
	return id, nil
}

// LikePattern wraps keyword in % wildcards after escaping LIKE
// metacharacters with a backslash, so the keyword matches literally.
func LikePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(keyword) + "%"
}
