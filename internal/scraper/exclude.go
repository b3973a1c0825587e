// Package scraper fetches hh.ru employers and vacancies and runs the
// fetch-and-persist pipeline.
package scraper

import "strings"

// ContainsExcluded reports whether any exclusion term appears
// (case-insensitive) in the vacancy title or area.
func ContainsExcluded(title, area string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	combined := strings.ToLower(title + " " + area)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
