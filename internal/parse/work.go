package parse

import (
	"regexp"
	"strings"

	"github.com/unlist-labs/brokerscan/internal/model"
)

// jobRe matches "Title at Company (2015-2019)" with an optional date group.
var jobRe = regexp.MustCompile(`^(.+?)\s+at\s+(.+?)(?:\s*\(([^)]+)\))?$`)

// currentTokens mark a date range as ongoing.
var currentTokens = []string{"since", "present", "current", "now"}

// Job parses an employment fragment of the form
// "title at company (date-range|since year)". Current-vs-past is inferred
// from the date token; a missing date group is treated as current.
func Job(s string) (model.Job, bool) {
	s = CollapseSpaces(s)
	m := jobRe.FindStringSubmatch(s)
	if m == nil {
		return model.Job{}, false
	}
	j := model.Job{
		Title:   CollapseSpaces(m[1]),
		Company: CollapseSpaces(m[2]),
		Dates:   CollapseSpaces(m[3]),
	}
	if j.Title == "" || j.Company == "" {
		return model.Job{}, false
	}
	if j.Dates == "" {
		j.Current = true
	} else {
		lower := strings.ToLower(j.Dates)
		for _, tok := range currentTokens {
			if strings.Contains(lower, tok) {
				j.Current = true
				break
			}
		}
	}
	return j, true
}

// Jobs parses a list of employment fragments, skipping unparseable rows and
// de-duplicating by title+company.
func Jobs(entries []string) []model.Job {
	var out []model.Job
	seen := make(map[string]bool)
	for _, e := range entries {
		j, ok := Job(e)
		if !ok {
			continue
		}
		key := strings.ToLower(j.Title + "|" + j.Company)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, j)
	}
	return out
}

// educationRe matches "degree[, field] from school (dates)" with optional
// field and date groups.
var educationRe = regexp.MustCompile(`^(.+?)\s+from\s+(.+?)(?:\s*\(([^)]+)\))?$`)

// Education parses a schooling fragment of the form
// "degree[, field] from school (dates)".
func Education(s string) (model.Education, bool) {
	s = CollapseSpaces(s)
	m := educationRe.FindStringSubmatch(s)
	if m == nil {
		return model.Education{}, false
	}
	e := model.Education{
		School: CollapseSpaces(m[2]),
		Dates:  CollapseSpaces(m[3]),
	}
	degree := CollapseSpaces(m[1])
	if idx := strings.Index(degree, ","); idx >= 0 {
		e.Degree = CollapseSpaces(degree[:idx])
		e.Field = CollapseSpaces(degree[idx+1:])
	} else {
		e.Degree = degree
	}
	if e.Degree == "" || e.School == "" {
		return model.Education{}, false
	}
	return e, true
}

// Educations parses a list of schooling fragments, skipping unparseable
// rows and de-duplicating by degree+school.
func Educations(entries []string) []model.Education {
	var out []model.Education
	seen := make(map[string]bool)
	for _, entry := range entries {
		e, ok := Education(entry)
		if !ok {
			continue
		}
		key := strings.ToLower(e.Degree + "|" + e.School)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
