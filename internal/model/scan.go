package model

import "time"

// ScanStatus represents the current state of a scan.
type ScanStatus string

const (
	ScanStatusScanning          ScanStatus = "scanning"
	ScanStatusNoMatches         ScanStatus = "no_matches"
	ScanStatusMatchesFound      ScanStatus = "matches_found"
	ScanStatusSelectionRequired ScanStatus = "selection_required"
	ScanStatusProcessing        ScanStatus = "processing"
	ScanStatusCompleted         ScanStatus = "completed"
)

// Terminal reports whether a scan in this status accepts no further steps.
func (s ScanStatus) Terminal() bool {
	return s == ScanStatusNoMatches || s == ScanStatusCompleted
}

// Scan is the durable record of one two-phase scan: search, user
// disambiguation, detail scrape, completion. Persisted between steps so the
// workflow survives the user-wait boundary.
type Scan struct {
	ID           string                `json:"id"`
	UserID       string                `json:"user_id,omitempty"`
	Input        SearchInput           `json:"input"`
	Status       ScanStatus            `json:"status"`
	Matches      []ProfileMatch        `json:"matches,omitempty"`
	Runs         []ScraperRunResult    `json:"runs,omitempty"`
	TriedSources []string              `json:"tried_sources,omitempty"`
	Profile      *QuickScanProfileData `json:"profile,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// MatchByID returns the candidate with the given id, or nil.
func (s *Scan) MatchByID(id string) *ProfileMatch {
	for i := range s.Matches {
		if s.Matches[i].ID == id {
			return &s.Matches[i]
		}
	}
	return nil
}

// Tried reports whether a source has already been attempted for this scan.
func (s *Scan) Tried(source string) bool {
	for _, t := range s.TriedSources {
		if t == source {
			return true
		}
	}
	return false
}
