package model

import "time"

// ProfileMatch is a lightweight candidate produced by a source search,
// shown to the user for disambiguation. Many matches per search.
type ProfileMatch struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Age       int    `json:"age,omitempty"`
	Location  string `json:"location,omitempty"`
	PhoneHint string `json:"phone_hint,omitempty"` // masked snippet, e.g. "(312) ***-**41"
	DetailURL string `json:"detail_url,omitempty"`
	Source    string `json:"source"`

	// Profile is populated by sources whose listings already carry the
	// full record, letting the detail step skip a second fetch.
	Profile *PersonProfile `json:"profile,omitempty"`
}

// Phone is a single phone listing.
type Phone struct {
	Number  string `json:"number"` // display format, e.g. "(312) 555-0141"
	Type    string `json:"type,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// Address is a single address listing. Street/City/State/Zip are filled
// when the raw string matched a known pattern; otherwise only Raw is set.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Raw     string `json:"raw,omitempty"`
	Current bool   `json:"current,omitempty"`
}

// Relative is a listed relative or associate, with optional age.
type Relative struct {
	Name string `json:"name"`
	Age  int    `json:"age,omitempty"`
}

// Alias is an "also known as" entry as extracted from a source.
type Alias struct {
	Name string `json:"name"`
}

// Job is an employment entry.
type Job struct {
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
	Dates   string `json:"dates,omitempty"`
	Current bool   `json:"current,omitempty"`
}

// Education is a schooling entry.
type Education struct {
	Degree string `json:"degree,omitempty"`
	Field  string `json:"field,omitempty"`
	School string `json:"school,omitempty"`
	Dates  string `json:"dates,omitempty"`
}

// PersonProfile is the full raw extraction from one source's detail page.
// Shapes follow the source markup; the normalizer converts it to the
// canonical QuickScanProfileData.
type PersonProfile struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Age               int         `json:"age,omitempty"`
	Phones            []Phone     `json:"phones,omitempty"`
	Emails            []string    `json:"emails,omitempty"`
	Addresses         []Address   `json:"addresses,omitempty"`
	Relatives         []Relative  `json:"relatives,omitempty"`
	Aliases           []Alias     `json:"aliases,omitempty"`
	Jobs              []Job       `json:"jobs,omitempty"`
	Education         []Education `json:"education,omitempty"`
	LegalRecords      []string    `json:"legal_records,omitempty"`
	BackgroundRecords []string    `json:"background_records,omitempty"`
	Assets            []string    `json:"assets,omitempty"`
	Source            string      `json:"source"`
	SourceURL         string      `json:"source_url,omitempty"`
}

// QuickScanProfileData is the canonical normalized schema persisted against
// a scan: aliases as plain strings, addresses fully split, plus scrape
// provenance.
type QuickScanProfileData struct {
	FirstName         string      `json:"first_name,omitempty"`
	MiddleName        string      `json:"middle_name,omitempty"`
	LastName          string      `json:"last_name,omitempty"`
	FullName          string      `json:"full_name"`
	Age               int         `json:"age,omitempty"`
	Phones            []Phone     `json:"phones,omitempty"`
	Emails            []string    `json:"emails,omitempty"`
	Addresses         []Address   `json:"addresses,omitempty"`
	Relatives         []Relative  `json:"relatives,omitempty"`
	Aliases           []string    `json:"aliases,omitempty"`
	Jobs              []Job       `json:"jobs,omitempty"`
	Education         []Education `json:"education,omitempty"`
	LegalRecords      []string    `json:"legal_records,omitempty"`
	BackgroundRecords []string    `json:"background_records,omitempty"`
	Assets            []string    `json:"assets,omitempty"`
	ScrapedAt         time.Time   `json:"scraped_at"`
	Sources           []string    `json:"sources"`
}

// ScraperRunResult records the per-source outcome of one orchestrated
// search, for the audit trail.
type ScraperRunResult struct {
	Source  string `json:"source"`
	Success bool   `json:"success"`
	Matches int    `json:"matches"`
	Error   string `json:"error,omitempty"`
}
