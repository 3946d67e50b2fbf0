package model

import "time"

// DataType classifies what kind of personal data an exposure tracks.
type DataType string

const (
	DataTypeProfileListing DataType = "profile_listing"
	DataTypePhone          DataType = "phone"
	DataTypeEmail          DataType = "email"
	DataTypeAddress        DataType = "address"
)

// ExposureStatus is the lifecycle state of a tracked exposure.
type ExposureStatus string

const (
	ExposureStatusFound      ExposureStatus = "found"
	ExposureStatusInProgress ExposureStatus = "in_progress"
	ExposureStatusRemoved    ExposureStatus = "removed"
	ExposureStatusReappeared ExposureStatus = "reappeared"
)

// ExposureRecord is one discrete tracked instance of a personal data item
// found at a broker. The persistence boundary enforces the natural key
// (user_id, broker_id, data_type, data_value), so rescans of an unchanged
// value update the existing record instead of creating a new one.
type ExposureRecord struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	BrokerID     string         `json:"broker_id"`
	DataType     DataType       `json:"data_type"`
	DataValue    string         `json:"data_value"` // normalized: digits-only phones, lowercase emails
	SourceURL    string         `json:"source_url,omitempty"`
	Status       ExposureStatus `json:"status"`
	FirstFoundAt time.Time      `json:"first_found_at"`
	LastSeenAt   time.Time      `json:"last_seen_at"`
}

// Broker maps a broker identity to the source extractor that scrapes it.
type Broker struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	SiteURL    string `json:"site_url,omitempty" yaml:"site_url"`
	OptOutURL  string `json:"opt_out_url,omitempty" yaml:"opt_out_url"`
	SourceKind string `json:"source_kind" yaml:"source_kind"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
}
