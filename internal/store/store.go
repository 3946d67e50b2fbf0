// Package store persists scans, brokers, and exposure records behind a
// driver-agnostic interface with SQLite and PostgreSQL implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/unlist-labs/brokerscan/internal/config"
	"github.com/unlist-labs/brokerscan/internal/model"
)

// ScanFilter specifies criteria for listing scans.
type ScanFilter struct {
	Status model.ScanStatus `json:"status,omitempty"`
	UserID string           `json:"user_id,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the scan workflow.
type Store interface {
	// Scans
	CreateScan(ctx context.Context, userID string, input model.SearchInput) (*model.Scan, error)
	UpdateScan(ctx context.Context, scan *model.Scan) error
	GetScan(ctx context.Context, scanID string) (*model.Scan, error)
	ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error)

	// Brokers
	UpsertBroker(ctx context.Context, b model.Broker) error
	GetBroker(ctx context.Context, brokerID string) (*model.Broker, error)
	ListBrokers(ctx context.Context, enabledOnly bool) ([]model.Broker, error)

	// Exposures. UpsertExposure enforces the natural key
	// (user_id, broker_id, data_type, data_value): a rescan of an unchanged
	// value refreshes last_seen_at on the existing record and reports
	// created=false. A record previously marked removed flips to reappeared.
	UpsertExposure(ctx context.Context, rec model.ExposureRecord) (*model.ExposureRecord, bool, error)
	ListExposures(ctx context.Context, userID string) ([]model.ExposureRecord, error)
	UpdateExposureStatus(ctx context.Context, exposureID string, status model.ExposureStatus) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store from config, dispatching on the driver name.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	}
	return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
}
