package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/unlist-labs/brokerscan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scans (
	id            TEXT PRIMARY KEY,
	user_id       TEXT,
	input         TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'scanning',
	matches       TEXT,
	runs          TEXT,
	tried_sources TEXT,
	profile       TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS brokers (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	site_url    TEXT,
	opt_out_url TEXT,
	source_kind TEXT NOT NULL,
	enabled     INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS exposures (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	broker_id      TEXT NOT NULL REFERENCES brokers(id),
	data_type      TEXT NOT NULL,
	data_value     TEXT NOT NULL,
	source_url     TEXT,
	status         TEXT NOT NULL DEFAULT 'found',
	first_found_at DATETIME NOT NULL,
	last_seen_at   DATETIME NOT NULL,
	UNIQUE (user_id, broker_id, data_type, data_value)
);

CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
CREATE INDEX IF NOT EXISTS idx_scans_user_id ON scans(user_id);
CREATE INDEX IF NOT EXISTS idx_exposures_user_id ON exposures(user_id);
CREATE INDEX IF NOT EXISTS idx_exposures_status ON exposures(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateScan(ctx context.Context, userID string, input model.SearchInput) (*model.Scan, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal input")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scans (id, user_id, input, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, string(inputJSON), string(model.ScanStatusScanning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert scan")
	}

	return &model.Scan{
		ID:        id,
		UserID:    userID,
		Input:     input,
		Status:    model.ScanStatusScanning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateScan(ctx context.Context, scan *model.Scan) error {
	cols, err := marshalScan(scan)
	if err != nil {
		return err
	}
	scan.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, matches = ?, runs = ?, tried_sources = ?, profile = ?, updated_at = ? WHERE id = ?`,
		string(scan.Status), cols.matches, cols.runs, cols.tried, cols.profile, scan.UpdatedAt, scan.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update scan %s", scan.ID)
	}
	return checkRowsAffected(res, "scan", scan.ID)
}

func (s *SQLiteStore) GetScan(ctx context.Context, scanID string) (*model.Scan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, input, status, matches, runs, tried_sources, profile, created_at, updated_at
		 FROM scans WHERE id = ?`,
		scanID,
	)
	return scanScan(row)
}

func (s *SQLiteStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error) {
	query := `SELECT id, user_id, input, status, matches, runs, tried_sources, profile, created_at, updated_at
	          FROM scans WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scans")
	}
	defer rows.Close()

	var scans []model.Scan
	for rows.Next() {
		sc, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, *sc)
	}
	return scans, eris.Wrap(rows.Err(), "sqlite: list scans iterate")
}

func (s *SQLiteStore) UpsertBroker(ctx context.Context, b model.Broker) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO brokers (id, name, site_url, opt_out_url, source_kind, enabled) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, site_url = excluded.site_url,
		   opt_out_url = excluded.opt_out_url, source_kind = excluded.source_kind,
		   enabled = excluded.enabled`,
		b.ID, b.Name, b.SiteURL, b.OptOutURL, b.SourceKind, boolToInt(b.Enabled),
	)
	return eris.Wrapf(err, "sqlite: upsert broker %s", b.ID)
}

func (s *SQLiteStore) GetBroker(ctx context.Context, brokerID string) (*model.Broker, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, site_url, opt_out_url, source_kind, enabled FROM brokers WHERE id = ?`,
		brokerID,
	)

	var b model.Broker
	var enabled int
	err := row.Scan(&b.ID, &b.Name, &b.SiteURL, &b.OptOutURL, &b.SourceKind, &enabled)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("broker not found: %s", brokerID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get broker")
	}
	b.Enabled = enabled != 0
	return &b, nil
}

func (s *SQLiteStore) ListBrokers(ctx context.Context, enabledOnly bool) ([]model.Broker, error) {
	query := `SELECT id, name, site_url, opt_out_url, source_kind, enabled FROM brokers`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list brokers")
	}
	defer rows.Close()

	var brokers []model.Broker
	for rows.Next() {
		var b model.Broker
		var enabled int
		if err := rows.Scan(&b.ID, &b.Name, &b.SiteURL, &b.OptOutURL, &b.SourceKind, &enabled); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan broker")
		}
		b.Enabled = enabled != 0
		brokers = append(brokers, b)
	}
	return brokers, eris.Wrap(rows.Err(), "sqlite: list brokers iterate")
}

func (s *SQLiteStore) UpsertExposure(ctx context.Context, rec model.ExposureRecord) (*model.ExposureRecord, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO exposures (id, user_id, broker_id, data_type, data_value, source_url, status, first_found_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, broker_id, data_type, data_value) DO UPDATE SET
		   last_seen_at = excluded.last_seen_at,
		   source_url   = excluded.source_url,
		   status       = CASE WHEN exposures.status = 'removed' THEN 'reappeared' ELSE exposures.status END
		 RETURNING id, status, first_found_at, last_seen_at`,
		rec.ID, rec.UserID, rec.BrokerID, string(rec.DataType), rec.DataValue,
		rec.SourceURL, string(rec.Status), rec.FirstFoundAt, rec.LastSeenAt,
	)

	stored := rec
	if err := row.Scan(&stored.ID, &stored.Status, &stored.FirstFoundAt, &stored.LastSeenAt); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: upsert exposure")
	}
	// On conflict the existing row's id comes back instead of the new one.
	created := stored.ID == rec.ID
	return &stored, created, nil
}

func (s *SQLiteStore) ListExposures(ctx context.Context, userID string) ([]model.ExposureRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, broker_id, data_type, data_value, source_url, status, first_found_at, last_seen_at
		 FROM exposures WHERE user_id = ? ORDER BY broker_id, data_type, data_value`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list exposures")
	}
	defer rows.Close()

	var records []model.ExposureRecord
	for rows.Next() {
		var r model.ExposureRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.BrokerID, &r.DataType, &r.DataValue,
			&r.SourceURL, &r.Status, &r.FirstFoundAt, &r.LastSeenAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan exposure")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list exposures iterate")
}

func (s *SQLiteStore) UpdateExposureStatus(ctx context.Context, exposureID string, status model.ExposureStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exposures SET status = ? WHERE id = ?`,
		string(status), exposureID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update exposure status %s", exposureID)
	}
	return checkRowsAffected(res, "exposure", exposureID)
}

// helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// scanColumns holds the JSON-encoded nullable scan fields.
type scanColumns struct {
	matches, runs, tried, profile sql.NullString
}

func marshalScan(scan *model.Scan) (scanColumns, error) {
	var cols scanColumns
	set := func(dst *sql.NullString, v any, empty bool) error {
		if empty {
			return nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal scan field")
		}
		*dst = sql.NullString{String: string(b), Valid: true}
		return nil
	}
	if err := set(&cols.matches, scan.Matches, len(scan.Matches) == 0); err != nil {
		return cols, err
	}
	if err := set(&cols.runs, scan.Runs, len(scan.Runs) == 0); err != nil {
		return cols, err
	}
	if err := set(&cols.tried, scan.TriedSources, len(scan.TriedSources) == 0); err != nil {
		return cols, err
	}
	if err := set(&cols.profile, scan.Profile, scan.Profile == nil); err != nil {
		return cols, err
	}
	return cols, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanScan(row scannable) (*model.Scan, error) {
	var sc model.Scan
	var userID sql.NullString
	var inputJSON string
	var cols scanColumns

	err := row.Scan(&sc.ID, &userID, &inputJSON, &sc.Status,
		&cols.matches, &cols.runs, &cols.tried, &cols.profile,
		&sc.CreatedAt, &sc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("scan not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan row")
	}
	sc.UserID = userID.String

	if err := json.Unmarshal([]byte(inputJSON), &sc.Input); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal input")
	}
	if err := unmarshalScanColumns(&sc, cols); err != nil {
		return nil, err
	}
	return &sc, nil
}

func unmarshalScanColumns(sc *model.Scan, cols scanColumns) error {
	decode := func(src sql.NullString, dst any) error {
		if !src.Valid || src.String == "" {
			return nil
		}
		return eris.Wrap(json.Unmarshal([]byte(src.String), dst), "sqlite: unmarshal scan field")
	}
	if err := decode(cols.matches, &sc.Matches); err != nil {
		return err
	}
	if err := decode(cols.runs, &sc.Runs); err != nil {
		return err
	}
	if err := decode(cols.tried, &sc.TriedSources); err != nil {
		return err
	}
	if cols.profile.Valid && cols.profile.String != "" {
		sc.Profile = &model.QuickScanProfileData{}
		if err := json.Unmarshal([]byte(cols.profile.String), sc.Profile); err != nil {
			return eris.Wrap(err, "sqlite: unmarshal profile")
		}
	}
	return nil
}
