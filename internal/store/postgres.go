package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/unlist-labs/brokerscan/internal/db"
	"github.com/unlist-labs/brokerscan/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_scan": `INSERT INTO scans (id, user_id, input, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_scan": `UPDATE scans SET status = $1, matches = $2, runs = $3, tried_sources = $4, profile = $5, updated_at = $6 WHERE id = $7`,
	"get_scan":    `SELECT id, user_id, input, status, matches, runs, tried_sources, profile, created_at, updated_at FROM scans WHERE id = $1`,
	"upsert_exposure": `INSERT INTO exposures (id, user_id, broker_id, data_type, data_value, source_url, status, first_found_at, last_seen_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id, broker_id, data_type, data_value) DO UPDATE SET
		   last_seen_at = EXCLUDED.last_seen_at,
		   source_url   = EXCLUDED.source_url,
		   status       = CASE WHEN exposures.status = 'removed' THEN 'reappeared' ELSE exposures.status END
		 RETURNING id, status, first_found_at, last_seen_at`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scans (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id       TEXT,
	input         JSONB NOT NULL,
	status        TEXT NOT NULL DEFAULT 'scanning',
	matches       JSONB,
	runs          JSONB,
	tried_sources JSONB,
	profile       JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS brokers (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	site_url    TEXT,
	opt_out_url TEXT,
	source_kind TEXT NOT NULL,
	enabled     BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS exposures (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id        TEXT NOT NULL,
	broker_id      TEXT NOT NULL REFERENCES brokers(id),
	data_type      TEXT NOT NULL,
	data_value     TEXT NOT NULL,
	source_url     TEXT,
	status         TEXT NOT NULL DEFAULT 'found',
	first_found_at TIMESTAMPTZ NOT NULL,
	last_seen_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, broker_id, data_type, data_value)
);

CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
CREATE INDEX IF NOT EXISTS idx_scans_user_id ON scans(user_id);
CREATE INDEX IF NOT EXISTS idx_exposures_user_id ON exposures(user_id);
CREATE INDEX IF NOT EXISTS idx_exposures_status ON exposures(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateScan(ctx context.Context, userID string, input model.SearchInput) (*model.Scan, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal input")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scans (id, user_id, input, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, inputJSON, string(model.ScanStatusScanning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert scan")
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

func (s *PostgresStore) UpdateScan(ctx context.Context, scan *model.Scan) error {
	matches, runs, tried, profile, err := marshalScanJSONB(scan)
	if err != nil {
		return err
	}
	scan.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET status = $1, matches = $2, runs = $3, tried_sources = $4, profile = $5, updated_at = $6 WHERE id = $7`,
		string(scan.Status), matches, runs, tried, profile, scan.UpdatedAt, scan.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update scan %s", scan.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan not found: %s", scan.ID)
	}
	return nil
}

func (s *PostgresStore) GetScan(ctx context.Context, scanID string) (*model.Scan, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, input, status, matches, runs, tried_sources, profile, created_at, updated_at
		 FROM scans WHERE id = $1`,
		scanID,
	)
	sc, err := scanScanPg(row)
	return sc, eris.Wrapf(err, "postgres: get scan %s", scanID)
}

func (s *PostgresStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error) {
	query := `SELECT id, user_id, input, status, matches, runs, tried_sources, profile, created_at, updated_at
	          FROM scans WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scans")
	}
	defer rows.Close()

	var scans []model.Scan
	for rows.Next() {
		sc, err := scanScanPg(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		scans = append(scans, *sc)
	}
	return scans, eris.Wrap(rows.Err(), "postgres: list scans iterate")
}

func (s *PostgresStore) UpsertBroker(ctx context.Context, b model.Broker) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO brokers (id, name, site_url, opt_out_url, source_kind, enabled) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, site_url = EXCLUDED.site_url,
		   opt_out_url = EXCLUDED.opt_out_url, source_kind = EXCLUDED.source_kind,
		   enabled = EXCLUDED.enabled`,
		b.ID, b.Name, b.SiteURL, b.OptOutURL, b.SourceKind, b.Enabled,
	)
	return eris.Wrapf(err, "postgres: upsert broker %s", b.ID)
}

func (s *PostgresStore) GetBroker(ctx context.Context, brokerID string) (*model.Broker, error) {
	var b model.Broker
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, site_url, opt_out_url, source_kind, enabled FROM brokers WHERE id = $1`,
		brokerID,
	).Scan(&b.ID, &b.Name, &b.SiteURL, &b.OptOutURL, &b.SourceKind, &b.Enabled)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get broker %s", brokerID)
	}
	return &b, nil
}

func (s *PostgresStore) ListBrokers(ctx context.Context, enabledOnly bool) ([]model.Broker, error) {
	query := `SELECT id, name, site_url, opt_out_url, source_kind, enabled FROM brokers`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list brokers")
	}
	defer rows.Close()

	var brokers []model.Broker
	for rows.Next() {
		var b model.Broker
		if err := rows.Scan(&b.ID, &b.Name, &b.SiteURL, &b.OptOutURL, &b.SourceKind, &b.Enabled); err != nil {
			return nil, eris.Wrap(err, "postgres: scan broker")
		}
		brokers = append(brokers, b)
	}
	return brokers, eris.Wrap(rows.Err(), "postgres: list brokers iterate")
}

func (s *PostgresStore) UpsertExposure(ctx context.Context, rec model.ExposureRecord) (*model.ExposureRecord, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	stored := rec
	err := s.pool.QueryRow(ctx,
		`INSERT INTO exposures (id, user_id, broker_id, data_type, data_value, source_url, status, first_found_at, last_seen_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id, broker_id, data_type, data_value) DO UPDATE SET
		   last_seen_at = EXCLUDED.last_seen_at,
		   source_url   = EXCLUDED.source_url,
		   status       = CASE WHEN exposures.status = 'removed' THEN 'reappeared' ELSE exposures.status END
		 RETURNING id, status, first_found_at, last_seen_at`,
		rec.ID, rec.UserID, rec.BrokerID, string(rec.DataType), rec.DataValue,
		rec.SourceURL, string(rec.Status), rec.FirstFoundAt, rec.LastSeenAt,
	).Scan(&stored.ID, &stored.Status, &stored.FirstFoundAt, &stored.LastSeenAt)
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: upsert exposure")
	}
	// On conflict the existing row's id comes back instead of the new one.
	created := stored.ID == rec.ID
	return &stored, created, nil
}

// BulkImportExposures loads a large exposure batch through a temp table and
// a single INSERT ... ON CONFLICT, bypassing per-record round trips. Backs
// the exposures import command when the store is PostgreSQL.
func (s *PostgresStore) BulkImportExposures(ctx context.Context, records []model.ExposureRecord) (int64, error) {
	columns := []string{"id", "user_id", "broker_id", "data_type", "data_value", "source_url", "status", "first_found_at", "last_seen_at"}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		rows = append(rows, []any{r.ID, r.UserID, r.BrokerID, string(r.DataType), r.DataValue, r.SourceURL, string(r.Status), r.FirstFoundAt, r.LastSeenAt})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "exposures",
		Columns:      columns,
		ConflictKeys: []string{"user_id", "broker_id", "data_type", "data_value"},
		UpdateCols:   []string{"source_url", "last_seen_at"},
	}, rows)
}

func (s *PostgresStore) ListExposures(ctx context.Context, userID string) ([]model.ExposureRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, broker_id, data_type, data_value, source_url, status, first_found_at, last_seen_at
		 FROM exposures WHERE user_id = $1 ORDER BY broker_id, data_type, data_value`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list exposures")
	}
	defer rows.Close()

	var records []model.ExposureRecord
	for rows.Next() {
		var r model.ExposureRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.BrokerID, &r.DataType, &r.DataValue,
			&r.SourceURL, &r.Status, &r.FirstFoundAt, &r.LastSeenAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan exposure")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list exposures iterate")
}

func (s *PostgresStore) UpdateExposureStatus(ctx context.Context, exposureID string, status model.ExposureStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE exposures SET status = $1 WHERE id = $2`,
		string(status), exposureID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update exposure status %s", exposureID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("exposure not found: %s", exposureID)
	}
	return nil
}

// helpers

func marshalScanJSONB(scan *model.Scan) (matches, runs, tried, profile []byte, err error) {
	enc := func(v any, empty bool) ([]byte, error) {
		if empty {
			return nil, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal scan field")
		}
		return b, nil
	}
	if matches, err = enc(scan.Matches, len(scan.Matches) == 0); err != nil {
		return
	}
	if runs, err = enc(scan.Runs, len(scan.Runs) == 0); err != nil {
		return
	}
	if tried, err = enc(scan.TriedSources, len(scan.TriedSources) == 0); err != nil {
		return
	}
	profile, err = enc(scan.Profile, scan.Profile == nil)
	return
}

func scanScanPg(row pgx.Row) (*model.Scan, error) {
	var sc model.Scan
	var userID *string
	var inputJSON []byte
	var matches, runs, tried, profile []byte

	err := row.Scan(&sc.ID, &userID, &inputJSON, &sc.Status,
		&matches, &runs, &tried, &profile,
		&sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID != nil {
		sc.UserID = *userID
	}

	if err := json.Unmarshal(inputJSON, &sc.Input); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal input")
	}
	decode := func(src []byte, dst any) error {
		if len(src) == 0 {
			return nil
		}
		return eris.Wrap(json.Unmarshal(src, dst), "postgres: unmarshal scan field")
	}
	if err := decode(matches, &sc.Matches); err != nil {
		return nil, err
	}
	if err := decode(runs, &sc.Runs); err != nil {
		return nil, err
	}
	if err := decode(tried, &sc.TriedSources); err != nil {
		return nil, err
	}
	if len(profile) > 0 {
		sc.Profile = &model.QuickScanProfileData{}
		if err := json.Unmarshal(profile, sc.Profile); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal profile")
		}
	}
	return &sc, nil
}
