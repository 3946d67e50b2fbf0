package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlist-labs/brokerscan/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func seedBroker(t *testing.T, s *SQLiteStore, id string) model.Broker {
	t.Helper()
	b := model.Broker{ID: id, Name: id, SiteURL: "https://" + id + ".com", SourceKind: id, Enabled: true}
	require.NoError(t, s.UpsertBroker(context.Background(), b))
	return b
}

func TestSQLiteScanLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	input := model.SearchInput{FirstName: "Jane", LastName: "Doe", City: "Springfield", State: "IL"}
	sc, err := s.CreateScan(ctx, "user-1", input)
	require.NoError(t, err)
	require.NotEmpty(t, sc.ID)
	assert.Equal(t, model.ScanStatusScanning, sc.Status)

	sc.Status = model.ScanStatusSelectionRequired
	sc.Matches = []model.ProfileMatch{{ID: "truepeoplesearch:px1", Name: "Jane Doe", Source: "truepeoplesearch"}}
	sc.Runs = []model.ScraperRunResult{{Source: "truepeoplesearch", Success: true, Matches: 1}}
	sc.TriedSources = []string{"truepeoplesearch"}
	require.NoError(t, s.UpdateScan(ctx, sc))

	got, err := s.GetScan(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusSelectionRequired, got.Status)
	assert.Equal(t, input, got.Input)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, "truepeoplesearch:px1", got.Matches[0].ID)
	require.Len(t, got.Runs, 1)
	assert.True(t, got.Runs[0].Success)
	assert.Equal(t, []string{"truepeoplesearch"}, got.TriedSources)
	assert.Nil(t, got.Profile)

	sc.Status = model.ScanStatusCompleted
	sc.Profile = &model.QuickScanProfileData{FullName: "Jane Doe", Sources: []string{"truepeoplesearch"}}
	require.NoError(t, s.UpdateScan(ctx, sc))

	got, err = s.GetScan(ctx, sc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "Jane Doe", got.Profile.FullName)
}

func TestSQLiteGetScanNotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetScan(context.Background(), "missing")
	require.Error(t, err)
}

func TestSQLiteUpdateScanNotFound(t *testing.T) {
	s := newTestSQLite(t)
	err := s.UpdateScan(context.Background(), &model.Scan{ID: "missing", Status: model.ScanStatusCompleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteListScansFilter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	a, err := s.CreateScan(ctx, "user-1", model.SearchInput{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	_, err = s.CreateScan(ctx, "user-2", model.SearchInput{FirstName: "John", LastName: "Roe"})
	require.NoError(t, err)

	a.Status = model.ScanStatusNoMatches
	require.NoError(t, s.UpdateScan(ctx, a))

	scans, err := s.ListScans(ctx, ScanFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, a.ID, scans[0].ID)

	scans, err = s.ListScans(ctx, ScanFilter{Status: model.ScanStatusScanning})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "user-2", scans[0].UserID)
}

func TestSQLiteBrokers(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	seedBroker(t, s, "truepeoplesearch")
	b2 := seedBroker(t, s, "radaris")

	// Re-seed with changed fields updates in place.
	b2.Enabled = false
	b2.OptOutURL = "https://radaris.com/control/privacy"
	require.NoError(t, s.UpsertBroker(ctx, b2))

	all, err := s.ListBrokers(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	enabled, err := s.ListBrokers(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "truepeoplesearch", enabled[0].ID)

	got, err := s.GetBroker(ctx, "radaris")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, "https://radaris.com/control/privacy", got.OptOutURL)
}

func TestSQLiteUpsertExposureIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedBroker(t, s, "truepeoplesearch")

	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rec := model.ExposureRecord{
		UserID:       "user-1",
		BrokerID:     "truepeoplesearch",
		DataType:     model.DataTypePhone,
		DataValue:    "3125550141",
		SourceURL:    "https://example.com/find/person/px1",
		Status:       model.ExposureStatusFound,
		FirstFoundAt: t0,
		LastSeenAt:   t0,
	}

	first, created, err := s.UpsertExposure(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)

	// Rescan a week later: same natural key, no new record.
	t1 := t0.Add(7 * 24 * time.Hour)
	rec.FirstFoundAt = t1
	rec.LastSeenAt = t1
	second, created, err := s.UpsertExposure(ctx, rec)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, t0, second.FirstFoundAt.UTC(), "first_found_at never moves")
	assert.Equal(t, t1, second.LastSeenAt.UTC())

	all, err := s.ListExposures(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSQLiteRemovedExposureReappears(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedBroker(t, s, "radaris")

	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rec := model.ExposureRecord{
		UserID:       "user-1",
		BrokerID:     "radaris",
		DataType:     model.DataTypeEmail,
		DataValue:    "jane.doe@example.com",
		Status:       model.ExposureStatusFound,
		FirstFoundAt: t0,
		LastSeenAt:   t0,
	}
	first, _, err := s.UpsertExposure(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, s.UpdateExposureStatus(ctx, first.ID, model.ExposureStatusRemoved))

	// The value shows up again on a later sweep.
	rec.LastSeenAt = t0.Add(30 * 24 * time.Hour)
	again, created, err := s.UpsertExposure(ctx, rec)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.ExposureStatusReappeared, again.Status)
}

func TestSQLiteUpdateExposureStatusNotFound(t *testing.T) {
	s := newTestSQLite(t)
	err := s.UpdateExposureStatus(context.Background(), "missing", model.ExposureStatusRemoved)
	require.Error(t, err)
}
