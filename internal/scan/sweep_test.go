package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/source"
	"github.com/unlist-labs/brokerscan/internal/store"
)

func newTestSweeper(t *testing.T, exts ...*fakeExtractor) (*Sweeper, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	reg := source.NewRegistry()
	for _, e := range exts {
		reg.Register(e)
	}
	return NewSweeper(st, reg, 2), st
}

func seedBroker(t *testing.T, st store.Store, id, kind string, enabled bool) model.Broker {
	t.Helper()
	b := model.Broker{
		ID:         id,
		Name:       id,
		SiteURL:    "https://" + id + ".example",
		SourceKind: kind,
		Enabled:    enabled,
	}
	require.NoError(t, st.UpsertBroker(context.Background(), b))
	return b
}

func brokerResult(t *testing.T, rep *SweepReport, brokerID string) BrokerResult {
	t.Helper()
	for _, r := range rep.Brokers {
		if r.BrokerID == brokerID {
			return r
		}
	}
	t.Fatalf("no result for broker %s", brokerID)
	return BrokerResult{}
}

func TestSweepRecordsExposures(t *testing.T) {
	tps := &fakeExtractor{
		kind:    source.KindTruePeopleSearch,
		matches: []model.ProfileMatch{fakeMatch("truepeoplesearch", "px1", "Jane A Doe")},
		profile: &model.PersonProfile{
			Name:      "Jane A Doe",
			Phones:    []model.Phone{{Number: "(312) 555-0141"}},
			Emails:    []string{"jane.doe@example.com"},
			Source:    "truepeoplesearch",
			SourceURL: "https://truepeoplesearch.example/find/person/px1",
		},
	}
	rad := &fakeExtractor{kind: source.KindRadaris, searchErr: errors.New("blocked")}
	s, st := newTestSweeper(t, tps, rad)

	seedBroker(t, st, "truepeoplesearch", "truepeoplesearch", true)
	seedBroker(t, st, "radaris", "radaris", true)

	rep, err := s.Run(context.Background(), "user-1", janeInput)
	require.NoError(t, err)
	require.Len(t, rep.Brokers, 2)

	// listing + phone + email from the one broker that answered.
	good := brokerResult(t, rep, "truepeoplesearch")
	assert.Equal(t, 3, good.Found)
	assert.Equal(t, 3, good.New)
	assert.Equal(t, "https://truepeoplesearch.example/find/person/px1", good.SourceURL)

	bad := brokerResult(t, rep, "radaris")
	assert.Contains(t, bad.Error, "blocked")
	assert.Zero(t, bad.Found)

	assert.Equal(t, 3, rep.Found)
	assert.Equal(t, 3, rep.New)

	exps, err := st.ListExposures(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, exps, 3)

	// A rescan of unchanged data finds everything but creates nothing.
	rep, err = s.Run(context.Background(), "user-1", janeInput)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Found)
	assert.Equal(t, 0, rep.New)

	exps, err = st.ListExposures(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, exps, 3)
}

func TestSweepSkipsDisabledBrokers(t *testing.T) {
	tps := &fakeExtractor{kind: source.KindTruePeopleSearch}
	s, st := newTestSweeper(t, tps)

	seedBroker(t, st, "truepeoplesearch", "truepeoplesearch", false)

	rep, err := s.Run(context.Background(), "user-1", janeInput)
	require.NoError(t, err)
	assert.Empty(t, rep.Brokers)
	assert.Equal(t, int32(0), tps.searchCalls.Load())
}

func TestSweepNoConfidentMatch(t *testing.T) {
	tps := &fakeExtractor{
		kind:    source.KindTruePeopleSearch,
		matches: []model.ProfileMatch{fakeMatch("truepeoplesearch", "px2", "Robert Smith")},
	}
	s, st := newTestSweeper(t, tps)
	seedBroker(t, st, "truepeoplesearch", "truepeoplesearch", true)

	rep, err := s.Run(context.Background(), "user-1", janeInput)
	require.NoError(t, err)

	res := brokerResult(t, rep, "truepeoplesearch")
	assert.True(t, res.NoMatch)
	assert.Zero(t, res.Found)
	assert.Equal(t, int32(0), tps.detailCalls.Load(), "no detail scrape without a name match")
}

func TestSweepUnknownSourceKind(t *testing.T) {
	s, st := newTestSweeper(t)
	seedBroker(t, st, "mystery", "mysterysource", true)

	rep, err := s.Run(context.Background(), "user-1", janeInput)
	require.NoError(t, err)

	res := brokerResult(t, rep, "mystery")
	assert.NotEmpty(t, res.Error)
}

func TestBestMatch(t *testing.T) {
	matches := []model.ProfileMatch{
		fakeMatch("truepeoplesearch", "1", "Robert Smith"),
		fakeMatch("truepeoplesearch", "2", "Jane Alice Doe"),
		fakeMatch("truepeoplesearch", "3", "Jane Doe"),
	}

	m := bestMatch(janeInput, matches)
	require.NotNil(t, m)
	assert.Equal(t, "truepeoplesearch:2", m.ID, "first candidate containing both names wins")

	assert.Nil(t, bestMatch(model.SearchInput{FirstName: "Zelda", LastName: "Fitz"}, matches))

	// Last-name-only input still filters.
	m = bestMatch(model.SearchInput{LastName: "Smith"}, matches)
	require.NotNil(t, m)
	assert.Equal(t, "truepeoplesearch:1", m.ID)
}
