package orchestrate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/source"
)

// fakeExtractor is a scripted source: fixed matches or a fixed error, with
// a call counter.
type fakeExtractor struct {
	kind    source.Kind
	types   []model.SearchType
	matches []model.ProfileMatch
	err     error
	panics  bool
	calls   atomic.Int32
}

func (f *fakeExtractor) Kind() source.Kind              { return f.kind }
func (f *fakeExtractor) SearchTypes() []model.SearchType { return f.types }

func (f *fakeExtractor) Search(context.Context, model.SearchInput) ([]model.ProfileMatch, error) {
	f.calls.Add(1)
	if f.panics {
		panic("boom")
	}
	return f.matches, f.err
}

func (f *fakeExtractor) ScrapeDetail(context.Context, string, *model.ProfileMatch) (*model.PersonProfile, error) {
	return nil, errors.New("not scripted")
}

func nameFake(kind source.Kind, matches []model.ProfileMatch, err error) *fakeExtractor {
	return &fakeExtractor{kind: kind, types: []model.SearchType{model.SearchByName}, matches: matches, err: err}
}

func testRegistry(exts ...*fakeExtractor) *source.Registry {
	r := source.NewRegistry()
	for _, e := range exts {
		r.Register(e)
	}
	return r
}

func kindsOf(exts ...*fakeExtractor) []source.Kind {
	out := make([]source.Kind, len(exts))
	for i, e := range exts {
		out[i] = e.kind
	}
	return out
}

var janeInput = model.SearchInput{FirstName: "Jane", LastName: "Doe", State: "IL"}

func match(name, location, src string) model.ProfileMatch {
	return model.ProfileMatch{ID: src + ":" + name, Name: name, Location: location, Source: src}
}

func TestStopOnResultsSkipsLaterSources(t *testing.T) {
	a := nameFake(source.KindTruePeopleSearch, []model.ProfileMatch{match("Jane Doe", "Springfield, IL", "truepeoplesearch")}, nil)
	b := nameFake(source.KindFastPeopleSearch, []model.ProfileMatch{match("Jane Doe", "Springfield, IL", "fastpeoplesearch")}, nil)

	eng := New(testRegistry(a, b), ModeStopOnResults, 1)
	out, err := eng.Run(context.Background(), janeInput, kindsOf(a, b))
	require.NoError(t, err)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, "truepeoplesearch", out.Matches[0].Source)
	assert.Equal(t, []string{"truepeoplesearch"}, out.Tried)
	require.Len(t, out.Runs, 1)

	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(0), b.calls.Load(), "second source must not be queried once the first yields matches")
}

func TestStopOnResultsFallsThroughFailures(t *testing.T) {
	a := nameFake(source.KindTruePeopleSearch, nil, errors.New("all attempts failed"))
	b := nameFake(source.KindFastPeopleSearch, nil, nil) // parses fine, finds nobody
	c := nameFake(source.KindRadaris, []model.ProfileMatch{match("Jane Doe", "Springfield, IL", "radaris")}, nil)

	eng := New(testRegistry(a, b, c), ModeStopOnResults, 1)
	out, err := eng.Run(context.Background(), janeInput, kindsOf(a, b, c))
	require.NoError(t, err)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, "radaris", out.Matches[0].Source)

	require.Len(t, out.Runs, 3)
	assert.False(t, out.Runs[0].Success)
	assert.Contains(t, out.Runs[0].Error, "all attempts failed")
	assert.True(t, out.Runs[1].Success)
	assert.Equal(t, 0, out.Runs[1].Matches)
	assert.True(t, out.Runs[2].Success)
	assert.Equal(t, 1, out.Runs[2].Matches)
}

func TestAllSourcesFailYieldsEmptyOutcome(t *testing.T) {
	a := nameFake(source.KindTruePeopleSearch, nil, errors.New("blocked"))
	b := nameFake(source.KindFastPeopleSearch, nil, errors.New("blocked"))

	for _, mode := range []Mode{ModeStopOnResults, ModeExhaustive} {
		eng := New(testRegistry(a, b), mode, 2)
		out, err := eng.Run(context.Background(), janeInput, kindsOf(a, b))
		require.NoError(t, err, "source failures are outcomes, not errors")

		assert.Empty(t, out.Matches)
		require.Len(t, out.Runs, 2)
		for _, r := range out.Runs {
			assert.False(t, r.Success)
			assert.NotEmpty(t, r.Error)
		}
	}
}

func TestExhaustiveMergesAndDedupes(t *testing.T) {
	a := nameFake(source.KindTruePeopleSearch, []model.ProfileMatch{
		match("Jane Doe", "Springfield, IL", "truepeoplesearch"),
		match("Jane B Doe", "Chicago, IL", "truepeoplesearch"),
	}, nil)
	b := nameFake(source.KindFastPeopleSearch, []model.ProfileMatch{
		match("Jane Doe", "Springfield, IL", "fastpeoplesearch"), // same person, repeated
		match("Jane Doe", "Peoria, IL", "fastpeoplesearch"),
	}, nil)

	eng := New(testRegistry(a, b), ModeExhaustive, 4)
	out, err := eng.Run(context.Background(), janeInput, kindsOf(a, b))
	require.NoError(t, err)

	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())

	// Priority order is preserved and the cross-source repeat collapses to
	// the first source's listing.
	require.Len(t, out.Matches, 3)
	assert.Equal(t, "truepeoplesearch", out.Matches[0].Source)
	assert.Equal(t, "Jane Doe", out.Matches[0].Name)
	assert.Equal(t, "Jane B Doe", out.Matches[1].Name)
	assert.Equal(t, "Peoria, IL", out.Matches[2].Location)
}

func TestPanickingSourceIsIsolated(t *testing.T) {
	a := &fakeExtractor{kind: source.KindTruePeopleSearch, types: []model.SearchType{model.SearchByName}, panics: true}
	b := nameFake(source.KindFastPeopleSearch, []model.ProfileMatch{match("Jane Doe", "Springfield, IL", "fastpeoplesearch")}, nil)

	eng := New(testRegistry(a, b), ModeExhaustive, 2)
	out, err := eng.Run(context.Background(), janeInput, kindsOf(a, b))
	require.NoError(t, err)

	require.Len(t, out.Runs, 2)
	assert.False(t, out.Runs[0].Success)
	assert.Contains(t, out.Runs[0].Error, "panicked")
	require.Len(t, out.Matches, 1)
}

func TestPhoneSearchSkipsUnsupportedSources(t *testing.T) {
	a := nameFake(source.KindTruePeopleSearch, []model.ProfileMatch{match("Jane Doe", "Springfield, IL", "truepeoplesearch")}, nil)
	z := &fakeExtractor{
		kind:    source.KindZabaSearch,
		types:   []model.SearchType{model.SearchByName, model.SearchByPhone},
		matches: []model.ProfileMatch{match("Jane Doe", "Springfield, IL", "zabasearch")},
	}

	eng := New(testRegistry(a, z), ModeStopOnResults, 1)
	out, err := eng.Run(context.Background(), model.SearchInput{Phone: "312-555-0141"}, kindsOf(a, z))
	require.NoError(t, err)

	assert.Equal(t, int32(0), a.calls.Load())
	assert.Equal(t, []string{"zabasearch"}, out.Tried)
	require.Len(t, out.Matches, 1)
}

func TestRunRejectsEmptyInput(t *testing.T) {
	eng := New(testRegistry(), ModeStopOnResults, 1)
	_, err := eng.Run(context.Background(), model.SearchInput{}, nil)
	require.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("exhaustive")
	require.NoError(t, err)
	assert.Equal(t, ModeExhaustive, m)

	_, err = ParseMode("fastest")
	require.Error(t, err)
}
