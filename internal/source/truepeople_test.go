package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlist-labs/brokerscan/internal/model"
)

const tpsResultsPage = `<html><body>
<div class="card-summary">
  <div class="h4">Jane A Doe</div>
  <span>Age 47</span>
  <span>Lives in Springfield, IL</span>
  <a href="/find/person/px1234">View Details</a>
</div>
<div class="card-summary">
  <div class="h4">Sponsored Result</div>
  <a href="/find/person/adver">Check Background</a>
</div>
<div class="card-summary">
  <div class="h4">Janet Doe</div>
  <span>Age 51</span>
</div>
</body></html>`

const tpsDetailPage = `<html><body>
<h1>Jane A Doe</h1>
<p>Age 47 years old</p>
<h2>Phone Numbers</h2>
<ul>
  <li>(312) 555-0141</li>
  <li>312.555.0141</li>
  <li>(217) 555-0199</li>
</ul>
<h2>Email Addresses</h2>
<ul><li>Jane.Doe@example.com</li></ul>
<h2>Current Address</h2>
<ul><li>450 Oak Ave, Springfield, IL 62704</li></ul>
<h2>Previous Addresses</h2>
<ul><li>12 Elm St, Peoria, IL 61602</li></ul>
<h2>Also Known As</h2>
<ul><li>Janie Doe, Jane Smith</li></ul>
<h2>Possible Relatives</h2>
<ul><li>John Doe, 72</li><li>Mary Doe (44)</li></ul>
</body></html>`

func TestTruePeopleSearchSearch(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"/results": tpsResultsPage}}
	tps := NewTruePeopleSearch(f)

	matches, err := tps.Search(context.Background(), model.SearchInput{
		FirstName: "Jane", LastName: "Doe", City: "Springfield", State: "IL",
	})
	require.NoError(t, err)

	// The sponsored row and the card without a detail link are dropped.
	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, "truepeoplesearch:px1234", m.ID)
	assert.Equal(t, "Jane A Doe", m.Name)
	assert.Equal(t, 47, m.Age)
	assert.Equal(t, "Springfield, IL", m.Location)
	assert.Equal(t, "https://www.truepeoplesearch.com/find/person/px1234", m.DetailURL)
	assert.Nil(t, m.Profile)

	require.Len(t, f.urls, 1)
	assert.Contains(t, f.urls[0], "name=Jane+Doe")
	assert.Contains(t, f.urls[0], "citystatezip=Springfield%2C+IL")
}

func TestTruePeopleSearchSearchFetchError(t *testing.T) {
	f := &stubFetcher{err: errors.New("all attempts failed")}
	tps := NewTruePeopleSearch(f)

	_, err := tps.Search(context.Background(), model.SearchInput{FirstName: "Jane", LastName: "Doe"})
	require.Error(t, err)
}

func TestTruePeopleSearchScrapeDetail(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"/find/person/px1234": tpsDetailPage}}
	tps := NewTruePeopleSearch(f)

	p, err := tps.ScrapeDetail(context.Background(), "https://www.truepeoplesearch.com/find/person/px1234", nil)
	require.NoError(t, err)

	assert.Equal(t, "Jane A Doe", p.Name)
	assert.Equal(t, 47, p.Age)
	assert.Equal(t, string(KindTruePeopleSearch), p.Source)

	// Duplicate rendering of the same number collapses; first is primary.
	require.Len(t, p.Phones, 2)
	assert.Equal(t, "(312) 555-0141", p.Phones[0].Number)
	assert.True(t, p.Phones[0].Primary)
	assert.False(t, p.Phones[1].Primary)

	assert.Equal(t, []string{"jane.doe@example.com"}, p.Emails)

	require.Len(t, p.Addresses, 2)
	assert.True(t, p.Addresses[0].Current)
	assert.Equal(t, "Springfield", p.Addresses[0].City)
	assert.Equal(t, "62704", p.Addresses[0].Zip)
	assert.False(t, p.Addresses[1].Current)
	assert.Equal(t, "Peoria", p.Addresses[1].City)

	assert.Equal(t, []model.Alias{{Name: "Janie Doe"}, {Name: "Jane Smith"}}, p.Aliases)

	require.Len(t, p.Relatives, 2)
	assert.Equal(t, model.Relative{Name: "John Doe", Age: 72}, p.Relatives[0])
	assert.Equal(t, model.Relative{Name: "Mary Doe", Age: 44}, p.Relatives[1])
}

func TestTruePeopleSearchScrapeDetailEmptyPage(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"/find/person/": `<html><body><p>No record</p></body></html>`}}
	tps := NewTruePeopleSearch(f)

	_, err := tps.ScrapeDetail(context.Background(), "https://www.truepeoplesearch.com/find/person/gone", nil)
	require.Error(t, err)
}

func TestTruePeopleSearchDetailHintBackfill(t *testing.T) {
	page := `<html><body><h1>Jane Doe</h1><h2>Phone Numbers</h2><ul><li>(312) 555-0141</li></ul></body></html>`
	f := &stubFetcher{pages: map[string]string{"/find/person/": page}}
	tps := NewTruePeopleSearch(f)

	hint := &model.ProfileMatch{Name: "Jane Doe", Age: 47}
	p, err := tps.ScrapeDetail(context.Background(), "https://www.truepeoplesearch.com/find/person/px1", hint)
	require.NoError(t, err)
	assert.Equal(t, 47, p.Age)
}
