package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlist-labs/brokerscan/internal/model"
)

const radarisResultsPage = `<html><body>
<div class="result">
  <h3>Jane A Doe</h3>
  <span>Age 47</span>
  <a href="/p/jane-a-doe/123">Full Profile</a>
  <h4>Addresses</h4>
  <ul><li>450 Oak Ave, Springfield, IL 62704</li><li>12 Elm St, Peoria, IL 61602</li></ul>
  <h4>Phone Numbers</h4>
  <ul><li>(312) 555-0141</li></ul>
  <h4>Email Addresses</h4>
  <ul><li>jane.doe@example.com</li></ul>
  <h4>Also Known As</h4>
  <ul><li>Janie Doe</li></ul>
  <h4>Relatives</h4>
  <ul><li>John Doe, 72</li></ul>
  <h4>Work History</h4>
  <ul><li>Engineer at Acme Corp (2015 - Present)</li></ul>
  <h4>Education</h4>
  <ul><li>BS, Computer Science from State University (2001)</li></ul>
  <h4>Court Records</h4>
  <ul><li>Traffic citation, Sangamon County 2019</li></ul>
  <h4>Property Records</h4>
  <ul><li>Single family home, Springfield IL</li></ul>
</div>
</body></html>`

func TestRadarisSearchEmbedsProfile(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"/ng/search": radarisResultsPage}}
	r := NewRadaris(f)

	matches, err := r.Search(context.Background(), model.SearchInput{
		FirstName: "Jane", LastName: "Doe", City: "Springfield", State: "IL",
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "radaris:123", m.ID)
	assert.Equal(t, "Jane A Doe", m.Name)
	assert.Equal(t, 47, m.Age)
	assert.Equal(t, "Springfield, IL", m.Location)

	// The listing carries the whole record, so the match ships with a full
	// profile attached.
	require.NotNil(t, m.Profile)
	p := m.Profile
	require.Len(t, p.Addresses, 2)
	assert.True(t, p.Addresses[0].Current)
	require.Len(t, p.Phones, 1)
	assert.Equal(t, "(312) 555-0141", p.Phones[0].Number)
	assert.Equal(t, []string{"jane.doe@example.com"}, p.Emails)
	assert.Equal(t, []model.Alias{{Name: "Janie Doe"}}, p.Aliases)

	require.Len(t, p.Jobs, 1)
	assert.Equal(t, "Engineer", p.Jobs[0].Title)
	assert.Equal(t, "Acme Corp", p.Jobs[0].Company)
	assert.True(t, p.Jobs[0].Current)

	require.Len(t, p.Education, 1)
	assert.Equal(t, "BS", p.Education[0].Degree)
	assert.Equal(t, "Computer Science", p.Education[0].Field)
	assert.Equal(t, "State University", p.Education[0].School)

	assert.Equal(t, []string{"Traffic citation, Sangamon County 2019"}, p.BackgroundRecords)
	assert.Equal(t, []string{"Single family home, Springfield IL"}, p.Assets)
}

func TestRadarisScrapeDetailUsesEmbeddedProfile(t *testing.T) {
	// Fetcher errors on any call: the embedded profile must satisfy the
	// detail step without touching the network.
	f := &stubFetcher{err: errors.New("network down")}
	r := NewRadaris(f)

	embedded := &model.PersonProfile{Name: "Jane A Doe", Source: string(KindRadaris)}
	hint := &model.ProfileMatch{ID: "radaris:123", Name: "Jane A Doe", Profile: embedded}

	p, err := r.ScrapeDetail(context.Background(), "https://radaris.com/p/jane-a-doe/123", hint)
	require.NoError(t, err)
	assert.Same(t, embedded, p)
	assert.Empty(t, f.urls)
}

const radarisDetailPage = `<html><body>
<h1>Jane A Doe</h1>
<span>Age 47</span>
<h4>Phone Numbers</h4>
<ul><li>(312) 555-0141</li></ul>
<h4>Addresses</h4>
<ul><li>450 Oak Ave, Springfield, IL 62704</li></ul>
</body></html>`

func TestRadarisScrapeDetailFetchesWithoutHint(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"/p/jane-a-doe/123": radarisDetailPage}}
	r := NewRadaris(f)

	p, err := r.ScrapeDetail(context.Background(), "https://radaris.com/p/jane-a-doe/123", nil)
	require.NoError(t, err)
	assert.Equal(t, "Jane A Doe", p.Name)
	assert.Equal(t, 47, p.Age)
	require.Len(t, f.urls, 1)
}
