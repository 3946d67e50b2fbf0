package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlist-labs/brokerscan/internal/model"
)

const fpsResultsPage = `<html><body>
<div class="people-list">
  <div class="card">
    <h2>Jane A Doe</h2>
    <span>Age 47</span>
    <div class="address">Springfield, IL</div>
    <a href="/person/jane-a-doe_id_9001">View Free Details</a>
  </div>
  <div class="card">
    <h2>Jane B Doe</h2>
    <span>Age 62</span>
    <div class="address">Chicago, IL</div>
    <a href="/person/jane-b-doe_id_9002">View Free Details</a>
  </div>
</div>
</body></html>`

const fpsDetailPage = `<html><body>
<h1>Jane A Doe</h1>
<span>Age 47</span>
<h3>Phone Numbers</h3>
<ul>
  <li>(312) 555-0141 - Wireless</li>
  <li>(217) 555-0199 - Landline</li>
  <li>(312) 555-0141 - Wireless</li>
</ul>
<h3>Current Home Address</h3>
<ul><li>450 Oak Ave, Springfield, IL 62704</li></ul>
<h3>Past Addresses</h3>
<ul><li>12 Elm St, Peoria, IL 61602</li></ul>
<h3>AKA</h3>
<ul><li>Janie Doe</li></ul>
<h3>Relatives</h3>
<ul><li>John Doe, 72</li></ul>
</body></html>`

func TestFastPeopleSearchSlugURL(t *testing.T) {
	fp := NewFastPeopleSearch(&stubFetcher{})

	u := fp.searchURL(model.SearchInput{FirstName: "Jane", LastName: "Doe", City: "Springfield", State: "Illinois"})
	assert.Equal(t, "https://www.fastpeoplesearch.com/name/jane-doe_springfield-il", u)

	u = fp.searchURL(model.SearchInput{FirstName: "Jane", LastName: "O'Brien", State: "IL"})
	assert.Equal(t, "https://www.fastpeoplesearch.com/name/jane-o-brien_il", u)
}

func TestFastPeopleSearchSearch(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"/name/jane-doe": fpsResultsPage}}
	fp := NewFastPeopleSearch(f)

	matches, err := fp.Search(context.Background(), model.SearchInput{
		FirstName: "Jane", LastName: "Doe", City: "Springfield", State: "IL",
	})
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "Jane A Doe", matches[0].Name)
	assert.Equal(t, "Springfield, IL", matches[0].Location)
	assert.Equal(t, "fastpeoplesearch:jane-a-doe_id_9001", matches[0].ID)
	assert.Equal(t, "Jane B Doe", matches[1].Name)
	assert.Equal(t, 62, matches[1].Age)
}

func TestFastPeopleSearchScrapeDetail(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"/person/jane-a-doe": fpsDetailPage}}
	fp := NewFastPeopleSearch(f)

	p, err := fp.ScrapeDetail(context.Background(), "https://www.fastpeoplesearch.com/person/jane-a-doe_id_9001", nil)
	require.NoError(t, err)

	assert.Equal(t, "Jane A Doe", p.Name)

	// The type suffix is stripped into Phone.Type and the duplicate row
	// collapses.
	require.Len(t, p.Phones, 2)
	assert.Equal(t, "(312) 555-0141", p.Phones[0].Number)
	assert.Equal(t, "wireless", p.Phones[0].Type)
	assert.True(t, p.Phones[0].Primary)
	assert.Equal(t, "landline", p.Phones[1].Type)
	assert.False(t, p.Phones[1].Primary)

	require.Len(t, p.Addresses, 2)
	assert.True(t, p.Addresses[0].Current)
	assert.Equal(t, "450 Oak Ave", p.Addresses[0].Street)

	assert.Equal(t, []model.Alias{{Name: "Janie Doe"}}, p.Aliases)
	require.Len(t, p.Relatives, 1)
	assert.Equal(t, "John Doe", p.Relatives[0].Name)
}
