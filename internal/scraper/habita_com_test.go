package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "estatescrapers/pkg/errors"
)

const habitaProbeJSON = `{
  "results": [],
  "numResults": 250,
  "totalPages": 250
}`

const habitaPageJSON = `{
  "results": [
    {"id": 642964, "area": "125 m²", "area3": "Kouvola", "country": "Finland", "price": 89000, "currency": "EUR", "type": "Detached house"},
    {"id": 712345, "area": "62 m²", "area3": "Berlin", "country": "Germany", "price": 950, "currency": "EUR", "type": "Apartment"}
  ],
  "numResults": 2,
  "totalPages": 1
}`

const habitaDetailHTML = `
<html><body>
<table id="general-information">
  <tr><th>Location</th><td>45700 Kuusankoski</td></tr>
</table>
<table class="details">
  <tr><th>Energy certificate class</th><td>D, 2013</td></tr>
  <tr><th>Construction year</th><td>1987</td></tr>
</table>
</body></html>`

func TestHabitaComPagination(t *testing.T) {
	a := NewHabitaCom()

	probeURL := habitaSearchURL(1, 1, "ResidenceSale")
	page, err := NewPage(probeURL, []byte(habitaProbeJSON))
	require.NoError(t, err)

	urls, err := a.List.PaginationURLs(page)
	require.NoError(t, err)
	require.Len(t, urls, 3)
	assert.Equal(t, habitaSearchURL(1, 100, "ResidenceSale"), urls[0])
	assert.Equal(t, habitaSearchURL(3, 100, "ResidenceSale"), urls[2])

	// full result pages are not paginated again
	page, err = NewPage(urls[0], []byte(habitaPageJSON))
	require.NoError(t, err)
	urls, err = a.List.PaginationURLs(page)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestHabitaComExtractJoinsCachedPayload(t *testing.T) {
	a := NewHabitaCom()

	listPage, err := NewPage(habitaSearchURL(1, 100, "ResidenceSale"), []byte(habitaPageJSON))
	require.NoError(t, err)
	urls, err := a.List.DetailURLs(listPage)
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://www.habita.com/property/en/642964",
		"https://www.habita.com/property/en/712345",
	}, urls)

	detailPage, err := NewPage(urls[0], []byte(habitaDetailHTML))
	require.NoError(t, err)
	record, err := a.Detail.Extract(detailPage)
	require.NoError(t, err)

	assert.Equal(t, "FIN", record.Location.Country)
	assert.Equal(t, "Kouvola", record.Location.City)
	assert.Equal(t, "45700", record.Location.ZipCode)
	assert.Equal(t, ListingSale, record.ListingType)
	require.NotNil(t, record.Price)
	assert.Equal(t, 89000.0, record.Price.Amount)
	assert.Equal(t, "EUR", record.Price.Unit)
	require.NotNil(t, record.Area)
	assert.InDelta(t, 125, *record.Area, 0.001)
	assert.Equal(t, "Detached house", record.ObjectType)

	require.NotNil(t, record.EPC.EnergyEfficiency)
	assert.Equal(t, "D", record.EPC.EnergyEfficiency.Class)
	require.NotNil(t, record.EPC.IssuedDate)
	assert.Equal(t, 2013, record.EPC.IssuedDate.Year())
	require.NotNil(t, record.DateBuilt)
	assert.Equal(t, time.Date(1987, time.January, 1, 0, 0, 0, 0, time.UTC), *record.DateBuilt)
	require.NoError(t, record.Validate())
}

func TestHabitaComRentListingsKeepTheirType(t *testing.T) {
	a := NewHabitaCom()

	listPage, err := NewPage(habitaSearchURL(1, 100, "ResidenceRent"), []byte(habitaPageJSON))
	require.NoError(t, err)
	_, err = a.List.DetailURLs(listPage)
	require.NoError(t, err)

	detailPage, err := NewPage("https://www.habita.com/property/en/712345", []byte(habitaDetailHTML))
	require.NoError(t, err)
	record, err := a.Detail.Extract(detailPage)
	require.NoError(t, err)

	assert.Equal(t, ListingRent, record.ListingType)
	assert.Equal(t, "DEU", record.Location.Country)
	require.NotNil(t, record.Price)
	assert.Equal(t, "EUR/MONTH", record.Price.Unit)
}

func TestHabitaComExtractWithoutCachedPayloadDrops(t *testing.T) {
	a := NewHabitaCom()
	page, err := NewPage("https://www.habita.com/property/en/999999", []byte(habitaDetailHTML))
	require.NoError(t, err)

	_, err = a.Detail.Extract(page)
	require.Error(t, err)
	assert.True(t, apperr.IsDrop(err))
}

func TestHabitaComCacheIsPerInstance(t *testing.T) {
	first := NewHabitaCom()
	listPage, err := NewPage(habitaSearchURL(1, 100, "ResidenceSale"), []byte(habitaPageJSON))
	require.NoError(t, err)
	_, err = first.List.DetailURLs(listPage)
	require.NoError(t, err)

	// a fresh adapter, as built for a new run, starts with an empty cache
	second := NewHabitaCom()
	detailPage, err := NewPage("https://www.habita.com/property/en/642964", []byte(habitaDetailHTML))
	require.NoError(t, err)
	_, err = second.Detail.Extract(detailPage)
	require.Error(t, err)
	assert.True(t, apperr.IsDrop(err))
}
