package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const immoweltDeDetailHTML = `
<html><body>
<app-breadcrumb><nav><ol>
  <li><a href="/">Start</a></li>
  <li><a href="https://www.immowelt.de/suche/wohnungen">Wohnungen</a></li>
</ol></nav></app-breadcrumb>
<span data-cy="address-city"><div>33617 Bielefeld-Gadderbaum</div></span>
<div id="aUebersicht">
  <app-hardfacts><div><div>
    <div><div><strong>548.000&nbsp;&euro;</strong></div><div>Kaufpreis</div></div>
    <div><div><span>120 m&sup2;</span></div></div>
  </div></div></app-hardfacts>
</div>
<app-energy-certificate><div class="energy_information">
  <sd-cell-col data-cy="energy-consumption"><p>Endenergieverbrauch</p><p>71,30 kWh/(m&sup2;&middot;a) - Warmwasser enthalten</p></sd-cell-col>
  <sd-cell-col data-cy="energy-class"><p>Effizienzklasse</p><p>B</p></sd-cell-col>
  <sd-cell-col data-cy="energy-validity"><p>Ausweis g&uuml;ltig</p><p>seit 28.10.2021</p></sd-cell-col>
  <sd-cell-col data-cy="energy-yearofmodernization"><p>Baujahr laut Energieausweis</p><p>2000</p></sd-cell-col>
</div></app-energy-certificate>
</body></html>`

func TestImmoweltDePaginationUsesOwnParameter(t *testing.T) {
	a := NewImmoweltDe()

	page, err := NewPage("https://www.immowelt.de/liste/berlin/wohnungen", nil)
	require.NoError(t, err)
	urls, err := a.List.PaginationURLs(page)
	require.NoError(t, err)
	require.Len(t, urls, immoweltMaxPages-1)
	assert.Equal(t, "https://www.immowelt.de/liste/berlin/wohnungen?sp=2", urls[0])

	page, err = NewPage("https://www.immowelt.de/liste/berlin/wohnungen?sp=4", nil)
	require.NoError(t, err)
	urls, err = a.List.PaginationURLs(page)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestImmoweltDeDetailURLs(t *testing.T) {
	html := `<html><body>
	<a href="https://www.immowelt.de/expose/abcd123">one</a>
	<a href="/liste/berlin/wohnungen">nope</a>
	<a href="https://www.immowelt.de/expose/efgh456">two</a>
	</body></html>`
	a := NewImmoweltDe()
	page, err := NewPage("https://www.immowelt.de/liste/berlin/wohnungen", []byte(html))
	require.NoError(t, err)

	urls, err := a.List.DetailURLs(page)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.immowelt.de/expose/abcd123",
		"https://www.immowelt.de/expose/efgh456",
	}, urls)
}

func TestImmoweltDeExtract(t *testing.T) {
	a := NewImmoweltDe()
	page, err := NewPage("https://www.immowelt.de/expose/abcd123", []byte(immoweltDeDetailHTML))
	require.NoError(t, err)

	record, err := a.Detail.Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "DEU", record.Location.Country)
	assert.Equal(t, "Bielefeld-Gadderbaum", record.Location.City)
	assert.Equal(t, "33617", record.Location.ZipCode)
	assert.Equal(t, ListingSale, record.ListingType)
	require.NotNil(t, record.Price)
	assert.Equal(t, 548000.0, record.Price.Amount)
	assert.Equal(t, "Wohnung", record.ObjectType)

	require.NotNil(t, record.EPC.HeatingDemand)
	assert.Equal(t, "B", record.EPC.HeatingDemand.Class)
	require.NotNil(t, record.EPC.HeatingDemand.Value)
	assert.InDelta(t, 71.30, *record.EPC.HeatingDemand.Value, 0.001)
	assert.Nil(t, record.EPC.EnergyEfficiency)

	require.NotNil(t, record.EPC.IssuedDate)
	assert.Equal(t, time.Date(2021, time.October, 28, 0, 0, 0, 0, time.UTC), *record.EPC.IssuedDate)
	require.NotNil(t, record.DateBuilt)
	assert.Equal(t, 2000, record.DateBuilt.Year())
	require.NoError(t, record.Validate())
}

func TestImmoweltDeEPCIssuedDateForms(t *testing.T) {
	extract := func(t *testing.T, validity string) *time.Time {
		t.Helper()
		html := `<html><body><app-energy-certificate><div class="energy_information">
		<sd-cell-col data-cy="energy-validity"><p>Ausweis</p><p>` + validity + `</p></sd-cell-col>
		</div></app-energy-certificate></body></html>`
		page, err := NewPage("https://www.immowelt.de/expose/abcd123", []byte(html))
		require.NoError(t, err)
		doc, err := page.Doc()
		require.NoError(t, err)
		return immoweltDeEPCIssuedDate(immoweltDeEnergyBlock(doc))
	}

	// only an end date known -> no issue date
	assert.Nil(t, extract(t, "bis 28.10.2021"))

	issued := extract(t, "seit 28.10.2021")
	require.NotNil(t, issued)
	assert.Equal(t, time.Date(2021, time.October, 28, 0, 0, 0, 0, time.UTC), *issued)

	issued = extract(t, "01.08.2018 bis 31.07.2028")
	require.NotNil(t, issued)
	assert.Equal(t, time.Date(2018, time.August, 1, 0, 0, 0, 0, time.UTC), *issued)
}
