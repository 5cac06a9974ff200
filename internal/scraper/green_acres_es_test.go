package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGreenAcresEsListURLs(t *testing.T) {
	a := NewGreenAcresEs()
	assert.True(t, a.Home.DynamicFetch())
	assert.Equal(t, []string{"https://www.green-acres.es/en/properties"}, a.Home.EntryURLs())

	html := `<html><body>
	<ul><li><a href="/property-for-sale/andalusia">Andalusia</a></li></ul>
	</body></html>`
	page, err := NewPage("https://www.green-acres.es/en/properties", []byte(html))
	require.NoError(t, err)
	urls, err := a.Home.ListURLs(page)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.green-acres.es/property-for-sale/andalusia"}, urls)
}

func TestGreenAcresEsExtract(t *testing.T) {
	html := `<html><body>
	<a class="item-location"><p>Sevilla</p></a>
	<h2 class="title-standard"><span class="price">120,000 &euro;</span></h2>
	</body></html>`
	a := NewGreenAcresEs()
	page, err := NewPage("https://www.green-acres.es/en/properties/house/sevilla/Ef5.htm", []byte(html))
	require.NoError(t, err)

	record, err := a.Detail.Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "ESP", record.Location.Country)
	assert.Equal(t, "Sevilla", record.Location.City)
	assert.Equal(t, "house", record.ObjectType)
	require.NotNil(t, record.Price)
	assert.Equal(t, 120000.0, record.Price.Amount)
	require.NoError(t, record.Validate())
}
