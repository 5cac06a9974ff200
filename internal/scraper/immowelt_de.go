package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var immoweltDePlaces = []string{
	"berlin",
	"bielefeld",
	"bochum",
	"bonn",
	"bremen",
	"dortmund",
	"dresden",
	"duisburg",
	"duesseldorf",
	"essen",
	"frankfurt-am-main",
	"hamburg",
	"hannover",
	"koeln",
	"leipzig",
	"mannheim",
	"muenchen",
	"nuernberg",
	"stuttgart",
	"wuppertal",
}

// immoweltDe scrapes https://www.immowelt.de/
type immoweltDe struct{}

// NewImmoweltDe builds the immowelt.de adapter
func NewImmoweltDe() Adapter {
	a := &immoweltDe{}
	return Adapter{Home: a, List: a, Detail: a}
}

func (a *immoweltDe) Domain() string { return "immowelt.de" }

func (a *immoweltDe) DynamicFetch() bool { return false }

func (a *immoweltDe) EntryURLs() []string {
	return []string{"https://www.immowelt.de/"}
}

func (a *immoweltDe) ListURLs(page *Page) ([]string, error) {
	return immoweltListURLs("https://www.immowelt.de", immoweltDePlaces), nil
}

func (a *immoweltDe) PaginationURLs(page *Page) ([]string, error) {
	pageURL := page.URL.String()
	if strings.Contains(pageURL, "sp=") {
		return nil, nil
	}
	urls := make([]string, 0, immoweltMaxPages-1)
	for n := 2; n <= immoweltMaxPages; n++ {
		urls = append(urls, fmt.Sprintf("%s?sp=%d", pageURL, n))
	}
	return urls, nil
}

func (a *immoweltDe) DetailURLs(page *Page) ([]string, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("a[href^='https://www.immowelt.de/expose']").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			urls = append(urls, href)
		}
	})
	return urls, nil
}

func (a *immoweltDe) Extract(page *Page) (*RealEstate, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}

	facts := immoweltHardfactsOf(doc)
	unit, err := facts.priceUnit(a.Domain())
	if err != nil {
		return nil, err
	}

	// '33617 Bielefeld-Gadderbaum'
	addressLine := CleanText(doc.Find("span[data-cy='address-city'] div:first-of-type").First().Text())
	zipCode, city := immoweltAddress(addressLine)

	record := &RealEstate{
		Location:    Location{Country: "DEU", City: city, ZipCode: zipCode},
		ListingType: facts.listingType(),
		Area:        facts.area(),
		ObjectType:  immoweltObjectType(doc),
		ScrapeURL:   page.URL.String(),
		ScrapedAt:   time.Now(),
	}
	if amount, ok := facts.price(); ok {
		record.Price = &Price{Amount: amount, Unit: unit}
	}

	if energy := immoweltDeEnergyBlock(doc); energy.Length() > 0 {
		record.EPC.HeatingDemand = immoweltDeHeatingDemand(energy)
		record.EPC.IssuedDate = immoweltDeEPCIssuedDate(energy)
		record.DateBuilt = immoweltDeYearBuilt(energy)
	}
	// fGEE exists only on the Austrian certificate
	return record, nil
}

func immoweltDeEnergyBlock(doc *goquery.Document) *goquery.Selection {
	return doc.Find("app-energy-certificate div[class*='energy_information']").First()
}

func immoweltDeEnergyCell(energy *goquery.Selection, key string) string {
	return CleanText(energy.Find(fmt.Sprintf("sd-cell-col[data-cy='%s'] p:nth-of-type(2)", key)).First().Text())
}

// immoweltDeHeatingDemand reads values like '71,30 kWh/(m²·a) - Warmwasser
// enthalten' plus the energy class cell
func immoweltDeHeatingDemand(energy *goquery.Selection) *EnergyData {
	consumption := immoweltDeEnergyCell(energy, "energy-consumption")
	fields := strings.Fields(consumption)
	if len(fields) == 0 {
		return nil
	}
	value, ok := ParseLocalizedFloat(fields[0])
	if !ok {
		return nil
	}
	return &EnergyData{
		Class: immoweltDeEnergyCell(energy, "energy-class"),
		Value: &value,
	}
}

// immoweltDeEPCIssuedDate parses the certificate validity cell. Three forms
// occur: 'seit 28.10.2021', 'bis 28.10.2021' (no start date known) and
// '01.08.2018 bis 31.07.2028'.
func immoweltDeEPCIssuedDate(energy *goquery.Selection) *time.Time {
	validity := immoweltDeEnergyCell(energy, "energy-validity")
	if validity == "" || strings.HasPrefix(validity, "bis") {
		return nil
	}
	fields := strings.Fields(validity)
	dateText := fields[0]
	if strings.HasPrefix(validity, "seit") {
		if len(fields) < 2 {
			return nil
		}
		dateText = fields[1]
	}
	issued, err := time.Parse("02.01.2006", dateText)
	if err != nil {
		return nil
	}
	return &issued
}

func immoweltDeYearBuilt(energy *goquery.Selection) *time.Time {
	yearText := immoweltDeEnergyCell(energy, "energy-yearofmodernization")
	if yearText == "" {
		return nil
	}
	year, err := ExtractYear(yearText)
	if err != nil {
		return nil
	}
	built := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &built
}
