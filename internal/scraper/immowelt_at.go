package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var immoweltAtPlaces = []string{
	"dornbirn",
	"graz",
	"innsbruck",
	"klagenfurt",
	"linz",
	"salzburg",
	"st-poelten",
	"steyr",
	"villach",
	"wels",
	"wien",
	"wiener-neustadt",
}

// immoweltAt scrapes https://www.immowelt.at/
type immoweltAt struct{}

// NewImmoweltAt builds the immowelt.at adapter
func NewImmoweltAt() Adapter {
	a := &immoweltAt{}
	return Adapter{Home: a, List: a, Detail: a}
}

func (a *immoweltAt) Domain() string { return "immowelt.at" }

func (a *immoweltAt) DynamicFetch() bool { return false }

func (a *immoweltAt) EntryURLs() []string {
	return []string{"https://www.immowelt.at/"}
}

// ListURLs generates one list url per place and object type. The home page
// content carries nothing the crawl needs.
func (a *immoweltAt) ListURLs(page *Page) ([]string, error) {
	return immoweltListURLs("https://www.immowelt.at", immoweltAtPlaces), nil
}

func (a *immoweltAt) PaginationURLs(page *Page) ([]string, error) {
	pageURL := page.URL.String()
	if strings.Contains(pageURL, "cp=") {
		return nil, nil
	}
	urls := make([]string, 0, immoweltMaxPages-1)
	for n := 2; n <= immoweltMaxPages; n++ {
		urls = append(urls, fmt.Sprintf("%s?cp=%d", pageURL, n))
	}
	return urls, nil
}

func (a *immoweltAt) DetailURLs(page *Page) ([]string, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("#listItemWrapperFixed div a[href^='/expose']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		listingID := href[strings.LastIndexByte(href, '/')+1:]
		urls = append(urls, "https://www.immowelt.at/expose/"+listingID)
	})
	return urls, nil
}

func (a *immoweltAt) Extract(page *Page) (*RealEstate, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}

	facts := immoweltHardfactsOf(doc)
	unit, err := facts.priceUnit(a.Domain())
	if err != nil {
		return nil, err
	}

	addressLine := CleanText(doc.Find(
		"#aUebersicht app-estate-address sd-cell-col:nth-of-type(2) span:nth-of-type(2) div:first-of-type",
	).First().Text())
	zipCode, city := immoweltAddress(addressLine)

	record := &RealEstate{
		Location:    Location{Country: "AUT", City: city, ZipCode: zipCode},
		ListingType: facts.listingType(),
		Area:        facts.area(),
		ObjectType:  immoweltObjectType(doc),
		ScrapeURL:   page.URL.String(),
		ScrapedAt:   time.Now(),
	}
	if amount, ok := facts.price(); ok {
		record.Price = &Price{Amount: amount, Unit: unit}
	}
	record.EPC.HeatingDemand = immoweltAtEnergy(doc, "(HWB)")
	record.EPC.EnergyEfficiency = immoweltAtEnergy(doc, "(fGEE)")
	record.DateBuilt = immoweltAtYearBuilt(doc)
	return record, nil
}

// immoweltAtEnergy reads one block of the Austrian energy certificate. The
// heading carries the measure marker, the class sits in the following div and
// the measured value in the following paragraph.
func immoweltAtEnergy(doc *goquery.Document, marker string) *EnergyData {
	heading := doc.Find("app-energy-certificate-at h4").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), marker)
	}).First()
	if heading.Length() == 0 {
		return nil
	}
	data := &EnergyData{
		Class: CleanText(heading.NextAllFiltered("div").First().Find("span").First().Text()),
	}
	valueText := CleanText(heading.NextAllFiltered("p").First().Text())
	if fields := strings.Fields(valueText); len(fields) > 0 {
		if v, ok := ParseLocalizedFloat(fields[0]); ok {
			data.Value = &v
		}
	}
	return data
}

// immoweltAtYearBuilt reads the "Baujahr" cell, which may carry prefixes such
// as "Ca. 1900"
func immoweltAtYearBuilt(doc *goquery.Document) *time.Time {
	label := findByText(doc, "sd-cell-col p", "Baujahr").First()
	if label.Length() == 0 {
		return nil
	}
	year, err := ExtractYear(CleanText(label.NextAllFiltered("p").First().Text()))
	if err != nil {
		return nil
	}
	built := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &built
}
