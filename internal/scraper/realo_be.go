package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperr "estatescrapers/pkg/errors"
)

const realoPerPage = 48

// realo scrapes the realo portals. The Belgian and the Spanish site share
// their markup; they differ only in entry urls, country and zip code format.
type realo struct {
	domain  string
	base    string
	country string
	entries []string
	zipRe   *regexp.Regexp
}

// NewRealoBe builds the realo.be adapter
func NewRealoBe() Adapter {
	a := &realo{
		domain:  "realo.be",
		base:    "https://www.realo.be",
		country: "BEL",
		entries: []string{"https://www.realo.be/en/cities?search=1"},
		zipRe:   regexp.MustCompile(`\d{4}`),
	}
	return Adapter{Home: a, List: a, Detail: a}
}

func (a *realo) Domain() string { return a.domain }

func (a *realo) DynamicFetch() bool { return false }

func (a *realo) EntryURLs() []string { return a.entries }

// ListURLs extracts one search url per city from the cities index
func (a *realo) ListURLs(page *Page) ([]string, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("li.cities-list--item a").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			urls = append(urls, a.base+href)
		}
	})
	return urls, nil
}

// PaginationURLs derives the page count from the total results label, e.g.
// "2.039 results" at 48 items per page
func (a *realo) PaginationURLs(page *Page) ([]string, error) {
	pageURL := page.URL.String()
	if strings.Contains(pageURL, "?page=") {
		return nil, nil
	}
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}
	countText := CleanText(doc.Find("div[data-id='totalResultsContainer']").First().Text())
	if countText == "" {
		return nil, nil
	}
	total, ok := ParseLocalizedFloat(strings.Fields(countText)[0])
	if !ok {
		return nil, apperr.NewPagination(a.Domain(), "cannot parse result count from: "+countText, nil)
	}
	pages := int(total)/realoPerPage + 1
	urls := make([]string, 0, pages)
	for n := 1; n <= pages; n++ {
		urls = append(urls, fmt.Sprintf("%s?page=%d", pageURL, n))
	}
	return urls, nil
}

func (a *realo) DetailURLs(page *Page) ([]string, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("li[data-id='componentEstateListGridItem'] > div").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("data-href"); ok {
			urls = append(urls, a.base+href)
		}
	})
	return urls, nil
}

func (a *realo) Extract(page *Page) (*RealEstate, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}

	city := CleanText(doc.Find("a:contains('Back to results for') em").First().Text())
	if city == "" {
		return nil, apperr.DropPage(a.Domain(), "no city on page "+page.URL.String())
	}
	zipCode := a.zipCode(page, doc)
	if zipCode == "" {
		return nil, apperr.DropPage(a.Domain(), "no zip code on page "+page.URL.String())
	}
	typeText := CleanText(doc.Find("div.type strong").First().Text())
	if typeText == "" {
		return nil, apperr.DropPage(a.Domain(), "no listing type on page "+page.URL.String())
	}
	listingType := ListingRent
	if strings.Contains(strings.ToLower(typeText), "sale") {
		listingType = ListingSale
	}
	unit := "EUR/MONTH"
	if listingType == ListingSale {
		unit = "EUR"
	}

	record := &RealEstate{
		Location:    Location{Country: a.country, City: city, ZipCode: zipCode},
		ListingType: listingType,
		ObjectType:  "Unknown",
		ScrapeURL:   page.URL.String(),
		ScrapedAt:   time.Now(),
	}
	if objectType := a.feature(doc, "Property type"); objectType != "" {
		record.ObjectType = objectType
	}
	// "246m"
	if areaText := a.feature(doc, "Habitable area"); areaText != "" {
		if v, ok := ParseLocalizedFloat(strings.ReplaceAll(areaText, "m", "")); ok {
			record.Area = &v
		}
	}
	if amount, ok := ParseLocalizedFloat(doc.Find("span[itemprop='price']").First().Text()); ok {
		record.Price = &Price{Amount: amount, Unit: unit}
	}
	record.EPC.EnergyEfficiency = a.energyEfficiency(doc)
	record.EPC.PDFURL = a.feature(doc, "EPC certificate number")
	if yearText := a.feature(doc, "Year built"); yearText != "" {
		if year, err := ExtractYear(yearText); err == nil {
			built := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			record.DateBuilt = &built
		}
	}
	return record, nil
}

// zipCode pulls the zip from url segments like
// '/en/7090-braine-le-comte/5207953', falling back to the address headline
func (a *realo) zipCode(page *Page, doc *goquery.Document) string {
	segment := strings.TrimPrefix(page.URL.String(), a.base+"/en/")
	segment = strings.Split(segment, "/")[0]
	if zip := a.zipRe.FindString(segment); zip != "" {
		return zip
	}
	// "Stationsstraat 16, 9420 Burst, Erpe-Mere burst"
	return a.zipRe.FindString(CleanText(doc.Find("h1.address").First().Text()))
}

// energyEfficiency prefers the feature table entry and falls back to the PEB
// badge image, whose file name carries the class, e.g. '.../peb/g.png'
func (a *realo) energyEfficiency(doc *goquery.Document) *EnergyData {
	if classText := a.feature(doc, "Energy classification"); classText != "" {
		return &EnergyData{Class: strings.ToUpper(classText[:1])}
	}
	src, ok := doc.Find("div.component-property-features img.peb-image").First().Attr("src")
	if !ok || len(src) < 5 {
		return nil
	}
	data := &EnergyData{Class: strings.ToUpper(src[len(src)-5 : len(src)-4])}
	// '999kwh/m'
	if valueText := a.feature(doc, "CPEB"); valueText != "" {
		if v, ok := ParseLocalizedFloat(strings.ReplaceAll(valueText, "kwh/m", "")); ok {
			data.Value = &v
		}
	}
	return data
}

func (a *realo) feature(doc *goquery.Document, name string) string {
	row := findByText(doc, "td.name", name)
	if row.Length() == 0 {
		return ""
	}
	return CleanText(row.First().Next().Text())
}
