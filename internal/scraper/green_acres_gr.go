package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperr "estatescrapers/pkg/errors"
)

const greenAcresPerPage = 24

// '1 - 24 out of 7,754 properties'
var greenAcresCountRe = regexp.MustCompile(`out of ([\d,.]+) properties`)

// greenAcres scrapes the green-acres portals, which share their markup
// across country sites. The search results only appear after scripts run,
// so pages go through the script-executing fetcher.
type greenAcres struct {
	domain  string
	base    string
	country string
}

// NewGreenAcresGr builds the green-acres.gr adapter
func NewGreenAcresGr() Adapter {
	a := &greenAcres{
		domain:  "green-acres.gr",
		base:    "https://www.green-acres.gr",
		country: "GRC",
	}
	return Adapter{Home: a, List: a, Detail: a}
}

func (a *greenAcres) Domain() string { return a.domain }

func (a *greenAcres) DynamicFetch() bool { return true }

func (a *greenAcres) EntryURLs() []string {
	return []string{a.base + "/en/properties"}
}

func (a *greenAcres) ListURLs(page *Page) ([]string, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("li:not([class]) a[href^='/property']").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			urls = append(urls, a.base+href)
		}
	})
	return urls, nil
}

// PaginationURLs derives the page count from the pagination label at 24 items
// per page. A label that does not match the expected form fails pagination
// for this page only.
func (a *greenAcres) PaginationURLs(page *Page) ([]string, error) {
	if strings.Contains(page.URL.String(), "p_n=") {
		return nil, nil
	}
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}
	countText := CleanText(doc.Find("p.pagination-info").First().Text())
	match := greenAcresCountRe.FindStringSubmatch(countText)
	if match == nil {
		return nil, apperr.NewPagination(a.Domain(), "cannot parse property count from: "+countText, nil)
	}
	total, ok := ParseLocalizedFloat(match[1])
	if !ok {
		return nil, apperr.NewPagination(a.Domain(), "cannot parse property count from: "+countText, nil)
	}
	baseHref, _ := doc.Find("ul.pagination li.active a").First().Attr("href")
	pages := int(total)/greenAcresPerPage + 1
	urls := make([]string, 0, pages)
	for n := 1; n <= pages; n++ {
		urls = append(urls, fmt.Sprintf("%s%s?p_n=%d", a.base, baseHref, n))
	}
	return urls, nil
}

func (a *greenAcres) DetailURLs(page *Page) ([]string, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("figure.item-main a").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			urls = append(urls, a.base+href)
		}
	})
	return urls, nil
}

// Extract builds a record for a listing. The site only carries sale
// listings; the object type sits in the url path, e.g.
// '/en/properties/apartment/athens/Ad2adhezqe41y31v.htm'.
func (a *greenAcres) Extract(page *Page) (*RealEstate, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}

	objectType := "unknown"
	segments := strings.Split(strings.TrimPrefix(page.URL.String(), a.base+"/"), "/")
	if len(segments) > 2 {
		objectType = segments[2]
	}

	record := &RealEstate{
		Location: Location{
			Country: a.country,
			City:    CleanText(doc.Find("a.item-location p").First().Text()),
		},
		ListingType: ListingSale,
		ObjectType:  objectType,
		ScrapeURL:   page.URL.String(),
		ScrapedAt:   time.Now(),
	}
	record.Area = a.area(doc, objectType)
	// '45,000 €'
	priceText := CleanText(doc.Find("h2.title-standard span.price").First().Text())
	if amount, ok := ParseLocalizedFloat(strings.ReplaceAll(priceText, "€", "")); ok {
		record.Price = &Price{Amount: amount, Unit: "EUR"}
	}
	record.EPC.HeatingDemand = a.heatingDemand(doc)
	description := doc.Find("#descriptionBlockAdvertPage div p.text").First().Text()
	if year, err := ExtractYear(description); err == nil {
		built := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		record.DateBuilt = &built
	}
	return record, nil
}

// area reads the details list, where the value is a bare text node next to
// its label paragraph. Land listings carry their size under "Land" instead
// of "Living area".
func (a *greenAcres) area(doc *goquery.Document, objectType string) *float64 {
	label := "Living area"
	if objectType == "land" {
		label = "Land"
	}
	entry := findByText(doc, "p.details-name", label).First()
	if entry.Length() == 0 {
		return nil
	}
	if v, ok := ParseLocalizedFloat(ownText(entry.Parent())); ok {
		return &v
	}
	return nil
}

// heatingDemand reads the PEA badge; "N/C" means no certificate
func (a *greenAcres) heatingDemand(doc *goquery.Document) *EnergyData {
	badge := findByText(doc, "span.icons-text", "PEA").First()
	if badge.Length() == 0 {
		return nil
	}
	class := ownText(badge.Parent())
	if IsPlaceholder(class) {
		return nil
	}
	return &EnergyData{Class: class}
}
