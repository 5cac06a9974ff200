package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperr "estatescrapers/pkg/errors"
)

const tospitimouPerPage = 20

// 'Derignu 58, Athina 10434'
var tospitimouAddressRe = regexp.MustCompile(`.*, (.*) (\d+)`)

// tospitimouGr scrapes https://en.tospitimou.gr/. The site renders its
// listings client-side, so pages go through the script-executing fetcher.
type tospitimouGr struct{}

// NewTospitimouGr builds the tospitimou.gr adapter
func NewTospitimouGr() Adapter {
	a := &tospitimouGr{}
	return Adapter{Home: a, List: a, Detail: a}
}

func (a *tospitimouGr) Domain() string { return "tospitimou.gr" }

func (a *tospitimouGr) DynamicFetch() bool { return true }

func (a *tospitimouGr) EntryURLs() []string {
	return []string{"https://en.tospitimou.gr/"}
}

// ListURLs reads the category index on the home page. Each category link
// carries its listing count in a sibling span, so all result pages can be
// generated up front at the site default of 20 items per page.
func (a *tospitimouGr) ListURLs(page *Page) ([]string, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("ul.listing li").Each(func(_ int, li *goquery.Selection) {
		href, ok := li.Find("a").First().Attr("href")
		if !ok {
			return
		}
		count, ok := ParseLocalizedFloat(CleanText(li.Find("span").First().Text()))
		if !ok {
			return
		}
		pages := int(count)/tospitimouPerPage + 1
		for n := 1; n <= pages; n++ {
			urls = append(urls, fmt.Sprintf("%s?page=%d", href, n))
		}
	})
	return urls, nil
}

// PaginationURLs returns nothing: the home page already generates every
// result page, and each generated url carries the "?page=" marker
func (a *tospitimouGr) PaginationURLs(page *Page) ([]string, error) {
	return nil, nil
}

func (a *tospitimouGr) DetailURLs(page *Page) ([]string, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("div[data-targeturl]").Each(func(_ int, s *goquery.Selection) {
		if target, ok := s.Attr("data-targeturl"); ok {
			urls = append(urls, strings.TrimSpace(strings.ReplaceAll(target, "\n", "")))
		}
	})
	return urls, nil
}

func (a *tospitimouGr) Extract(page *Page) (*RealEstate, error) {
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}

	addressLine := siblingValue(doc, "th", "Address")
	match := tospitimouAddressRe.FindStringSubmatch(addressLine)
	if match == nil {
		return nil, apperr.DropPage(a.Domain(), "no address on page "+page.URL.String())
	}
	city, zipCode := match[1], match[2]

	listingType := ListingRent
	unit := "EUR/MONTH"
	if strings.Contains(page.URL.String(), "sale") {
		listingType = ListingSale
		unit = "EUR"
	}

	record := &RealEstate{
		Location:    Location{Country: "GRC", City: city, ZipCode: zipCode},
		ListingType: listingType,
		ObjectType:  "unknown",
		ScrapeURL:   page.URL.String(),
		ScrapedAt:   time.Now(),
	}
	if objectType := CleanText(doc.Find("div[data-original-title='Residential'] span").First().Text()); objectType != "" {
		record.ObjectType = objectType
	}
	// '1,420 m²'
	areaText := CleanText(doc.Find("div[data-original-title='Living Area in sq.m.'] span").First().Text())
	if fields := strings.Fields(areaText); len(fields) > 0 {
		if v, ok := ParseLocalizedFloat(fields[0]); ok {
			record.Area = &v
		}
	}
	// '1,200,000'
	if amount, ok := ParseLocalizedFloat(doc.Find("div[data-original-title='Price'] span").First().Text()); ok {
		record.Price = &Price{Amount: amount, Unit: unit}
	}
	if class := CleanText(doc.Find("div.energy-container div").First().Text()); !IsPlaceholder(class) {
		record.EPC.EnergyEfficiency = &EnergyData{Class: class}
	}
	if year, err := ExtractYear(siblingValue(doc, "th", "Construction year")); err == nil {
		built := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		record.DateBuilt = &built
	}
	return record, nil
}
