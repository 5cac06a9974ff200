package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperr "estatescrapers/pkg/errors"
)

// Shared extraction logic for the immowelt.at and immowelt.de adapters. Both
// sites run the same frontend; only the address markup, the energy
// certificate and the pagination parameter differ.

// immoweltMaxPages bounds the generated result pages per list url
const immoweltMaxPages = 9

// immoweltObjectSlugs are the object segments of the list urls
var immoweltObjectSlugs = []string{"wohnungen", "haeuser", "wohnen-auf-zeit"}

// immoweltObjectTypes maps breadcrumb slugs to canonical object types
var immoweltObjectTypes = map[string]string{
	"haeuser":         "Haus",
	"wohnungen":       "Wohnung",
	"wohnen-auf-zeit": "Wohnung",
}

func immoweltListURLs(base string, places []string) []string {
	urls := make([]string, 0, len(places)*len(immoweltObjectSlugs))
	for _, place := range places {
		for _, obj := range immoweltObjectSlugs {
			urls = append(urls, base+"/liste/"+place+"/"+obj)
		}
	}
	return urls
}

// immoweltHardfacts is the overview block at the top of a detail page,
// holding price, price caption (e.g. "Kaufpreis" or "Gesamtmiete") and
// living area
type immoweltHardfacts struct {
	priceLabel   string
	priceCaption string
	areaLabel    string
}

func immoweltHardfactsOf(doc *goquery.Document) immoweltHardfacts {
	overview := doc.Find("#aUebersicht app-hardfacts")
	return immoweltHardfacts{
		priceLabel:   CleanText(overview.Find("div > div > div:nth-child(1) > div:nth-child(1) > strong").First().Text()),
		priceCaption: CleanText(overview.Find("div > div > div:nth-child(1) > div:nth-child(2)").First().Text()),
		areaLabel:    CleanText(overview.Find("div > div > div:nth-child(2) > div:nth-child(1) > span").First().Text()),
	}
}

func (h immoweltHardfacts) listingType() ListingType {
	if strings.Contains(strings.ToLower(h.priceCaption), "miet") {
		return ListingRent
	}
	return ListingSale
}

// area parses labels like "1.000,50 m²"
func (h immoweltHardfacts) area() *float64 {
	fields := strings.Fields(h.areaLabel)
	if len(fields) == 0 {
		return nil
	}
	if v, ok := ParseLocalizedFloat(fields[0]); ok {
		return &v
	}
	return nil
}

// price parses labels like "€ 7.117,12" or "548.000 €"
func (h immoweltHardfacts) price() (float64, bool) {
	return ParseLocalizedFloat(strings.Trim(h.priceLabel, "€ "))
}

func (h immoweltHardfacts) priceUnit(domain string) (string, error) {
	caption := strings.ToLower(h.priceCaption)
	switch {
	case strings.Contains(caption, "kauf"), strings.Contains(caption, "mindest"):
		return "EUR", nil
	case strings.Contains(caption, "miet"):
		return "EUR/MONTH", nil
	}
	return "", apperr.NewExtraction(domain, "no price unit mapping for: "+h.priceCaption, nil)
}

// immoweltObjectType derives the object type from the breadcrumb back link,
// e.g. "https://www.immowelt.at/suche/haeuser" -> "Haus"
func immoweltObjectType(doc *goquery.Document) string {
	href, ok := doc.Find("app-breadcrumb nav ol li:nth-child(2) a").First().Attr("href")
	if !ok {
		return "unknown"
	}
	slug := href[strings.LastIndexByte(href, '/')+1:]
	if objectType, ok := immoweltObjectTypes[slug]; ok {
		return objectType
	}
	return "unknown"
}

// immoweltAddress splits an address line like "4400 Steyr" into its zip code
// and city parts
func immoweltAddress(text string) (zipCode, city string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
