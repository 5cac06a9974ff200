package scraper

import (
	"time"

	apperr "estatescrapers/pkg/errors"
)

// ListingType distinguishes sale and rental listings
type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

// Location is where a listed property is situated. Country is an ISO-3166-1
// alpha-3 code; city and zip code may be empty when a site does not expose them.
type Location struct {
	Country string `json:"country"`
	City    string `json:"city,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

// Price is the listed price with its unit, e.g. "EUR" or "EUR/MONTH"
type Price struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// EnergyData is a single energy certificate slot: a class label such as "B"
// or "A+" and an optional measured value
type EnergyData struct {
	Class string   `json:"class"`
	Value *float64 `json:"value,omitempty"`
}

// EPCData groups the energy-performance certificate fields of a listing
type EPCData struct {
	HeatingDemand    *EnergyData `json:"heating_demand,omitempty"`
	EnergyEfficiency *EnergyData `json:"energy_efficiency,omitempty"`
	PDFURL           string      `json:"pdf_url,omitempty"`
	IssuedDate       *time.Time  `json:"issued_date,omitempty"`
}

// RealEstate is the canonical record produced for one detail page. A record
// is uniquely identified by its ScrapeURL.
type RealEstate struct {
	Location    Location    `json:"location"`
	ListingType ListingType `json:"listing_type"`
	Area        *float64    `json:"area,omitempty"`
	Price       *Price      `json:"price,omitempty"`
	EPC         EPCData     `json:"epc_data"`
	DateBuilt   *time.Time  `json:"date_built,omitempty"`
	ObjectType  string      `json:"object_type"`
	ScrapeURL   string      `json:"scrape_url"`
	ScrapedAt   time.Time   `json:"scrape_timestamp"`
}

// Validate checks the record invariants before it enters the pipeline
func (r *RealEstate) Validate() error {
	if r.ScrapeURL == "" {
		return apperr.NewExtraction("", "record without scrape url", nil)
	}
	if r.Location.Country == "" {
		return apperr.NewExtraction("", "record without country: "+r.ScrapeURL, nil)
	}
	if r.ListingType != ListingSale && r.ListingType != ListingRent {
		return apperr.NewExtraction("", "invalid listing type: "+string(r.ListingType), nil)
	}
	if r.Price != nil && r.Price.Unit == "" {
		return apperr.NewExtraction("", "priced record without price unit: "+r.ScrapeURL, nil)
	}
	if r.Area != nil && *r.Area <= 0 {
		return apperr.NewExtraction("", "non-positive area: "+r.ScrapeURL, nil)
	}
	return nil
}

// HomePage is the entry role of a site adapter. It declares the site's
// identity and fetch policy and turns the fetched home page into list URLs.
type HomePage interface {
	// Domain returns the lowercase domain this adapter owns, e.g. "immowelt.at"
	Domain() string

	// EntryURLs returns the URLs the crawl starts from
	EntryURLs() []string

	// DynamicFetch reports whether the site needs a script-executing fetch
	DynamicFetch() bool

	// ListURLs extracts list page URLs from a fetched home page
	ListURLs(page *Page) ([]string, error)
}

// ListPage extracts pagination and detail URLs from a fetched list page
type ListPage interface {
	// PaginationURLs returns further list page URLs. It must return an empty
	// slice when the page URL already carries the site's pagination marker.
	PaginationURLs(page *Page) ([]string, error)

	// DetailURLs returns detail page URLs found on the list page
	DetailURLs(page *Page) ([]string, error)
}

// DetailPage builds one canonical record from a fetched detail page
type DetailPage interface {
	// Extract returns the record, or an error wrapping ErrDropPage when the
	// page cannot be scraped
	Extract(page *Page) (*RealEstate, error)
}

// Adapter is the triplet of page roles registered for one domain
type Adapter struct {
	Home   HomePage
	List   ListPage
	Detail DetailPage
}

func (a Adapter) validate() error {
	if a.Home == nil || a.List == nil || a.Detail == nil {
		return apperr.NewConfiguration("adapter must implement all three page roles", nil)
	}
	if a.Home.Domain() == "" {
		return apperr.NewConfiguration("adapter with empty domain", nil)
	}
	if len(a.Home.EntryURLs()) == 0 {
		return apperr.NewConfiguration("adapter without entry urls: "+a.Home.Domain(), nil)
	}
	return nil
}
