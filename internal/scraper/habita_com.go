package scraper

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperr "estatescrapers/pkg/errors"
)

const habitaSearchPerPage = 100

// Site codes the search API uses per country
var habitaCountryCodes = []int{1, 3, 15, 9}

var habitaCountryISO = map[string]string{
	"Finland": "FIN",
	"Spain":   "ESP",
	"Greece":  "GRC",
	"Germany": "DEU",
}

var (
	habitaDigitsRe = regexp.MustCompile(`\d+`)
	// 'D, 2013'
	habitaEnergyRe = regexp.MustCompile(`([A-G]), (\d{4})`)
)

// habitaItem is one search result returned by the Habita API
type habitaItem struct {
	ID       int     `json:"id"`
	Area     string  `json:"area"`
	Area3    string  `json:"area3"`
	District string  `json:"district"`
	Country  string  `json:"country"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Type     string  `json:"type"`
}

type habitaSearchResponse struct {
	Results    []habitaItem `json:"results"`
	NumResults int          `json:"numResults"`
	TotalPages int          `json:"totalPages"`
}

type habitaCachedItem struct {
	item    habitaItem
	listing ListingType
}

// habitaCom scrapes https://www.habita.com/ through its search API. List
// pages are JSON responses; the item payloads they carry are cached for the
// rest of the run and joined with the fetched detail page during extraction.
// The cache lives on the adapter instance, so every run starts empty.
type habitaCom struct {
	items map[int]habitaCachedItem
}

// NewHabitaCom builds the habita.com adapter
func NewHabitaCom() Adapter {
	a := &habitaCom{items: make(map[int]habitaCachedItem)}
	return Adapter{Home: a, List: a, Detail: a}
}

func (a *habitaCom) Domain() string { return "habita.com" }

func (a *habitaCom) DynamicFetch() bool { return false }

func (a *habitaCom) EntryURLs() []string {
	return []string{"https://www.habita.com/"}
}

// ListURLs probes the API with one-item queries; pagination expands them to
// full result pages once the totals are known
func (a *habitaCom) ListURLs(page *Page) ([]string, error) {
	return []string{
		habitaSearchURL(1, 1, "ResidenceSale"),
		habitaSearchURL(1, 1, "ResidenceRent"),
	}, nil
}

func habitaSearchURL(page, perPage int, queryType string) string {
	codes := make([]string, len(habitaCountryCodes))
	for i, code := range habitaCountryCodes {
		codes[i] = strconv.Itoa(code)
	}
	return fmt.Sprintf(
		"https://www.habita.com/propertysearch/results/en/%d/%d/full?countries=%s&sort=newest&type=%s",
		page, perPage, strings.Join(codes, ","), queryType,
	)
}

// PaginationURLs turns a probe response into full result pages. Full pages
// carry the per-page marker in their path and are not paginated again.
func (a *habitaCom) PaginationURLs(page *Page) ([]string, error) {
	if strings.Contains(page.URL.Path, fmt.Sprintf("/%d/full", habitaSearchPerPage)) {
		return nil, nil
	}
	var resp habitaSearchResponse
	if err := page.JSON(&resp); err != nil {
		return nil, err
	}
	queryType := page.URL.Query().Get("type")
	pages := resp.NumResults/habitaSearchPerPage + 1
	urls := make([]string, 0, pages)
	for n := 1; n <= pages; n++ {
		urls = append(urls, habitaSearchURL(n, habitaSearchPerPage, queryType))
	}
	return urls, nil
}

// DetailURLs caches every result payload under its item id and returns the
// property page urls. The listing type is known only here, from the search
// query, so it is cached alongside the payload.
func (a *habitaCom) DetailURLs(page *Page) ([]string, error) {
	var resp habitaSearchResponse
	if err := page.JSON(&resp); err != nil {
		return nil, err
	}
	listing := ListingSale
	if page.URL.Query().Get("type") == "ResidenceRent" {
		listing = ListingRent
	}
	urls := make([]string, 0, len(resp.Results))
	for _, item := range resp.Results {
		a.items[item.ID] = habitaCachedItem{item: item, listing: listing}
		urls = append(urls, fmt.Sprintf("https://www.habita.com/property/en/%d", item.ID))
	}
	return urls, nil
}

func (a *habitaCom) Extract(page *Page) (*RealEstate, error) {
	id, err := strconv.Atoi(path.Base(page.URL.Path))
	if err != nil {
		return nil, apperr.DropPage(a.Domain(), "no item id in url "+page.URL.String())
	}
	cached, ok := a.items[id]
	if !ok {
		return nil, apperr.DropPage(a.Domain(), "no cached search payload for item "+strconv.Itoa(id))
	}
	country, ok := habitaCountryISO[cached.item.Country]
	if !ok {
		return nil, apperr.DropPage(a.Domain(), "unmapped country "+cached.item.Country)
	}
	doc, err := page.Doc()
	if err != nil {
		return nil, err
	}

	unit := "EUR"
	if cached.listing == ListingRent {
		unit = "EUR/MONTH"
	}
	record := &RealEstate{
		Location: Location{
			Country: country,
			City:    cached.item.Area3,
			// '45700 Kuusankoski'
			ZipCode: habitaDigitsRe.FindString(siblingValue(doc, "table#general-information th", "Location")),
		},
		ListingType: cached.listing,
		ObjectType:  cached.item.Type,
		ScrapeURL:   page.URL.String(),
		ScrapedAt:   time.Now(),
	}
	// '125 m²'
	if fields := strings.Fields(cached.item.Area); len(fields) > 0 {
		if v, ok := ParseLocalizedFloat(fields[0]); ok {
			record.Area = &v
		}
	}
	if cached.item.Price > 0 {
		record.Price = &Price{Amount: cached.item.Price, Unit: unit}
	}
	if match := habitaEnergyRe.FindStringSubmatch(siblingValue(doc, "table.details th", "Energy certificate class")); match != nil {
		record.EPC.EnergyEfficiency = &EnergyData{Class: match[1]}
		if year, err := strconv.Atoi(match[2]); err == nil {
			issued := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			record.EPC.IssuedDate = &issued
		}
	}
	if year, err := ExtractYear(siblingValue(doc, "table.details th", "Construction year")); err == nil {
		built := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		record.DateBuilt = &built
	}
	return record, nil
}
