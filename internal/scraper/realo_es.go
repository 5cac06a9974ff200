package scraper

import (
	"fmt"
	"regexp"
)

// The Spanish city index is not searchable, so every index page is an entry
// point.
const realoEsCityPages = 41

// NewRealoEs builds the realo.es adapter. The site shares the realo.be
// markup; only entry urls, country and the five-digit zip format differ.
func NewRealoEs() Adapter {
	a := &realo{
		domain:  "realo.es",
		base:    "https://www.realo.es",
		country: "ESP",
		zipRe:   regexp.MustCompile(`\d{5}`),
	}
	for n := 1; n <= realoEsCityPages; n++ {
		a.entries = append(a.entries, fmt.Sprintf("https://www.realo.es/en/cities?page=%d", n))
	}
	return Adapter{Home: a, List: a, Detail: a}
}
