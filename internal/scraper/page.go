package scraper

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	apperr "estatescrapers/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// Page is one fetched response handed to an adapter. The body is kept raw so
// API-driven adapters can decode JSON instead of parsing HTML.
type Page struct {
	URL  *url.URL
	Body []byte

	doc *goquery.Document
}

// NewPage wraps a fetched response body
func NewPage(rawURL string, body []byte) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperr.NewFetch("", "invalid page url: "+rawURL, err)
	}
	return &Page{URL: u, Body: body}, nil
}

// Doc parses the body as an HTML document, once
func (p *Page) Doc() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, apperr.NewExtraction(p.Host(), "html parse failed", err)
	}
	p.doc = doc
	return doc, nil
}

// JSON decodes the body into v
func (p *Page) JSON(v any) error {
	if err := json.Unmarshal(p.Body, v); err != nil {
		return apperr.NewExtraction(p.Host(), "json parse failed", err)
	}
	return nil
}

// Host returns the lowercase host of the page URL without a "www." prefix
func (p *Page) Host() string {
	return NormalizeHost(p.URL.Host)
}

// NormalizeHost lowercases a host and strips the "www." prefix
func NormalizeHost(host string) string {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.TrimPrefix(host, "www.")
}
