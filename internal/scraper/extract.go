package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// findByText returns the nodes matched by selector whose cleaned text equals
// label. Sites put field labels in th/td/p cells next to the value cell.
func findByText(doc *goquery.Document, selector, label string) *goquery.Selection {
	return doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return CleanText(s.Text()) == label
	})
}

// siblingValue returns the cleaned text of the element right after the first
// node matched by selector whose text equals label, e.g. the <td> next to its
// label <th>
func siblingValue(doc *goquery.Document, selector, label string) string {
	sel := findByText(doc, selector, label)
	if sel.Length() == 0 {
		return ""
	}
	return CleanText(sel.First().Next().Text())
}

// ownText returns the text of sel's direct text nodes, excluding child
// elements
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			b.WriteString(s.Text())
		}
	})
	return CleanText(b.String())
}
