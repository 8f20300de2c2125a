package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is the query surface the extractor needs from one listing element.
type Element interface {
	// Find returns the first descendant matching selector.
	Find(selector string) (Element, bool)
	// All returns every descendant matching selector, in document order.
	All(selector string) []Element
	// Attr reads an attribute value.
	Attr(name string) (string, bool)
	// Text returns the element's visible text with whitespace collapsed.
	Text() string
}

// Page is a rendered page that can be searched for listing elements.
type Page interface {
	FindAll(selector string) []Element
	HTML() string
}

// Document is a Page backed by a goquery document.
type Document struct {
	doc *goquery.Document
	raw string
}

// NewDocument parses rendered HTML into a Document.
func NewDocument(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("scraper: parse html: %w", err)
	}
	return &Document{doc: doc, raw: html}, nil
}

// FindAll returns every element matching selector, in document order.
// An invalid selector matches nothing.
func (d *Document) FindAll(selector string) []Element {
	return wrapAll(d.doc.Find(selector))
}

func wrapAll(sel *goquery.Selection) []Element {
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &selection{sel: s})
	})
	return elements
}

// HTML returns the source the document was parsed from.
func (d *Document) HTML() string {
	return d.raw
}

// Title returns the text of the page's <title> element.
func (d *Document) Title() string {
	return normaliseText(d.doc.Find("title").First().Text())
}

type selection struct {
	sel *goquery.Selection
}

func (s *selection) Find(selector string) (Element, bool) {
	found := s.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return &selection{sel: found}, true
}

func (s *selection) All(selector string) []Element {
	return wrapAll(s.sel.Find(selector))
}

func (s *selection) Attr(name string) (string, bool) {
	return s.sel.Attr(name)
}

func (s *selection) Text() string {
	return normaliseText(s.sel.Text())
}
