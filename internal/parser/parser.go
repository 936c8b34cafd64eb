// Package parser extracts provider ids and URL schemes from directory markup.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors used against the directory site.
const (
	ListingSelector = ".services > ul"
	SchemesSelector = ".provider-url-schemes ul li"
	TrySelector     = ".provider-try input"
)

// ErrListingNotFound means the directory page lacks its services list.
var ErrListingNotFound = errors.New("services list not found on directory page")

// ParseListing returns the id of every direct li child of the services list
// that carries one, in document order.
func ParseListing(markup string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse directory page: %w", err)
	}
	list := doc.Find(ListingSelector).First()
	if list.Length() == 0 {
		return nil, ErrListingNotFound
	}
	items := list.ChildrenFiltered("li")
	ids := make([]string, 0, items.Length())
	items.Each(func(_ int, li *goquery.Selection) {
		if id, ok := li.Attr("id"); ok && id != "" {
			ids = append(ids, id)
		}
	})
	return ids, nil
}

// Detail is what one provider page yields.
type Detail struct {
	// Schemes is empty, never nil, when the page has no schemes list.
	Schemes    []string
	HasSchemes bool
	// TryDomain is the example domain from the "try it" box, if any.
	TryDomain string
}

// ParseDetail extracts the text of each URL scheme item and the example domain
// of a provider page. Each text fragment inside an item is trimmed and the
// fragments are joined without a separator.
func ParseDetail(markup string) Detail {
	d := Detail{Schemes: []string{}}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return d
	}
	items := doc.Find(SchemesSelector)
	items.Each(func(_ int, li *goquery.Selection) {
		d.Schemes = append(d.Schemes, strippedText(li))
	})
	d.HasSchemes = items.Length() > 0
	if placeholder, ok := doc.Find(TrySelector).First().Attr("placeholder"); ok {
		d.TryDomain = normalizeDomain(placeholder)
	}
	return d
}

func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, child *goquery.Selection) {
			switch goquery.NodeName(child) {
			case "#text":
				b.WriteString(strings.TrimSpace(child.Text()))
			case "#comment":
			default:
				walk(child)
			}
		})
	}
	walk(sel)
	return b.String()
}

func normalizeDomain(placeholder string) string {
	domain := strings.TrimSpace(placeholder)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimSuffix(domain, "..")
}
