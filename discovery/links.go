package discovery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsrag/scraper"
)

// ExtractLinks returns the article links of a listing page in discovery
// order, without duplicates. The fallback strategy only runs when the
// primary one finds nothing.
func ExtractLinks(doc *goquery.Document, config scraper.ListConfig) []string {
	if doc == nil {
		return []string{}
	}

	links := titleAnchorLinks(doc, config)
	if len(links) == 0 {
		links = itemAnchorLinks(doc, config)
	}

	return links
}

// titleAnchorLinks walks from each teaser title up to its enclosing anchor.
func titleAnchorLinks(doc *goquery.Document, config scraper.ListConfig) []string {
	links := newLinkSet()

	selector := strings.TrimSpace(config.ItemSelector + " " + config.TitleSelector)
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		anchor := s.ParentsFiltered("a").First()
		if anchor.Length() == 0 {
			return
		}

		href, ok := anchor.Attr("href")
		if !ok || href == "" || !strings.Contains(href, config.LinkMarker) {
			return
		}

		links.add(href)
	})

	return links.items
}

// itemAnchorLinks collects every marked anchor inside each teaser item.
func itemAnchorLinks(doc *goquery.Document, config scraper.ListConfig) []string {
	links := newLinkSet()

	doc.Find(config.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		item.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href := a.AttrOr("href", "")
			if href == "" || !strings.Contains(href, config.LinkMarker) {
				return
			}
			links.add(href)
		})
	})

	return links.items
}

// linkSet keeps first-seen order.
type linkSet struct {
	seen  map[string]struct{}
	items []string
}

func newLinkSet() *linkSet {
	return &linkSet{
		seen:  make(map[string]struct{}),
		items: []string{},
	}
}

func (l *linkSet) add(link string) bool {
	if _, ok := l.seen[link]; ok {
		return false
	}
	l.seen[link] = struct{}{}
	l.items = append(l.items, link)
	return true
}
