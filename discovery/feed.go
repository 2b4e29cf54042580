package discovery

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// ParseFeed parses an RSS or Atom document. gofeed detects the format.
func ParseFeed(body []byte) (*gofeed.Feed, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// FeedLinks returns the item links of a feed that contain marker, in feed
// order and without duplicates.
func FeedLinks(feed *gofeed.Feed, marker string) []string {
	links := newLinkSet()
	if feed == nil {
		return links.items
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" || !strings.Contains(link, marker) {
			continue
		}
		links.add(link)
	}

	return links.items
}

// FetchFeedLinks fetches a feed through fetcher and returns its article
// links.
func FetchFeedLinks(ctx context.Context, fetcher Fetcher, url, marker string) ([]string, error) {
	body, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	feed, err := ParseFeed(body)
	if err != nil {
		return nil, err
	}

	return FeedLinks(feed, marker), nil
}
