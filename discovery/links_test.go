package discovery

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsrag/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func defaultListConfig() scraper.ListConfig {
	return scraper.DefaultConfig().ListConfig
}

// TestExtractLinks_Primary verifies title anchors are used first
func TestExtractLinks_Primary(t *testing.T) {
	doc := mustDoc(t, `
	<html><body>
		<div class="artItem">
			<a href="https://www.bisnis.com/read/20240101/1/111/a"><h4 class="artTitle">A</h4></a>
		</div>
		<div class="artItem">
			<a href="https://www.bisnis.com/read/20240102/1/222/b"><h4 class="artTitle">B</h4></a>
		</div>
	</body></html>
	`)

	links := ExtractLinks(doc, defaultListConfig())

	assert.Equal(t, []string{
		"https://www.bisnis.com/read/20240101/1/111/a",
		"https://www.bisnis.com/read/20240102/1/222/b",
	}, links)
}

// TestExtractLinks_PrimaryDeduplicates verifies first-seen order without
// duplicates
func TestExtractLinks_PrimaryDeduplicates(t *testing.T) {
	doc := mustDoc(t, `
	<html><body>
		<div class="artItem"><a href="https://x.test/read/2"><h4 class="artTitle">2</h4></a></div>
		<div class="artItem"><a href="https://x.test/read/1"><h4 class="artTitle">1</h4></a></div>
		<div class="artItem"><a href="https://x.test/read/2"><h4 class="artTitle">2 again</h4></a></div>
	</body></html>
	`)

	links := ExtractLinks(doc, defaultListConfig())

	assert.Equal(t, []string{"https://x.test/read/2", "https://x.test/read/1"}, links)
}

// TestExtractLinks_PrimarySkipsUnmarked verifies category and ad links are
// ignored
func TestExtractLinks_PrimarySkipsUnmarked(t *testing.T) {
	doc := mustDoc(t, `
	<html><body>
		<div class="artItem"><a href="https://x.test/topic/28722"><h4 class="artTitle">Topic</h4></a></div>
		<div class="artItem"><a href=""><h4 class="artTitle">Empty</h4></a></div>
		<div class="artItem"><h4 class="artTitle">No anchor</h4></div>
		<div class="artItem"><a href="https://x.test/read/9"><h4 class="artTitle">Real</h4></a></div>
	</body></html>
	`)

	links := ExtractLinks(doc, defaultListConfig())

	assert.Equal(t, []string{"https://x.test/read/9"}, links)
}

// TestExtractLinks_Fallback verifies item anchors are used when no title
// anchor qualifies
func TestExtractLinks_Fallback(t *testing.T) {
	doc := mustDoc(t, `
	<html><body>
		<div class="artItem">
			<a href="https://x.test/read/1"><img src="a.jpg"></a>
			<a href="https://x.test/read/1">Same again</a>
			<a href="https://x.test/topic/1">Topic</a>
		</div>
		<div class="artItem">
			<span class="artTitle">Title without anchor</span>
			<a href="https://x.test/read/2">Second</a>
		</div>
	</body></html>
	`)

	links := ExtractLinks(doc, defaultListConfig())

	assert.Equal(t, []string{"https://x.test/read/1", "https://x.test/read/2"}, links)
}

// TestExtractLinks_FallbackNotUsedWhenPrimaryFinds verifies the fallback is
// only a fallback
func TestExtractLinks_FallbackNotUsedWhenPrimaryFinds(t *testing.T) {
	doc := mustDoc(t, `
	<html><body>
		<div class="artItem">
			<a href="https://x.test/read/1"><h4 class="artTitle">One</h4></a>
			<a href="https://x.test/read/extra">Extra</a>
		</div>
	</body></html>
	`)

	links := ExtractLinks(doc, defaultListConfig())

	assert.Equal(t, []string{"https://x.test/read/1"}, links)
}

// TestExtractLinks_NoItems verifies an empty page yields an empty slice
func TestExtractLinks_NoItems(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>Nothing here</p></body></html>`)

	links := ExtractLinks(doc, defaultListConfig())

	require.NotNil(t, links)
	assert.Empty(t, links)
	assert.Empty(t, ExtractLinks(nil, defaultListConfig()))
}

// TestExtractLinks_AlwaysMarked verifies no returned link lacks the marker
func TestExtractLinks_AlwaysMarked(t *testing.T) {
	pages := []string{
		`<div class="artItem"><a href="/read/a"><b class="artTitle">a</b></a><a href="/ads">x</a></div>`,
		`<div class="artItem"><a href="/ads"><b class="artTitle">a</b></a><a href="/news/read-more">x</a><a href="/about">y</a></div>`,
	}

	for _, page := range pages {
		for _, link := range ExtractLinks(mustDoc(t, page), defaultListConfig()) {
			assert.Contains(t, link, "read")
		}
	}
}

// TestExtractLinks_CustomMarker verifies the marker comes from config
func TestExtractLinks_CustomMarker(t *testing.T) {
	doc := mustDoc(t, `
	<html><body>
		<li class="post"><a href="/story/1"><span class="headline">1</span></a></li>
		<li class="post"><a href="/read/2"><span class="headline">2</span></a></li>
	</body></html>
	`)

	config := scraper.NewListConfig(".post", ".headline")
	config.LinkMarker = "story"

	assert.Equal(t, []string{"/story/1"}, ExtractLinks(doc, config))
}
