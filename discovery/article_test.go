package discovery

import (
	"testing"

	"github.com/pevans/newsrag/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullArticleHTML = `
<html>
	<head><title>Page</title></head>
	<body>
		<h1>Site Header</h1>
		<h1 class="article-title">  Tips Mengatur   Gaji Bulanan </h1>
		<div class="date">Senin, 15 Januari 2024 | 10:30</div>
		<article class="detailsContent">
			<p>Bisnis.com, JAKARTA — Mengatur gaji bulanan butuh disiplin.</p>
			<p>Baca Juga</p>
			<p>Pertama, catat semua pengeluaran.</p>
			<p>   </p>
			<p>Kedua, sisihkan dana darurat.</p>
		</article>
		<div class="topic">
			<a href="/topic/1">Keuangan</a>
			<a href="/topic/2"> Gaji </a>
			<a href="/topic/3">  </a>
		</div>
	</body>
</html>
`

// TestExtractArticle_Complete verifies every field of a well-formed page
func TestExtractArticle_Complete(t *testing.T) {
	doc := mustDoc(t, fullArticleHTML)

	record, err := ExtractArticle(doc, scraper.DefaultConfig().ArticleConfig, "https://x.test/read/1")
	require.NoError(t, err)

	assert.Equal(t, "Tips Mengatur Gaji Bulanan", record.Title)
	assert.Equal(t, "https://x.test/read/1", record.URL)
	assert.Equal(t, "Mengatur gaji bulanan butuh disiplin.\nPertama, catat semua pengeluaran.\nKedua, sisihkan dana darurat.", record.Content)
	require.NotNil(t, record.Date)
	assert.Equal(t, "Senin, 15 Januari 2024 | 10:30", *record.Date)
	assert.Equal(t, []string{"Keuangan", "Gaji"}, record.Tags)
	assert.Equal(t, "bisnis.com", record.Source)
}

// TestExtractArticle_TitleFallback verifies any h1 is used when the article
// title heading is missing
func TestExtractArticle_TitleFallback(t *testing.T) {
	doc := mustDoc(t, `<html><body><h1>Plain Heading</h1></body></html>`)

	record, err := ExtractArticle(doc, scraper.DefaultConfig().ArticleConfig, "u")
	require.NoError(t, err)

	assert.Equal(t, "Plain Heading", record.Title)
}

// TestExtractArticle_EmptyTitleHeading verifies an empty heading counts as
// a miss
func TestExtractArticle_EmptyTitleHeading(t *testing.T) {
	doc := mustDoc(t, `<html><body><h1 class="article-title">  </h1></body></html>`)

	record, err := ExtractArticle(doc, scraper.DefaultConfig().ArticleConfig, "u")
	require.NoError(t, err)

	assert.Equal(t, scraper.DefaultTitle, record.Title)
}

// TestExtractArticle_NoTitle verifies the default title instead of an error
func TestExtractArticle_NoTitle(t *testing.T) {
	doc := mustDoc(t, `<html><body><h2>Not a title</h2></body></html>`)

	record, err := ExtractArticle(doc, scraper.DefaultConfig().ArticleConfig, "u")
	require.NoError(t, err)

	assert.Equal(t, "No Title", record.Title)
	assert.Empty(t, record.Content)
	assert.Nil(t, record.Date)
}

// TestExtractArticle_NoTitleNormalized verifies the lower-cased default
func TestExtractArticle_NoTitleNormalized(t *testing.T) {
	config := scraper.DefaultConfig().ArticleConfig
	config.Normalize = true

	record, err := ExtractArticle(mustDoc(t, `<html><body></body></html>`), config, "u")
	require.NoError(t, err)

	assert.Equal(t, "no title", record.Title)
}

// TestExtractArticle_DateFallbacks verifies the date selector order
func TestExtractArticle_DateFallbacks(t *testing.T) {
	config := scraper.DefaultConfig().ArticleConfig

	tests := []struct {
		name string
		html string
		want string
	}{
		{"span date", `<span class="date">Selasa</span><div class="artDate">Rabu</div>`, "Selasa"},
		{"art date", `<div class="artDate">Rabu</div>`, "Rabu"},
		{"div date first", `<div class="artDate">Rabu</div><div class="date">Senin</div>`, "Senin"},
		{"empty div date skipped", `<div class="date"> </div><div class="artDate">Rabu</div>`, "Rabu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := ExtractArticle(mustDoc(t, "<html><body>"+tt.html+"</body></html>"), config, "u")
			require.NoError(t, err)
			require.NotNil(t, record.Date)
			assert.Equal(t, tt.want, *record.Date)
		})
	}
}

// TestExtractArticle_ContentFallback verifies the generic article body is
// used when the details container is missing
func TestExtractArticle_ContentFallback(t *testing.T) {
	doc := mustDoc(t, `
	<html><body>
		<p>Outside the body</p>
		<div class="article-body"><p>Isi artikel.</p><p>Paragraf dua.</p></div>
	</body></html>
	`)

	record, err := ExtractArticle(doc, scraper.DefaultConfig().ArticleConfig, "u")
	require.NoError(t, err)

	assert.Equal(t, "Isi artikel.\nParagraf dua.", record.Content)
}

// TestExtractArticle_ContentPrefersDetails verifies container order
func TestExtractArticle_ContentPrefersDetails(t *testing.T) {
	doc := mustDoc(t, `
	<html><body>
		<div class="article-body"><p>Old layout</p></div>
		<article class="detailsContent"><p>New layout</p></article>
	</body></html>
	`)

	record, err := ExtractArticle(doc, scraper.DefaultConfig().ArticleConfig, "u")
	require.NoError(t, err)

	assert.Equal(t, "New layout", record.Content)
}

// TestExtractArticle_DefaultTag verifies exactly one default tag when no tag
// anchors exist
func TestExtractArticle_DefaultTag(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no container", `<h1>T</h1>`},
		{"empty container", `<div class="topic"></div>`},
		{"blank anchors", `<ul class="tags"><li><a href="/t"> </a></li></ul>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := ExtractArticle(mustDoc(t, "<html><body>"+tt.html+"</body></html>"), scraper.DefaultConfig().ArticleConfig, "u")
			require.NoError(t, err)
			assert.Equal(t, []string{"tips keuangan"}, record.Tags)
		})
	}
}

// TestExtractArticle_TagsFromList verifies the tags list container
func TestExtractArticle_TagsFromList(t *testing.T) {
	doc := mustDoc(t, `<html><body><ul class="tags"><li><a>Emas</a></li><li><a>Investasi</a></li></ul></body></html>`)

	record, err := ExtractArticle(doc, scraper.DefaultConfig().ArticleConfig, "u")
	require.NoError(t, err)

	assert.Equal(t, []string{"Emas", "Investasi"}, record.Tags)
}

// TestExtractArticle_NormalizedVariant verifies lower-casing and dropped
// metadata
func TestExtractArticle_NormalizedVariant(t *testing.T) {
	config := scraper.DefaultConfig().ArticleConfig
	config.Normalize = true
	config.RetainMetadata = false

	record, err := ExtractArticle(mustDoc(t, fullArticleHTML), config, "https://x.test/read/1")
	require.NoError(t, err)

	assert.Equal(t, "tips mengatur gaji bulanan", record.Title)
	assert.Equal(t, "mengatur gaji bulanan butuh disiplin.\npertama, catat semua pengeluaran.\nkedua, sisihkan dana darurat.", record.Content)
	assert.Nil(t, record.Date)
	assert.Nil(t, record.Tags)
	assert.Equal(t, "https://x.test/read/1", record.URL, "URL is never lower-cased")
}

// TestExtractArticle_NilDocument verifies the only error case
func TestExtractArticle_NilDocument(t *testing.T) {
	_, err := ExtractArticle(nil, scraper.DefaultConfig().ArticleConfig, "u")
	assert.ErrorIs(t, err, ErrNilDocument)
}

// TestFirstText_Order verifies strategies run in order and skip empty
// values
func TestFirstText_Order(t *testing.T) {
	doc := mustDoc(t, `<html><body><h2> </h2><h3>Third</h3><h4>Fourth</h4></body></html>`)

	text, ok := FirstText(doc, SelectText("h1"), SelectText("h2"), SelectText("h3"), SelectText("h4"))
	require.True(t, ok)
	assert.Equal(t, "Third", text)

	_, ok = FirstText(doc, SelectText("h5"))
	assert.False(t, ok)

	_, ok = FirstText(doc)
	assert.False(t, ok)
}
