package ragexport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pevans/newsrag/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []discovery.ArticleRecord {
	date := "Senin, 15 Januari 2024"
	return []discovery.ArticleRecord{
		{
			Title:   "Tips Menabung <Emas> & Saham",
			URL:     "https://www.bisnis.com/read/20240115/1/1/tips",
			Content: "Menabung itu penting.\nRp1 juta per bulan — cukup?",
			Date:    &date,
			Tags:    []string{"Keuangan", "Emas"},
			Source:  "bisnis.com",
		},
		{
			Title:   "Tanpa Tanggal",
			URL:     "https://www.bisnis.com/read/20240116/1/2/tanpa?utm=a&ref=b",
			Content: "Isi.",
			Tags:    []string{"tips keuangan"},
			Source:  "bisnis.com",
		},
	}
}

// TestSave_RoundTrip verifies title, content and URL survive export
func TestSave_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	records := sampleRecords()

	path, err := Save(dir, "data.json", records, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data.json"), path)

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	for i, doc := range docs {
		assert.Equal(t, records[i].Title, doc.Title)
		assert.Equal(t, records[i].Content, doc.Content)
		assert.Equal(t, records[i].URL, doc.Metadata.URL)
		assert.Equal(t, "bisnis.com", doc.Metadata.Source)
		assert.Equal(t, DocumentID(records[i].URL), doc.ID)
		assert.True(t, doc.Metadata.Retained)
	}

	require.NotNil(t, docs[0].Metadata.Date)
	assert.Equal(t, "Senin, 15 Januari 2024", *docs[0].Metadata.Date)
	assert.Nil(t, docs[1].Metadata.Date)
	assert.Equal(t, []string{"Keuangan", "Emas"}, docs[0].Metadata.Tags)
}

// TestSave_LiteralText verifies non-ASCII and HTML characters are not
// escaped and output is indented
func TestSave_LiteralText(t *testing.T) {
	path, err := Save(t.TempDir(), "data.json", sampleRecords(), true)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "—")
	assert.Contains(t, text, "<Emas> & Saham")
	assert.Contains(t, text, "?utm=a&ref=b")
	assert.NotContains(t, text, `\u`)
	assert.True(t, strings.HasPrefix(text, "[\n  {\n    \"id\": "))
}

// TestSave_MetadataShape verifies date and tags keys follow the retain flag
func TestSave_MetadataShape(t *testing.T) {
	records := sampleRecords()

	retained, err := Encode(FromRecords(records, true))
	require.NoError(t, err)
	bare, err := Encode(FromRecords(records, false))
	require.NoError(t, err)

	var withMeta, withoutMeta []struct {
		Metadata map[string]any `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(retained, &withMeta))
	require.NoError(t, json.Unmarshal(bare, &withoutMeta))

	second := withMeta[1].Metadata
	dateValue, hasDate := second["date"]
	assert.True(t, hasDate, "date key should be present even when null")
	assert.Nil(t, dateValue)
	assert.Contains(t, second, "tags")

	assert.NotContains(t, withoutMeta[0].Metadata, "date")
	assert.NotContains(t, withoutMeta[0].Metadata, "tags")
	assert.Equal(t, "bisnis.com", withoutMeta[0].Metadata["source"])
}

// TestSave_Empty verifies an empty crawl still produces a valid file
func TestSave_Empty(t *testing.T) {
	path, err := Save(t.TempDir(), "", nil, true)
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	docs, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

// TestSave_Overwrites verifies a second run replaces the file
func TestSave_Overwrites(t *testing.T) {
	dir := t.TempDir()

	_, err := Save(dir, "data.json", sampleRecords(), true)
	require.NoError(t, err)
	path, err := Save(dir, "data.json", sampleRecords()[:1], true)
	require.NoError(t, err)

	docs, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

// TestSave_DirectoryIsFile verifies directory creation errors surface
func TestSave_DirectoryIsFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := Save(filepath.Join(blocker, "output"), "data.json", nil, true)
	assert.Error(t, err)
}

// TestDocumentID_Deterministic verifies IDs are reproducible and distinct
func TestDocumentID_Deterministic(t *testing.T) {
	a := DocumentID("https://www.bisnis.com/read/1")

	assert.Equal(t, a, DocumentID("https://www.bisnis.com/read/1"))
	assert.NotEqual(t, a, DocumentID("https://www.bisnis.com/read/2"))
	assert.Less(t, a, uint64(1)<<53)
}

// TestFromRecords_NilTags verifies retained metadata always has a tags list
func TestFromRecords_NilTags(t *testing.T) {
	data, err := Encode(FromRecords([]discovery.ArticleRecord{{URL: "u"}}, true))
	require.NoError(t, err)

	assert.Contains(t, string(data), `"tags": []`)
}

// TestLoad_Invalid verifies decode failures are reported
func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
