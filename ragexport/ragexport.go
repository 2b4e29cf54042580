// Package ragexport writes scraped articles as a JSON array of documents for
// retrieval-augmented-generation ingestion.
package ragexport

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pevans/newsrag/discovery"
)

// Output defaults.
const (
	DefaultDir  = "output"
	DefaultFile = "bisnis_tips_keuangan_data.json"
)

// Document is one RAG document.
type Document struct {
	ID       uint64   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Metadata describes where a document came from. Date and Tags are only
// written when Retained is set, and then Date is written even when nil.
type Metadata struct {
	Source   string
	URL      string
	Date     *string
	Tags     []string
	Retained bool
}

type bareMetadata struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

type fullMetadata struct {
	Source string   `json:"source"`
	URL    string   `json:"url"`
	Date   *string  `json:"date"`
	Tags   []string `json:"tags"`
}

// MarshalJSON picks the metadata shape.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if !m.Retained {
		return marshalLiteral(bareMetadata{Source: m.Source, URL: m.URL})
	}

	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return marshalLiteral(fullMetadata{Source: m.Source, URL: m.URL, Date: m.Date, Tags: tags})
}

// marshalLiteral is json.Marshal without HTML escaping, so URLs keep their
// ampersands.
func marshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON accepts either shape. Retained is set when a tags key is
// present.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw struct {
		fullMetadata
		Tags *[]string `json:"tags"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Source = raw.Source
	m.URL = raw.URL
	m.Date = raw.Date
	m.Tags = nil
	m.Retained = raw.Tags != nil
	if raw.Tags != nil {
		m.Tags = *raw.Tags
	}

	return nil
}

// DocumentID derives a stable identifier from a URL: the first eight bytes of
// its SHA-256 digest, shifted so the value stays exact in float64 JSON
// readers.
func DocumentID(url string) uint64 {
	sum := sha256.Sum256([]byte(url))
	return binary.BigEndian.Uint64(sum[:8]) >> 11
}

// FromRecord maps one article record to a document.
func FromRecord(record discovery.ArticleRecord, retainMetadata bool) Document {
	return Document{
		ID:      DocumentID(record.URL),
		Title:   record.Title,
		Content: record.Content,
		Metadata: Metadata{
			Source:   record.Source,
			URL:      record.URL,
			Date:     record.Date,
			Tags:     record.Tags,
			Retained: retainMetadata,
		},
	}
}

// FromRecords maps records in order.
func FromRecords(records []discovery.ArticleRecord, retainMetadata bool) []Document {
	docs := make([]Document, 0, len(records))
	for _, record := range records {
		docs = append(docs, FromRecord(record, retainMetadata))
	}
	return docs
}

// Encode renders documents as an indented JSON array. HTML characters and
// non-ASCII text are written literally.
func Encode(docs []Document) ([]byte, error) {
	if docs == nil {
		docs = []Document{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(docs); err != nil {
		return nil, fmt.Errorf("failed to marshal documents: %w", err)
	}

	return buf.Bytes(), nil
}

// Save writes records to dir/file, creating dir if needed and replacing any
// existing file. It returns the path written.
func Save(dir, file string, records []discovery.ArticleRecord, retainMetadata bool) (string, error) {
	if file == "" {
		file = DefaultFile
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := Encode(FromRecords(records, retainMetadata))
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write documents: %w", err)
	}

	return path, nil
}

// Load reads a document file written by Save.
func Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal documents: %w", err)
	}

	return docs, nil
}
