// Package record holds the entities the extraction service stores and
// exchanges: source documents and the trait records extracted from them.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// Document sources.
const (
	SourceHTTP  = "http"
	SourceCLI   = "cli"
	SourceQueue = "queue"
)

// Document is one label or treatment text. ObjectKey names a stored text
// object when Text is empty.
type Document struct {
	ID        string `json:"id"`
	Source    string `json:"source,omitempty"`
	Text      string `json:"text,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`
}

// NewDocument returns a document with a fresh ID.
func NewDocument(source, text string) Document {
	return Document{ID: uuid.NewString(), Source: source, Text: text}
}

// EnsureID assigns a fresh ID when the document has none.
func (d *Document) EnsureID() {
	if strings.TrimSpace(d.ID) == "" {
		d.ID = uuid.NewString()
	}
}

// Span is the flattened view of one surviving annotation.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Extraction is the outcome of one document run.
type Extraction struct {
	DocumentID string         `json:"document_id"`
	Source     string         `json:"source,omitempty"`
	TextHash   string         `json:"text_hash"`
	Record     *traits.Record `json:"record"`
	Spans      []Span         `json:"spans,omitempty"`
	TraitCount int            `json:"trait_count"`
	Duration   time.Duration  `json:"duration_ns"`
	CreatedAt  time.Time      `json:"created_at"`
}

// HashText returns the hex SHA-256 of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ScientificName returns the record's scientificName, or "".
func (e *Extraction) ScientificName() string {
	if e.Record == nil {
		return ""
	}
	s, _ := e.Record.Top["scientificName"].(string)
	return s
}
