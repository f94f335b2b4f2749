// Package record builds the structured export records and owns the in-process
// accumulator they are appended to.
package record

import (
	"context"
	"fmt"
	"sync"
	"time"

	"evidence-bot/submission"
)

// Translator produces a best-effort translation of text.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// BilingualText holds an original string and its translation.
type BilingualText struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// TagSet splits tags by polarity.
type TagSet struct {
	Affirmative []string `json:"affirmative"`
	Negative    []string `json:"negative"`
}

// Source holds provenance for a record.
type Source struct {
	URL        string `json:"url"`
	UpdateDate string `json:"update_date"`
	EngSource  string `json:"eng_source"`
}

// Metadata holds free-form record metadata.
type Metadata struct {
	Attachment    string `json:"attachment"`
	Remark        string `json:"remark"`
	SourceExcerpt string `json:"source_excerpt,omitempty"`
	ProcessedAt   string `json:"processed_at"`
}

// StructuredRecord is the export entity derived from one submission, shaped
// for downstream indexing. Created exactly once per extracted submission and
// never updated afterwards.
type StructuredRecord struct {
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"`
	Submitter string        `json:"submitter"`
	Title     BilingualText `json:"title"`
	Quote     BilingualText `json:"quote"`
	Tags      TagSet        `json:"tags"`
	Source    Source        `json:"source"`
	Metadata  Metadata      `json:"metadata"`
}

// Builder constructs structured records, translating title and quote
// independently through the translation adapter.
type Builder struct {
	translator Translator
}

// NewBuilder creates a Builder.
func NewBuilder(translator Translator) *Builder {
	return &Builder{translator: translator}
}

// Build creates the structured record for a submission. The record id is
// deterministic ("entry_<n>"); uniqueness of entry numbers within a run is the
// caller's responsibility. processedAt is captured once at build time.
func (b *Builder) Build(ctx context.Context, sub *submission.Submission, entryNumber int, now time.Time) *StructuredRecord {
	return &StructuredRecord{
		ID:        fmt.Sprintf("entry_%d", entryNumber),
		Timestamp: sub.Timestamp,
		Submitter: sub.Submitter,
		Title: BilingualText{
			Original:   sub.Title,
			Translated: b.translator.Translate(ctx, sub.Title),
		},
		Quote: BilingualText{
			Original:   sub.Quote,
			Translated: b.translator.Translate(ctx, sub.Quote),
		},
		Tags: TagSet{
			Affirmative: sub.AffTags,
			Negative:    sub.NegTags,
		},
		Source: Source{
			URL:        sub.SourceURL,
			UpdateDate: sub.UpdateDate,
			EngSource:  sub.EngSource,
		},
		Metadata: Metadata{
			Attachment:  sub.Attachment,
			Remark:      sub.Remark,
			ProcessedAt: now.Format(time.RFC3339),
		},
	}
}

// Store is the append-only accumulator of structured records. It is owned by
// the ingestion loop; readers get point-in-time copies via Snapshot.
type Store struct {
	mu      sync.RWMutex
	records []StructuredRecord
}

// NewStore creates an empty accumulator.
func NewStore() *Store {
	return &Store{}
}

// Append adds a record to the accumulator.
func (s *Store) Append(rec *StructuredRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *rec)
}

// Snapshot returns a copy of the accumulated records in append order.
func (s *Store) Snapshot() []StructuredRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StructuredRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of accumulated records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
