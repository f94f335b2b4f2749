package search

import (
	"context"
	"testing"

	"evidence-bot/record"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewMemIndex()
	if err != nil {
		t.Fatalf("NewMemIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func indexRecord(t *testing.T, idx *Index, id, title, quote string, tags ...string) {
	t.Helper()
	rec := &record.StructuredRecord{
		ID:        id,
		Submitter: "Alice",
		Title:     record.BilingualText{Original: title, Translated: title},
		Quote:     record.BilingualText{Original: quote, Translated: quote},
		Tags:      record.TagSet{Affirmative: tags, Negative: []string{}},
	}
	if err := idx.SaveRecord(context.Background(), rec); err != nil {
		t.Fatalf("SaveRecord %s: %v", id, err)
	}
}

func TestSearchFindsIndexedRecord(t *testing.T) {
	idx := newTestIndex(t)
	indexRecord(t, idx, "entry_1", "Nuclear energy policy", "Reactors reduce emissions")
	indexRecord(t, idx, "entry_2", "Carbon tax overview", "Pricing carbon changes behavior")

	hits, err := idx.Search("nuclear", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].ID != "entry_1" {
		t.Errorf("hit ID = %q, want entry_1", hits[0].ID)
	}
	if hits[0].TitleOriginal != "Nuclear energy policy" {
		t.Errorf("TitleOriginal = %q", hits[0].TitleOriginal)
	}
	if hits[0].Score <= 0 {
		t.Errorf("score = %f, want > 0", hits[0].Score)
	}
}

func TestSearchMatchesQuoteText(t *testing.T) {
	idx := newTestIndex(t)
	indexRecord(t, idx, "entry_1", "Some title", "Reactors reduce emissions")

	hits, err := idx.Search("emissions", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
}

func TestSearchMatchesTags(t *testing.T) {
	idx := newTestIndex(t)
	indexRecord(t, idx, "entry_1", "Some title", "Some quote", "renewables")

	hits, err := idx.Search("renewables", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
}

func TestSearchNoResults(t *testing.T) {
	idx := newTestIndex(t)
	indexRecord(t, idx, "entry_1", "Some title", "Some quote")

	hits, err := idx.Search("unrelated", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits, want 0", len(hits))
	}
}

func TestSearchLimit(t *testing.T) {
	idx := newTestIndex(t)
	indexRecord(t, idx, "entry_1", "Shared topic one", "quote")
	indexRecord(t, idx, "entry_2", "Shared topic two", "quote")
	indexRecord(t, idx, "entry_3", "Shared topic three", "quote")

	hits, err := idx.Search("shared", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want 2", len(hits))
	}
}

func TestReindexReplacesDocument(t *testing.T) {
	idx := newTestIndex(t)
	indexRecord(t, idx, "entry_1", "Original title", "quote")
	indexRecord(t, idx, "entry_1", "Replacement title", "quote")

	hits, err := idx.Search("replacement", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}

	hits, err = idx.Search("original", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("stale document still indexed: %d hits", len(hits))
	}
}
