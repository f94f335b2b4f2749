// Package search maintains a full-text index over structured records, feeding
// the search API and the assistant's evidence context.
package search

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"evidence-bot/record"
)

// Index wraps a Bleve search index over structured records.
type Index struct {
	index bleve.Index
}

// IndexedRecord is the document shape stored in the index. Both language
// variants are indexed so queries match in either language.
type IndexedRecord struct {
	ID              string
	Submitter       string
	TitleOriginal   string
	TitleTranslated string
	QuoteOriginal   string
	QuoteTranslated string
	Tags            []string
	Excerpt         string
}

// Hit is one search result.
type Hit struct {
	ID              string
	Submitter       string
	TitleOriginal   string
	TitleTranslated string
	Score           float64
	Fragments       map[string][]string
}

// NewMemIndex creates an in-memory index. The index lives and dies with the
// process, like the export buffer it mirrors.
func NewMemIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Submitter", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("TitleOriginal", textFieldMapping)
	docMapping.AddFieldMappingsAt("TitleTranslated", titleFieldMapping)
	docMapping.AddFieldMappingsAt("QuoteOriginal", textFieldMapping)
	docMapping.AddFieldMappingsAt("QuoteTranslated", textFieldMapping)
	docMapping.AddFieldMappingsAt("Tags", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Excerpt", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// SaveRecord indexes a structured record. It satisfies the pipeline's record
// sink contract.
func (i *Index) SaveRecord(ctx context.Context, rec *record.StructuredRecord) error {
	tags := append([]string{}, rec.Tags.Affirmative...)
	tags = append(tags, rec.Tags.Negative...)

	doc := &IndexedRecord{
		ID:              rec.ID,
		Submitter:       rec.Submitter,
		TitleOriginal:   rec.Title.Original,
		TitleTranslated: rec.Title.Translated,
		QuoteOriginal:   rec.Quote.Original,
		QuoteTranslated: rec.Quote.Translated,
		Tags:            tags,
		Excerpt:         rec.Metadata.SourceExcerpt,
	}

	if err := i.index.Index(doc.ID, doc); err != nil {
		return fmt.Errorf("index record %s: %w", doc.ID, err)
	}
	return nil
}

// Search runs a query string search with highlighting.
func (i *Index) Search(queryStr string, limit int) ([]*Hit, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Highlight = bleve.NewHighlight()
	req.Fields = []string{"Submitter", "TitleOriginal", "TitleTranslated"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]*Hit, 0, len(results.Hits))
	for _, h := range results.Hits {
		hit := &Hit{
			ID:        h.ID,
			Score:     h.Score,
			Fragments: h.Fragments,
		}
		if v, ok := h.Fields["Submitter"].(string); ok {
			hit.Submitter = v
		}
		if v, ok := h.Fields["TitleOriginal"].(string); ok {
			hit.TitleOriginal = v
		}
		if v, ok := h.Fields["TitleTranslated"].(string); ok {
			hit.TitleTranslated = v
		}
		hits = append(hits, hit)
	}

	return hits, nil
}
