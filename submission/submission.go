// Package submission defines the typed form-response record and its extraction
// from a raw spreadsheet row.
package submission

import (
	"fmt"
	"strings"
)

// MinColumns is the number of fields a form-response row must carry.
const MinColumns = 11

// Submission is the validated, typed representation of one form response.
// It is never mutated after extraction.
type Submission struct {
	Timestamp  string
	Submitter  string
	Title      string
	AffTags    []string
	NegTags    []string
	SourceURL  string
	UpdateDate string
	EngSource  string
	Quote      string
	Attachment string
	Remark     string
}

// FailureKind classifies an extraction failure.
type FailureKind string

// InsufficientColumns means the row had fewer than MinColumns fields.
const InsufficientColumns FailureKind = "insufficient_columns"

// ExtractionError reports why a row could not be turned into a Submission.
type ExtractionError struct {
	Kind    FailureKind
	Columns int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract submission: %s (%d columns)", e.Kind, e.Columns)
}

// Extract validates and normalizes a raw row into a Submission.
// Fields 0-10 map positionally: timestamp, submitter, title, affirmative tags,
// negative tags, source URL, update date, English source label, quote,
// attachment, remark. Field contents are accepted as opaque strings; the only
// structural check is the column count.
func Extract(row []string) (*Submission, *ExtractionError) {
	if len(row) < MinColumns {
		return nil, &ExtractionError{Kind: InsufficientColumns, Columns: len(row)}
	}

	return &Submission{
		Timestamp:  row[0],
		Submitter:  row[1],
		Title:      row[2],
		AffTags:    splitTags(row[3]),
		NegTags:    splitTags(row[4]),
		SourceURL:  row[5],
		UpdateDate: row[6],
		EngSource:  row[7],
		Quote:      row[8],
		Attachment: row[9],
		Remark:     row[10],
	}, nil
}

// splitTags splits a comma-separated tag field. An empty field yields an empty
// slice, not a single empty tag.
func splitTags(field string) []string {
	if field == "" {
		return []string{}
	}
	return strings.Split(field, ", ")
}
