// Package pipeline drives ingestion: it polls the tabular source, computes
// the delta of unprocessed rows, and fans each new submission out to the
// document sink, the notification sink, and the structured export buffer.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"evidence-bot/format"
	"evidence-bot/record"
	"evidence-bot/submission"
)

// RowSource lists all rows of the tabular source, header row first.
type RowSource interface {
	ListRows(ctx context.Context) ([][]string, error)
}

// Translator produces a best-effort translation of text.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// DocumentSink appends a formatted entry to the compilation document.
type DocumentSink interface {
	AppendEntry(ctx context.Context, entry *format.DocumentEntry) error
}

// Notifier delivers a preformatted notification message.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// RecordSink receives structured records after they are accumulated. Sink
// failures are logged and never block the row.
type RecordSink interface {
	SaveRecord(ctx context.Context, rec *record.StructuredRecord) error
}

// Excerpter fetches a readable excerpt of a source page.
type Excerpter interface {
	Excerpt(ctx context.Context, url string) (string, error)
}

// SinkOutcome records one delivery attempt. Attempted distinguishes "not
// attempted" from "attempted and failed".
type SinkOutcome struct {
	Attempted bool
	Err       error
}

// OK reports whether the delivery was attempted and succeeded.
func (o SinkOutcome) OK() bool {
	return o.Attempted && o.Err == nil
}

// RowResult is the structured outcome of processing one row.
type RowResult struct {
	RowNumber    int
	EntryNumber  int
	ExtractErr   *submission.ExtractionError
	Document     SinkOutcome
	Notification SinkOutcome
	Record       *record.StructuredRecord
}

// Success reports whether the row was extracted and both deliveries succeeded.
func (r *RowResult) Success() bool {
	return r.ExtractErr == nil && r.Document.OK() && r.Notification.OK()
}

// CycleStats summarizes one polling cycle.
type CycleStats struct {
	RunID     string
	RowCount  int
	NewRows   int
	Processed int
	Skipped   int
	Offset    int
}

// Loop is the ingestion state machine. It owns the last-processed offset and
// the structured-record accumulator; both are mutated only from the loop's
// own execution context.
type Loop struct {
	source     RowSource
	translator Translator
	docs       DocumentSink
	notifier   Notifier
	builder    *record.Builder
	store      *record.Store
	sinks      []RecordSink
	excerpter  Excerpter
	interval   time.Duration
	now        func() time.Time

	lastProcessedRow int
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the sleep between polling cycles.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		l.interval = d
	}
}

// WithRecordSinks adds downstream sinks for structured records.
func WithRecordSinks(sinks ...RecordSink) Option {
	return func(l *Loop) {
		l.sinks = append(l.sinks, sinks...)
	}
}

// WithExcerpter enables best-effort source-page excerpts on records.
func WithExcerpter(e Excerpter) Option {
	return func(l *Loop) {
		l.excerpter = e
	}
}

// WithClock sets the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// NewLoop creates an ingestion loop. The structured-record accumulator is
// created here and owned by the loop; read access goes through Store().
func NewLoop(source RowSource, translator Translator, docs DocumentSink, notifier Notifier, opts ...Option) *Loop {
	l := &Loop{
		source:     source,
		translator: translator,
		docs:       docs,
		notifier:   notifier,
		builder:    record.NewBuilder(translator),
		store:      record.NewStore(),
		interval:   time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the structured-record accumulator for read-only snapshots.
func (l *Loop) Store() *record.Store {
	return l.store
}

// LastProcessedRow returns the current offset.
func (l *Loop) LastProcessedRow() int {
	return l.lastProcessedRow
}

// Run executes polling cycles until ctx is cancelled. A cycle failure is
// logged and the loop continues after the usual interval; cancellation takes
// effect only between cycles, never mid-row.
func (l *Loop) Run(ctx context.Context) {
	slog.Info("starting ingestion loop", "interval", l.interval)

	for {
		stats, err := l.RunCycle(ctx)
		if err != nil {
			slog.Error("polling cycle failed", "run_id", stats.RunID, "error", err)
		} else if stats.NewRows > 0 {
			slog.Info("polling cycle complete",
				"run_id", stats.RunID,
				"rows", stats.RowCount,
				"new", stats.NewRows,
				"processed", stats.Processed,
				"skipped", stats.Skipped,
				"offset", stats.Offset)
		}

		select {
		case <-ctx.Done():
			slog.Info("ingestion loop stopped")
			return
		case <-time.After(l.interval):
		}
	}
}

// RunCycle fetches all rows, processes those past the offset in ascending
// order, and advances the offset to the current row count. On a fetch failure
// the offset is left unchanged.
func (l *Loop) RunCycle(ctx context.Context) (CycleStats, error) {
	stats := CycleStats{RunID: uuid.NewString(), Offset: l.lastProcessedRow}

	rows, err := l.source.ListRows(ctx)
	if err != nil {
		return stats, fmt.Errorf("list rows: %w", err)
	}

	stats.RowCount = len(rows)
	if len(rows) <= 1 {
		// Header only (or empty sheet): nothing to do.
		return stats, nil
	}

	start := l.lastProcessedRow + 1
	if start < 2 {
		start = 2 // row 1 is the header
	}

	for rowNumber := start; rowNumber <= len(rows); rowNumber++ {
		stats.NewRows++
		result := l.ProcessRow(ctx, rows[rowNumber-1], rowNumber)
		if result.ExtractErr != nil {
			stats.Skipped++
		} else {
			stats.Processed++
		}
	}

	// The offset advances past every row seen this cycle, including rows that
	// failed extraction or delivery; failures are surfaced, not retried. It
	// never decreases: if the sheet shrank, handled rows stay handled.
	if len(rows) > l.lastProcessedRow {
		l.lastProcessedRow = len(rows)
	}
	stats.Offset = l.lastProcessedRow

	return stats, nil
}

// ProcessRow handles a single row: extract, translate, deliver to both sinks
// independently, and append the structured record. A malformed row yields a
// result carrying the extraction error and nothing else.
func (l *Loop) ProcessRow(ctx context.Context, row []string, rowNumber int) *RowResult {
	entryNumber := rowNumber - 1 // data rows start at sheet row 2

	result := &RowResult{RowNumber: rowNumber, EntryNumber: entryNumber}

	sub, extractErr := submission.Extract(row)
	if extractErr != nil {
		slog.Warn("skipping malformed row",
			"row", rowNumber, "columns", extractErr.Columns)
		result.ExtractErr = extractErr
		return result
	}

	l.processSubmission(ctx, sub, result)
	return result
}

// ProcessSubmission runs the full delivery pipeline for an already-extracted
// submission, outside the polling cycle (webhook and API callers). The offset
// is not touched.
func (l *Loop) ProcessSubmission(ctx context.Context, sub *submission.Submission, entryNumber int) *RowResult {
	result := &RowResult{EntryNumber: entryNumber}
	l.processSubmission(ctx, sub, result)
	return result
}

func (l *Loop) processSubmission(ctx context.Context, sub *submission.Submission, result *RowResult) {
	entryNumber := result.EntryNumber

	// Translation is centralized here so the formatters stay pure.
	translatedQuote := l.translator.Translate(ctx, sub.Quote)

	entry := format.DocumentEntrySections(entryNumber, sub, translatedQuote)
	result.Document = SinkOutcome{Attempted: true, Err: l.docs.AppendEntry(ctx, entry)}
	if result.Document.Err != nil {
		slog.Warn("document append failed", "entry", entryNumber, "error", result.Document.Err)
	}

	message := format.Notification(entryNumber, sub, translatedQuote)
	result.Notification = SinkOutcome{Attempted: true, Err: l.notifier.Notify(ctx, message)}
	if result.Notification.Err != nil {
		slog.Warn("notification failed", "entry", entryNumber, "error", result.Notification.Err)
	}

	rec := l.builder.Build(ctx, sub, entryNumber, l.now())
	if l.excerpter != nil && sub.SourceURL != "" {
		excerpt, err := l.excerpter.Excerpt(ctx, sub.SourceURL)
		if err != nil {
			slog.Warn("source excerpt failed", "url", sub.SourceURL, "error", err)
		} else {
			rec.Metadata.SourceExcerpt = excerpt
		}
	}

	l.store.Append(rec)
	result.Record = rec

	for _, sink := range l.sinks {
		if err := sink.SaveRecord(ctx, rec); err != nil {
			slog.Warn("record sink failed", "id", rec.ID, "error", err)
		}
	}
}

// NumberedSubmission pairs an extracted submission with its sheet row number.
type NumberedSubmission struct {
	RowNumber  int
	Submission *submission.Submission
}

// LatestSubmissions extracts the last limit data rows from the source. Rows
// that fail extraction are skipped; this is a read surface, not the offset-
// tracked ingestion path.
func LatestSubmissions(ctx context.Context, source RowSource, limit int) ([]NumberedSubmission, error) {
	rows, err := source.ListRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	if len(rows) <= 1 {
		return []NumberedSubmission{}, nil
	}

	start := len(rows) - limit
	if start < 1 {
		start = 1 // skip the header row
	}

	subs := make([]NumberedSubmission, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		rowNumber := i + 1
		sub, extractErr := submission.Extract(rows[i])
		if extractErr != nil {
			slog.Warn("skipping malformed row", "row", rowNumber, "columns", extractErr.Columns)
			continue
		}
		subs = append(subs, NumberedSubmission{RowNumber: rowNumber, Submission: sub})
	}
	return subs, nil
}
