// Package archive persists structured records to SQLite. The archive is a
// best-effort durable mirror of the in-process export buffer; it is never
// consulted to seed the ingestion offset.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"evidence-bot/record"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("not found")

// DB wraps the SQLite database connection and provides archive operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		submitter TEXT NOT NULL,
		title_original TEXT NOT NULL,
		title_translated TEXT NOT NULL,
		quote_original TEXT NOT NULL,
		quote_translated TEXT NOT NULL,
		aff_tags TEXT NOT NULL DEFAULT '[]',
		neg_tags TEXT NOT NULL DEFAULT '[]',
		source_url TEXT NOT NULL,
		update_date TEXT NOT NULL,
		eng_source TEXT NOT NULL,
		attachment TEXT NOT NULL,
		remark TEXT NOT NULL,
		source_excerpt TEXT NOT NULL DEFAULT '',
		processed_at TEXT NOT NULL,
		archived_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_archived_at ON records(archived_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveRecord inserts or replaces a structured record.
func (db *DB) SaveRecord(ctx context.Context, rec *record.StructuredRecord) error {
	affJSON, err := json.Marshal(rec.Tags.Affirmative)
	if err != nil {
		return fmt.Errorf("marshal aff tags: %w", err)
	}
	negJSON, err := json.Marshal(rec.Tags.Negative)
	if err != nil {
		return fmt.Errorf("marshal neg tags: %w", err)
	}

	query := `
	INSERT INTO records (
		id, timestamp, submitter,
		title_original, title_translated,
		quote_original, quote_translated,
		aff_tags, neg_tags,
		source_url, update_date, eng_source,
		attachment, remark, source_excerpt, processed_at, archived_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		timestamp = excluded.timestamp,
		submitter = excluded.submitter,
		title_original = excluded.title_original,
		title_translated = excluded.title_translated,
		quote_original = excluded.quote_original,
		quote_translated = excluded.quote_translated,
		aff_tags = excluded.aff_tags,
		neg_tags = excluded.neg_tags,
		source_url = excluded.source_url,
		update_date = excluded.update_date,
		eng_source = excluded.eng_source,
		attachment = excluded.attachment,
		remark = excluded.remark,
		source_excerpt = excluded.source_excerpt,
		processed_at = excluded.processed_at,
		archived_at = excluded.archived_at
	`

	_, err = db.conn.ExecContext(ctx, query,
		rec.ID, rec.Timestamp, rec.Submitter,
		rec.Title.Original, rec.Title.Translated,
		rec.Quote.Original, rec.Quote.Translated,
		string(affJSON), string(negJSON),
		rec.Source.URL, rec.Source.UpdateDate, rec.Source.EngSource,
		rec.Metadata.Attachment, rec.Metadata.Remark, rec.Metadata.SourceExcerpt,
		rec.Metadata.ProcessedAt, time.Now(),
	)
	return err
}

// GetRecord retrieves an archived record by id.
func (db *DB) GetRecord(ctx context.Context, id string) (*record.StructuredRecord, error) {
	query := selectColumns + ` FROM records WHERE id = ?`
	row := db.conn.QueryRowContext(ctx, query, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Recent returns the most recently archived records, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]record.StructuredRecord, error) {
	query := selectColumns + ` FROM records ORDER BY archived_at DESC LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []record.StructuredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// Count returns the number of archived records.
func (db *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

const selectColumns = `
	SELECT id, timestamp, submitter,
		title_original, title_translated,
		quote_original, quote_translated,
		aff_tags, neg_tags,
		source_url, update_date, eng_source,
		attachment, remark, source_excerpt, processed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*record.StructuredRecord, error) {
	rec := &record.StructuredRecord{}
	var affJSON, negJSON string

	err := row.Scan(
		&rec.ID, &rec.Timestamp, &rec.Submitter,
		&rec.Title.Original, &rec.Title.Translated,
		&rec.Quote.Original, &rec.Quote.Translated,
		&affJSON, &negJSON,
		&rec.Source.URL, &rec.Source.UpdateDate, &rec.Source.EngSource,
		&rec.Metadata.Attachment, &rec.Metadata.Remark, &rec.Metadata.SourceExcerpt,
		&rec.Metadata.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(affJSON), &rec.Tags.Affirmative); err != nil {
		return nil, fmt.Errorf("unmarshal aff tags: %w", err)
	}
	if err := json.Unmarshal([]byte(negJSON), &rec.Tags.Negative); err != nil {
		return nil, fmt.Errorf("unmarshal neg tags: %w", err)
	}

	return rec, nil
}
