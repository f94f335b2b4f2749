// Package export writes structured-record snapshots to disk for downstream
// vector-database ingestion.
package export

import (
	"encoding/json"
	"fmt"
	"os"

	"evidence-bot/record"
)

// Write saves the records as pretty-printed JSON at path, replacing any
// previous snapshot atomically.
func Write(path string, records []record.StructuredRecord) error {
	if records == nil {
		records = []record.StructuredRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}
