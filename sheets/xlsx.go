package sheets

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// FileSource reads rows from an .xlsx export of the response sheet. It serves
// as a drop-in row source for offline development and testing, where no
// spreadsheet credentials are available.
type FileSource struct {
	path      string
	sheetName string
}

// NewFileSource creates a row source backed by an .xlsx file.
func NewFileSource(path, sheetName string) *FileSource {
	return &FileSource{path: path, sheetName: sheetName}
}

// ListRows returns all rows of the sheet, header row first. The file is
// reopened on every call so externally appended rows are picked up between
// polling cycles.
func (f *FileSource) ListRows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb, err := excelize.OpenFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(f.sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", f.sheetName, err)
	}

	return rows, nil
}
