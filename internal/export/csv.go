// Package export writes fetched clearances to a fixed-schema CSV file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/araujoluizagh/fda-radiology-bot/internal/openfda"
)

// Header is the column list of every export, in output order
var Header = []string{
	"k_number",
	"applicant",
	"device_name",
	"decision_date",
	"advisory_committee",
	"decision_code",
}

// Row returns the record's cells in Header order
func Row(r openfda.ClearanceRecord) []string {
	return []string{
		r.KNumber,
		r.Applicant,
		r.DeviceName,
		r.DecisionDate,
		r.AdvisoryCommittee,
		r.DecisionCode,
	}
}

// Write writes the header and one row per record to w
func Write(w io.Writer, records []openfda.ClearanceRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteFile replaces the file at path with the export of records and returns
// the number of bytes written. The file is created even when records is empty.
func WriteFile(path string, records []openfda.ClearanceRecord) (n int64, err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close output file: %w", cerr))
		}
	}()

	cw := &countingWriter{w: f}
	if err := Write(cw, records); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
