// Package export produces the flat CSV projection of attendance and absence
// records served by the download endpoint.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/SISIYAM/apars/internal/absence"
	"github.com/SISIYAM/apars/internal/apperr"
	"github.com/SISIYAM/apars/internal/attendance"
)

// BranchPlaceholder is written when a record carries no branch label.
const BranchPlaceholder = "N/A"

var header = []string{"Name", "Roll", "Phone", "Batch", "Branch Name"}

// Row is one line of the export, in fixed column order.
type Row struct {
	Name       string
	Roll       string
	Phone      string
	Batch      string
	BranchName string
}

// FromEvents projects attendance events into export rows.
func FromEvents(events []attendance.Event) []Row {
	rows := make([]Row, 0, len(events))
	for _, evt := range events {
		rows = append(rows, Row{
			Name:       evt.Name,
			Roll:       evt.Roll,
			Phone:      evt.Phone,
			Batch:      evt.Batch,
			BranchName: branchOrPlaceholder(evt.Branch),
		})
	}
	return rows
}

// FromRecords projects absence records into export rows.
func FromRecords(records []absence.Record) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, Row{
			Name:       rec.Name,
			Roll:       rec.Roll,
			Phone:      rec.Phone,
			Batch:      rec.Batch,
			BranchName: branchOrPlaceholder(rec.Branch),
		})
	}
	return rows
}

// Write emits the header and rows as CSV. Zero rows still produce a valid
// header-only file.
func Write(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return apperr.Export("write header", err)
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Name, row.Roll, row.Phone, row.Batch, row.BranchName}); err != nil {
			return apperr.Export("write row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperr.Export("flush", err)
	}
	return nil
}

// WriteFile writes the CSV to a transient file in dir and returns its path, a
// suggested download name, and a cleanup func. Callers must run cleanup after
// delivery whether or not delivery succeeded.
func WriteFile(dir string, rows []Row) (path, name string, cleanup func(), err error) {
	name = fmt.Sprintf("export_%s.csv", time.Now().UTC().Format("20060102_150405"))
	f, err := os.CreateTemp(dir, "apars-export-*.csv")
	if err != nil {
		return "", "", nil, apperr.Export("create file", err)
	}
	path = f.Name()
	cleanup = func() { _ = os.Remove(path) }

	if err := Write(f, rows); err != nil {
		f.Close()
		cleanup()
		return "", "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", "", nil, apperr.Export("close file", err)
	}
	return path, name, cleanup, nil
}

func branchOrPlaceholder(branch string) string {
	if branch == "" {
		return BranchPlaceholder
	}
	return branch
}
