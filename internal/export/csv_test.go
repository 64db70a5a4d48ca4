package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"testing"

	"github.com/SISIYAM/apars/internal/absence"
	"github.com/SISIYAM/apars/internal/attendance"
)

func TestWriteEmptyProducesHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected header row only, got %d rows", len(records))
	}
	want := []string{"Name", "Roll", "Phone", "Batch", "Branch Name"}
	for i, col := range want {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
}

func TestWriteRowOrder(t *testing.T) {
	var buf bytes.Buffer
	rows := []Row{{Name: "Rahim", Roll: "101", Phone: "017", Batch: "HSC-25", BranchName: "Mirpur"}}
	if err := Write(&buf, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(records))
	}
	got := strings.Join(records[1], ",")
	if got != "Rahim,101,017,HSC-25,Mirpur" {
		t.Errorf("row = %q", got)
	}
}

func TestProjectionUsesBranchPlaceholder(t *testing.T) {
	rows := FromEvents([]attendance.Event{{Name: "Karim", Branch: ""}})
	if rows[0].BranchName != BranchPlaceholder {
		t.Errorf("event branch = %q, want placeholder %q", rows[0].BranchName, BranchPlaceholder)
	}

	rows = FromRecords([]absence.Record{{Name: "Karim", Branch: ""}})
	if rows[0].BranchName != BranchPlaceholder {
		t.Errorf("record branch = %q, want placeholder %q", rows[0].BranchName, BranchPlaceholder)
	}
}

func TestWriteFileCleanupRemovesArtifact(t *testing.T) {
	dir := t.TempDir()

	path, name, cleanup, err := WriteFile(dir, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name == "" || !strings.HasSuffix(name, ".csv") {
		t.Errorf("download name = %q, want *.csv", name)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should exist before cleanup: %v", err)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file should be removed after cleanup, stat err = %v", err)
	}
}
