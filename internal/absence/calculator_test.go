package absence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/SISIYAM/apars/internal/apperr"
	"github.com/SISIYAM/apars/internal/roster"
)

type mockOps struct {
	presentIDs []string
	enrolled   []roster.Profile
	readErr    error
	writeErr   error

	// records keyed on (student, course, date, branch), mirroring the
	// unique index the real sink upserts against.
	records map[string]Record

	presentCalls  int
	enrolledCalls int
	upsertCalls   int
}

func newMockOps() *mockOps {
	return &mockOps{records: make(map[string]Record)}
}

func (m *mockOps) PresentStudentIDs(ctx context.Context, branch string, from, to time.Time) ([]string, error) {
	m.presentCalls++
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.presentIDs, nil
}

func (m *mockOps) EnrolledProfiles(ctx context.Context, branch string) ([]roster.Profile, error) {
	m.enrolledCalls++
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.enrolled, nil
}

func (m *mockOps) UpsertAbsences(ctx context.Context, records []Record) (int, error) {
	m.upsertCalls++
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	for _, rec := range records {
		key := fmt.Sprintf("%s|%s|%s|%s", rec.StudentID, rec.Course, rec.Date.Format("2006-01-02"), rec.Branch)
		m.records[key] = rec
	}
	return len(records), nil
}

type mockStore struct {
	ops *mockOps
}

func (s *mockStore) Atomically(ctx context.Context, fn func(ops Ops) error) error {
	return fn(s.ops)
}

func newTestCalculator(ops *mockOps) *Calculator {
	return NewCalculator(&mockStore{ops: ops}, zerolog.Nop())
}

func profileWithCourses(studentID, branch string, courses ...string) roster.Profile {
	p := roster.Profile{
		StudentID: studentID,
		Name:      "student " + studentID,
		Phone:     "01700000000",
		Roll:      "r-" + studentID,
		Branch:    branch,
	}
	for _, course := range courses {
		p.Courses = append(p.Courses, roster.CourseEnrollment{
			CourseName: course,
			BatchName:  "batch-" + course,
			BranchName: branch,
		})
	}
	return p
}

func TestCompute_SetDifferenceAndFanOut(t *testing.T) {
	// Roster: A (2 courses), B (0 courses), C (1 course); B checked in.
	ops := newMockOps()
	ops.presentIDs = []string{"B"}
	ops.enrolled = []roster.Profile{
		profileWithCourses("A", "X", "physics", "math"),
		profileWithCourses("B", "X"),
		profileWithCourses("C", "X", "chemistry"),
	}

	absent, err := newTestCalculator(ops).Compute(context.Background(), "2024-03-15", "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(absent) != 2 {
		t.Fatalf("expected 2 absent students, got %d", len(absent))
	}
	if absent[0].StudentID != "A" || absent[1].StudentID != "C" {
		t.Errorf("expected absent {A, C}, got {%s, %s}", absent[0].StudentID, absent[1].StudentID)
	}
	for _, p := range absent {
		if p.StudentID == "B" {
			t.Error("present student B must not appear in the absent set")
		}
	}
	if len(ops.records) != 3 {
		t.Errorf("expected 3 persisted records (2 from A, 1 from C), got %d", len(ops.records))
	}
}

func TestCompute_ZeroEnrollmentsStudentProducesNoRecords(t *testing.T) {
	ops := newMockOps()
	ops.enrolled = []roster.Profile{profileWithCourses("B", "X")}

	absent, err := newTestCalculator(ops).Compute(context.Background(), "2024-03-15", "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(absent) != 1 {
		t.Fatalf("student with no courses is still absent, got %d absent", len(absent))
	}
	if ops.upsertCalls != 0 {
		t.Errorf("no records to write, upsert should be skipped, got %d calls", ops.upsertCalls)
	}
}

func TestCompute_RerunDoesNotDuplicate(t *testing.T) {
	ops := newMockOps()
	ops.enrolled = []roster.Profile{
		profileWithCourses("A", "X", "physics", "math"),
		profileWithCourses("C", "X", "chemistry"),
	}
	calc := newTestCalculator(ops)

	for i := 0; i < 2; i++ {
		if _, err := calc.Compute(context.Background(), "2024-03-15", "X"); err != nil {
			t.Fatalf("run %d: unexpected error: %v", i+1, err)
		}
	}

	if len(ops.records) != 3 {
		t.Errorf("rerun for the same (date, branch) must not grow the store, got %d records", len(ops.records))
	}
	if ops.upsertCalls != 2 {
		t.Errorf("expected one upsert per run, got %d", ops.upsertCalls)
	}
}

func TestCompute_EmptyBranchShortCircuits(t *testing.T) {
	ops := newMockOps()
	ops.enrolled = []roster.Profile{profileWithCourses("A", "X", "physics")}

	absent, err := newTestCalculator(ops).Compute(context.Background(), "2024-03-15", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(absent) != 0 {
		t.Errorf("empty branch must yield an empty result, got %d", len(absent))
	}
	if ops.presentCalls != 0 || ops.enrolledCalls != 0 || ops.upsertCalls != 0 {
		t.Error("empty branch must not touch the stores")
	}
}

func TestCompute_DateValidation(t *testing.T) {
	for _, date := range []string{"", "not-a-date", "15/03/2024", "2024-13-40"} {
		_, err := newTestCalculator(newMockOps()).Compute(context.Background(), date, "X")
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("date %q: expected ErrValidation, got %v", date, err)
		}
	}
}

func TestCompute_StoreFailure(t *testing.T) {
	ops := newMockOps()
	ops.readErr = errors.New("connection refused")

	_, err := newTestCalculator(ops).Compute(context.Background(), "2024-03-15", "X")
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestCompute_WriteFailure(t *testing.T) {
	ops := newMockOps()
	ops.enrolled = []roster.Profile{profileWithCourses("A", "X", "physics")}
	ops.writeErr = errors.New("insert failed")

	_, err := newTestCalculator(ops).Compute(context.Background(), "2024-03-15", "X")
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestExpand_SnapshotsProfileFields(t *testing.T) {
	p := profileWithCourses("A", "X", "physics", "math", "english")
	p.Institution = "Dhaka College"
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	records := Expand(p, date)
	if len(records) != 3 {
		t.Fatalf("3 enrollments must expand to 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.StudentID != "A" || rec.Institution != "Dhaka College" {
			t.Errorf("record %d: profile snapshot not carried over: %+v", i, rec)
		}
		if rec.Course != p.Courses[i].CourseName || rec.Batch != p.Courses[i].BatchName {
			t.Errorf("record %d: course fields must come from enrollment %d", i, i)
		}
		if rec.Status != StatusAbsent {
			t.Errorf("record %d: status = %q, want %q", i, rec.Status, StatusAbsent)
		}
		if !rec.Date.Equal(date) {
			t.Errorf("record %d: date = %v, want %v", i, rec.Date, date)
		}
	}

	if got := Expand(profileWithCourses("B", "X"), date); len(got) != 0 {
		t.Errorf("no enrollments must expand to no records, got %d", len(got))
	}
}

func TestExpand_BranchComesFromEnrollment(t *testing.T) {
	// The student's branch affiliation selects them for the computation;
	// each record's branch label comes from its own enrollment entry.
	p := roster.Profile{
		StudentID: "A",
		Name:      "student A",
		Branch:    "Mirpur",
		Courses: []roster.CourseEnrollment{
			{CourseName: "physics", BatchName: "HSC-25", BranchName: "Uttara"},
			{CourseName: "math", BatchName: "HSC-25", BranchName: ""},
		},
	}
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	records := Expand(p, date)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Branch != "Uttara" {
		t.Errorf("record 0: branch = %q, want the enrollment's %q", records[0].Branch, "Uttara")
	}
	// An enrollment without a branch label stays blank; the export surface
	// substitutes its placeholder at projection time.
	if records[1].Branch != "" {
		t.Errorf("record 1: branch = %q, want empty", records[1].Branch)
	}
}
