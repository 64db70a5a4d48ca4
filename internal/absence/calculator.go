package absence

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/SISIYAM/apars/internal/apperr"
	"github.com/SISIYAM/apars/internal/attendance"
	"github.com/SISIYAM/apars/internal/dateutil"
	"github.com/SISIYAM/apars/internal/metrics"
	"github.com/SISIYAM/apars/internal/roster"
)

// Ops are the store operations one computation performs: two reads and one
// batch write.
type Ops interface {
	PresentStudentIDs(ctx context.Context, branch string, from, to time.Time) ([]string, error)
	EnrolledProfiles(ctx context.Context, branch string) ([]roster.Profile, error)
	UpsertAbsences(ctx context.Context, records []Record) (int, error)
}

// Store runs a computation's store operations. The SQL implementation wraps
// the callback in one transaction so the read-diff-write sequence cannot
// interleave with a concurrent run for the same day.
type Store interface {
	Atomically(ctx context.Context, fn func(ops Ops) error) error
}

// Calculator computes which enrolled students have no check-in for a given
// (date, branch) and persists one absence record per course enrollment.
type Calculator struct {
	store Store
	log   zerolog.Logger
}

// NewCalculator creates a calculator over the given store.
func NewCalculator(store Store, log zerolog.Logger) *Calculator {
	return &Calculator{store: store, log: log}
}

// Compute runs the absence computation for a calendar date (YYYY-MM-DD) and
// branch label. It returns the absent students pre-expansion; the expanded
// per-course records are only persisted. An empty branch short-circuits to an
// empty result without touching the stores.
func (c *Calculator) Compute(ctx context.Context, date, branch string) ([]roster.Profile, error) {
	if date == "" {
		return nil, apperr.Validationf("date is required")
	}
	day, err := dateutil.ParseDay(date)
	if err != nil {
		return nil, apperr.Validationf("invalid date %q, want YYYY-MM-DD", date)
	}
	if branch == "" {
		return []roster.Profile{}, nil
	}

	from, to := dateutil.DayBounds(day)

	var absent []roster.Profile
	err = c.store.Atomically(ctx, func(ops Ops) error {
		presentIDs, err := ops.PresentStudentIDs(ctx, branch, from, to)
		if err != nil {
			return apperr.Persistence("read attendance", err)
		}
		present := make(map[string]struct{}, len(presentIDs))
		for _, id := range presentIDs {
			present[id] = struct{}{}
		}

		enrolled, err := ops.EnrolledProfiles(ctx, branch)
		if err != nil {
			return apperr.Persistence("read roster", err)
		}

		absent = absent[:0]
		var records []Record
		for _, p := range enrolled {
			if _, ok := present[p.StudentID]; ok {
				continue
			}
			absent = append(absent, p)
			records = append(records, Expand(p, from)...)
		}

		if len(records) == 0 {
			return nil
		}
		written, err := ops.UpsertAbsences(ctx, records)
		if err != nil {
			return apperr.Persistence("write absences", err)
		}
		metrics.AbsenceRecordsWritten.Add(float64(written))
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AbsenceRuns.Inc()
	c.log.Info().
		Str("date", from.Format(dateutil.DayFormat)).
		Str("branch", branch).
		Int("absent_students", len(absent)).
		Msg("absence computation finished")

	if absent == nil {
		absent = []roster.Profile{}
	}
	return absent, nil
}

// Expand produces one absence record per course enrollment of an absent
// student, each carrying the profile snapshot plus the course, batch, and
// branch fields of that specific enrollment entry. A student with no
// enrollments yields nothing.
func Expand(p roster.Profile, date time.Time) []Record {
	var out []Record
	for _, course := range p.Courses {
		out = append(out, Record{
			StudentID:   p.StudentID,
			Name:        p.Name,
			Phone:       p.Phone,
			Email:       p.Email,
			Address:     p.Address,
			Institution: p.Institution,
			Parent:      p.Parent,
			Roll:        p.Roll,
			Batch:       course.BatchName,
			Course:      course.CourseName,
			Branch:      course.BranchName,
			Status:      StatusAbsent,
			Date:        date,
		})
	}
	return out
}

// SQLStore is the Postgres-backed Store used in production.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over the shared database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Atomically runs fn inside one transaction.
func (s *SQLStore) Atomically(ctx context.Context, fn func(ops Ops) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Persistence("begin tx", err)
	}
	defer tx.Rollback()

	if err := fn(txOps{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Persistence("commit tx", err)
	}
	return nil
}

type txOps struct {
	tx *sql.Tx
}

func (o txOps) PresentStudentIDs(ctx context.Context, branch string, from, to time.Time) ([]string, error) {
	return attendance.PresentStudentIDsTx(ctx, o.tx, branch, from, to)
}

func (o txOps) EnrolledProfiles(ctx context.Context, branch string) ([]roster.Profile, error) {
	return roster.ListByBranchTx(ctx, o.tx, branch)
}

func (o txOps) UpsertAbsences(ctx context.Context, records []Record) (int, error) {
	return UpsertBatchTx(ctx, o.tx, records)
}
