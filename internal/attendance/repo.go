package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository persists check-in events in Postgres. The absence calculator
// treats it as read-only; writes come from the check-in endpoint.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const eventColumns = `id, student_id, name, roll, phone, institution, batch, branch, occurred_at, created_at`

// InsertEvent writes a new check-in event.
func (r *Repository) InsertEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.StudentID == "" {
		return Event{}, errors.New("student id required")
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_events (id, student_id, name, roll, phone, institution, batch, branch, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, evt.ID, evt.StudentID, evt.Name, evt.Roll, evt.Phone, evt.Institution,
		evt.Batch, evt.Branch, evt.OccurredAt)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// ListFiltered returns one page of events matching the filter, newest first.
func (r *Repository) ListFiltered(ctx context.Context, f Filter, limit, offset int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + eventColumns + ` FROM attendance_events`
	clauses, args := filterClauses(f)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY occurred_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.StudentID, &evt.Name, &evt.Roll, &evt.Phone,
			&evt.Institution, &evt.Batch, &evt.Branch, &evt.OccurredAt, &evt.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// ListAllFiltered returns every matching event, for export.
func (r *Repository) ListAllFiltered(ctx context.Context, f Filter) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM attendance_events`
	clauses, args := filterClauses(f)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY occurred_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.StudentID, &evt.Name, &evt.Roll, &evt.Phone,
			&evt.Institution, &evt.Batch, &evt.Branch, &evt.OccurredAt, &evt.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// CountFiltered returns the number of events matching the filter.
func (r *Repository) CountFiltered(ctx context.Context, f Filter) (int, error) {
	query := `SELECT COUNT(*) FROM attendance_events`
	clauses, args := filterClauses(f)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// PresentStudentIDs returns the distinct student ids with at least one event
// for the branch inside [from, to).
func (r *Repository) PresentStudentIDs(ctx context.Context, branch string, from, to time.Time) ([]string, error) {
	return presentStudentIDs(ctx, r.db, branch, from, to)
}

// PresentStudentIDsTx is PresentStudentIDs inside a caller-owned transaction.
func PresentStudentIDsTx(ctx context.Context, tx *sql.Tx, branch string, from, to time.Time) ([]string, error) {
	return presentStudentIDs(ctx, tx, branch, from, to)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func presentStudentIDs(ctx context.Context, q querier, branch string, from, to time.Time) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT student_id
		FROM attendance_events
		WHERE branch = $1 AND occurred_at >= $2 AND occurred_at < $3
	`, branch, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func filterClauses(f Filter) ([]string, []any) {
	clauses := []string{}
	args := []any{}
	if f.Branch != "" {
		clauses = append(clauses, "branch = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.Branch)
	}
	if f.Batch != "" {
		clauses = append(clauses, "batch = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.Batch)
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		clauses = append(clauses, "occurred_at >= $"+strconv.Itoa(len(args)+1))
		args = append(args, f.From)
		clauses = append(clauses, "occurred_at < $"+strconv.Itoa(len(args)+1))
		args = append(args, f.To)
	}
	return clauses, args
}
