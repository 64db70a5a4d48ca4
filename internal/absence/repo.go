package absence

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Repository persists computed absence records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, student_id, name, phone, email, address, institution, parent, roll, batch, course, branch, status, date, created_at, updated_at`

// UpsertBatch writes the records keyed on (student_id, course, date, branch).
// Re-running the calculator for the same day refreshes the snapshot fields
// instead of appending duplicates; this deliberately replaces the blind
// append the system historically did.
func (r *Repository) UpsertBatch(ctx context.Context, records []Record) (int, error) {
	return upsertBatch(ctx, r.db, records)
}

// UpsertBatchTx is UpsertBatch inside a caller-owned transaction.
func UpsertBatchTx(ctx context.Context, tx *sql.Tx, records []Record) (int, error) {
	return upsertBatch(ctx, tx, records)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertBatch(ctx context.Context, e execer, records []Record) (int, error) {
	written := 0
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.Status == "" {
			rec.Status = StatusAbsent
		}
		_, err := e.ExecContext(ctx, `
			INSERT INTO absences (id, student_id, name, phone, email, address, institution, parent, roll, batch, course, branch, status, date)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (student_id, course, date, branch) DO UPDATE SET
				name = EXCLUDED.name,
				phone = EXCLUDED.phone,
				email = EXCLUDED.email,
				address = EXCLUDED.address,
				institution = EXCLUDED.institution,
				parent = EXCLUDED.parent,
				roll = EXCLUDED.roll,
				batch = EXCLUDED.batch,
				status = EXCLUDED.status,
				updated_at = NOW()
		`, rec.ID, rec.StudentID, rec.Name, rec.Phone, rec.Email, rec.Address,
			rec.Institution, rec.Parent, rec.Roll, rec.Batch, rec.Course,
			rec.Branch, rec.Status, rec.Date)
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// ListFiltered returns one page of records matching the filter, newest first.
func (r *Repository) ListFiltered(ctx context.Context, f Filter, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + recordColumns + ` FROM absences`
	clauses, args := filterClauses(f)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date DESC, student_id LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)
	return r.queryRecords(ctx, query, args)
}

// ListAllFiltered returns every matching record, for export.
func (r *Repository) ListAllFiltered(ctx context.Context, f Filter) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM absences`
	clauses, args := filterClauses(f)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date DESC, student_id"
	return r.queryRecords(ctx, query, args)
}

// CountFiltered returns the number of records matching the filter.
func (r *Repository) CountFiltered(ctx context.Context, f Filter) (int, error) {
	query := `SELECT COUNT(*) FROM absences`
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

func (r *Repository) queryRecords(ctx context.Context, query string, args []any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Name, &rec.Phone, &rec.Email,
			&rec.Address, &rec.Institution, &rec.Parent, &rec.Roll, &rec.Batch,
			&rec.Course, &rec.Branch, &rec.Status, &rec.Date, &rec.CreatedAt,
			&rec.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
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
	if !f.Date.IsZero() {
		clauses = append(clauses, "date = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.Date.UTC().Format("2006-01-02"))
	}
	return clauses, args
}
