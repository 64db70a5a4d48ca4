package roster

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/google/uuid"
)

// Repository persists student profiles in Postgres. The absence calculator
// only reads from it; writes come from the registration endpoint.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const profileColumns = `id, student_id, name, phone, email, address, institution, parent, roll, fb_name, fb_link, hsc, photo, branch, created_at, updated_at`

// Upsert creates or updates a profile keyed on student_id and replaces its
// course enrollments with the given set.
func (r *Repository) Upsert(ctx context.Context, p Profile) (Profile, error) {
	if p.StudentID == "" {
		return Profile{}, errors.New("student id required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Profile{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO profiles (id, student_id, name, phone, email, address, institution, parent, roll, fb_name, fb_link, hsc, photo, branch)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (student_id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			address = EXCLUDED.address,
			institution = EXCLUDED.institution,
			parent = EXCLUDED.parent,
			roll = EXCLUDED.roll,
			fb_name = EXCLUDED.fb_name,
			fb_link = EXCLUDED.fb_link,
			hsc = EXCLUDED.hsc,
			photo = EXCLUDED.photo,
			branch = EXCLUDED.branch,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, p.ID, p.StudentID, p.Name, p.Phone, p.Email, p.Address, p.Institution,
		p.Parent, p.Roll, p.FbName, p.FbLink, p.HSC, p.Photo, p.Branch)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM course_enrollments WHERE profile_id = $1`, p.ID); err != nil {
		return Profile{}, err
	}
	for _, c := range p.Courses {
		enrolledAt := c.EnrolledAt
		var enrolledArg any
		if !enrolledAt.IsZero() {
			enrolledArg = enrolledAt
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO course_enrollments (id, profile_id, course_name, course_code, branch_code, branch_name, batch_code, batch_name, enrolled_at, has_access)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,COALESCE($9::timestamptz, NOW()),$10)
		`, uuid.NewString(), p.ID, c.CourseName, c.CourseCode, c.BranchCode,
			c.BranchName, c.BatchCode, c.BatchName, enrolledArg, c.HasAccess)
		if err != nil {
			return Profile{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx so the calculator can run
// roster reads inside its transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListByBranch returns every profile affiliated with the branch, course
// enrollments included. Used by the absence calculator.
func (r *Repository) ListByBranch(ctx context.Context, branch string) ([]Profile, error) {
	return listByBranch(ctx, r.db, branch)
}

// ListByBranchTx is ListByBranch running inside a caller-owned transaction.
func ListByBranchTx(ctx context.Context, tx *sql.Tx, branch string) ([]Profile, error) {
	return listByBranch(ctx, tx, branch)
}

func listByBranch(ctx context.Context, q querier, branch string) ([]Profile, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.student_id, p.name, p.phone, p.email, p.address, p.institution,
		       p.parent, p.roll, p.fb_name, p.fb_link, p.hsc, p.photo, p.branch,
		       p.created_at, p.updated_at,
		       e.course_name, e.course_code, e.branch_code, e.branch_name,
		       e.batch_code, e.batch_name, e.enrolled_at, e.has_access
		FROM profiles p
		LEFT JOIN course_enrollments e ON e.profile_id = p.id
		WHERE p.branch = $1
		ORDER BY p.student_id
	`, branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJoined(rows)
}

// collectJoined folds the profile×enrollment join back into profiles with
// nested course lists; the query orders by student_id so rows for one
// profile are adjacent.
func collectJoined(rows *sql.Rows) ([]Profile, error) {
	var res []Profile
	for rows.Next() {
		var p Profile
		var courseName, courseCode, branchCode, branchName, batchCode, batchName sql.NullString
		var enrolledAt sql.NullTime
		var hasAccess sql.NullBool
		if err := rows.Scan(&p.ID, &p.StudentID, &p.Name, &p.Phone, &p.Email, &p.Address,
			&p.Institution, &p.Parent, &p.Roll, &p.FbName, &p.FbLink, &p.HSC, &p.Photo,
			&p.Branch, &p.CreatedAt, &p.UpdatedAt,
			&courseName, &courseCode, &branchCode, &branchName,
			&batchCode, &batchName, &enrolledAt, &hasAccess); err != nil {
			return nil, err
		}

		if len(res) == 0 || res[len(res)-1].ID != p.ID {
			res = append(res, p)
		}
		if courseName.Valid {
			last := &res[len(res)-1]
			last.Courses = append(last.Courses, CourseEnrollment{
				CourseName: courseName.String,
				CourseCode: courseCode.String,
				BranchCode: branchCode.String,
				BranchName: branchName.String,
				BatchCode:  batchCode.String,
				BatchName:  batchName.String,
				EnrolledAt: enrolledAt.Time,
				HasAccess:  hasAccess.Bool,
			})
		}
	}
	return res, rows.Err()
}

// ListPage returns one page of profiles without enrollments, optionally
// filtered by branch.
func (r *Repository) ListPage(ctx context.Context, branch string, limit, offset int) ([]Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	args := []any{}
	if branch != "" {
		query += ` WHERE branch = $1`
		args = append(args, branch)
	}
	query += ` ORDER BY student_id LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.StudentID, &p.Name, &p.Phone, &p.Email, &p.Address,
			&p.Institution, &p.Parent, &p.Roll, &p.FbName, &p.FbLink, &p.HSC, &p.Photo,
			&p.Branch, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// Count returns the number of profiles, optionally filtered by branch.
func (r *Repository) Count(ctx context.Context, branch string) (int, error) {
	query := `SELECT COUNT(*) FROM profiles`
	args := []any{}
	if branch != "" {
		query += ` WHERE branch = $1`
		args = append(args, branch)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
