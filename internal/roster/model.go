package roster

import "time"

// Profile is one enrolled student: identity, contact fields, branch
// affiliation, and zero or more course enrollments.
type Profile struct {
	ID          string             `json:"id"`
	StudentID   string             `json:"student_id"`
	Name        string             `json:"name"`
	Phone       string             `json:"phone"`
	Email       string             `json:"email"`
	Address     string             `json:"address"`
	Institution string             `json:"institution"`
	Parent      string             `json:"parent"`
	Roll        string             `json:"roll"`
	FbName      string             `json:"fb_name"`
	FbLink      string             `json:"fb_link"`
	HSC         string             `json:"hsc"`
	Photo       string             `json:"photo"`
	Branch      string             `json:"branch"`
	Courses     []CourseEnrollment `json:"courses"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// CourseEnrollment is one (course, batch, branch) tuple a student is
// registered for.
type CourseEnrollment struct {
	CourseName string    `json:"course_name"`
	CourseCode string    `json:"course_code"`
	BranchCode string    `json:"branch_code"`
	BranchName string    `json:"branch_name"`
	BatchCode  string    `json:"batch_code"`
	BatchName  string    `json:"batch_name"`
	EnrolledAt time.Time `json:"enrolled_at"`
	HasAccess  bool      `json:"has_access"`
}
