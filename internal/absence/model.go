package absence

import "time"

// StatusAbsent is the fixed status marker carried by every record.
const StatusAbsent = "absent"

// Record is one (student, course) pair confirmed absent on a given day. The
// profile fields are a point-in-time copy of the roster entry taken when the
// calculator ran; they never sync back if the roster changes later.
type Record struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	Institution string    `json:"institution"`
	Parent      string    `json:"parent"`
	Roll        string    `json:"roll"`
	Batch       string    `json:"batch"`
	Course      string    `json:"course"`
	Branch      string    `json:"branch"`
	Status      string    `json:"status"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter is the composable listing filter over absence records: all set
// fields are ANDed, zero values are omitted from the query.
type Filter struct {
	Branch string
	Batch  string
	// Date is the exact absence day; zero means no day filter.
	Date time.Time
}
