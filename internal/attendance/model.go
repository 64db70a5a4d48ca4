package attendance

import "time"

// Event is one recorded check-in. Several events per student per day are
// allowed; presence of at least one inside a day interval marks the student
// present for that day.
type Event struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	Name        string    `json:"name"`
	Roll        string    `json:"roll"`
	Phone       string    `json:"phone"`
	Institution string    `json:"institution"`
	Batch       string    `json:"batch"`
	Branch      string    `json:"branch"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter is the composable listing filter: all set fields are ANDed, zero
// values are omitted from the query.
type Filter struct {
	Branch string
	Batch  string
	// Day interval, closed-open. Both zero means no day filter.
	From time.Time
	To   time.Time
}
