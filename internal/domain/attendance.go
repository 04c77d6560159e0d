package domain

import "time"

// DateLayout is the calendar-date format used across the API.
const DateLayout = "2006-01-02"

// Attend is a single message's worth of commits by one member.
type Attend struct {
	TS      time.Time
	Commits []string
}

// DayAttendance groups a member's attends for one garden day.
type DayAttendance struct {
	Date    string
	Attends []Attend
}

// AttendanceRow is the per-member attendance of a single date.
// FirstTS is nil when the member has not attended.
type AttendanceRow struct {
	User    string
	FirstTS *time.Time
}

// Attended reports whether the member attended.
func (r AttendanceRow) Attended() bool {
	return r.FirstTS != nil
}
