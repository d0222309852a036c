package models

import "time"

// Schedule is a persisted classroom booking for a section. Rows are
// soft-deleted by flipping Active; the generator only sees active rows.
type Schedule struct {
	ID          string    `db:"id" json:"id"`
	SectionID   string    `db:"section_id" json:"section_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleDetail joins section, course and classroom info onto a schedule
// row for conflict indexing and list views.
type ScheduleDetail struct {
	Schedule
	InstructorID  *string `db:"instructor_id" json:"instructor_id,omitempty"`
	CourseCode    string  `db:"course_code" json:"course_code"`
	CourseName    string  `db:"course_name" json:"course_name"`
	ClassroomCode string  `db:"classroom_code" json:"classroom_code"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	Semester    int    `form:"semester"`
	Year        int    `form:"year"`
	ClassroomID string `form:"classroomId"`
	DayOfWeek   int    `form:"dayOfWeek"`
	Page        int    `form:"page"`
	PageSize    int    `form:"pageSize"`
}
