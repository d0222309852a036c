package models

import "time"

// Section is one teachable offering of a course for a term. InstructorID is
// nullable: sections without a confirmed instructor are still schedulable and
// never produce instructor conflicts.
type Section struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	InstructorID *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	Capacity     int       `db:"capacity" json:"capacity"`
	Scheduled    bool      `db:"scheduled" json:"scheduled"`
	Semester     int       `db:"semester" json:"semester"`
	Year         int       `db:"year" json:"year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail joins course identifiers onto a section for reporting.
type SectionDetail struct {
	Section
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
}

// SectionFilter captures filtering options for listing sections.
type SectionFilter struct {
	Semester  int
	Year      int
	CourseID  string
	Scheduled *bool
	Page      int
	PageSize  int
}
