package dto

// TimeSlotRequest is a caller-supplied weekly slot definition. Times use
// "HH:MM" and must satisfy startTime < endTime.
type TimeSlotRequest struct {
	DayOfWeek int    `json:"dayOfWeek" validate:"required,min=1,max=5"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// GenerateTimetableRequest drives one generator run. MaxIterations nil means
// the configured default; an explicit zero makes the search terminate before
// any assignment. DryRun skips the final batch persist.
type GenerateTimetableRequest struct {
	Semester      int               `json:"semester" validate:"required,min=1,max=2"`
	Year          int               `json:"year" validate:"required,min=2000,max=2100"`
	SectionIDs    []string          `json:"sectionIds" validate:"omitempty,dive,required"`
	TimeSlots     []TimeSlotRequest `json:"timeSlots" validate:"omitempty,min=1,dive"`
	MaxIterations *int              `json:"maxIterations" validate:"omitempty,min=0"`
	DryRun        bool              `json:"dryRun"`
}

// GeneratedScheduleEntry is one accepted assignment in the response.
type GeneratedScheduleEntry struct {
	SectionID     string `json:"sectionId"`
	CourseCode    string `json:"courseCode"`
	ClassroomID   string `json:"classroomId"`
	ClassroomCode string `json:"classroomCode"`
	DayOfWeek     int    `json:"dayOfWeek"`
	DayName       string `json:"dayName"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
}

// FailedSection reports a section the search could not place.
type FailedSection struct {
	SectionID  string `json:"sectionId"`
	CourseID   string `json:"courseId"`
	CourseCode string `json:"courseCode"`
	Reason     string `json:"reason"`
}

// TimetableSearchStats summarises one search run.
type TimetableSearchStats struct {
	TotalIterations     int   `json:"totalIterations"`
	BacktrackCount      int   `json:"backtrackCount"`
	ElapsedMilliseconds int64 `json:"elapsedMilliseconds"`
}

// GenerateTimetableResponse is the full result of a generator run. Success is
// true only when every candidate section was placed.
type GenerateTimetableResponse struct {
	Success          bool                     `json:"success"`
	Message          string                   `json:"message"`
	Semester         int                      `json:"semester"`
	Year             int                      `json:"year"`
	TotalSections    int                      `json:"totalSections"`
	ScheduledCount   int                      `json:"scheduledCount"`
	UnscheduledCount int                      `json:"unscheduledCount"`
	Schedules        []GeneratedScheduleEntry `json:"schedules"`
	FailedSections   []FailedSection          `json:"failedSections"`
	Stats            TimetableSearchStats     `json:"stats"`
}

// TimetableResultQuery selects the cached result of the latest run.
type TimetableResultQuery struct {
	Semester int `form:"semester" json:"semester"`
	Year     int `form:"year" json:"year"`
}
