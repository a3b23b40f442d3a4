package models

import "time"

// Enrollment links a user to a course. A user holds at most one enrollment per course.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"userId"`
	CourseID   string    `db:"course_id" json:"courseId"`
	Progress   int       `db:"progress" json:"progress"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolledAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// LessonCompletion records that a lesson was finished within an enrollment.
type LessonCompletion struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollmentId"`
	LessonID     string    `db:"lesson_id" json:"lessonId"`
	CompletedAt  time.Time `db:"completed_at" json:"completedAt"`
}

// EnrollmentDetail enriches an enrollment with its course tree and completions.
type EnrollmentDetail struct {
	Enrollment
	Course      *Course            `json:"course,omitempty"`
	User        *UserSummary       `json:"user,omitempty"`
	Completions []LessonCompletion `json:"lessonCompletions"`
}

// EnrollmentProgress is the progress report for one enrollment.
type EnrollmentProgress struct {
	EnrollmentDetail
	TotalLessons     int `json:"totalLessons"`
	CompletedLessons int `json:"completedLessons"`
}

// ProgressCounts holds the raw numbers used to derive progress.
type ProgressCounts struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
}
