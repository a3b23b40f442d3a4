package models

import "time"

// Course is the root of the catalog tree. Deleting a course cascades to its
// modules, lessons, enrollments and lesson completions.
type Course struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	IsPublished     bool      `db:"is_published" json:"isPublished"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
	EnrollmentCount *int      `db:"enrollment_count" json:"enrollmentCount,omitempty"`
	Modules         []Module  `db:"-" json:"modules"`
}

// Module groups lessons inside a course.
type Module struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"courseId"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Order       int       `db:"sort_order" json:"order"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
	Lessons     []Lesson  `db:"-" json:"lessons"`
}

// Lesson is the unit of completion. Duration is expressed in seconds.
type Lesson struct {
	ID          string    `db:"id" json:"id"`
	ModuleID    string    `db:"module_id" json:"moduleId"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	VideoURL    string    `db:"video_url" json:"videoUrl"`
	Duration    int       `db:"duration" json:"duration"`
	Order       int       `db:"sort_order" json:"order"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// LessonScope locates a lesson inside the catalog tree.
type LessonScope struct {
	LessonID string `db:"lesson_id"`
	ModuleID string `db:"module_id"`
	CourseID string `db:"course_id"`
}

// CourseFilter narrows catalog listings.
type CourseFilter struct {
	PublishedOnly bool
}

// LessonCount returns the number of lessons across all modules.
func (c *Course) LessonCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, m := range c.Modules {
		total += len(m.Lessons)
	}
	return total
}
