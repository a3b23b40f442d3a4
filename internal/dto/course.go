package dto

// CreateLessonRequest defines the payload for a lesson, standalone or nested in a module.
type CreateLessonRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	VideoURL    string `json:"videoUrl" validate:"required,url"`
	Duration    int    `json:"duration" validate:"required,gt=0"`
	Order       int    `json:"order" validate:"omitempty,gt=0"`
}

// UpdateLessonRequest carries a partial lesson update.
type UpdateLessonRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	VideoURL    *string `json:"videoUrl" validate:"omitempty,url"`
	Duration    *int    `json:"duration" validate:"omitempty,gt=0"`
	Order       *int    `json:"order" validate:"omitempty,gt=0"`
}

// CreateModuleRequest defines a module with optional nested lessons.
type CreateModuleRequest struct {
	Title       string                `json:"title" validate:"required"`
	Description string                `json:"description"`
	Order       int                   `json:"order" validate:"omitempty,gt=0"`
	Lessons     []CreateLessonRequest `json:"lessons" validate:"omitempty,dive"`
}

// UpdateModuleRequest carries a partial module update.
type UpdateModuleRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Order       *int    `json:"order" validate:"omitempty,gt=0"`
}

// CreateCourseRequest defines a course with optional nested modules and lessons.
type CreateCourseRequest struct {
	Title       string                `json:"title" validate:"required"`
	Description string                `json:"description"`
	IsPublished bool                  `json:"isPublished"`
	Modules     []CreateModuleRequest `json:"modules" validate:"omitempty,dive"`
}

// UpdateCourseRequest carries a partial course update.
type UpdateCourseRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"isPublished"`
}
