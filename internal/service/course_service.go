package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tailms-api/internal/dto"
	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/internal/repository"
	appErrors "github.com/noah-isme/tailms-api/pkg/errors"
)

const (
	catalogCacheKey     = "catalog:published"
	catalogCachePattern = "catalog:*"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindTree(ctx context.Context, id string) (*models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id string) error
	CreateModule(ctx context.Context, module *models.Module) error
	FindModule(ctx context.Context, id string) (*models.Module, error)
	UpdateModule(ctx context.Context, module *models.Module) error
	DeleteModule(ctx context.Context, id string) error
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	FindLesson(ctx context.Context, id string) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, lesson *models.Lesson) error
	DeleteLesson(ctx context.Context, id string) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string)
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	cache     catalogCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService creates a CourseService. cache may be nil.
func NewCourseService(repo courseRepository, cache catalogCache, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns every course, published or not, newest first.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.repo.List(ctx, models.CourseFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// ListPublished returns the published catalog and whether it came from cache.
func (s *CourseService) ListPublished(ctx context.Context) ([]models.Course, bool, error) {
	if s.cache != nil {
		var cached []models.Course
		if s.cache.Get(ctx, catalogCacheKey, &cached) {
			return cached, true, nil
		}
	}

	courses, err := s.repo.List(ctx, models.CourseFilter{PublishedOnly: true})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if s.cache != nil {
		s.cache.Set(ctx, catalogCacheKey, courses, 0)
	}
	return courses, false, nil
}

// Get returns the course tree. Unpublished courses are hidden unless
// includeUnpublished is set.
func (s *CourseService) Get(ctx context.Context, id string, includeUnpublished bool) (*models.Course, error) {
	course, err := s.repo.FindTree(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	if !course.IsPublished && !includeUnpublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}

// Create inserts a course with its nested modules and lessons in one transaction.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid course payload")
	}

	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		IsPublished: req.IsPublished,
		Modules:     make([]models.Module, 0, len(req.Modules)),
	}
	for i, m := range req.Modules {
		course.Modules = append(course.Modules, buildModule(m, i))
	}

	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidate(ctx)
	return course, nil
}

// Update applies a partial update to the course row.
func (s *CourseService) Update(ctx context.Context, id string, req dto.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid course payload")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.IsPublished != nil {
		course.IsPublished = *req.IsPublished
	}

	if err := s.repo.UpdateCourse(ctx, course); err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to update course")
	}
	s.invalidate(ctx)
	return s.Get(ctx, id, true)
}

// Delete removes a course and everything below it.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteCourse(ctx, id); err != nil {
		return notFoundOrInternal(err, "course not found", "failed to delete course")
	}
	s.invalidate(ctx)
	return nil
}

// CreateModule adds a module, with optional nested lessons, to an existing course.
func (s *CourseService) CreateModule(ctx context.Context, courseID string, req dto.CreateModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid module payload")
	}
	if _, err := s.repo.FindByID(ctx, courseID); err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}

	module := buildModule(req, 0)
	module.CourseID = courseID
	if err := s.repo.CreateModule(ctx, &module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create module")
	}
	s.invalidate(ctx)
	return &module, nil
}

// UpdateModule applies a partial update to a module.
func (s *CourseService) UpdateModule(ctx context.Context, id string, req dto.UpdateModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid module payload")
	}

	module, err := s.repo.FindModule(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "module not found", "failed to load module")
	}
	if req.Title != nil {
		module.Title = *req.Title
	}
	if req.Description != nil {
		module.Description = *req.Description
	}
	if req.Order != nil {
		module.Order = *req.Order
	}

	if err := s.repo.UpdateModule(ctx, module); err != nil {
		return nil, notFoundOrInternal(err, "module not found", "failed to update module")
	}
	s.invalidate(ctx)
	return module, nil
}

// DeleteModule removes a module and its lessons.
func (s *CourseService) DeleteModule(ctx context.Context, id string) error {
	if err := s.repo.DeleteModule(ctx, id); err != nil {
		return notFoundOrInternal(err, "module not found", "failed to delete module")
	}
	s.invalidate(ctx)
	return nil
}

// CreateLesson adds a lesson to an existing module.
func (s *CourseService) CreateLesson(ctx context.Context, moduleID string, req dto.CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid lesson payload")
	}
	if _, err := s.repo.FindModule(ctx, moduleID); err != nil {
		return nil, notFoundOrInternal(err, "module not found", "failed to load module")
	}

	lesson := buildLesson(req, 0)
	lesson.ModuleID = moduleID
	if err := s.repo.CreateLesson(ctx, &lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	s.invalidate(ctx)
	return &lesson, nil
}

// UpdateLesson applies a partial update to a lesson.
func (s *CourseService) UpdateLesson(ctx context.Context, id string, req dto.UpdateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid lesson payload")
	}

	lesson, err := s.repo.FindLesson(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "lesson not found", "failed to load lesson")
	}
	if req.Title != nil {
		lesson.Title = *req.Title
	}
	if req.Description != nil {
		lesson.Description = *req.Description
	}
	if req.VideoURL != nil {
		lesson.VideoURL = *req.VideoURL
	}
	if req.Duration != nil {
		lesson.Duration = *req.Duration
	}
	if req.Order != nil {
		lesson.Order = *req.Order
	}

	if err := s.repo.UpdateLesson(ctx, lesson); err != nil {
		return nil, notFoundOrInternal(err, "lesson not found", "failed to update lesson")
	}
	s.invalidate(ctx)
	return lesson, nil
}

// DeleteLesson removes a lesson and its completions.
func (s *CourseService) DeleteLesson(ctx context.Context, id string) error {
	if err := s.repo.DeleteLesson(ctx, id); err != nil {
		return notFoundOrInternal(err, "lesson not found", "failed to delete lesson")
	}
	s.invalidate(ctx)
	return nil
}

func (s *CourseService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, catalogCachePattern)
	}
}

// buildModule converts a request into a module; a missing order becomes index+1.
func buildModule(req dto.CreateModuleRequest, index int) models.Module {
	module := models.Module{
		Title:       req.Title,
		Description: req.Description,
		Order:       defaultOrder(req.Order, index),
		Lessons:     make([]models.Lesson, 0, len(req.Lessons)),
	}
	for i, l := range req.Lessons {
		module.Lessons = append(module.Lessons, buildLesson(l, i))
	}
	return module
}

func buildLesson(req dto.CreateLessonRequest, index int) models.Lesson {
	return models.Lesson{
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		Duration:    req.Duration,
		Order:       defaultOrder(req.Order, index),
	}
}

func defaultOrder(order, index int) int {
	if order > 0 {
		return order
	}
	return index + 1
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if repository.IsNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
