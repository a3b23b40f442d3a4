package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/internal/repository"
	appErrors "github.com/noah-isme/tailms-api/pkg/errors"
)

type enrollmentRepository interface {
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
	ListCompletions(ctx context.Context, enrollmentIDs []string) (map[string][]models.LessonCompletion, error)
	CreateCompletion(ctx context.Context, completion *models.LessonCompletion) (bool, error)
	FindCompletion(ctx context.Context, enrollmentID, lessonID string) (*models.LessonCompletion, error)
	RecalculateProgress(ctx context.Context, enrollmentID string, calc repository.ProgressFunc) (models.ProgressCounts, int, error)
}

type catalogReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindTree(ctx context.Context, id string) (*models.Course, error)
	FindTrees(ctx context.Context, ids []string) (map[string]*models.Course, error)
	FindLessonScope(ctx context.Context, lessonID string) (*models.LessonScope, error)
}

// EnrollmentConfig holds enrollment policy.
type EnrollmentConfig struct {
	AllowUnpublished bool
}

// EnrollmentService coordinates enrollments, lesson completions and progress.
type EnrollmentService struct {
	repo    enrollmentRepository
	courses catalogReader
	metrics *MetricsService
	logger  *zap.Logger
	config  EnrollmentConfig
}

// NewEnrollmentService constructs the service. metrics may be nil.
func NewEnrollmentService(repo enrollmentRepository, courses catalogReader, metrics *MetricsService, logger *zap.Logger, config EnrollmentConfig) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, metrics: metrics, logger: logger, config: config}
}

// CalculateProgress returns round(100*completed/total) rounding halves up, or
// 0 when the course has no lessons.
func CalculateProgress(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return int(math.Floor(100*float64(completed)/float64(total) + 0.5))
}

// Enroll enrolls the user into the course and returns the enrollment with the
// course tree.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID string) (*models.EnrollmentDetail, error) {
	course, err := s.courses.FindTree(ctx, courseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	if !course.IsPublished && !s.config.AllowUnpublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	exists, err := s.repo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.ErrAlreadyEnrolled
	}

	enrollment := models.Enrollment{UserID: userID, CourseID: courseID}
	if err := s.repo.Create(ctx, &enrollment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.ErrAlreadyEnrolled
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.metrics.RecordEnrollment()

	s.logger.Info("student enrolled", zap.String("user_id", userID), zap.String("course_id", courseID))
	return &models.EnrollmentDetail{
		Enrollment:  enrollment,
		Course:      course,
		Completions: []models.LessonCompletion{},
	}, nil
}

// CompleteLesson marks the lesson complete for the user's enrollment in the
// lesson's course. Repeated calls return the first completion.
func (s *EnrollmentService) CompleteLesson(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error) {
	scope, err := s.courses.FindLessonScope(ctx, lessonID)
	if err != nil {
		return nil, notFoundOrInternal(err, "lesson not found", "failed to load lesson")
	}

	enrollment, err := s.repo.FindByUserAndCourse(ctx, userID, scope.CourseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.ErrNotEnrolled
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	completion := &models.LessonCompletion{EnrollmentID: enrollment.ID, LessonID: lessonID}
	created, err := s.repo.CreateCompletion(ctx, completion)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record completion")
	}
	s.metrics.RecordLessonCompletion(created)

	if !created {
		existing, err := s.repo.FindCompletion(ctx, enrollment.ID, lessonID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion")
		}
		return existing, nil
	}

	_, progress, err := s.repo.RecalculateProgress(ctx, enrollment.ID, CalculateProgress)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}
	s.metrics.ObserveProgress(progress)
	return completion, nil
}

// GetProgress recomputes, stores and returns progress for the user's
// enrollment in the course.
func (s *EnrollmentService) GetProgress(ctx context.Context, userID, courseID string) (*models.EnrollmentProgress, error) {
	enrollment, err := s.repo.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "enrollment not found", "failed to load enrollment")
	}

	counts, progress, err := s.repo.RecalculateProgress(ctx, enrollment.ID, CalculateProgress)
	if err != nil {
		return nil, notFoundOrInternal(err, "enrollment not found", "failed to calculate progress")
	}
	enrollment.Progress = progress

	course, err := s.courses.FindTree(ctx, courseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	completions, err := s.repo.ListCompletions(ctx, []string{enrollment.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completions")
	}

	return &models.EnrollmentProgress{
		EnrollmentDetail: models.EnrollmentDetail{
			Enrollment:  *enrollment,
			Course:      course,
			Completions: nonNilCompletions(completions[enrollment.ID]),
		},
		TotalLessons:     counts.Total,
		CompletedLessons: counts.Completed,
	}, nil
}

// ListStudentEnrollments returns the user's enrollments, most recent first,
// with course trees and completions.
func (s *EnrollmentService) ListStudentEnrollments(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if len(enrollments) == 0 {
		return []models.EnrollmentDetail{}, nil
	}

	courseIDs := make([]string, 0, len(enrollments))
	enrollmentIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
		enrollmentIDs = append(enrollmentIDs, e.ID)
	}

	courses, err := s.courses.FindTrees(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	completions, err := s.repo.ListCompletions(ctx, enrollmentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completions")
	}

	details := make([]models.EnrollmentDetail, 0, len(enrollments))
	for _, e := range enrollments {
		details = append(details, models.EnrollmentDetail{
			Enrollment:  e,
			Course:      courses[e.CourseID],
			Completions: nonNilCompletions(completions[e.ID]),
		})
	}
	return details, nil
}

// ListCourseEnrollments returns every enrollment of a course with a student
// summary and completions. The course may be unpublished.
func (s *EnrollmentService) ListCourseEnrollments(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}

	details, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if len(details) == 0 {
		return []models.EnrollmentDetail{}, nil
	}

	ids := make([]string, len(details))
	for i := range details {
		ids[i] = details[i].ID
	}
	completions, err := s.repo.ListCompletions(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completions")
	}
	for i := range details {
		details[i].Completions = nonNilCompletions(completions[details[i].ID])
	}
	return details, nil
}

func nonNilCompletions(list []models.LessonCompletion) []models.LessonCompletion {
	if list == nil {
		return []models.LessonCompletion{}
	}
	return list
}
