package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tailms-api/internal/middleware"
	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/pkg/response"
)

type publishedCatalog interface {
	ListPublished(ctx context.Context) ([]models.Course, bool, error)
	Get(ctx context.Context, id string, includeUnpublished bool) (*models.Course, error)
}

type studentEnrollmentService interface {
	Enroll(ctx context.Context, userID, courseID string) (*models.EnrollmentDetail, error)
	CompleteLesson(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error)
	GetProgress(ctx context.Context, userID, courseID string) (*models.EnrollmentProgress, error)
	ListStudentEnrollments(ctx context.Context, userID string) ([]models.EnrollmentDetail, error)
}

// StudentCourseHandler serves the published catalog and learning progress to students.
type StudentCourseHandler struct {
	courses     publishedCatalog
	enrollments studentEnrollmentService
}

// NewStudentCourseHandler constructs the handler.
func NewStudentCourseHandler(courses publishedCatalog, enrollments studentEnrollmentService) *StudentCourseHandler {
	return &StudentCourseHandler{courses: courses, enrollments: enrollments}
}

// List godoc
// @Summary List published courses
// @Tags Student Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/courses [get]
func (h *StudentCourseHandler) List(c *gin.Context) {
	courses, hit, err := h.courses.ListPublished(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, courses, nil)
}

// Get godoc
// @Summary Get published course
// @Tags Student Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student/courses/{id} [get]
func (h *StudentCourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, course, nil)
}

// MyEnrollments godoc
// @Summary List my enrollments
// @Tags Student Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/courses/my-enrollments [get]
func (h *StudentCourseHandler) MyEnrollments(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	enrollments, err := h.enrollments.ListStudentEnrollments(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, nil)
}

// Enroll godoc
// @Summary Enroll in course
// @Tags Student Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope "ALREADY_ENROLLED"
// @Failure 404 {object} response.Envelope
// @Router /student/courses/{id}/enroll [post]
func (h *StudentCourseHandler) Enroll(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, enrollment)
}

// Progress godoc
// @Summary Course progress
// @Tags Student Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student/courses/{id}/progress [get]
func (h *StudentCourseHandler) Progress(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	progress, err := h.enrollments.GetProgress(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, progress, nil)
}

// CompleteLesson godoc
// @Summary Mark lesson complete
// @Description Idempotent; repeated calls return the first completion
// @Tags Student Courses
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope "NOT_ENROLLED"
// @Failure 404 {object} response.Envelope
// @Router /student/courses/lessons/{lessonId}/complete [post]
func (h *StudentCourseHandler) CompleteLesson(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	completion, err := h.enrollments.CompleteLesson(c.Request.Context(), claims.UserID, c.Param("lessonId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, completion, nil)
}
