package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tailms-api/internal/dto"
	"github.com/noah-isme/tailms-api/internal/middleware"
	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/internal/service"
	"github.com/noah-isme/tailms-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context) ([]models.Course, error)
	ListPublished(ctx context.Context) ([]models.Course, bool, error)
	Get(ctx context.Context, id string, includeUnpublished bool) (*models.Course, error)
	Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req dto.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, id string) error
	CreateModule(ctx context.Context, courseID string, req dto.CreateModuleRequest) (*models.Module, error)
	UpdateModule(ctx context.Context, id string, req dto.UpdateModuleRequest) (*models.Module, error)
	DeleteModule(ctx context.Context, id string) error
	CreateLesson(ctx context.Context, moduleID string, req dto.CreateLessonRequest) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, id string, req dto.UpdateLessonRequest) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, id string) error
}

type courseEnrollmentService interface {
	ListCourseEnrollments(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type enrollmentExporter interface {
	ExportCourseEnrollments(ctx context.Context, courseID, format string) (*service.ExportFile, error)
}

// AdminCourseHandler serves catalog management for administrators.
type AdminCourseHandler struct {
	courses     courseService
	enrollments courseEnrollmentService
	exporter    enrollmentExporter
}

// NewAdminCourseHandler constructs the handler.
func NewAdminCourseHandler(courses courseService, enrollments courseEnrollmentService, exporter enrollmentExporter) *AdminCourseHandler {
	return &AdminCourseHandler{courses: courses, enrollments: enrollments, exporter: exporter}
}

// Create godoc
// @Summary Create course
// @Description Create a course with optional nested modules and lessons
// @Tags Admin Courses
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/courses [post]
func (h *AdminCourseHandler) Create(c *gin.Context) {
	req, ok := bindBody[dto.CreateCourseRequest](c)
	if !ok {
		return
	}

	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetAuditResourceID(c, course.ID)
	response.Created(c, course)
}

// List godoc
// @Summary List all courses
// @Tags Admin Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/courses [get]
func (h *AdminCourseHandler) List(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, nil)
}

// Get godoc
// @Summary Get course
// @Tags Admin Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id} [get]
func (h *AdminCourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, course, nil)
}

// Update godoc
// @Summary Update course
// @Tags Admin Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id} [patch]
func (h *AdminCourseHandler) Update(c *gin.Context) {
	req, ok := bindBody[dto.UpdateCourseRequest](c)
	if !ok {
		return
	}

	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course
// @Tags Admin Courses
// @Param id path string true "Course ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id} [delete]
func (h *AdminCourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// CreateModule godoc
// @Summary Add module to course
// @Tags Admin Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CreateModuleRequest true "Module payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id}/modules [post]
func (h *AdminCourseHandler) CreateModule(c *gin.Context) {
	req, ok := bindBody[dto.CreateModuleRequest](c)
	if !ok {
		return
	}

	module, err := h.courses.CreateModule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetAuditResourceID(c, module.ID)
	response.Created(c, module)
}

// UpdateModule godoc
// @Summary Update module
// @Tags Admin Courses
// @Accept json
// @Produce json
// @Param moduleId path string true "Module ID"
// @Param payload body dto.UpdateModuleRequest true "Module payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/modules/{moduleId} [patch]
func (h *AdminCourseHandler) UpdateModule(c *gin.Context) {
	req, ok := bindBody[dto.UpdateModuleRequest](c)
	if !ok {
		return
	}

	module, err := h.courses.UpdateModule(c.Request.Context(), c.Param("moduleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, module, nil)
}

// DeleteModule godoc
// @Summary Delete module
// @Tags Admin Courses
// @Param moduleId path string true "Module ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/modules/{moduleId} [delete]
func (h *AdminCourseHandler) DeleteModule(c *gin.Context) {
	if err := h.courses.DeleteModule(c.Request.Context(), c.Param("moduleId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// CreateLesson godoc
// @Summary Add lesson to module
// @Tags Admin Courses
// @Accept json
// @Produce json
// @Param moduleId path string true "Module ID"
// @Param payload body dto.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/modules/{moduleId}/lessons [post]
func (h *AdminCourseHandler) CreateLesson(c *gin.Context) {
	req, ok := bindBody[dto.CreateLessonRequest](c)
	if !ok {
		return
	}

	lesson, err := h.courses.CreateLesson(c.Request.Context(), c.Param("moduleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetAuditResourceID(c, lesson.ID)
	response.Created(c, lesson)
}

// UpdateLesson godoc
// @Summary Update lesson
// @Tags Admin Courses
// @Accept json
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Param payload body dto.UpdateLessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/lessons/{lessonId} [patch]
func (h *AdminCourseHandler) UpdateLesson(c *gin.Context) {
	req, ok := bindBody[dto.UpdateLessonRequest](c)
	if !ok {
		return
	}

	lesson, err := h.courses.UpdateLesson(c.Request.Context(), c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lesson, nil)
}

// DeleteLesson godoc
// @Summary Delete lesson
// @Tags Admin Courses
// @Param lessonId path string true "Lesson ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/lessons/{lessonId} [delete]
func (h *AdminCourseHandler) DeleteLesson(c *gin.Context) {
	if err := h.courses.DeleteLesson(c.Request.Context(), c.Param("lessonId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Enrollments godoc
// @Summary List course enrollments
// @Tags Admin Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id}/enrollments [get]
func (h *AdminCourseHandler) Enrollments(c *gin.Context) {
	enrollments, err := h.enrollments.ListCourseEnrollments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, nil)
}

// ExportEnrollments godoc
// @Summary Export course enrollments
// @Tags Admin Courses
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id}/enrollments/export [get]
func (h *AdminCourseHandler) ExportEnrollments(c *gin.Context) {
	file, err := h.exporter.ExportCourseEnrollments(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
