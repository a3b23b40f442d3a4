package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tailms-api/internal/models"
	appErrors "github.com/noah-isme/tailms-api/pkg/errors"
	"github.com/noah-isme/tailms-api/pkg/export"
)

type stubEnrollmentLister struct {
	details []models.EnrollmentDetail
}

func (s stubEnrollmentLister) ListCourseEnrollments(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	return s.details, nil
}

type stubCourseFinder struct{}

func (stubCourseFinder) Get(ctx context.Context, id string, includeUnpublished bool) (*models.Course, error) {
	if id != "c1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return &models.Course{ID: "c1", Title: "Go Fundamentals"}, nil
}

type capturingRenderer struct {
	got export.Dataset
}

func (c *capturingRenderer) Render(data export.Dataset) ([]byte, error) {
	c.got = data
	return []byte("%PDF-stub"), nil
}

func sampleEnrollmentDetails() []models.EnrollmentDetail {
	return []models.EnrollmentDetail{{
		Enrollment: models.Enrollment{ID: "e1", UserID: "u1", CourseID: "c1", Progress: 50, EnrolledAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		User:       &models.UserSummary{ID: "u1", Email: "student@example.com", Status: models.UserStatusActive},
		Completions: []models.LessonCompletion{
			{ID: "lc1", LessonID: "l1"},
			{ID: "lc2", LessonID: "l2"},
		},
	}}
}

func TestExportCourseEnrollmentsCSV(t *testing.T) {
	svc := NewExportService(stubEnrollmentLister{details: sampleEnrollmentDetails()}, stubCourseFinder{}, zap.NewNop(), nil, nil)

	file, err := svc.ExportCourseEnrollments(context.Background(), "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "course-c1-enrollments.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, enrollmentReportHeaders, records[0])
	assert.Equal(t, []string{"student@example.com", "ACTIVE", "50%", "2", "2024-05-01T08:00:00Z"}, records[1])
}

func TestExportCourseEnrollmentsPDF(t *testing.T) {
	pdf := &capturingRenderer{}
	svc := NewExportService(stubEnrollmentLister{details: sampleEnrollmentDetails()}, stubCourseFinder{}, nil, nil, pdf)

	file, err := svc.ExportCourseEnrollments(context.Background(), "c1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, "course-c1-enrollments.pdf", file.Filename)
	assert.Equal(t, "Enrollments - Go Fundamentals", pdf.got.Title)
	assert.Len(t, pdf.got.Rows, 1)
}

func TestExportCourseEnrollmentsErrors(t *testing.T) {
	svc := NewExportService(stubEnrollmentLister{}, stubCourseFinder{}, nil, nil, nil)

	_, err := svc.ExportCourseEnrollments(context.Background(), "c1", "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.ExportCourseEnrollments(context.Background(), "missing", "csv")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
