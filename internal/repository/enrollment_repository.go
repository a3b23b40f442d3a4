package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tailms-api/internal/models"
)

const enrollmentColumns = `id, user_id, course_id, progress, enrolled_at, updated_at`

// ProgressFunc derives the stored progress from completed and total lesson counts.
type ProgressFunc func(completed, total int) int

// EnrollmentRepository persists enrollments and lesson completions.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Exists reports whether the user is enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// Create inserts an enrollment. A second enrollment for the same pair fails
// with a unique violation (see IsUniqueViolation).
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := dbNow()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, user_id, course_id, progress, enrolled_at, updated_at) VALUES (:id, :user_id, :course_id, :progress, :enrolled_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByUserAndCourse returns the enrollment for the pair or sql.ErrNoRows.
func (r *EnrollmentRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListByUser returns a user's enrollments, most recent first.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 ORDER BY enrolled_at DESC, id`
	enrollments := []models.Enrollment{}
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list user enrollments: %w", err)
	}
	return enrollments, nil
}

type enrollmentUserRow struct {
	models.Enrollment
	UserEmail  string            `db:"user_email"`
	UserRole   models.UserRole   `db:"user_role"`
	UserStatus models.UserStatus `db:"user_status"`
}

// ListByCourse returns a course's enrollments with a summary of each student.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.progress, e.enrolled_at, e.updated_at,
u.email AS user_email, u.role AS user_role, u.status AS user_status
FROM enrollments e
JOIN users u ON u.id = e.user_id
WHERE e.course_id = $1
ORDER BY e.enrolled_at DESC, e.id`
	var rows []enrollmentUserRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}

	details := make([]models.EnrollmentDetail, len(rows))
	for i, row := range rows {
		details[i] = models.EnrollmentDetail{
			Enrollment: row.Enrollment,
			User: &models.UserSummary{
				ID:     row.UserID,
				Email:  row.UserEmail,
				Role:   row.UserRole,
				Status: row.UserStatus,
			},
			Completions: []models.LessonCompletion{},
		}
	}
	return details, nil
}

// ListCompletions returns completions grouped by enrollment ID in completion order.
func (r *EnrollmentRepository) ListCompletions(ctx context.Context, enrollmentIDs []string) (map[string][]models.LessonCompletion, error) {
	grouped := make(map[string][]models.LessonCompletion, len(enrollmentIDs))
	if len(enrollmentIDs) == 0 {
		return grouped, nil
	}
	const query = `SELECT id, enrollment_id, lesson_id, completed_at FROM lesson_completions WHERE enrollment_id = ANY($1) ORDER BY completed_at ASC, id ASC`
	var completions []models.LessonCompletion
	if err := r.db.SelectContext(ctx, &completions, query, pq.Array(enrollmentIDs)); err != nil {
		return nil, fmt.Errorf("list lesson completions: %w", err)
	}
	for _, c := range completions {
		grouped[c.EnrollmentID] = append(grouped[c.EnrollmentID], c)
	}
	return grouped, nil
}

// CreateCompletion records a completion unless one already exists for the
// enrollment and lesson. It reports whether a new row was written.
func (r *EnrollmentRepository) CreateCompletion(ctx context.Context, completion *models.LessonCompletion) (bool, error) {
	if completion.ID == "" {
		completion.ID = uuid.NewString()
	}
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = dbNow()
	}

	const query = `INSERT INTO lesson_completions (id, enrollment_id, lesson_id, completed_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (enrollment_id, lesson_id) DO NOTHING
RETURNING id, completed_at`
	var (
		id          string
		completedAt time.Time
	)
	err := r.db.QueryRowxContext(ctx, query, completion.ID, completion.EnrollmentID, completion.LessonID, completion.CompletedAt).Scan(&id, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create lesson completion: %w", err)
	}
	completion.ID = id
	completion.CompletedAt = completedAt.UTC()
	return true, nil
}

// FindCompletion returns the completion for the enrollment and lesson.
func (r *EnrollmentRepository) FindCompletion(ctx context.Context, enrollmentID, lessonID string) (*models.LessonCompletion, error) {
	const query = `SELECT id, enrollment_id, lesson_id, completed_at FROM lesson_completions WHERE enrollment_id = $1 AND lesson_id = $2`
	var completion models.LessonCompletion
	if err := r.db.GetContext(ctx, &completion, query, enrollmentID, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson completion: %w", err)
	}
	completion.CompletedAt = completion.CompletedAt.UTC()
	return &completion, nil
}

// dbNow matches the microsecond precision Postgres stores for timestamptz.
func dbNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// RecalculateProgress locks the enrollment, counts the course's lessons and
// the enrollment's completions, and stores calc(completed, total). Concurrent
// recalculations of the same enrollment are serialised by the row lock.
func (r *EnrollmentRepository) RecalculateProgress(ctx context.Context, enrollmentID string, calc ProgressFunc) (models.ProgressCounts, int, error) {
	var (
		counts   models.ProgressCounts
		progress int
	)
	err := withTx(ctx, r.db, "progress", func(tx *sqlx.Tx) error {
		var courseID string
		if err := tx.GetContext(ctx, &courseID, `SELECT course_id FROM enrollments WHERE id = $1 FOR UPDATE`, enrollmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock enrollment: %w", err)
		}

		const countQuery = `SELECT
(SELECT COUNT(*) FROM lessons l JOIN modules m ON m.id = l.module_id WHERE m.course_id = $1) AS total,
(SELECT COUNT(*) FROM lesson_completions lc JOIN lessons l ON l.id = lc.lesson_id JOIN modules m ON m.id = l.module_id
 WHERE lc.enrollment_id = $2 AND m.course_id = $1) AS completed`
		if err := tx.GetContext(ctx, &counts, countQuery, courseID, enrollmentID); err != nil {
			return fmt.Errorf("count progress: %w", err)
		}

		progress = calc(counts.Completed, counts.Total)
		if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET progress = $2, updated_at = $3 WHERE id = $1`, enrollmentID, progress, time.Now().UTC()); err != nil {
			return fmt.Errorf("store progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.ProgressCounts{}, 0, err
	}
	return counts, progress, nil
}
