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

const (
	courseSelect = `SELECT c.id, c.title, c.description, c.is_published, c.created_at, c.updated_at,
(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollment_count
FROM courses c`
	moduleColumns = `id, course_id, title, description, sort_order, created_at, updated_at`
	lessonColumns = `id, module_id, title, description, video_url, duration, sort_order, created_at, updated_at`
	// Display order: caller-supplied order, ties broken by creation.
	treeOrder = `ORDER BY sort_order ASC, created_at ASC, id ASC`
)

// CourseRepository persists the course → module → lesson catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses newest first with their ordered trees.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	query := courseSelect
	if filter.PublishedOnly {
		query += ` WHERE c.is_published = TRUE`
	}
	query += ` ORDER BY c.created_at DESC, c.id`

	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if err := r.attachTree(ctx, courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// FindByID returns the course row without its tree.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, courseSelect+` WHERE c.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindTree returns the course with modules and lessons in display order.
func (r *CourseRepository) FindTree(ctx context.Context, id string) (*models.Course, error) {
	course, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	courses := []models.Course{*course}
	if err := r.attachTree(ctx, courses); err != nil {
		return nil, err
	}
	return &courses[0], nil
}

// FindTrees loads several courses with their trees, keyed by course ID.
func (r *CourseRepository) FindTrees(ctx context.Context, ids []string) (map[string]*models.Course, error) {
	result := make(map[string]*models.Course, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, courseSelect+` WHERE c.id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find courses: %w", err)
	}
	if err := r.attachTree(ctx, courses); err != nil {
		return nil, err
	}
	for i := range courses {
		result[courses[i].ID] = &courses[i]
	}
	return result, nil
}

func (r *CourseRepository) attachTree(ctx context.Context, courses []models.Course) error {
	if len(courses) == 0 {
		return nil
	}
	courseIDs := make([]string, len(courses))
	for i := range courses {
		courseIDs[i] = courses[i].ID
		courses[i].Modules = []models.Module{}
	}

	modules := []models.Module{}
	if err := r.db.SelectContext(ctx, &modules, `SELECT `+moduleColumns+` FROM modules WHERE course_id = ANY($1) `+treeOrder, pq.Array(courseIDs)); err != nil {
		return fmt.Errorf("load modules: %w", err)
	}
	if len(modules) == 0 {
		return nil
	}

	moduleIDs := make([]string, len(modules))
	for i := range modules {
		moduleIDs[i] = modules[i].ID
		modules[i].Lessons = []models.Lesson{}
	}
	lessons := []models.Lesson{}
	if err := r.db.SelectContext(ctx, &lessons, `SELECT `+lessonColumns+` FROM lessons WHERE module_id = ANY($1) `+treeOrder, pq.Array(moduleIDs)); err != nil {
		return fmt.Errorf("load lessons: %w", err)
	}

	moduleIdx := make(map[string]int, len(modules))
	for i := range modules {
		moduleIdx[modules[i].ID] = i
	}
	for _, l := range lessons {
		if i, ok := moduleIdx[l.ModuleID]; ok {
			modules[i].Lessons = append(modules[i].Lessons, l)
		}
	}

	courseIdx := make(map[string]int, len(courses))
	for i := range courses {
		courseIdx[courses[i].ID] = i
	}
	for _, m := range modules {
		if i, ok := courseIdx[m.CourseID]; ok {
			courses[i].Modules = append(courses[i].Modules, m)
		}
	}
	return nil
}

// CreateCourse inserts the course and any nested modules and lessons atomically.
// IDs and timestamps are assigned in place.
func (r *CourseRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	course.CreatedAt, course.UpdatedAt = now, now

	return withTx(ctx, r.db, "create course", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO courses (id, title, description, is_published, created_at, updated_at) VALUES (:id, :title, :description, :is_published, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, course); err != nil {
			return fmt.Errorf("insert course: %w", err)
		}
		for i := range course.Modules {
			course.Modules[i].CourseID = course.ID
			if err := insertModule(ctx, tx, &course.Modules[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateCourse writes title, description and publish flag.
func (r *CourseRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, description = :description, is_published = :is_published, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return requireAffected(res)
}

// DeleteCourse removes the course; modules, lessons, enrollments and completions cascade.
func (r *CourseRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return requireAffected(res)
}

// CreateModule inserts a module and its nested lessons atomically.
func (r *CourseRepository) CreateModule(ctx context.Context, module *models.Module) error {
	return withTx(ctx, r.db, "create module", func(tx *sqlx.Tx) error {
		return insertModule(ctx, tx, module, time.Now().UTC())
	})
}

func insertModule(ctx context.Context, tx *sqlx.Tx, module *models.Module, now time.Time) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	module.CreatedAt, module.UpdatedAt = now, now

	const query = `INSERT INTO modules (id, course_id, title, description, sort_order, created_at, updated_at) VALUES (:id, :course_id, :title, :description, :sort_order, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("insert module: %w", err)
	}
	for i := range module.Lessons {
		module.Lessons[i].ModuleID = module.ID
		if err := insertLesson(ctx, tx, &module.Lessons[i], now); err != nil {
			return err
		}
	}
	return nil
}

// FindModule returns a module without its lessons.
func (r *CourseRepository) FindModule(ctx context.Context, id string) (*models.Module, error) {
	var module models.Module
	if err := r.db.GetContext(ctx, &module, `SELECT `+moduleColumns+` FROM modules WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find module: %w", err)
	}
	return &module, nil
}

// UpdateModule writes title, description and order.
func (r *CourseRepository) UpdateModule(ctx context.Context, module *models.Module) error {
	module.UpdatedAt = time.Now().UTC()
	const query = `UPDATE modules SET title = :title, description = :description, sort_order = :sort_order, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, module)
	if err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return requireAffected(res)
}

// DeleteModule removes a module and, by cascade, its lessons and their completions.
func (r *CourseRepository) DeleteModule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	return requireAffected(res)
}

// CreateLesson inserts a single lesson.
func (r *CourseRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	return withTx(ctx, r.db, "create lesson", func(tx *sqlx.Tx) error {
		return insertLesson(ctx, tx, lesson, time.Now().UTC())
	})
}

func insertLesson(ctx context.Context, tx *sqlx.Tx, lesson *models.Lesson, now time.Time) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	lesson.CreatedAt, lesson.UpdatedAt = now, now

	const query = `INSERT INTO lessons (id, module_id, title, description, video_url, duration, sort_order, created_at, updated_at) VALUES (:id, :module_id, :title, :description, :video_url, :duration, :sort_order, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	return nil
}

// FindLesson returns a lesson by ID.
func (r *CourseRepository) FindLesson(ctx context.Context, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	return &lesson, nil
}

// FindLessonScope resolves the module and course owning a lesson.
func (r *CourseRepository) FindLessonScope(ctx context.Context, lessonID string) (*models.LessonScope, error) {
	const query = `SELECT l.id AS lesson_id, l.module_id, m.course_id FROM lessons l JOIN modules m ON m.id = l.module_id WHERE l.id = $1`
	var scope models.LessonScope
	if err := r.db.GetContext(ctx, &scope, query, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson scope: %w", err)
	}
	return &scope, nil
}

// UpdateLesson writes the mutable lesson fields.
func (r *CourseRepository) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET title = :title, description = :description, video_url = :video_url, duration = :duration, sort_order = :sort_order, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, lesson)
	if err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return requireAffected(res)
}

// DeleteLesson removes a lesson and its completions.
func (r *CourseRepository) DeleteLesson(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return requireAffected(res)
}
