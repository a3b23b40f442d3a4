package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/internal/repository"
)

// malformedID is an id Postgres rejects for a UUID column.
const malformedID = "not-a-uuid"

func invalidUUID(id string) error {
	return fmt.Errorf("query: %w", &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "` + id + `"`})
}

// memCatalog is a map-backed course repository.
type memCatalog struct {
	courses map[string]*models.Course
	modules map[string]*models.Module
	lessons map[string]*models.Lesson
	seq     int
	listErr error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		courses: map[string]*models.Course{},
		modules: map[string]*models.Module{},
		lessons: map[string]*models.Lesson{},
	}
}

func (m *memCatalog) id(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memCatalog) tick() time.Time {
	return time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
}

func (m *memCatalog) tree(id string) *models.Course {
	c := *m.courses[id]
	c.Modules = []models.Module{}
	for _, mod := range m.modules {
		if mod.CourseID != id {
			continue
		}
		copyMod := *mod
		copyMod.Lessons = []models.Lesson{}
		for _, l := range m.lessons {
			if l.ModuleID == mod.ID {
				copyMod.Lessons = append(copyMod.Lessons, *l)
			}
		}
		sort.Slice(copyMod.Lessons, func(i, j int) bool {
			a, b := copyMod.Lessons[i], copyMod.Lessons[j]
			if a.Order != b.Order {
				return a.Order < b.Order
			}
			return a.CreatedAt.Before(b.CreatedAt)
		})
		c.Modules = append(c.Modules, copyMod)
	}
	sort.Slice(c.Modules, func(i, j int) bool {
		a, b := c.Modules[i], c.Modules[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return &c
}

func (m *memCatalog) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []models.Course{}
	for id, c := range m.courses {
		if filter.PublishedOnly && !c.IsPublished {
			continue
		}
		out = append(out, *m.tree(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memCatalog) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if id == malformedID {
		return nil, invalidUUID(id)
	}
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *c
	return &copy, nil
}

func (m *memCatalog) FindTree(ctx context.Context, id string) (*models.Course, error) {
	if id == malformedID {
		return nil, invalidUUID(id)
	}
	if _, ok := m.courses[id]; !ok {
		return nil, sql.ErrNoRows
	}
	return m.tree(id), nil
}

func (m *memCatalog) FindTrees(ctx context.Context, ids []string) (map[string]*models.Course, error) {
	out := make(map[string]*models.Course, len(ids))
	for _, id := range ids {
		if _, ok := m.courses[id]; ok {
			out[id] = m.tree(id)
		}
	}
	return out, nil
}

func (m *memCatalog) CreateCourse(ctx context.Context, course *models.Course) error {
	course.ID = m.id("c")
	course.CreatedAt = m.tick()
	stored := *course
	stored.Modules = nil
	m.courses[course.ID] = &stored
	for i := range course.Modules {
		course.Modules[i].CourseID = course.ID
		if err := m.CreateModule(ctx, &course.Modules[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memCatalog) UpdateCourse(ctx context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *course
	stored.Modules = nil
	m.courses[course.ID] = &stored
	return nil
}

func (m *memCatalog) DeleteCourse(ctx context.Context, id string) error {
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	for mid, mod := range m.modules {
		if mod.CourseID == id {
			_ = m.DeleteModule(ctx, mid)
		}
	}
	return nil
}

func (m *memCatalog) CreateModule(ctx context.Context, module *models.Module) error {
	module.ID = m.id("m")
	module.CreatedAt = m.tick()
	stored := *module
	stored.Lessons = nil
	m.modules[module.ID] = &stored
	for i := range module.Lessons {
		module.Lessons[i].ModuleID = module.ID
		if err := m.CreateLesson(ctx, &module.Lessons[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memCatalog) FindModule(ctx context.Context, id string) (*models.Module, error) {
	if id == malformedID {
		return nil, invalidUUID(id)
	}
	mod, ok := m.modules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *mod
	return &copy, nil
}

func (m *memCatalog) UpdateModule(ctx context.Context, module *models.Module) error {
	if _, ok := m.modules[module.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *module
	m.modules[module.ID] = &stored
	return nil
}

func (m *memCatalog) DeleteModule(ctx context.Context, id string) error {
	if _, ok := m.modules[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.modules, id)
	for lid, l := range m.lessons {
		if l.ModuleID == id {
			delete(m.lessons, lid)
		}
	}
	return nil
}

func (m *memCatalog) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	lesson.ID = m.id("l")
	lesson.CreatedAt = m.tick()
	stored := *lesson
	m.lessons[lesson.ID] = &stored
	return nil
}

func (m *memCatalog) FindLesson(ctx context.Context, id string) (*models.Lesson, error) {
	if id == malformedID {
		return nil, invalidUUID(id)
	}
	l, ok := m.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *l
	return &copy, nil
}

func (m *memCatalog) FindLessonScope(ctx context.Context, lessonID string) (*models.LessonScope, error) {
	if lessonID == malformedID {
		return nil, invalidUUID(lessonID)
	}
	l, ok := m.lessons[lessonID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.LessonScope{LessonID: l.ID, ModuleID: l.ModuleID, CourseID: m.modules[l.ModuleID].CourseID}, nil
}

func (m *memCatalog) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	if _, ok := m.lessons[lesson.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *lesson
	m.lessons[lesson.ID] = &stored
	return nil
}

func (m *memCatalog) DeleteLesson(ctx context.Context, id string) error {
	if _, ok := m.lessons[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.lessons, id)
	return nil
}

// memEnrollments is a map-backed enrollment repository that counts lessons
// through the shared catalog.
type memEnrollments struct {
	catalog     *memCatalog
	users       map[string]models.UserSummary
	enrollments map[string]*models.Enrollment
	completions []models.LessonCompletion
	seq         int
	// raceOnCreate simulates a concurrent enrollment winning between Exists and Create.
	raceOnCreate bool
}

func newMemEnrollments(catalog *memCatalog) *memEnrollments {
	return &memEnrollments{catalog: catalog, users: map[string]models.UserSummary{}, enrollments: map[string]*models.Enrollment{}}
}

func (m *memEnrollments) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	_, err := m.FindByUserAndCourse(ctx, userID, courseID)
	return err == nil, nil
}

func (m *memEnrollments) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if ok, _ := m.Exists(ctx, enrollment.UserID, enrollment.CourseID); ok || m.raceOnCreate {
		return fmt.Errorf("create enrollment: %w", &pq.Error{Code: "23505"})
	}
	m.seq++
	enrollment.ID = fmt.Sprintf("e%d", m.seq)
	enrollment.EnrolledAt = time.Date(2024, 2, 1, 0, 0, m.seq, 0, time.UTC)
	stored := *enrollment
	m.enrollments[enrollment.ID] = &stored
	return nil
}

func (m *memEnrollments) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if courseID == malformedID {
		return nil, invalidUUID(courseID)
	}
	for _, e := range m.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			copy := *e
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memEnrollments) sorted(match func(e *models.Enrollment) bool) []models.Enrollment {
	out := []models.Enrollment{}
	for _, e := range m.enrollments {
		if match(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.After(out[j].EnrolledAt) })
	return out
}

func (m *memEnrollments) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	return m.sorted(func(e *models.Enrollment) bool { return e.UserID == userID }), nil
}

func (m *memEnrollments) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	details := []models.EnrollmentDetail{}
	for _, e := range m.sorted(func(e *models.Enrollment) bool { return e.CourseID == courseID }) {
		user := m.users[e.UserID]
		details = append(details, models.EnrollmentDetail{Enrollment: e, User: &user, Completions: []models.LessonCompletion{}})
	}
	return details, nil
}

func (m *memEnrollments) ListCompletions(ctx context.Context, ids []string) (map[string][]models.LessonCompletion, error) {
	out := map[string][]models.LessonCompletion{}
	for _, id := range ids {
		for _, c := range m.completions {
			if c.EnrollmentID == id {
				out[id] = append(out[id], c)
			}
		}
	}
	return out, nil
}

func (m *memEnrollments) CreateCompletion(ctx context.Context, completion *models.LessonCompletion) (bool, error) {
	if _, err := m.FindCompletion(ctx, completion.EnrollmentID, completion.LessonID); err == nil {
		return false, nil
	}
	m.seq++
	completion.ID = fmt.Sprintf("lc%d", m.seq)
	completion.CompletedAt = time.Date(2024, 3, 1, 0, 0, m.seq, 0, time.UTC)
	m.completions = append(m.completions, *completion)
	return true, nil
}

func (m *memEnrollments) FindCompletion(ctx context.Context, enrollmentID, lessonID string) (*models.LessonCompletion, error) {
	for _, c := range m.completions {
		if c.EnrollmentID == enrollmentID && c.LessonID == lessonID {
			copy := c
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memEnrollments) RecalculateProgress(ctx context.Context, enrollmentID string, calc repository.ProgressFunc) (models.ProgressCounts, int, error) {
	e, ok := m.enrollments[enrollmentID]
	if !ok {
		return models.ProgressCounts{}, 0, sql.ErrNoRows
	}
	var counts models.ProgressCounts
	for _, l := range m.catalog.lessons {
		if mod, ok := m.catalog.modules[l.ModuleID]; ok && mod.CourseID == e.CourseID {
			counts.Total++
			for _, c := range m.completions {
				if c.EnrollmentID == enrollmentID && c.LessonID == l.ID {
					counts.Completed++
				}
			}
		}
	}
	e.Progress = calc(counts.Completed, counts.Total)
	return counts, e.Progress, nil
}

// memCache is an in-process catalog cache.
type memCache struct {
	values      map[string]interface{}
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{values: map[string]interface{}{}}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) bool {
	v, ok := c.values[key]
	if !ok {
		return false
	}
	if courses, ok := dest.(*[]models.Course); ok {
		*courses = v.([]models.Course)
	}
	return true
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	c.values[key] = value
}

func (c *memCache) Invalidate(ctx context.Context, pattern string) {
	c.invalidated = append(c.invalidated, pattern)
	c.values = map[string]interface{}{}
}
