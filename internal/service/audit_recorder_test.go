package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/pkg/jobs"
)

type flakyAudit struct {
	mockAudit
	failures int
}

func (f *flakyAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("db down")
	}
	return f.mockAudit.CreateAuditLog(ctx, log)
}

func TestAuditRecorderFlushesOnStop(t *testing.T) {
	store := &mockAudit{}
	rec := NewAuditRecorder(store, nil, jobs.QueueConfig{Workers: 1, BufferSize: 8})
	rec.Start(context.Background())

	for _, action := range []string{models.AuditActionCourseCreate, models.AuditActionLessonUpdate} {
		require.NoError(t, rec.CreateAuditLog(context.Background(), &models.AuditLog{Action: action}))
	}
	require.NoError(t, rec.CreateAuditLog(context.Background(), nil))
	rec.Stop()

	assert.Equal(t, []string{models.AuditActionCourseCreate, models.AuditActionLessonUpdate}, store.actions())
}

func TestAuditRecorderRetriesFailedWrites(t *testing.T) {
	store := &flakyAudit{failures: 2}
	rec := NewAuditRecorder(store, nil, jobs.QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond})
	rec.Start(context.Background())

	require.NoError(t, rec.CreateAuditLog(context.Background(), &models.AuditLog{Action: models.AuditActionLogin}))
	rec.Stop()

	assert.Equal(t, []string{models.AuditActionLogin}, store.actions())
}

func TestAuditRecorderWritesInlineWhenStopped(t *testing.T) {
	store := &mockAudit{}
	rec := NewAuditRecorder(store, nil, jobs.QueueConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.CreateAuditLog(ctx, &models.AuditLog{Action: models.AuditActionLogout}))

	assert.Equal(t, []string{models.AuditActionLogout}, store.actions())
}
