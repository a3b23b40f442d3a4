package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/pkg/jobs"
)

// AuditRecorder writes audit logs through a background worker pool so
// request latency does not include the audit insert. When the queue is
// full or not running the write happens inline.
type AuditRecorder struct {
	store  auditWriter
	queue  *jobs.Queue[*models.AuditLog]
	logger *zap.Logger
}

// NewAuditRecorder constructs a recorder over store.
func NewAuditRecorder(store auditWriter, logger *zap.Logger, cfg jobs.QueueConfig) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	r := &AuditRecorder{store: store, logger: logger}
	r.queue = jobs.NewQueue[*models.AuditLog]("audit", func(ctx context.Context, log *models.AuditLog) error {
		return store.CreateAuditLog(ctx, log)
	}, cfg)
	return r
}

// Start launches the workers.
func (r *AuditRecorder) Start(ctx context.Context) {
	r.queue.Start(ctx)
}

// Stop flushes buffered logs.
func (r *AuditRecorder) Stop() {
	r.queue.Stop()
}

// CreateAuditLog queues log for writing.
func (r *AuditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log == nil {
		return nil
	}
	err := r.queue.TryEnqueue(log)
	if err == nil {
		return nil
	}
	if errors.Is(err, jobs.ErrQueueFull) {
		r.logger.Warn("audit queue full, writing inline", zap.String("action", log.Action))
	}
	return r.store.CreateAuditLog(context.WithoutCancel(ctx), log)
}
