package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tc-api/pkg/jobs"
	"github.com/noah-isme/sma-tc-api/pkg/storage"
)

const jobTypeOrphanBlob = "tc.orphan_blob"

type blobRemover interface {
	Remove(ctx context.Context, bucket, name string) error
}

// OrphanBlob identifies an uploaded certificate without a metadata row.
type OrphanBlob struct {
	Bucket string
	Name   string
}

// OrphanCleanerConfig sizes the cleanup worker pool.
type OrphanCleanerConfig struct {
	Workers     int
	QueueSize   int
	MaxRetries  int
	RetryDelay  time.Duration
	CallTimeout time.Duration
}

// OrphanCleaner deletes certificate blobs whose metadata insert failed.
type OrphanCleaner struct {
	store   blobRemover
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	timeout time.Duration
}

// NewOrphanCleaner builds the cleaner and its queue. Call Start before scheduling.
func NewOrphanCleaner(store blobRemover, metrics *MetricsService, logger *zap.Logger, cfg OrphanCleanerConfig) *OrphanCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	c := &OrphanCleaner{store: store, metrics: metrics, logger: logger, timeout: cfg.CallTimeout}
	c.queue = jobs.NewQueue("tc-orphan-cleanup", c.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnGiveUp: func(job jobs.Job, err error) {
			c.metrics.RecordOrphanCleanup("abandoned")
			blob, _ := job.Payload.(OrphanBlob)
			c.logger.Error("orphaned certificate left in storage",
				zap.String("bucket", blob.Bucket),
				zap.String("file_name", blob.Name),
				zap.Error(err))
		},
	})
	return c
}

// Start launches the workers.
func (c *OrphanCleaner) Start(ctx context.Context) {
	c.queue.Start(ctx)
}

// Stop drains the workers.
func (c *OrphanCleaner) Stop() {
	c.queue.Stop()
}

// Stats reports queue activity.
func (c *OrphanCleaner) Stats() jobs.Stats {
	return c.queue.Stats()
}

// Schedule queues removal of a blob. It never waits for queue space.
func (c *OrphanCleaner) Schedule(bucket, name string) error {
	err := c.queue.TryEnqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeOrphanBlob,
		Payload: OrphanBlob{Bucket: bucket, Name: name},
	})
	if err != nil {
		c.metrics.RecordOrphanCleanup("dropped")
		return fmt.Errorf("schedule orphan cleanup: %w", err)
	}
	c.metrics.RecordOrphanCleanup("scheduled")
	return nil
}

func (c *OrphanCleaner) handle(ctx context.Context, job jobs.Job) error {
	blob, ok := job.Payload.(OrphanBlob)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.store.Remove(callCtx, blob.Bucket, blob.Name)
	if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}
	c.metrics.RecordOrphanCleanup("removed")
	c.logger.Info("orphaned certificate removed", zap.String("file_name", blob.Name), zap.Int("attempt", job.Attempt))
	return nil
}
