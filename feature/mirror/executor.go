package mirror

import (
	"context"
	"strings"
	"time"

	"overlay-sync/core/asyncmap"
	"overlay-sync/core/dispatch"
	"overlay-sync/core/metrics"
	"overlay-sync/core/storage"
	"overlay-sync/feature/mirror/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const defaultContentType = "application/octet-stream"

// Executor operation labels.
const (
	opAdd     = "add"
	opReplace = "replace"
	opRemove  = "remove"
)

// BucketExecutor renders items as objects in a bucket. Command drains run on one loop and
// map change passes on another, so request bursts never wait behind storage calls.
type BucketExecutor struct {
	client   storage.Client
	bucket   string
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Mirror
	commands *dispatch.Loop
	changes  *dispatch.Loop
	throttle asyncmap.Throttler

	torndown chan struct{}
}

// NewBucketExecutor creates an executor writing into bucket and starts its loops.
func NewBucketExecutor(client storage.Client, bucket string, cfg Config, logger *zap.Logger, m *metrics.Mirror) *BucketExecutor {
	if m == nil {
		m = metrics.NewMirror(nil)
	}
	return &BucketExecutor{
		client:   client,
		bucket:   bucket,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		commands: dispatch.NewLoop("mirror-commands", logger),
		changes:  dispatch.NewLoop("mirror-changes", logger),
		throttle: asyncmap.AllOf(asyncmap.TimeBudget(cfg.PassBudget()), asyncmap.CountBudget(cfg.MaxPerPass)),
		torndown: make(chan struct{}),
	}
}

// Add uploads a new object for key.
func (e *BucketExecutor) Add(key string, item models.Item) (models.ObjectRef, error) {
	return e.put(opAdd, key, item)
}

// Replace overwrites the object for key in place.
func (e *BucketExecutor) Replace(key string, _ models.Item, oldRef models.ObjectRef, item models.Item) (models.ObjectRef, error) {
	ref, err := e.put(opReplace, key, item)
	if err == nil && oldRef.Object != ref.Object {
		// prefix changed between restarts, drop the stale copy
		if rmErr := e.removeObject(opRemove, oldRef.Object); rmErr != nil {
			e.logger.Warn("Failed to remove stale object",
				zap.String("key", key),
				zap.String("object", oldRef.Object),
				zap.Error(rmErr),
			)
		}
	}
	return ref, err
}

// Remove deletes the object rendered for key.
func (e *BucketExecutor) Remove(key string, _ models.Item, ref models.ObjectRef) error {
	if err := e.removeObject(opRemove, ref.Object); err != nil {
		return err
	}
	e.metrics.Applied.Dec()
	e.logger.Debug("Object removed", zap.String("key", key), zap.String("object", ref.Object))
	return nil
}

func (e *BucketExecutor) put(op, key string, item models.Item) (models.ObjectRef, error) {
	object := e.cfg.ObjectName(key)
	contentType := item.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.CallTimeout())
	defer cancel()

	start := time.Now()
	info, err := e.client.PutObject(ctx, e.bucket, object, strings.NewReader(item.Payload), int64(len(item.Payload)),
		minio.PutObjectOptions{ContentType: contentType})
	e.metrics.ObserveChange(op, start, err)
	if err != nil {
		return models.ObjectRef{}, err
	}
	if op == opAdd {
		e.metrics.Applied.Inc()
	}

	e.logger.Debug("Object written",
		zap.String("op", op),
		zap.String("key", key),
		zap.String("object", object),
		zap.Int64("size", info.Size),
	)
	return models.ObjectRef{Object: object, ETag: info.ETag, Size: info.Size}, nil
}

func (e *BucketExecutor) removeObject(op, object string) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.CallTimeout())
	defer cancel()

	start := time.Now()
	err := e.client.RemoveObject(ctx, e.bucket, object, minio.RemoveObjectOptions{})
	e.metrics.ObserveChange(op, start, err)
	return err
}

// RunCommandChain runs command drains on the command loop.
func (e *BucketExecutor) RunCommandChain(work func()) { e.commands.Run(work) }

// RunMapChanges runs processor passes and the teardown on the change loop.
func (e *BucketExecutor) RunMapChanges(work func()) { e.changes.Run(work) }

// ContinueMapChanges applies the configured pass budgets.
func (e *BucketExecutor) ContinueMapChanges(start time.Time, remaining int) bool {
	return e.throttle.ContinueMapChanges(start, remaining)
}

// OnMapChangeBatchEnd records the size of a finished or paused pass.
func (e *BucketExecutor) OnMapChangeBatchEnd(processed int) {
	e.metrics.Batches.Observe(float64(processed))
}

// Destroy purges the objects still rendered when configured to, then marks the teardown
// complete.
func (e *BucketExecutor) Destroy(remaining []asyncmap.Entry[string, models.Item, models.ObjectRef]) {
	defer close(e.torndown)

	if !e.cfg.PurgeOnDestroy || len(remaining) == 0 {
		e.logger.Info("Mirror torn down", zap.Int("kept", len(remaining)))
		return
	}

	objects := make([]string, 0, len(remaining))
	for _, entry := range remaining {
		objects = append(objects, entry.Context.Object)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.CallTimeout())
	defer cancel()

	failed, err := storage.RemoveAll(ctx, e.client, e.bucket, objects)
	purged := len(objects) - failed
	e.metrics.Purged.Add(float64(purged))
	e.metrics.Applied.Sub(float64(purged))
	if err != nil {
		e.logger.Error("Mirror purge incomplete", zap.Int("failed", failed), zap.Int("purged", purged), zap.Error(err))
		return
	}
	e.logger.Info("Mirror purged", zap.Int("purged", purged))
}

// Torndown is closed once Destroy has finished.
func (e *BucketExecutor) Torndown() <-chan struct{} {
	return e.torndown
}

// Idle waits for both loops to run out of queued work.
func (e *BucketExecutor) Idle(ctx context.Context) error {
	if err := e.commands.Idle(ctx); err != nil {
		return err
	}
	return e.changes.Idle(ctx)
}

// Close stops both loops after their queued work has run.
func (e *BucketExecutor) Close(ctx context.Context) error {
	if err := e.commands.Close(ctx); err != nil {
		return err
	}
	return e.changes.Close(ctx)
}
