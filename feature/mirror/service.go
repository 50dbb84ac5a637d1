package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"overlay-sync/core/asyncmap"
	"overlay-sync/core/metrics"
	"overlay-sync/core/storage"
	"overlay-sync/feature/mirror/models"

	"go.uber.org/zap"
)

// idlePoll is how often WaitIdle re-checks a wrapper whose loops are briefly empty while
// a rescheduled pass is still in flight.
const idlePoll = 10 * time.Millisecond

// Wrapper is the reconciliation engine instantiation used by the mirror.
type Wrapper = asyncmap.Wrapper[string, models.Item, models.ObjectRef]

// Service keeps the bucket in line with the desired items.
type Service struct {
	client  storage.Client
	bucket  string
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Mirror
	source  Source

	exec    *BucketExecutor
	wrapper *Wrapper
}

// NewService creates a mirror service rendering into bucket. source may be nil, in which
// case Refresh fails with ErrNoSource.
func NewService(client storage.Client, bucket string, cfg Config, source Source, logger *zap.Logger, m *metrics.Mirror) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mirror")
	if m == nil {
		m = metrics.NewMirror(nil)
	}
	exec := NewBucketExecutor(client, bucket, cfg, logger, m)
	return &Service{
		client:  client,
		bucket:  bucket,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		source:  source,
		exec:    exec,
		wrapper: asyncmap.New[string, models.Item, models.ObjectRef](exec, logger),
	}
}

// Init makes sure the target bucket exists.
func (s *Service) Init(ctx context.Context) error {
	return storage.EnsureBucket(ctx, s.client, s.bucket, "")
}

// Put requests item to be rendered under key.
func (s *Service) Put(key string, item models.Item) {
	s.wrapper.Put(key, item)
}

// PutAll requests every item to be rendered.
func (s *Service) PutAll(items map[string]models.Item) {
	s.wrapper.PutAll(items)
}

// Remove requests the object for key to be deleted.
func (s *Service) Remove(key string) {
	s.wrapper.Remove(key)
}

// RemoveAll requests every rendered object to be deleted.
func (s *Service) RemoveAll() {
	s.wrapper.RemoveAll()
}

// Replace makes items the complete desired collection.
func (s *Service) Replace(items map[string]models.Item) {
	s.wrapper.Replace(items)
}

// Refresh loads the configured source and makes its content the desired collection.
func (s *Service) Refresh(ctx context.Context) (*models.RefreshReport, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}

	start := time.Now()
	items, err := s.source.Load(ctx)
	if err != nil {
		s.metrics.Refreshes.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to refresh from %s: %w", s.source.Name(), err)
	}
	s.wrapper.Replace(items)
	s.metrics.Refreshes.WithLabelValues(metrics.ResultOK).Inc()

	report := &models.RefreshReport{
		Source:   s.source.Name(),
		Items:    len(items),
		Duration: time.Since(start).String(),
	}
	s.logger.Info("Mirror refresh requested",
		zap.String("source", report.Source),
		zap.Int("items", report.Items),
	)
	return report, nil
}

// Stats returns the engine bookkeeping.
func (s *Service) Stats() asyncmap.Stats {
	return s.wrapper.Stats()
}

// WaitIdle blocks until every submitted change has been applied or has failed, or ctx
// expires. A destroyed mirror is idle once its teardown has run.
func (s *Service) WaitIdle(ctx context.Context) error {
	for {
		if s.wrapper.IsDestroyed() {
			select {
			case <-s.exec.Torndown():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := s.exec.Idle(ctx); err != nil {
			return err
		}
		st := s.wrapper.Stats()
		if st.Commands == 0 && !st.Draining && !st.Processing {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idlePoll):
		}
	}
}

// Close destroys the engine, waits for the teardown and stops the loops.
// Pending changes are dropped; objects already rendered are purged only when
// PurgeOnDestroy is set.
func (s *Service) Close(ctx context.Context) error {
	s.wrapper.Destroy()

	var errs []error
	select {
	case <-s.exec.Torndown():
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("mirror teardown: %w", ctx.Err()))
	}
	if err := s.exec.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("mirror loops: %w", err))
	}
	return errors.Join(errs...)
}

// Status is the mirror state reported by the status route.
type Status struct {
	Bucket string         `json:"bucket"`
	Prefix string         `json:"prefix"`
	Source string         `json:"source"`
	Stats  asyncmap.Stats `json:"stats"`
}

// Status returns the mirror configuration together with the engine bookkeeping.
func (s *Service) Status() Status {
	source := SourceNone
	if s.source != nil {
		source = s.source.Name()
	}
	return Status{
		Bucket: s.bucket,
		Prefix: s.cfg.Prefix,
		Source: source,
		Stats:  s.wrapper.Stats(),
	}
}
