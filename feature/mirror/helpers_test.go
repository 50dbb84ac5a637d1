package mirror

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"overlay-sync/core/metrics"
	"overlay-sync/feature/mirror/models"

	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory storage.Client for tests driving real loops.
type memStore struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	puts    int
	removes int
	failPut map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		objects: make(map[string]string),
		types:   make(map[string]string),
		failPut: make(map[string]error),
	}
}

func (s *memStore) BucketExists(context.Context, string) (bool, error) { return true, nil }

func (s *memStore) MakeBucket(context.Context, string, minio.MakeBucketOptions) error { return nil }

func (s *memStore) PutObject(_ context.Context, _, objectName string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failPut[objectName]; err != nil {
		return minio.UploadInfo{}, err
	}
	s.puts++
	s.objects[objectName] = string(data)
	s.types[objectName] = opts.ContentType
	sum := md5.Sum(data)
	return minio.UploadInfo{Key: objectName, ETag: hex.EncodeToString(sum[:]), Size: int64(len(data))}, nil
}

func (s *memStore) RemoveObject(_ context.Context, _, objectName string, _ minio.RemoveObjectOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[objectName]; !ok {
		return errors.New("no such object")
	}
	s.removes++
	delete(s.objects, objectName)
	delete(s.types, objectName)
	return nil
}

func (s *memStore) RemoveObjects(_ context.Context, _ string, objectsCh <-chan minio.ObjectInfo, _ minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError {
	errs := make(chan minio.RemoveObjectError, 16)
	go func() {
		defer close(errs)
		for obj := range objectsCh {
			if err := s.RemoveObject(context.Background(), "", obj.Key, minio.RemoveObjectOptions{}); err != nil {
				errs <- minio.RemoveObjectError{ObjectName: obj.Key, Err: err}
			}
		}
	}()
	return errs
}

func (s *memStore) snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.objects))
	for k, v := range s.objects {
		out[k] = v
	}
	return out
}

func (s *memStore) counts() (puts, removes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts, s.removes
}

func (s *memStore) fail(object string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut[object] = err
}

// staticSource serves a fixed collection and counts loads.
type staticSource struct {
	mu    sync.Mutex
	items map[string]string
	err   error
	loads int
	delay time.Duration
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Load(ctx context.Context) (map[string]models.Item, error) {
	s.mu.Lock()
	s.loads++
	delay, err := s.delay, s.err
	items := make(map[string]models.Item, len(s.items))
	for k, v := range s.items {
		items[k] = models.Item{Payload: v, ContentType: "text/plain"}
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *staticSource) set(items map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

func (s *staticSource) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// newTestService builds a service over store with private metrics and closes it at cleanup.
func newTestService(t *testing.T, store *memStore, cfg Config, source Source) (*Service, *metrics.Mirror, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewMirror(reg)
	svc := NewService(store, "overlays", cfg, source, zap.NewNop(), m)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, svc.Close(ctx))
	})
	return svc, m, reg
}

func testConfig() Config {
	return Config{Enabled: true, Prefix: "overlay", CallTimeoutSeconds: 5}
}
