package mirror

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"overlay-sync/core/metrics"
	"overlay-sync/feature/mirror/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func item(payload string) models.Item {
	return models.Item{Payload: payload, ContentType: "text/plain"}
}

func TestService_PutRemove(t *testing.T) {
	store := newMemStore()
	svc, m, _ := newTestService(t, store, testConfig(), nil)
	ctx := testContext(t)

	svc.Put("a", item("1"))
	svc.Put("b", item("2"))
	svc.Put("a", item("3"))
	require.NoError(t, svc.WaitIdle(ctx))
	assert.Equal(t, map[string]string{"overlay/a": "3", "overlay/b": "2"}, store.snapshot())

	svc.Remove("b")
	require.NoError(t, svc.WaitIdle(ctx))
	assert.Equal(t, map[string]string{"overlay/a": "3"}, store.snapshot())

	st := svc.Stats()
	assert.Equal(t, 1, st.Applied)
	assert.Zero(t, st.Queued)
	assert.False(t, st.Processing)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Applied))
}

func TestService_PutThenRemoveCoalesces(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(t, store, testConfig(), nil)
	ctx := testContext(t)

	svc.PutAll(map[string]models.Item{"a": item("1"), "b": item("2")})
	svc.Remove("a")
	svc.Remove("b")
	require.NoError(t, svc.WaitIdle(ctx))

	puts, removes := store.counts()
	// a burst that cancels out may still be partially applied, but never leaves objects behind
	assert.Empty(t, store.snapshot())
	assert.Equal(t, puts, removes)
}

func TestService_ReplaceOnlyTouchesChanges(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(t, store, testConfig(), nil)
	ctx := testContext(t)

	svc.Replace(map[string]models.Item{"a": item("1"), "b": item("2"), "c": item("3")})
	require.NoError(t, svc.WaitIdle(ctx))
	puts, removes := store.counts()
	require.Equal(t, 3, puts)
	require.Zero(t, removes)

	svc.Replace(map[string]models.Item{"a": item("1"), "b": item("changed"), "d": item("4")})
	require.NoError(t, svc.WaitIdle(ctx))

	puts, removes = store.counts()
	assert.Equal(t, 5, puts, "b rewritten and d added")
	assert.Equal(t, 1, removes, "c removed")
	assert.Equal(t, map[string]string{"overlay/a": "1", "overlay/b": "changed", "overlay/d": "4"}, store.snapshot())
}

func TestService_RemoveAll(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(t, store, testConfig(), nil)
	ctx := testContext(t)

	svc.PutAll(map[string]models.Item{"a": item("1"), "b": item("2")})
	require.NoError(t, svc.WaitIdle(ctx))
	svc.RemoveAll()
	require.NoError(t, svc.WaitIdle(ctx))

	assert.Empty(t, store.snapshot())
	assert.Zero(t, svc.Stats().Applied)
}

func TestService_FailedPutIsNotApplied(t *testing.T) {
	store := newMemStore()
	store.fail("overlay/bad", errors.New("quota exceeded"))
	svc, m, _ := newTestService(t, store, testConfig(), nil)
	ctx := testContext(t)

	svc.PutAll(map[string]models.Item{"good": item("1"), "bad": item("2"), "fine": item("3")})
	require.NoError(t, svc.WaitIdle(ctx))

	assert.Equal(t, map[string]string{"overlay/good": "1", "overlay/fine": "3"}, store.snapshot())
	assert.Equal(t, 2, svc.Stats().Applied)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Changes.WithLabelValues(opAdd, metrics.ResultError)))

	// a later put for the failed key is tried again
	store.fail("overlay/bad", nil)
	svc.Put("bad", item("2"))
	require.NoError(t, svc.WaitIdle(ctx))
	assert.Equal(t, "2", store.snapshot()["overlay/bad"])
}

func TestService_ThrottledPasses(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	cfg.MaxPerPass = 2
	svc, _, reg := newTestService(t, store, cfg, nil)
	ctx := testContext(t)

	items := make(map[string]models.Item)
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		items[k] = item(k)
	}
	svc.PutAll(items)
	require.NoError(t, svc.WaitIdle(ctx))
	assert.Len(t, store.snapshot(), 5)

	assert.GreaterOrEqual(t, histogramCount(t, reg, "overlay_sync_mirror_batch_entries"), uint64(3))
}

func TestService_Refresh(t *testing.T) {
	t.Run("No source", func(t *testing.T) {
		svc, _, _ := newTestService(t, newMemStore(), testConfig(), nil)
		_, err := svc.Refresh(testContext(t))
		assert.ErrorIs(t, err, ErrNoSource)
	})

	t.Run("Manifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "overlay.yaml")
		require.NoError(t, os.WriteFile(path, []byte("items:\n  a: one\n  b: two\n"), 0o644))

		store := newMemStore()
		svc, m, _ := newTestService(t, store, testConfig(), NewManifestSource(path))
		ctx := testContext(t)

		report, err := svc.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, SourceManifest, report.Source)
		assert.Equal(t, 2, report.Items)
		require.NoError(t, svc.WaitIdle(ctx))
		assert.Equal(t, map[string]string{"overlay/a": "one", "overlay/b": "two"}, store.snapshot())

		require.NoError(t, os.WriteFile(path, []byte("items:\n  b: two\n"), 0o644))
		_, err = svc.Refresh(ctx)
		require.NoError(t, err)
		require.NoError(t, svc.WaitIdle(ctx))
		assert.Equal(t, map[string]string{"overlay/b": "two"}, store.snapshot())
		assert.Equal(t, 2.0, testutil.ToFloat64(m.Refreshes.WithLabelValues(metrics.ResultOK)))
	})

	t.Run("Source failure keeps the bucket", func(t *testing.T) {
		store := newMemStore()
		src := &staticSource{items: map[string]string{"a": "1"}}
		svc, m, _ := newTestService(t, store, testConfig(), src)
		ctx := testContext(t)

		_, err := svc.Refresh(ctx)
		require.NoError(t, err)
		require.NoError(t, svc.WaitIdle(ctx))

		src.err = errors.New("db down")
		_, err = svc.Refresh(ctx)
		assert.ErrorContains(t, err, "failed to refresh from static")
		require.NoError(t, svc.WaitIdle(ctx))
		assert.Equal(t, map[string]string{"overlay/a": "1"}, store.snapshot())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues(metrics.ResultError)))
	})
}

func TestService_Close(t *testing.T) {
	t.Run("Keep objects", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, "overlays", testConfig(), nil, zap.NewNop(), metrics.NewMirror(nil))
		ctx := testContext(t)

		svc.Put("a", item("1"))
		require.NoError(t, svc.WaitIdle(ctx))
		require.NoError(t, svc.Close(ctx))

		assert.Equal(t, map[string]string{"overlay/a": "1"}, store.snapshot())
		assert.True(t, svc.Stats().Destroyed)
		require.NoError(t, svc.WaitIdle(ctx), "a closed mirror is idle")
		require.NoError(t, svc.Close(ctx), "closing twice is harmless")
	})

	t.Run("Purge objects", func(t *testing.T) {
		store := newMemStore()
		cfg := testConfig()
		cfg.PurgeOnDestroy = true
		svc := NewService(store, "overlays", cfg, nil, zap.NewNop(), metrics.NewMirror(nil))
		ctx := testContext(t)

		svc.PutAll(map[string]models.Item{"a": item("1"), "b": item("2")})
		require.NoError(t, svc.WaitIdle(ctx))
		require.NoError(t, svc.Close(ctx))

		assert.Empty(t, store.snapshot())
	})

	t.Run("Writes after close are dropped", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, "overlays", testConfig(), nil, zap.NewNop(), metrics.NewMirror(nil))
		ctx := testContext(t)
		require.NoError(t, svc.Close(ctx))

		svc.Put("late", item("1"))
		time.Sleep(10 * time.Millisecond)
		assert.Empty(t, store.snapshot())
	})
}

func TestService_Status(t *testing.T) {
	svc, _, _ := newTestService(t, newMemStore(), testConfig(), NewManifestSource("overlay.yaml"))

	st := svc.Status()
	assert.Equal(t, "overlays", st.Bucket)
	assert.Equal(t, "overlay", st.Prefix)
	assert.Equal(t, SourceManifest, st.Source)
	assert.False(t, st.Stats.Destroyed)
}

func TestService_WaitIdleHonoursContext(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(t, store, testConfig(), nil)

	release := make(chan struct{})
	svc.exec.RunMapChanges(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.WaitIdle(ctx), context.DeadlineExceeded)
}

func histogramCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.NotEmpty(t, f.GetMetric())
			return f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}
