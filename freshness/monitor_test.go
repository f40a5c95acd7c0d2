package freshness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/omnisearch/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedStore(t *testing.T, files map[string]string) (*dataset.Store, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	store, err := dataset.NewStore(root)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.LoadAll(context.Background()))
	return store, root
}

type counter struct {
	calls atomic.Int32
	err   error
}

func (c *counter) fn(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestNew(t *testing.T) {
	store, _ := loadedStore(t, nil)
	reload := &counter{}

	_, err := New(nil, reload.fn)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = New(store, nil)
	assert.ErrorIs(t, err, ErrReloadRequired)

	_, err = New(store, reload.fn, WithCheckInterval(0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = New(store, reload.fn, WithReindex(reload.fn, -time.Second, nil))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	m, err := New(store, reload.fn, WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultCheckInterval, m.checkInterval)
	assert.Equal(t, DefaultReindexInterval, m.reindexInterval)
}

func TestCheckOnce_Unchanged(t *testing.T) {
	store, _ := loadedStore(t, map[string]string{"a.txt": "one", "b.csv": "x\n1\n"})
	reload := &counter{}
	m, err := New(store, reload.fn)
	require.NoError(t, err)

	reloaded, err := m.CheckOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, reloaded)
	assert.Equal(t, int32(0), reload.calls.Load())
}

func TestCheckOnce_Modified(t *testing.T) {
	store, root := loadedStore(t, map[string]string{"a.txt": "one"})
	reload := &counter{}
	m, err := New(store, reload.fn)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("two"), 0o644))

	reloaded, err := m.CheckOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Equal(t, int32(1), reload.calls.Load())
}

func TestCheckOnce_Removed(t *testing.T) {
	store, root := loadedStore(t, map[string]string{"a.txt": "one"})
	reload := &counter{}
	m, err := New(store, reload.fn)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))

	reloaded, err := m.CheckOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, reloaded)
}

func TestCheckOnce_ReloadError(t *testing.T) {
	store, root := loadedStore(t, map[string]string{"a.txt": "one"})
	reload := &counter{err: errors.New("disk gone")}
	m, err := New(store, reload.fn)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("two"), 0o644))

	reloaded, err := m.CheckOnce(context.Background())
	assert.True(t, reloaded)
	assert.ErrorContains(t, err, "disk gone")
}

func TestCheckOnce_Cancelled(t *testing.T) {
	store, _ := loadedStore(t, map[string]string{"a.txt": "one"})
	m, err := New(store, (&counter{}).fn)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.CheckOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReindexOnce(t *testing.T) {
	store, _ := loadedStore(t, nil)
	reindex := &counter{}
	var ready atomic.Bool

	m, err := New(store, (&counter{}).fn, WithReindex(reindex.fn, time.Hour, ready.Load))
	require.NoError(t, err)

	ran, err := m.ReindexOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)

	ready.Store(true)
	ran, err = m.ReindexOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int32(1), reindex.calls.Load())

	plain, err := New(store, (&counter{}).fn)
	require.NoError(t, err)
	ran, err = plain.ReindexOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestRun_ReloadsOnChange(t *testing.T) {
	store, root := loadedStore(t, map[string]string{"a.txt": "one", "b.txt": "untouched"})
	untouched, ok := store.Get("b.txt")
	require.True(t, ok)
	var reloads atomic.Int32
	reload := func(ctx context.Context) error {
		reloads.Add(1)
		return store.LoadAll(ctx)
	}
	m, err := New(store, reload, WithCheckInterval(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("two"), 0o644))
	assert.Eventually(t, func() bool {
		ds, ok := store.Get("a.txt")
		return ok && ds.Text == "two"
	}, 2*time.Second, 10*time.Millisecond)

	// A change to one file reloads every dataset.
	reloaded, ok := store.Get("b.txt")
	require.True(t, ok)
	assert.True(t, reloaded.LoadedAt.After(untouched.LoadedAt))
	assert.NotSame(t, untouched, reloaded)
	assert.Equal(t, "untouched", reloaded.Text)
	assert.Equal(t, 2, store.Len())

	// Once reloaded the hashes match again and no further reloads happen.
	settled := reloads.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, reloads.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_SurvivesPanics(t *testing.T) {
	store, _ := loadedStore(t, nil)
	var calls atomic.Int32
	reindex := func(context.Context) error {
		calls.Add(1)
		panic("boom")
	}
	m, err := New(store, (&counter{}).fn,
		WithCheckInterval(time.Hour),
		WithReindex(reindex, 5*time.Millisecond, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestRun_AlreadyRunning(t *testing.T) {
	store, _ := loadedStore(t, nil)
	m, err := New(store, (&counter{}).fn)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	assert.Eventually(t, func() bool {
		return errors.Is(m.Run(ctx), ErrAlreadyRunning)
	}, time.Second, 5*time.Millisecond)
}
