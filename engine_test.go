package omnisearch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/omnisearch/ai"
	"github.com/poiesic/omnisearch/ai/mock"
	"github.com/poiesic/omnisearch/config"
	"github.com/poiesic/omnisearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockFactory(e ai.Embedder) ai.EmbedderFactory {
	return func(context.Context) (ai.Embedder, error) { return e, nil }
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.CheckInterval = config.Duration(time.Hour)
	cfg.Embedding.RetryDelay = config.Duration(time.Millisecond)
	return cfg
}

func writeData(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNewEngine(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		e, err := NewEngine(testConfig(t), WithEmbedderFactory(mockFactory(mock.NewMockEmbedder())))
		require.NoError(t, err)
		defer e.Close()
		assert.NotNil(t, e.Store())
		assert.Equal(t, ai.StatusUnloaded, e.Model().Status())
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.MaxResults = 0
		_, err := NewEngine(cfg)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("with vector cache dir", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.VectorCacheDir = filepath.Join(t.TempDir(), "vectors")
		e, err := NewEngine(cfg, WithEmbedderFactory(mockFactory(mock.NewMockEmbedder())))
		require.NoError(t, err)
		assert.NoError(t, e.Close())
	})
}

func TestEngine_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	writeData(t, cfg.DataDir, "people.csv", "name,phone\nAnn Lee,123\n")
	writeData(t, cfg.DataDir, "notes.txt", "nothing relevant\n")

	e, err := NewEngine(cfg, WithEmbedderFactory(mockFactory(mock.NewMockEmbedder())))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.Model().Wait(context.Background()))
	assert.Eventually(t, func() bool { return e.Status().Indexed == 1 }, 2*time.Second, 10*time.Millisecond)

	results := e.Search(context.Background(), "ann", core.SearchUniversal)
	require.NotEmpty(t, results)
	assert.Equal(t, "people.csv", results[0].Source)
	assert.Equal(t, float32(0.8), results[0].Score)
	assert.Equal(t, `{"name": "Ann Lee", "phone": "123"}`, results[0].Payload.String())

	status := e.Status()
	assert.Equal(t, 2, status.Datasets)
	assert.Equal(t, ai.StatusReady, status.ModelStatus)
	assert.False(t, status.LastUpdated.IsZero())
	assert.Equal(t, 1, status.Queries.Queries)
}

func TestEngine_SearchBeforeModelReady(t *testing.T) {
	cfg := testConfig(t)
	writeData(t, cfg.DataDir, "people.csv", "name,phone\nAnn Lee,123\n")

	release := make(chan struct{})
	slow := func(ctx context.Context) (ai.Embedder, error) {
		select {
		case <-release:
			return mock.NewMockEmbedder(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e, err := NewEngine(cfg, WithEmbedderFactory(slow))
	require.NoError(t, err)
	defer e.Close()
	defer close(release)

	require.NoError(t, e.Start(context.Background()))
	assert.Equal(t, ai.StatusLoading, e.Model().Status())

	results := e.Search(context.Background(), "123", core.SearchPhone)
	require.Len(t, results, 1)
	assert.Equal(t, core.OriginTable, results[0].Origin)
}

func TestEngine_ModelFailure(t *testing.T) {
	cfg := testConfig(t)
	writeData(t, cfg.DataDir, "notes.txt", "ann\n")

	failing := func(context.Context) (ai.Embedder, error) { return nil, errors.New("no server") }
	e, err := NewEngine(cfg, WithEmbedderFactory(failing))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Start(context.Background()))
	assert.Error(t, e.Model().Wait(context.Background()))
	assert.Equal(t, ai.StatusFailed, e.Status().ModelStatus)
	assert.Len(t, e.Search(context.Background(), "ann", core.SearchUniversal), 1)
}

func TestEngine_Reload(t *testing.T) {
	cfg := testConfig(t)
	e, err := NewEngine(cfg, WithEmbedderFactory(mockFactory(mock.NewMockEmbedder())))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Start(context.Background()))
	assert.Empty(t, e.Search(context.Background(), "ann", core.SearchUniversal))

	writeData(t, cfg.DataDir, "notes.txt", "ann\n")
	require.NoError(t, e.Reload(context.Background()))
	assert.Len(t, e.Search(context.Background(), "ann", core.SearchUniversal), 1)
}

func TestEngine_StartUnavailableRoot(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.DataDir = filepath.Join(blocker, "data")

	e, err := NewEngine(cfg, WithEmbedderFactory(mockFactory(mock.NewMockEmbedder())))
	require.NoError(t, err)
	defer e.Close()
	assert.Error(t, e.Start(context.Background()))
}

func TestEngine_Close(t *testing.T) {
	e, err := NewEngine(testConfig(t), WithEmbedderFactory(mockFactory(mock.NewMockEmbedder())))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	assert.NoError(t, e.Close())
	assert.NoError(t, e.Close())
	assert.ErrorIs(t, e.Start(context.Background()), ErrEngineClosed)
}

func TestEngine_WaitIndexed(t *testing.T) {
	cfg := testConfig(t)
	writeData(t, cfg.DataDir, "people.csv", "name\nAnn\n")

	e, err := NewEngine(cfg, WithEmbedderFactory(mockFactory(mock.NewMockEmbedder())))
	require.NoError(t, err)
	defer e.Close()

	assert.ErrorIs(t, e.WaitIndexed(context.Background()), ErrEngineNotStarted)

	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.WaitIndexed(context.Background()))
	assert.Equal(t, 1, e.Status().Indexed)
}
