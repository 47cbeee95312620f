package schemarefresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgql/internal/backend/memory"
	"modelgql/internal/clientschema"
	"modelgql/internal/logging"
	"modelgql/internal/typegraph"
)

const userSchema = `
models:
  - modelName: User
    fields:
      - fieldName: id
        typeIdentifier: ID
        isRequired: true
      - fieldName: name
        typeIdentifier: String
`

const userAndPostSchema = userSchema + `
  - modelName: Post
    fields:
      - fieldName: title
        typeIdentifier: String
`

func testLogger() *logging.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &logging.Logger{Logger: slog.New(handler)}
}

func memoryBackends(calls *atomic.Int32) BackendFactory {
	return func(ctx context.Context, schemas []clientschema.Schema, _ typegraph.Backend) (typegraph.Backend, error) {
		calls.Add(1)
		return memory.New(schemas, memory.Options{}), nil
	}
}

func writeSchema(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func newTestManager(t *testing.T, body string) (*Manager, string, *atomic.Int32) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	writeSchema(t, path, body)
	var calls atomic.Int32
	manager, err := NewManager(context.Background(), Config{
		SchemaFile:  path,
		NewBackend:  memoryBackends(&calls),
		Logger:      testLogger(),
		MinInterval: time.Second,
		MaxInterval: 4 * time.Second,
	})
	require.NoError(t, err)
	return manager, path, &calls
}

func TestNewManagerBuildsSnapshot(t *testing.T) {
	manager, _, calls := newTestManager(t, userSchema)

	snapshot := manager.CurrentSnapshot()
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Models, 1)
	assert.Equal(t, fingerprintOf([]byte(userSchema)), snapshot.Fingerprint)
	assert.NotNil(t, snapshot.Graph.Viewer().Fields()["allUsers"])
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewManagerErrors(t *testing.T) {
	_, err := NewManager(context.Background(), Config{NewBackend: memoryBackends(new(atomic.Int32))})
	assert.Error(t, err)

	_, err = NewManager(context.Background(), Config{SchemaFile: "schema.yaml"})
	assert.Error(t, err)

	_, err = NewManager(context.Background(), Config{
		SchemaFile: filepath.Join(t.TempDir(), "missing.yaml"),
		NewBackend: memoryBackends(new(atomic.Int32)),
		Logger:     testLogger(),
	})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "schema.yaml")
	writeSchema(t, path, `
models:
  - modelName: User
    fields:
      - fieldName: boss
        typeIdentifier: Nonexistent
`)
	_, err = NewManager(context.Background(), Config{
		SchemaFile: path,
		NewBackend: memoryBackends(new(atomic.Int32)),
		Logger:     testLogger(),
	})
	var inconsistency *typegraph.SchemaInconsistencyError
	assert.ErrorAs(t, err, &inconsistency)

	_, err = NewManager(context.Background(), Config{
		SchemaFile: path,
		NewBackend: func(ctx context.Context, schemas []clientschema.Schema, _ typegraph.Backend) (typegraph.Backend, error) {
			return nil, errors.New("no database")
		},
		Logger: testLogger(),
	})
	assert.ErrorContains(t, err, "no database")
}

func TestRefreshOnce_NoChange_BacksOff(t *testing.T) {
	manager, _, calls := newTestManager(t, userSchema)
	before := manager.CurrentSnapshot()

	interval := time.Second
	manager.refreshOnce(context.Background(), &interval)
	assert.Equal(t, 1500*time.Millisecond, interval)
	assert.Same(t, before, manager.CurrentSnapshot())
	assert.EqualValues(t, 1, calls.Load())

	interval = 3 * time.Second
	manager.refreshOnce(context.Background(), &interval)
	assert.Equal(t, 4*time.Second, interval)
}

func TestRefreshOnce_Change_Rebuilds(t *testing.T) {
	manager, path, calls := newTestManager(t, userSchema)
	writeSchema(t, path, userAndPostSchema)

	interval := 3 * time.Second
	manager.refreshOnce(context.Background(), &interval)

	snapshot := manager.CurrentSnapshot()
	assert.Len(t, snapshot.Models, 2)
	assert.Equal(t, fingerprintOf([]byte(userAndPostSchema)), snapshot.Fingerprint)
	assert.Equal(t, time.Second, interval)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRefreshOnce_BrokenFileKeepsSnapshot(t *testing.T) {
	manager, path, _ := newTestManager(t, userSchema)
	before := manager.CurrentSnapshot()
	writeSchema(t, path, "models: [{modelName: Viewer, fields: []}]")

	interval := 3 * time.Second
	manager.refreshOnce(context.Background(), &interval)
	assert.Same(t, before, manager.CurrentSnapshot())
	assert.Equal(t, time.Second, interval)

	assert.Error(t, manager.RefreshNow())
	assert.Same(t, before, manager.CurrentSnapshot())
}

func TestRefreshNow(t *testing.T) {
	manager, path, _ := newTestManager(t, userSchema)
	writeSchema(t, path, userAndPostSchema)

	require.NoError(t, manager.RefreshNow())
	assert.Len(t, manager.CurrentSnapshot().Models, 2)
}

func TestHandlerServesCurrentSnapshot(t *testing.T) {
	manager, path, _ := newTestManager(t, userSchema)
	handler := manager.Handler()

	query := func() string {
		req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ viewer { allPosts { totalCount } } }"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Body.String()
	}

	assert.Contains(t, query(), "errors")

	writeSchema(t, path, userAndPostSchema)
	require.NoError(t, manager.RefreshNow())
	assert.Contains(t, query(), `"totalCount": 0`)
}

func TestHandlerNotReady(t *testing.T) {
	manager := &Manager{logger: testLogger()}
	rec := httptest.NewRecorder()
	manager.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartDisabledAndWait(t *testing.T) {
	manager, _, _ := newTestManager(t, userSchema)
	manager.minInterval = 0
	manager.Start(context.Background())
	require.NoError(t, manager.Wait(context.Background()))

	manager.minInterval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, manager.Wait(waitCtx))
}

func TestRefreshPassesActiveBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	writeSchema(t, path, userSchema)

	var seen []typegraph.Backend
	manager, err := NewManager(context.Background(), Config{
		SchemaFile: path,
		NewBackend: func(ctx context.Context, schemas []clientschema.Schema, previous typegraph.Backend) (typegraph.Backend, error) {
			seen = append(seen, previous)
			return memory.New(schemas, memory.Options{}), nil
		},
		Logger: testLogger(),
	})
	require.NoError(t, err)
	first := manager.CurrentSnapshot().Backend
	require.NotNil(t, first)

	writeSchema(t, path, userAndPostSchema)
	require.NoError(t, manager.RefreshNow())

	require.Len(t, seen, 2)
	assert.Nil(t, seen[0])
	assert.Same(t, first, seen[1])
	assert.NotSame(t, first, manager.CurrentSnapshot().Backend)
}
