package serverapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"modelgql/internal/backend/memory"
	"modelgql/internal/backend/sqlstore"
	"modelgql/internal/clientschema"
	"modelgql/internal/config"
	"modelgql/internal/dbexec"
	"modelgql/internal/typegraph"
)

func userSchemas(t *testing.T) []clientschema.Schema {
	t.Helper()
	doc, err := clientschema.Parse([]byte(testSchema))
	require.NoError(t, err)
	return doc
}

func TestNewBackendFactoryMemory(t *testing.T) {
	cfg := memoryConfig(t)
	factory, err := newBackendFactory(cfg, testLogger(), backendDeps{})
	require.NoError(t, err)

	backend, err := factory(context.Background(), userSchemas(t), nil)
	require.NoError(t, err)
	store, ok := backend.(*memory.Store)
	require.True(t, ok)
	assert.Equal(t, 1, store.Len("User"))

	cfg.Backend.SeedFile = writeTemp(t, "bad.yaml", "records:\n  Ghost:\n    - id: 1\n")
	factory, err = newBackendFactory(cfg, testLogger(), backendDeps{})
	require.NoError(t, err)
	_, err = factory(context.Background(), userSchemas(t), nil)
	assert.Error(t, err)
}

func TestMemoryBackendFactoryCarriesRecordsAcrossRefresh(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	factory, err := newBackendFactory(cfg, testLogger(), backendDeps{})
	require.NoError(t, err)

	first, err := factory(ctx, userSchemas(t), nil)
	require.NoError(t, err)
	_, err = first.(*memory.Store).CreateNode(ctx, "User", map[string]any{"name": "grace"})
	require.NoError(t, err)

	withPost := append(userSchemas(t), clientschema.Schema{
		ModelName: "Post",
		Fields:    []clientschema.Field{{FieldName: "title", TypeIdentifier: "String"}},
	})
	second, err := factory(ctx, withPost, first)
	require.NoError(t, err)
	assert.Equal(t, 2, second.(*memory.Store).Len("User"), "seeded and created users survive, seed is not reapplied")

	changed := userSchemas(t)
	changed[0].Fields = append(changed[0].Fields, clientschema.Field{FieldName: "email", TypeIdentifier: "String"})
	third, err := factory(ctx, changed, second)
	require.NoError(t, err)
	assert.Equal(t, 1, third.(*memory.Store).Len("User"), "a changed model starts again from the seed")
}

func TestNewBackendFactoryMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := memoryConfig(t)
	cfg.Backend = config.BackendConfig{Kind: config.BackendMySQL, AutoMigrate: true}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `user`")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	factory, err := newBackendFactory(cfg, testLogger(), backendDeps{executor: dbexec.NewStandardExecutor(db)})
	require.NoError(t, err)

	backend, err := factory(context.Background(), userSchemas(t), nil)
	require.NoError(t, err)
	_, ok := backend.(*sqlstore.Store)
	assert.True(t, ok)
	_, ok = backend.(typegraph.Mutator)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = newBackendFactory(cfg, testLogger(), backendDeps{})
	assert.Error(t, err, "mysql without a connection")

	cfg.Backend.Kind = "redis"
	_, err = newBackendFactory(cfg, testLogger(), backendDeps{})
	assert.Error(t, err)
}

func TestHealthHandlerReportsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	cfg := memoryConfig(t)
	factory, err := newBackendFactory(cfg, testLogger(), backendDeps{})
	require.NoError(t, err)
	manager, cancel, err := startSchemaManager(context.Background(), cfg, testLogger(), factory, nil, nil)
	require.NoError(t, err)
	defer cancel()

	mock.ExpectPing()
	rec := httptest.NewRecorder()
	healthHandler(manager, db, cfg.Server.HealthCheckTimeout)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	mock.ExpectPing().WillReturnError(context.DeadlineExceeded)
	rec = httptest.NewRecorder()
	healthHandler(manager, db, cfg.Server.HealthCheckTimeout)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"database":"failed"`)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWrapHTTPHandlerUsesRootSpanName(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	tp.RegisterSpanProcessor(recorder)
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(original)
	})

	cfg := &config.Config{Observability: config.ObservabilityConfig{TracingEnabled: true}}
	handler := wrapHTTPHandler(cfg, testLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "GET /*")
}

func TestWrapHTTPHandlerAppliesCORS(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{
		CORSEnabled:        true,
		CORSAllowedOrigins: []string{"http://app.example"},
	}}
	handler := wrapHTTPHandler(cfg, testLogger(), http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	req.Header.Set("Origin", "http://app.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNormalizeHTTPSpanRoute(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/graphql", "/graphql"},
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/users/123", "/*"},
		{"", "/*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizeHTTPSpanRoute(tt.input), tt.input)
	}
	assert.Equal(t, "HTTP /*", httpRootSpanName(nil))
}
