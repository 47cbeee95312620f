// Package schemarefresh builds type graph snapshots from the client schema
// file and swaps in a new one when the file changes.
package schemarefresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"modelgql/internal/clientschema"
	"modelgql/internal/logging"
	"modelgql/internal/naming"
	"modelgql/internal/observability"
	"modelgql/internal/typegraph"
)

// Snapshot contains an immutable view of the current type graph.
type Snapshot struct {
	Graph       *typegraph.TypeGraph
	Backend     typegraph.Backend
	Schema      *graphql.Schema
	Handler     http.Handler
	Models      []clientschema.Schema
	BuiltAt     time.Time
	Fingerprint string
}

// BackendFactory returns the data-access collaborator for a set of models.
// It is called once per snapshot. previous is the backend of the active
// snapshot, or nil for the first build.
type BackendFactory func(ctx context.Context, schemas []clientschema.Schema, previous typegraph.Backend) (typegraph.Backend, error)

// Config controls schema refresh behavior.
type Config struct {
	SchemaFile  string
	NewBackend  BackendFactory
	FetchErrors typegraph.FetchErrorPolicy
	Naming      naming.Config
	Logger      *logging.Logger
	Metrics     *observability.SchemaRefreshMetrics
	// FetchMetrics receives resolver backend observations.
	FetchMetrics typegraph.Metrics
	// MinInterval of zero or less disables polling.
	MinInterval time.Duration
	MaxInterval time.Duration
	GraphiQL    bool
}

// Manager maintains and refreshes type graph snapshots.
type Manager struct {
	schemaFile   string
	newBackend   BackendFactory
	fetchErrors  typegraph.FetchErrorPolicy
	namingConfig naming.Config
	logger       *logging.Logger
	metrics      *observability.SchemaRefreshMetrics
	fetchMetrics typegraph.Metrics
	minInterval  time.Duration
	maxInterval  time.Duration
	graphiQL     bool
	active       atomic.Pointer[Snapshot]
	refreshMu    sync.Mutex
	wg           sync.WaitGroup
}

// NewManager builds the initial snapshot and returns a manager. A schema
// file that cannot be loaded or built fails startup.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.SchemaFile == "" {
		return nil, errors.New("schema refresh manager requires a schema file")
	}
	if cfg.NewBackend == nil {
		return nil, errors.New("schema refresh manager requires a backend factory")
	}
	if cfg.Logger == nil {
		cfg.Logger = &logging.Logger{Logger: slog.Default()}
	}

	maxInterval := cfg.MaxInterval
	if maxInterval < cfg.MinInterval {
		maxInterval = cfg.MinInterval
	}

	manager := &Manager{
		schemaFile:   cfg.SchemaFile,
		newBackend:   cfg.NewBackend,
		fetchErrors:  cfg.FetchErrors,
		namingConfig: cfg.Naming,
		logger:       cfg.Logger.WithFields(slog.String("component", "schema_refresh")),
		metrics:      cfg.Metrics,
		fetchMetrics: cfg.FetchMetrics,
		minInterval:  cfg.MinInterval,
		maxInterval:  maxInterval,
		graphiQL:     cfg.GraphiQL,
	}

	start := time.Now()
	data, fingerprint, err := manager.readSchemaFile()
	if err != nil {
		manager.recordRefresh(time.Since(start), false, "startup", 0)
		return nil, err
	}
	snapshot, err := manager.buildSnapshot(ctx, data, fingerprint)
	if err != nil {
		manager.recordRefresh(time.Since(start), false, "startup", 0)
		return nil, err
	}
	manager.active.Store(snapshot)
	manager.recordRefresh(time.Since(start), true, "startup", len(snapshot.Models))

	return manager, nil
}

// Start begins the background refresh loop.
func (m *Manager) Start(ctx context.Context) {
	if m.minInterval <= 0 {
		m.logger.Info("schema refresh disabled")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.refreshLoop(ctx)
	}()
}

// Handler returns the HTTP handler for the current snapshot. It is looked up
// per request so a refresh takes effect without restarting the server.
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot := m.CurrentSnapshot()
		if snapshot == nil || snapshot.Handler == nil {
			http.Error(w, "schema not ready", http.StatusServiceUnavailable)
			return
		}
		snapshot.Handler.ServeHTTP(w, r)
	})
}

// CurrentSnapshot returns the active snapshot.
func (m *Manager) CurrentSnapshot() *Snapshot {
	return m.active.Load()
}

// RefreshNow forces a rebuild and swap.
func (m *Manager) RefreshNow() error {
	return m.RefreshNowContext(context.Background())
}

// RefreshNowContext forces a rebuild and swap with context support. The
// active snapshot is kept if the rebuild fails.
func (m *Manager) RefreshNowContext(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	start := time.Now()
	data, fingerprint, err := m.readSchemaFile()
	if err != nil {
		m.recordRefresh(time.Since(start), false, "manual", 0)
		return err
	}
	snapshot, err := m.buildSnapshot(ctx, data, fingerprint)
	if err != nil {
		m.recordRefresh(time.Since(start), false, "manual", 0)
		return err
	}

	m.active.Store(snapshot)
	m.recordRefresh(time.Since(start), true, "manual", len(snapshot.Models))
	return nil
}

// Wait blocks until the refresh loop exits or the context is canceled.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) refreshLoop(ctx context.Context) {
	interval := m.minInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("schema refresh stopped")
			return
		case <-timer.C:
			m.refreshOnce(ctx, &interval)
			timer.Reset(interval)
		}
	}
}

func (m *Manager) refreshOnce(ctx context.Context, interval *time.Duration) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	start := time.Now()
	data, fingerprint, err := m.readSchemaFile()
	if err != nil {
		m.logger.Warn("schema file check failed", slog.String("error", err.Error()))
		m.recordRefresh(time.Since(start), false, "poll", 0)
		*interval = m.minInterval
		return
	}

	current := m.CurrentSnapshot()
	if current != nil && fingerprint == current.Fingerprint {
		m.recordRefresh(time.Since(start), true, "poll_no_change", len(current.Models))
		*interval = nextInterval(*interval, m.minInterval, m.maxInterval)
		return
	}

	m.logger.Info("schema change detected, rebuilding", slog.String("fingerprint", fingerprint))
	snapshot, err := m.buildSnapshot(ctx, data, fingerprint)
	if err != nil {
		m.logger.Error("failed to rebuild schema, keeping previous snapshot", slog.String("error", err.Error()))
		m.recordRefresh(time.Since(start), false, "poll", 0)
		*interval = m.minInterval
		return
	}

	m.active.Store(snapshot)
	*interval = m.minInterval
	m.recordRefresh(time.Since(start), true, "poll", len(snapshot.Models))
	m.logger.Info("schema refresh complete",
		slog.String("fingerprint", snapshot.Fingerprint),
		slog.Int("models", len(snapshot.Models)),
	)
}

func (m *Manager) readSchemaFile() ([]byte, string, error) {
	data, err := os.ReadFile(m.schemaFile)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read schema file: %w", err)
	}
	return data, fingerprintOf(data), nil
}

func (m *Manager) buildSnapshot(ctx context.Context, data []byte, fingerprint string) (*Snapshot, error) {
	start := time.Now()
	tracer := otel.Tracer("modelgql/schemarefresh")
	ctx, span := tracer.Start(ctx, "schema.build")
	defer span.End()
	span.SetAttributes(attribute.String("schema.fingerprint", fingerprint))

	schemas, err := clientschema.Parse(data)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	var previous typegraph.Backend
	if current := m.CurrentSnapshot(); current != nil {
		previous = current.Backend
	}
	backend, err := m.newBackend(ctx, schemas, previous)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	logger := m.logger.Logger
	graph, err := typegraph.Build(schemas, typegraph.Options{
		Backend:     backend,
		FetchErrors: m.fetchErrors,
		Namer:       naming.New(m.namingConfig, logger),
		Logger:      logger,
		Metrics:     m.fetchMetrics,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, entry := range graph.Registry().Entries() {
		m.logger.Debug("model registered",
			slog.String("model", entry.ModelName()),
			slog.Int("fields", len(entry.FieldNames())),
		)
	}

	schema := graph.Schema()
	graphqlHandler := handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: m.graphiQL,
	})

	span.SetAttributes(attribute.Int("schema.models", len(schemas)))
	m.logger.Info("schema snapshot built",
		slog.Int("models", len(schemas)),
		slog.Duration("duration", time.Since(start)),
	)

	return &Snapshot{
		Graph:       graph,
		Backend:     backend,
		Schema:      &schema,
		Handler:     graphqlHandler,
		Models:      schemas,
		BuiltAt:     time.Now(),
		Fingerprint: fingerprint,
	}, nil
}

func fingerprintOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func nextInterval(current, minInterval, maxInterval time.Duration) time.Duration {
	if current < minInterval {
		return minInterval
	}
	next := current + current/2
	if next > maxInterval {
		return maxInterval
	}
	return next
}

func (m *Manager) recordRefresh(duration time.Duration, success bool, trigger string, models int) {
	if m.metrics == nil {
		return
	}
	m.metrics.RecordRefresh(context.Background(), duration, success, trigger, models)
}
