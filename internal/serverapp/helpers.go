package serverapp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"modelgql/internal/backend/memory"
	"modelgql/internal/backend/sqlstore"
	"modelgql/internal/clientschema"
	"modelgql/internal/config"
	"modelgql/internal/dbexec"
	"modelgql/internal/logging"
	"modelgql/internal/middleware"
	"modelgql/internal/naming"
	"modelgql/internal/observability"
	"modelgql/internal/schemarefresh"
	"modelgql/internal/typegraph"
)

// InitLogger builds the process logger, adding the OTLP log bridge when
// log export is enabled.
func InitLogger(cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	loggerCfg := logging.Config{
		Level:       cfg.Observability.Logging.Level,
		Format:      cfg.Observability.Logging.Format,
		ServiceName: cfg.Observability.ServiceName,
	}
	logger := logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	if !cfg.Observability.Logging.ExportsEnabled {
		return logger, nil, nil
	}

	logsConfig := cfg.Observability.LogsOTLP()
	logger.Info("initializing OpenTelemetry logging",
		slog.String("otlp_endpoint", logsConfig.Endpoint),
		slog.String("otlp_protocol", logsConfig.Protocol),
		slog.Bool("insecure", logsConfig.Insecure),
	)

	loggerProvider, err := observability.InitLoggerProvider(telemetryConfig(cfg, logsConfig))
	if err != nil {
		return nil, nil, err
	}

	loggerCfg.LoggerProvider = loggerProvider.Provider()
	logger = logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	return logger, loggerProvider, nil
}

func telemetryConfig(cfg *config.Config, otlp config.OTLPConfig) observability.Config {
	return observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   cfg.Observability.ServiceVersion,
		Environment:      cfg.Observability.Environment,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
		OTLPConfig: observability.OTLPExporterConfig{
			Endpoint:          otlp.Endpoint,
			Protocol:          otlp.Protocol,
			Insecure:          otlp.Insecure,
			TLSCertFile:       otlp.TLSCertFile,
			TLSClientCertFile: otlp.TLSClientCertFile,
			TLSClientKeyFile:  otlp.TLSClientKeyFile,
			Headers:           otlp.Headers,
			Timeout:           otlp.Timeout,
			Compression:       otlp.Compression,
		},
	}
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.MeterProvider, *observability.GraphQLMetrics, *observability.SchemaRefreshMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil, nil, nil
	}

	meterProvider, err := observability.InitMeterProvider(telemetryConfig(cfg, config.OTLPConfig{}))
	if err != nil {
		return nil, nil, nil, err
	}
	graphqlMetrics, err := observability.InitMetrics(logger.Logger)
	if err != nil {
		_ = meterProvider.Shutdown(context.Background(), logger.Logger)
		return nil, nil, nil, err
	}
	schemaRefreshMetrics, err := observability.InitSchemaRefreshMetrics(logger.Logger)
	if err != nil {
		_ = meterProvider.Shutdown(context.Background(), logger.Logger)
		return nil, nil, nil, err
	}

	logger.Info("OpenTelemetry metrics initialized", slog.String("service_name", cfg.Observability.ServiceName))
	return meterProvider, graphqlMetrics, schemaRefreshMetrics, nil
}

func initTracing(cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	tracesConfig := cfg.Observability.TracesOTLP()
	tracerProvider, err := observability.InitTracerProvider(telemetryConfig(cfg, tracesConfig))
	if err != nil {
		return nil, err
	}

	logger.Info("OpenTelemetry tracing initialized",
		slog.String("otlp_endpoint", tracesConfig.Endpoint),
		slog.String("otlp_protocol", tracesConfig.Protocol),
		slog.Float64("sample_ratio", cfg.Observability.TraceSampleRatio),
	)
	return tracerProvider, nil
}

// connectDB opens the MySQL pool, instrumented with otelsql when any
// telemetry is enabled.
func connectDB(cfg *config.Config, logger *logging.Logger) (*sql.DB, interface{ Unregister() error }, error) {
	if err := cfg.Database.RegisterTLS(); err != nil {
		return nil, nil, fmt.Errorf("failed to register database TLS config: %w", err)
	}
	dsn, err := cfg.Database.FormatDSN()
	if err != nil {
		return nil, nil, err
	}

	var db *sql.DB
	var dbStatsReg interface{ Unregister() error }
	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		opts := []otelsql.Option{otelsql.WithAttributes(semconv.DBSystemMySQL)}
		if cfg.Observability.TracingEnabled {
			opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}))
		}
		db, err = otelsql.Open("mysql", dsn, opts...)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Observability.MetricsEnabled {
			dbStatsReg, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(semconv.DBSystemMySQL))
			if err != nil {
				logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
			}
		}
	} else {
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, nil, err
		}
	}

	db.SetMaxOpenConns(cfg.Database.Pool.MaxOpen)
	db.SetMaxIdleConns(cfg.Database.Pool.MaxIdle)
	db.SetConnMaxLifetime(cfg.Database.Pool.MaxLifetime)
	return db, dbStatsReg, nil
}

// waitForDatabase pings until the database answers or ConnectionTimeout
// passes. A zero timeout tries exactly once.
func waitForDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB) error {
	timeout := cfg.Database.ConnectionTimeout
	if timeout <= 0 {
		return db.PingContext(ctx)
	}

	deadline := time.Now().Add(timeout)
	interval := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("database connection established", slog.Int("attempts", attempt))
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database not available after %v: %w", timeout, err)
		}
		logger.Warn("database not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", interval),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		interval = min(interval*2, 10*time.Second)
	}
}

type backendDeps struct {
	db *sql.DB
	// executor overrides the executor built from db. Tests use it.
	executor dbexec.QueryExecutor
}

// newBackendFactory returns the per-snapshot backend constructor for the
// configured backend kind.
func newBackendFactory(cfg *config.Config, logger *logging.Logger, deps backendDeps) (schemarefresh.BackendFactory, error) {
	namerFor := func() *naming.Namer { return naming.New(cfg.Naming, logger.Logger) }

	switch cfg.Backend.Kind {
	case config.BackendMemory:
		var seed *memory.Seed
		if cfg.Backend.SeedFile != "" {
			loaded, err := memory.LoadSeed(cfg.Backend.SeedFile)
			if err != nil {
				return nil, err
			}
			seed = &loaded
		}
		return func(_ context.Context, schemas []clientschema.Schema, previous typegraph.Backend) (typegraph.Backend, error) {
			store := memory.New(schemas, memory.Options{Namer: namerFor(), Logger: logger.Logger})
			var kept []string
			if prev, ok := previous.(*memory.Store); ok {
				kept = store.CarryOver(prev)
				logger.Info("memory records carried across schema refresh", slog.Any("models", kept))
			}
			if seed != nil {
				if err := store.Load(seed.Without(kept)); err != nil {
					return nil, fmt.Errorf("failed to seed memory backend: %w", err)
				}
			}
			return store, nil
		}, nil

	case config.BackendMySQL:
		executor := deps.executor
		if executor == nil {
			if deps.db == nil {
				return nil, fmt.Errorf("mysql backend requires a database connection")
			}
			executor = dbexec.WithStatementLogging(dbexec.NewStandardExecutor(deps.db), logger.Logger)
		}
		return func(ctx context.Context, schemas []clientschema.Schema, _ typegraph.Backend) (typegraph.Backend, error) {
			store, err := sqlstore.New(sqlstore.Config{
				Executor: executor,
				Schemas:  schemas,
				Namer:    namerFor(),
				Logger:   logger.Logger,
			})
			if err != nil {
				return nil, err
			}
			if cfg.Backend.AutoMigrate {
				if err := store.EnsureTables(ctx); err != nil {
					return nil, fmt.Errorf("failed to create tables: %w", err)
				}
			}
			return store, nil
		}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend.Kind)
}

// startSchemaManager builds the first snapshot and starts polling the schema file.
func startSchemaManager(ctx context.Context, cfg *config.Config, logger *logging.Logger, factory schemarefresh.BackendFactory, metrics *observability.SchemaRefreshMetrics, graphqlMetrics *observability.GraphQLMetrics) (*schemarefresh.Manager, context.CancelFunc, error) {
	var fetchMetrics typegraph.Metrics
	if graphqlMetrics != nil {
		fetchMetrics = graphqlMetrics
	}

	manager, err := schemarefresh.NewManager(ctx, schemarefresh.Config{
		SchemaFile:   cfg.Schema.File,
		NewBackend:   factory,
		FetchErrors:  typegraph.FetchErrorPolicy(cfg.Schema.FetchErrors),
		Naming:       cfg.Naming,
		Logger:       logger,
		Metrics:      metrics,
		FetchMetrics: fetchMetrics,
		MinInterval:  cfg.Schema.RefreshMinInterval,
		MaxInterval:  cfg.Schema.RefreshMaxInterval,
		GraphiQL:     cfg.Server.GraphiQLEnabled,
	})
	if err != nil {
		return nil, nil, err
	}

	schemaCtx, schemaCancel := context.WithCancel(context.Background())
	manager.Start(schemaCtx)

	return manager, schemaCancel, nil
}

// buildGraphQLHandler wraps the manager's handler. The chain is
//
//	request -> logging -> metrics -> tracing -> graphql
func buildGraphQLHandler(cfg *config.Config, logger *logging.Logger, manager *schemarefresh.Manager, graphqlMetrics *observability.GraphQLMetrics) http.Handler {
	handler := middleware.GraphQLTracingMiddleware()(manager.Handler())
	if cfg.Observability.MetricsEnabled && graphqlMetrics != nil {
		handler = middleware.GraphQLMetricsMiddleware(graphqlMetrics)(handler)
	}
	return middleware.LoggingMiddleware(logger)(handler)
}

func buildRouter(cfg *config.Config, logger *logging.Logger, db *sql.DB, manager *schemarefresh.Manager, graphqlHandler http.Handler, meterProvider *observability.MeterProvider) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/graphql", graphqlHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/graphql", http.StatusFound)
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/health", healthHandler(manager, db, cfg.Server.HealthCheckTimeout))

	if cfg.Observability.MetricsEnabled && meterProvider != nil {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics endpoint enabled", slog.String("path", "/metrics"))
	}
	return mux
}

func wrapHTTPHandler(cfg *config.Config, logger *logging.Logger, handler http.Handler) http.Handler {
	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "http.server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return httpRootSpanName(r)
			}),
		)
		logger.Info("HTTP instrumentation enabled")
	}

	if cfg.Server.CORSEnabled {
		handler = middleware.CORSMiddleware(middleware.CORSConfig{
			Enabled:          true,
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   cfg.Server.CORSAllowedMethods,
			AllowedHeaders:   cfg.Server.CORSAllowedHeaders,
			ExposeHeaders:    cfg.Server.CORSExposeHeaders,
			AllowCredentials: cfg.Server.CORSAllowCredentials,
			MaxAge:           cfg.Server.CORSMaxAge,
		})(handler)
	}
	return handler
}

// httpRootSpanName keeps span names low-cardinality.
func httpRootSpanName(r *http.Request) string {
	if r == nil {
		return "HTTP /*"
	}
	method := strings.TrimSpace(r.Method)
	if method == "" {
		method = "HTTP"
	}
	return method + " " + normalizeHTTPSpanRoute(r.URL.Path)
}

func normalizeHTTPSpanRoute(rawPath string) string {
	switch rawPath {
	case "/", "/graphql", "/health", "/metrics":
		return rawPath
	default:
		return "/*"
	}
}

func buildServer(cfg *config.Config, handler http.Handler, serverAddr string) *http.Server {
	return &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func startServer(cfg *config.Config, logger *logging.Logger, srv *http.Server, serverAddr string) chan error {
	serverErrors := make(chan error, 1)
	go func() {
		attrs := []any{
			slog.String("address", serverAddr),
			slog.String("graphql_endpoint", "/graphql"),
			slog.String("health_endpoint", "/health"),
			slog.String("backend", cfg.Backend.Kind),
			slog.String("schema_file", cfg.Schema.File),
			slog.Bool("graphiql", cfg.Server.GraphiQLEnabled),
		}
		if cfg.Observability.MetricsEnabled {
			attrs = append(attrs, slog.String("metrics_endpoint", "/metrics"))
		}
		logger.Info("server starting", attrs...)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()
	return serverErrors
}

type healthStatus struct {
	Status   string `json:"status"`
	Models   int    `json:"models"`
	BuiltAt  string `json:"schema_built_at,omitempty"`
	Database string `json:"database,omitempty"`
}

// healthHandler reports unhealthy until a snapshot exists and, for the
// mysql backend, while the database does not answer a ping.
func healthHandler(manager *schemarefresh.Manager, db *sql.DB, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")

		status := healthStatus{Status: "healthy"}
		code := http.StatusOK

		if snapshot := manager.CurrentSnapshot(); snapshot != nil {
			status.Models = len(snapshot.Models)
			status.BuiltAt = snapshot.BuiltAt.UTC().Format(time.RFC3339)
		} else {
			status.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				reqLogger.Error("health check failed",
					slog.String("error", err.Error()),
					slog.String("check", "database"),
				)
				status.Status = "unhealthy"
				status.Database = "failed"
				code = http.StatusServiceUnavailable
			} else {
				status.Database = "ok"
			}
		}

		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
