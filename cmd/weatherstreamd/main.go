package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/weatherstream-labs/weatherstream-go/internal/datasource"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/env"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/httpserver"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/metrics"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/objectstore"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/postgres"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/ratelimit"
	repopg "github.com/weatherstream-labs/weatherstream-go/internal/repo/postgres"
	"github.com/weatherstream-labs/weatherstream-go/internal/service/simulations"
)

const service = "weatherstreamd"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("WEATHERSTREAM_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("WEATHERSTREAM_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	checks := []httpserver.ReadinessCheck{
		{
			Name: "postgres",
			Check: func(ctx context.Context) error {
				checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
				defer cancel()
				return db.PingContext(checkCtx)
			},
		},
	}

	files, extraChecks, err := buildDataSourceValidator(ctx, logger)
	if err != nil {
		logger.Error("invalid data source config", "error", err)
		os.Exit(2)
	}
	checks = append(checks, extraChecks...)

	policy, err := ratelimit.LoadPolicy(env.String("WEATHERSTREAM_RATELIMIT_POLICY", ""))
	if err != nil {
		logger.Error("invalid rate limit policy", "error", err)
		os.Exit(2)
	}

	doc, err := loadOpenAPIDoc(ctx)
	if err != nil {
		logger.Error("invalid openapi document", "error", err)
		os.Exit(2)
	}

	m := metrics.New(service)
	svc := simulations.New(repopg.NewSimulationStore(db), repopg.NewAuditStore(db), files, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", httpserver.Healthz(service))
	mux.HandleFunc("GET /readyz", httpserver.ReadyzWithChecks(service, checks...))
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /openapi.yaml", serveOpenAPIDoc(doc))

	api := newSimulationsAPI(logger, svc, m)
	api.register(mux)

	handler := httpserver.Wrap(logger, ratelimit.New(policy).Middleware(m.Middleware(mux)))

	cfg := httpserver.Config{
		Service:         service,
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}
	if err := httpserver.Run(ctx, logger, cfg, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// buildDataSourceValidator selects where simulation input files are checked
// for existence: the local filesystem, an S3-compatible object store, or
// nowhere when validation is switched off for development.
func buildDataSourceValidator(ctx context.Context, logger *slog.Logger) (datasource.Validator, []httpserver.ReadinessCheck, error) {
	backend := strings.ToLower(env.String("WEATHERSTREAM_DATASOURCE_BACKEND", "filesystem"))
	switch backend {
	case "filesystem":
		return datasource.FilesystemValidator{}, nil, nil
	case "objectstore":
		cfg, err := objectstore.ConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		client, err := objectstore.NewMinIOClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := objectstore.EnsureBucket(ctx, client, cfg); err != nil {
			return nil, nil, err
		}
		v, err := datasource.NewObjectStoreValidator(client, cfg.BucketDataSources)
		if err != nil {
			return nil, nil, err
		}
		check := httpserver.ReadinessCheck{
			Name: "objectstore",
			Check: func(ctx context.Context) error {
				checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
				defer cancel()
				return objectstore.CheckBucket(checkCtx, client, cfg)
			},
		}
		return v, []httpserver.ReadinessCheck{check}, nil
	case "none":
		logger.Warn("data source existence validation disabled")
		return nil, nil, nil
	default:
		return nil, nil, errors.New("WEATHERSTREAM_DATASOURCE_BACKEND must be filesystem, objectstore, or none")
	}
}
