package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portal/internal/auth"
	"portal/internal/config"
	"portal/internal/domain/repositories"
	docsysRepo "portal/internal/domain/repositories/docsystem"
	"portal/internal/handler"
	"portal/internal/handler/sse"
	"portal/internal/metrics"
	promMetrics "portal/internal/metrics/prometheus"
	"portal/internal/middleware"
	"portal/internal/repository/memory"
	"portal/internal/repository/postgres"
	postgresDocsys "portal/internal/repository/postgres/docsystem"
	"portal/internal/roles"
	serviceAuth "portal/internal/service/auth"
	serviceDocsys "portal/internal/service/docsystem"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// repositorySet bundles the TreeStore implementations
type repositorySet struct {
	enterprises docsysRepo.EnterpriseRepository
	services    docsysRepo.ServiceRepository
	folders     docsysRepo.FolderRepository
	documents   docsysRepo.DocumentRepository
	shares      docsysRepo.ShareRepository
	txManager   repositories.TransactionManager
	close       func()
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	flag.Parse()

	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging, teeing into a log file when configured
	var out io.Writer = os.Stdout
	if cfg.Logging.Dir != "" {
		logFile, err := config.SetupLogFile(cfg.Logging.Dir, cfg.Logging.MaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		out = io.MultiWriter(os.Stdout, logFile)
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"database", cfg.Database.Type,
		"storage", cfg.Storage.Type,
		"table_prefix", cfg.Database.TablePrefix,
	)

	ctx := context.Background()

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.Auth.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	repos, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up repositories: %v", err)
	}
	defer repos.close()

	mirror, err := config.CreateMirror(ctx, &cfg.Storage, logger)
	if err != nil {
		log.Fatalf("Failed to create storage mirror: %v", err)
	}

	changeSignal, err := config.CreateSignal(&cfg.Signal, logger)
	if err != nil {
		log.Fatalf("Failed to create change signal: %v", err)
	}
	defer changeSignal.Close()

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}
	portalMetrics := promMetrics.NewPortalMetrics()

	roleRegistry, err := roles.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize role registry: %v", err)
	}
	logger.Info("role registry initialized", "roles", roleRegistry.Names())

	// Create document services
	visibility, err := serviceDocsys.NewVisibilityResolver(&serviceDocsys.VisibilityConfig{
		Services: repos.services,
		Folders:  repos.folders,
		Shares:   repos.shares,
		Roles:    roleRegistry,
		Metrics:  portalMetrics,
		Logger:   logger,
		CacheTTL: cfg.Visibility.CacheTTL,
		MaxHops:  cfg.Visibility.MaxAncestorHops,
	})
	if err != nil {
		log.Fatalf("Failed to create visibility resolver: %v", err)
	}

	serviceConfig := &serviceDocsys.ServiceConfig{
		Enterprises: repos.enterprises,
		Services:    repos.services,
		Folders:     repos.folders,
		Documents:   repos.documents,
		Shares:      repos.shares,
		TxManager:   repos.txManager,
		Mirror:      mirror,
		Paths: serviceDocsys.NewPathResolver(
			repos.enterprises, repos.services, repos.folders, mirror, cfg.Visibility.MaxAncestorHops,
		),
		Visibility:      visibility,
		Signal:          changeSignal,
		Metrics:         portalMetrics,
		Logger:          logger,
		MaxAncestorHops: cfg.Visibility.MaxAncestorHops,
	}
	folderService := serviceDocsys.NewFolderService(serviceConfig)
	docService := serviceDocsys.NewDocumentService(serviceConfig, folderService)
	shareService := serviceDocsys.NewShareService(serviceConfig, folderService)
	treeService := serviceDocsys.NewTreeService(
		folderService, repos.folders, repos.documents, repos.services, repos.shares,
		visibility, logger,
	)
	authorizer := serviceAuth.NewOwnershipAuthorizer(repos.services, repos.folders, repos.documents, roleRegistry)

	handlers := &handler.Handlers{
		Folders:   handler.NewFolderHandler(folderService, docService, authorizer, logger),
		Documents: handler.NewDocumentHandler(docService, authorizer, logger),
		Services:  handler.NewServiceHandler(treeService, folderService, docService, logger),
		Shares:    handler.NewShareHandler(shareService, authorizer, logger),
		Changes:   handler.NewChangesHandler(changeSignal, sse.DefaultConfig(), logger),
	}
	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handlers.Register(mux)
	if metrics.IsEnabled() {
		mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → RequestID → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.AuthMiddleware(jwtVerifier, logger)(h)
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestID()(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     h,
		ReadTimeout: 60 * time.Second, // uploads
		// Disabled to allow long-lived SSE streams and large downloads
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildRepositories connects the configured TreeStore
func buildRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositorySet, error) {
	if cfg.Database.Type == "memory" {
		logger.Warn("using in-memory database, data is lost on restart")
		store := memory.NewStore()
		return &repositorySet{
			enterprises: memory.NewEnterpriseRepository(store),
			services:    memory.NewServiceRepository(store),
			folders:     memory.NewFolderRepository(store),
			documents:   memory.NewDocumentRepository(store),
			shares:      memory.NewShareRepository(store),
			txManager:   memory.NewTransactionManager(store),
			close:       func() {},
		}, nil
	}

	pool, err := postgres.CreateConnectionPool(ctx, postgres.PoolConfig{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("database connected",
		"max_conns", cfg.Database.MaxConns,
		"min_conns", cfg.Database.MinConns,
	)

	tables := postgres.NewTableNames(cfg.Database.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		pool.Close()
		return nil, err
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	return &repositorySet{
		enterprises: postgresDocsys.NewEnterpriseRepository(repoConfig),
		services:    postgresDocsys.NewServiceRepository(repoConfig),
		folders:     postgresDocsys.NewFolderRepository(repoConfig),
		documents:   postgresDocsys.NewDocumentRepository(repoConfig),
		shares:      postgresDocsys.NewShareRepository(repoConfig),
		txManager:   postgres.NewTransactionManager(pool, logger),
		close:       pool.Close,
	}, nil
}
