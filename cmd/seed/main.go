package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"

	"portal/internal/config"
	"portal/internal/domain/models/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/metrics"
	"portal/internal/repository/postgres"
	postgresDocsys "portal/internal/repository/postgres/docsystem"
	"portal/internal/roles"
	"portal/internal/signal"
	serviceDocsys "portal/internal/service/docsystem"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// starterFolders are created under every seeded service root
var starterFolders = []string{"Procédures", "Contrats", "Archives"}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed data")
	clearData := flag.Bool("clear-data", false, "Delete all enterprises and their content (keep schema)")
	enterpriseName := flag.String("enterprise", "Acme Santé", "Name of the enterprise to seed")
	serviceNames := flag.String("services", "Direction,Ressources Humaines,Comptabilité", "Comma-separated service names")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// SAFETY: Prevent destructive operations in production
	if cfg.Server.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}
	if cfg.Database.Type != "postgres" {
		log.Fatalf("Seeding requires database.type=postgres (got %q)", cfg.Database.Type)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Server.Environment, cfg.Database.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Server.Environment, cfg.Database.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Server.Environment, cfg.Database.TablePrefix)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, postgres.PoolConfig{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.Database.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := postgres.DropSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		if err := clearAllData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	mirror, err := config.CreateMirror(ctx, &cfg.Storage, logger)
	if err != nil {
		log.Fatalf("Failed to create storage mirror: %v", err)
	}
	roleRegistry, err := roles.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize role registry: %v", err)
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	enterpriseRepo := postgresDocsys.NewEnterpriseRepository(repoConfig)
	serviceRepo := postgresDocsys.NewServiceRepository(repoConfig)
	folderRepo := postgresDocsys.NewFolderRepository(repoConfig)
	shareRepo := postgresDocsys.NewShareRepository(repoConfig)

	visibility, err := serviceDocsys.NewVisibilityResolver(&serviceDocsys.VisibilityConfig{
		Services: serviceRepo,
		Folders:  folderRepo,
		Shares:   shareRepo,
		Roles:    roleRegistry,
		Metrics:  metrics.NewNoopPortalMetrics(),
		Logger:   logger,
		CacheTTL: cfg.Visibility.CacheTTL,
		MaxHops:  cfg.Visibility.MaxAncestorHops,
	})
	if err != nil {
		log.Fatalf("Failed to create visibility resolver: %v", err)
	}

	// Seeding goes through the service layer so directories are materialized
	folderService := serviceDocsys.NewFolderService(&serviceDocsys.ServiceConfig{
		Enterprises: enterpriseRepo,
		Services:    serviceRepo,
		Folders:     folderRepo,
		Documents:   postgresDocsys.NewDocumentRepository(repoConfig),
		Shares:      shareRepo,
		TxManager:   postgres.NewTransactionManager(pool, logger),
		Mirror:      mirror,
		Paths: serviceDocsys.NewPathResolver(
			enterpriseRepo, serviceRepo, folderRepo, mirror, cfg.Visibility.MaxAncestorHops,
		),
		Visibility:      visibility,
		Signal:          signal.Noop{},
		Metrics:         metrics.NewNoopPortalMetrics(),
		Logger:          logger,
		MaxAncestorHops: cfg.Visibility.MaxAncestorHops,
	})

	enterprise := &docsystem.Enterprise{Name: *enterpriseName}
	if err := enterpriseRepo.Create(ctx, enterprise); err != nil {
		log.Fatalf("Failed to create enterprise: %v", err)
	}
	log.Printf("🏢 Created enterprise %q (ID: %d)", enterprise.Name, enterprise.ID)

	for _, name := range splitNames(*serviceNames) {
		svc := &docsystem.Service{EnterpriseID: enterprise.ID, Name: name}
		if err := serviceRepo.Create(ctx, svc); err != nil {
			log.Printf("❌ Failed to create service '%s': %v", name, err)
			continue
		}

		root, err := folderService.GetServiceRoot(ctx, svc.ID)
		if err != nil {
			log.Printf("❌ Failed to materialize root for '%s': %v", name, err)
			continue
		}
		log.Printf("✅ Created service %q (ID: %d, root folder: %d)", svc.Name, svc.ID, root.ID)

		for _, folderName := range starterFolders {
			folder, err := folderService.CreateFolder(ctx, &docsysSvc.CreateFolderRequest{
				Name:     folderName,
				ParentID: &root.ID,
			})
			if err != nil {
				log.Printf("❌ Failed to create folder '%s/%s': %v", name, folderName, err)
				continue
			}
			log.Printf("   📁 %s/%s (ID: %d)", name, folder.Name, folder.ID)
		}
	}

	log.Println("🎉 Seeding complete!")
}

// clearAllData removes every enterprise; foreign keys cascade to the rest
func clearAllData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	_, err := pool.Exec(ctx, "DELETE FROM "+tables.Enterprises)
	return err
}

func splitNames(csv string) []string {
	var names []string
	for _, name := range strings.Split(csv, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
