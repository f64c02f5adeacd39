package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"verisyntra.org/internal/auth"
	"verisyntra.org/internal/classify"
	"verisyntra.org/internal/compliance"
	"verisyntra.org/internal/config"
	"verisyntra.org/internal/flow"
	"verisyntra.org/internal/httpapi"
	"verisyntra.org/internal/migrate"
	"verisyntra.org/internal/normalize"
	"verisyntra.org/internal/obs"
	"verisyntra.org/internal/registry"
	"verisyntra.org/internal/ropa"
	"verisyntra.org/internal/scan"
	"verisyntra.org/internal/scanjob"
	"verisyntra.org/internal/store"
	"verisyntra.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	reg, err := registry.Open(cfg.Registry.SnapshotPath)
	if err != nil {
		log.Fatalf("open company registry: %v", err)
	}
	if cfg.Registry.Watch {
		if err := reg.Watch(ctx, cfg.Registry.WatchDebounce); err != nil {
			log.Fatalf("watch company registry: %v", err)
		}
	}
	normalizer := normalize.New(reg)
	gateway := classify.NewGateway(normalizer, nil)

	scans := scan.NewManager(scan.DefaultRegistry(), scan.ManagerConfig{
		MaxRetries:    cfg.Scan.MaxRetries,
		RetryDelay:    cfg.Scan.RetryDelay,
		Timeout:       cfg.Scan.Timeout,
		MaxConcurrent: cfg.Scan.MaxConcurrent,
		MaxAssets:     cfg.Scan.MaxAssets,
	})
	jobs := scanjob.NewManager(scanjob.Limits{
		MaxErrors:   cfg.Scan.MaxErrors,
		MaxErrorLen: cfg.Scan.MaxErrorLen,
		MaxAssets:   cfg.Scan.MaxAssets,
	})
	go jobs.RunSweeper(ctx, cfg.Scan.SweepInterval, cfg.Scan.RetentionTTL)

	templates := scan.NewTemplateCatalogue()
	if cfg.Scan.TemplatesPath != "" {
		if err := templates.LoadTemplates(cfg.Scan.TemplatesPath); err != nil {
			log.Fatalf("load filter templates: %v", err)
		}
	}

	tokens, err := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	blacklist := auth.NewRedisBlacklist(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	users := auth.NewDirectory(auth.NewHasher(auth.DefaultCost))
	if name := os.Getenv("VERISYNTRA_ADMIN_USER"); name != "" {
		password := os.Getenv("VERISYNTRA_ADMIN_PASSWORD")
		if err := users.Seed(name, password, auth.User{ID: name, TenantID: "system", Role: httpapi.RoleAdmin}); err != nil {
			log.Fatalf("seed admin user: %v", err)
		}
	}

	var activities store.Service
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("pgx", cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		if err := migrate.NewManager(db).Up(ctx); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
		_ = db.Close()
		activities, err = pg.Open(cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("open activity store: %v", err)
		}
	} else {
		log.Println("no postgres DSN configured, using the in-memory activity store")
		activities = store.NewMemory()
	}
	defer activities.Close()

	exporter := &ropa.Exporter{FontPath: cfg.ROPA.FontPath, FontName: cfg.ROPA.FontName}

	api := httpapi.New(httpapi.Options{
		Registry:   reg,
		Normalizer: normalizer,
		Gateway:    gateway,
		Scans:      scans,
		Jobs:       jobs,
		Templates:  templates,
		Store:      activities,
		Assembler:  ropa.NewAssembler(activities),
		Storage:    ropa.NewStorage(cfg.ROPA.StorageRoot, exporter),
		Tokens:     tokens,
		Blacklist:  blacklist,
		Users:      users,
		Inferencer: flow.NewInferencer(cfg.Flow.VietnamCIDRs,
			cfg.Flow.Category1Threshold, cfg.Flow.Category2Threshold),
		Thresholds: compliance.Thresholds{
			Category1: cfg.Flow.Category1Threshold,
			Category2: cfg.Flow.Category2Threshold,
		},
		Version: version,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           httpapi.RateLimit(api.Handler(), 100, 50),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("starting verisyntra-api %s on %s", version, srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Println("stopped")
}
