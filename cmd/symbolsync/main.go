package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"algosync/config"
	"algosync/internal/datasource"
	"algosync/internal/scheduler"
	"algosync/internal/symbolsync"
	"algosync/logger"
	"algosync/pkg/storage/database"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: search next to the binary)")
	flag.Parse()

	// viper config
	var cfg *config.Config
	if *configPath == "" {
		cfg = config.Load()
	} else {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			panic("failed to load config: " + err.Error())
		}
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	// a failed pass has already been logged by the scheduler
	if err := run(cfg, log); err != nil {
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := openDatabase(ctx, cfg, log.Named("database"))
	defer db.Close()

	resolver := datasource.NewResolver(cfg, datasource.DefaultRegistry(), log.Named("datasource"))
	sources, err := resolver.AllInstances()
	if err != nil {
		log.Error("some datasources could not be resolved", zap.Error(err))
	}

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	syncer := symbolsync.New(db, log.Named("sync"))
	loader := &scheduler.Loader{
		Load: func(ctx context.Context) error {
			// sources are connected for the duration of each pass
			_, err := syncer.RunSources(ctx, sources)
			return err
		},
		Interval:      cfg.Sync.Interval,
		AlignMidnight: cfg.Sync.AlignMidnight,
		Logger:        log.Named("scheduler"),
	}

	return loader.Start(ctx)
}

func openDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) *database.Database {
	var password string
	secrets, err := config.NewSecretStore(ctx, cfg.Secrets)
	if err != nil {
		log.Warn("secret store unavailable", zap.Error(err))
	} else if password, err = secrets.Get(ctx, cfg.Database.PasswordKey); err != nil {
		log.Warn("database password not found", zap.String("key", cfg.Database.PasswordKey), zap.Error(err))
	}

	db := database.Open(ctx, cfg.Database, password, log)
	if err := db.EnsureDataSources(ctx, cfg.DataSourceNames()); err != nil {
		log.Error("failed to register datasources", zap.Error(err))
	}
	return db
}

func serveMetrics(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}
