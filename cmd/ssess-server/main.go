package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yndnr/ssess-go/internal/infra/buildinfo"
	"github.com/yndnr/ssess-go/internal/infra/confloader"
	"github.com/yndnr/ssess-go/internal/infra/shutdown"
	"github.com/yndnr/ssess-go/internal/server/config"
	"github.com/yndnr/ssess-go/internal/server/httpserver"
	"github.com/yndnr/ssess-go/internal/server/httpsession"
	"github.com/yndnr/ssess-go/internal/storage"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
	"github.com/yndnr/ssess-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("ssess-server " + buildinfo.String())
		return nil
	}

	cfg, loader, err := config.Load(*configFile, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting ssess-server",
		"version", info.Version,
		"commit", info.Commit,
		"config_sources", loader.Sources(),
		"backend", cfg.Storage.Backend)

	ctx := context.Background()
	reg := metric.NewRegistry()

	provider, err := cfg.Crypto.NewProvider()
	if err != nil {
		return fmt.Errorf("init crypt provider: %w", err)
	}

	store, err := storage.Open(ctx, cfg.Storage.StorageConfig(reg.Registerer()),
		logger.Slog(logger.Component(log, "storage")))
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if rc, ok := store.(metric.RecordCounter); ok {
		reg.Registerer().MustRegister(metric.NewCollector(cfg.Storage.Backend, rc))
	}

	sessions, err := httpsession.NewManager(provider, store, cfg.Session,
		httpsession.WithLogger(logger.Component(log, "session")),
		httpsession.WithMetrics(reg),
		httpsession.WithSavePath(cfg.Storage.Dir),
	)
	if err != nil {
		store.Close()
		return fmt.Errorf("init session manager: %w", err)
	}

	sweeper := httpsession.NewSweeper(sessions, 0)
	sweeper.Start(ctx)

	routerCfg := &httpserver.RouterConfig{
		Sessions: sessions,
		Logger:   log,
		Metrics:  reg,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsHandler = reg.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	srv := httpserver.New(cfg.Server.HTTP, httpserver.NewRouter(routerCfg))

	watcher, err := watchConfig(loader, log)
	if err != nil {
		log.Warn("config watcher disabled", "error", err)
	}

	// Hooks run in reverse order: HTTP server, sweeper, watcher, storage.
	sh := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)
	sh.OnShutdown("storage", func(context.Context) error {
		return store.Close()
	})
	if watcher != nil {
		sh.OnShutdown("config watcher", func(context.Context) error {
			return watcher.Stop()
		})
	}
	sh.OnShutdown("gc sweeper", func(context.Context) error {
		sweeper.Stop()
		return nil
	})
	sh.OnShutdown("http server", srv.Shutdown)

	go func() {
		log.Info("HTTP server listening",
			"addr", cfg.Server.HTTP.Addr,
			"tls", cfg.Server.HTTP.TLSEnabled())
		if err := srv.ListenAndServe(); err != nil {
			log.Error("HTTP server error", "error", err)
			sh.Trigger()
		}
	}()

	if err := sh.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// watchConfig reloads the configuration file on change and applies the
// new log level. Other settings need a restart. It returns nil when no
// configuration file is in use.
func watchConfig(loader *confloader.Loader, log logger.Logger) (*confloader.Watcher, error) {
	path := loader.FilePath()
	if path == "" {
		return nil, nil
	}

	log = logger.Component(log, "config")
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.Slog(log)))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		next, err := config.Reload(loader)
		if err == nil {
			err = config.Verify(next)
		}
		if err != nil {
			log.Warn("ignoring invalid configuration change", "path", path, "error", err)
			return
		}
		prev := logger.GetLevel()
		if err := logger.SetLevel(next.Log.Level); err == nil && logger.GetLevel() != prev {
			log.Info("log level changed", "from", prev, "to", logger.GetLevel())
		}
		log.Info("configuration reloaded; settings other than log.level apply after restart", "path", path)
	})
	w.StartAsync()
	return w, nil
}
