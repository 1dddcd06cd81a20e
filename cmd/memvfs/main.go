package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"

	"memvfs/internal/api"
	"memvfs/internal/config"
	"memvfs/internal/fs"
	"memvfs/internal/logging"
	"memvfs/internal/metrics"
	"memvfs/internal/search"
	"memvfs/internal/seed"
	"memvfs/internal/store"
)

var (
	logger = logging.GetLogger()
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to a TOML configuration file")
	mountPoint := flag.String("mount", "", "Mount point for the FUSE filesystem (overrides config)")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	seedDir := flag.String("seed-dir", "", "Host directory imported into the store at startup")
	noSamples := flag.Bool("no-samples", false, "Do not load the bundled sample files")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	if *mountPoint != "" {
		cfg.Mount.Point = *mountPoint
	}
	if *listen != "" {
		cfg.HTTP.Listen = *listen
	}
	if *seedDir != "" {
		cfg.Seed.Dir = *seedDir
	}
	if *noSamples {
		cfg.Seed.Samples = false
	}

	// Validate already checked the level name
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logger.SetLevel(level)
	if *verbose {
		logger.SetLevel(logging.LevelDebug)
	}
	logger.SetDevelopment(cfg.Logging.Development)
	defer logger.Sync()

	logger.Info("Starting memvfs...")
	logger.Debug("Mount point: %q", cfg.Mount.Point)
	logger.Debug("HTTP listen: %q", cfg.HTTP.Listen)

	if cfg.Mount.Point == "" && cfg.HTTP.Listen == "" {
		logger.Error("Nothing to serve: set a mount point or an HTTP listen address")
		os.Exit(1)
	}

	m := metrics.New()
	st := store.New(store.WithMetrics(m))

	if err := populate(st, cfg.Seed); err != nil {
		logger.Error("Failed to seed store: %v", err)
		os.Exit(1)
	}

	searchOpts := []search.Option{
		search.WithMetrics(m),
		search.WithRegexTimeout(cfg.Search.RegexTimeout.Duration),
	}
	files := search.NewFileSearcher(st, searchOpts...)
	text := search.NewTextSearcher(st, searchOpts...)

	logger.Debug("Setting up signal handlers...")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var vfs *fs.FS
	cleanMount := ""
	if cfg.Mount.Point != "" {
		cleanMount = filepath.Clean(cfg.Mount.Point)
		vfs = fs.New(st, fs.DefaultOptions())
		if err := vfs.Mount(cleanMount); err != nil {
			logger.Error("Mount failed: %v", err)
			os.Exit(1)
		}
	}

	var srv *api.Server
	serveErr := make(chan error, 1)
	if cfg.HTTP.Listen != "" {
		srv = api.NewServer(st, files, text, m, api.Limits{
			MaxResults:          cfg.Search.MaxResults,
			MaxFileSize:         cfg.Search.MaxFileSize,
			PreviewCharsPerLine: cfg.Search.PreviewCharsPerLine,
		}, api.WithCORS(cfg.HTTP.CORSOrigins))
		go func() {
			serveErr <- srv.ListenAndServe(cfg.HTTP.Listen)
		}()
	}

	logger.Info("memvfs ready")

	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v", sig)
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server error: %v", err)
		}
	}

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration)
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP shutdown error: %v", err)
		}
		cancel()
	}

	if vfs != nil {
		if err := vfs.Unmount(cleanMount); err != nil {
			logger.Error("Unmount error: %v", err)
		}
	}

	logger.Info("Clean shutdown complete")
}

// populate loads the bundled samples and then any host directory, so host
// files win over samples with the same path.
func populate(st *store.Store, cfg config.SeedConfig) error {
	if cfg.Samples {
		if err := seed.LoadSamples(st); err != nil {
			return err
		}
	}

	if cfg.Dir != "" {
		if _, err := seed.ImportDir(afero.NewOsFs(), cfg.Dir, st); err != nil {
			return err
		}
	}

	return nil
}
