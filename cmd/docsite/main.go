package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/history"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"docsite.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Output        string `short:"o" help:"Output directory override"`
		Force         bool   `short:"f" help:"Force a full rebuild, ignoring incremental state"`
		MetricsListen string `help:"Address to expose Prometheus metrics on (empty = disabled)"`
	} `cmd:"" help:"Build the site from changed sources"`

	Status struct{} `cmd:"" help:"Show what the next build would regenerate"`

	Clean struct {
		Cache bool `help:"Also clear the artifact cache directory"`
	} `cmd:"" help:"Remove incremental state so the next build starts fresh"`

	Watch struct {
		Debounce time.Duration `help:"Delay before rebuilding after a change" default:"500ms"`
	} `cmd:"" help:"Rebuild continuously on source changes"`

	History struct {
		Limit int `short:"n" help:"Number of builds to show" default:"10"`
	} `cmd:"" help:"Show recent build runs"`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`
}

func main() {
	// Optional .env for local overrides; absence is fine.
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "build":
		cfg := mustLoadConfig()
		if err := runBuild(cfg); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "status":
		cfg := mustLoadConfig()
		if err := runStatus(cfg); err != nil {
			slog.Error("Status failed", "error", err)
			os.Exit(1)
		}
	case "clean":
		cfg := mustLoadConfig()
		if err := runClean(cfg); err != nil {
			slog.Error("Clean failed", "error", err)
			os.Exit(1)
		}
	case "watch":
		cfg := mustLoadConfig()
		if err := runWatch(cfg); err != nil {
			slog.Error("Watch failed", "error", err)
			os.Exit(1)
		}
	case "history":
		cfg := mustLoadConfig()
		if err := runHistory(cfg); err != nil {
			slog.Error("History failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Unknown command", "command", ctx.Command())
		os.Exit(1)
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

func newService(cfg *config.Config) (*build.DefaultService, func(), error) {
	outputDir := cfg.Output.Dir
	if CLI.Build.Output != "" {
		outputDir = CLI.Build.Output
	}

	svc, err := build.NewService(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc.WithGenerator(&build.CopyGenerator{
		Root:      cfg.Source.Root,
		OutputDir: outputDir,
	})

	cleanup := func() {}
	if cfg.History.Enabled {
		journal, jerr := history.NewStore(cfg.History.Path)
		if jerr != nil {
			slog.Warn("Build history unavailable", "error", jerr)
		} else {
			svc.WithHistory(journal)
			cleanup = func() { _ = journal.Close() }
		}
	}

	return svc, cleanup, nil
}

func runBuild(cfg *config.Config) error {
	svc, cleanup, err := newService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if CLI.Build.MetricsListen != "" {
		reg := prom.NewRegistry()
		svc.WithRecorder(metrics.NewPrometheusRecorder(reg))
		go serveMetrics(CLI.Build.MetricsListen, reg)
	}

	res, err := svc.Run(context.Background(), build.Request{
		ForceRebuild: CLI.Build.Force,
	})
	if err != nil {
		return err
	}

	fmt.Printf("build %s: %s (%d scanned, %d changed, %d regenerated, %d from cache, %d deleted) in %s\n",
		res.BuildID, res.Status, res.FilesScanned, res.FilesChanged,
		res.FilesRegenerated, res.FilesFromCache, res.FilesDeleted, res.Duration.Round(time.Millisecond))

	if !res.Status.IsSuccess() {
		return fmt.Errorf("build finished with status %s", res.Status)
	}
	return nil
}

func runStatus(cfg *config.Config) error {
	svc, cleanup, err := newService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	changed, err := svc.ChangedFiles()
	if err != nil {
		return err
	}

	if len(changed) == 0 {
		fmt.Println("up to date: nothing to regenerate")
	} else {
		fmt.Printf("%d file(s) pending regeneration:\n", len(changed))
		for _, p := range changed {
			fmt.Printf("  %s\n", p)
		}
	}

	stats := svc.CacheStats()
	fmt.Printf("cache: enabled=%v storage=%s size=%d max=%d ttl=%s\n",
		stats.Enabled, stats.Storage, stats.Size, stats.MaxSize, stats.TTL)
	return nil
}

func runClean(cfg *config.Config) error {
	for _, path := range []string{cfg.Incremental.StateFile, cfg.Incremental.GraphFile} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}

	if CLI.Clean.Cache && cfg.Cache.Dir != "" {
		if err := os.RemoveAll(cfg.Cache.Dir); err != nil {
			return fmt.Errorf("remove cache dir %s: %w", cfg.Cache.Dir, err)
		}
	}

	fmt.Println("incremental state removed; next build will be a full rebuild")
	return nil
}

func runWatch(cfg *config.Config) error {
	svc, cleanup, err := newService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initial pass so the site is current before we start reacting.
	if _, err := svc.Run(ctx, build.Request{}); err != nil {
		return err
	}

	trigger := make(chan struct{}, 1)
	watcher, err := watch.New(cfg.Source.Root, CLI.Watch.Debounce, func(paths []string) {
		slog.Debug("Source changes detected", "count", len(paths))
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch stopped")
			return nil
		case <-trigger:
			res, err := svc.Run(ctx, build.Request{})
			if err != nil {
				slog.Error("Rebuild failed", "error", err)
				continue
			}
			slog.Info("Rebuild complete",
				"status", string(res.Status),
				"regenerated", res.FilesRegenerated)
		}
	}
}

func runHistory(cfg *config.Config) error {
	journal, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer journal.Close()

	builds, err := journal.Recent(context.Background(), CLI.History.Limit)
	if err != nil {
		return err
	}
	if len(builds) == 0 {
		fmt.Println("no recorded builds")
		return nil
	}

	for _, b := range builds {
		fmt.Printf("%s  %-8s  scanned=%-4d changed=%-4d regenerated=%-4d %s  %s\n",
			b.StartedAt.Format(time.RFC3339), b.Status,
			b.FilesScanned, b.FilesChanged, b.FilesRegenerated,
			b.Duration.Round(time.Millisecond), b.ID)
	}
	return nil
}

func serveMetrics(addr string, reg *prom.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	slog.Info("Serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("Metrics server stopped", "error", err)
	}
}
