package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akozyrev/libsync/catalog"
	"github.com/akozyrev/libsync/config"
	"github.com/akozyrev/libsync/pipeline"
	"github.com/akozyrev/libsync/scraper"
	"github.com/akozyrev/libsync/store"
	"github.com/akozyrev/libsync/store/memory"
	"github.com/akozyrev/libsync/store/postgres"
	"github.com/akozyrev/libsync/store/sqlite"
	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	config.LoadEnv()
	defaultCfg := config.DefaultConfig()

	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("LIBRARY_URL"); ok {
		baseURLDefault = value
	}
	modeDefault := defaultCfg.Mode
	if value, ok := config.EnvString("LIBSYNC_MODE"); ok {
		modeDefault = value
	}
	backendDefault := defaultCfg.StoreBackend
	if value, ok := config.EnvString("STORE_BACKEND"); ok {
		backendDefault = value
	}
	dsnDefault := defaultCfg.StoreDSN
	if value, ok := config.EnvString("STORE_DSN"); ok {
		dsnDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("LIBSYNC_OUTPUT"); ok {
		outputDefault = value
	}
	logFileDefault := defaultCfg.LogFile
	if value, ok := config.EnvString("LIBSYNC_LOG_FILE"); ok {
		logFileDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("LIBSYNC_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	timeoutDefault := int(defaultCfg.Timeout / time.Second)
	if value, ok, err := config.EnvInt("LIBSYNC_TIMEOUT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid LIBSYNC_TIMEOUT: %v\n", err)
		os.Exit(1)
	} else if ok {
		timeoutDefault = value
	}

	baseURL := flag.String("base-url", baseURLDefault, "Catalog base URL, e.g. https://lib.agu.site/books/")
	mode := flag.String("mode", modeDefault, "Run mode: store+dump or dump-only")
	backend := flag.String("store", backendDefault, "Store backend: sqlite or postgres")
	dsn := flag.String("dsn", dsnDefault, "Store DSN (file path for sqlite, connection URL for postgres)")
	outputFile := flag.String("output", outputDefault, "Dump file path (store+dump mode)")
	logFile := flag.String("log-file", logFileDefault, "Also write logs to this file")
	timeoutSec := flag.Int("timeout", timeoutDefault, "HTTP request timeout (seconds)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level, closeLog, err := newLogger(*verbose, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.BaseURL = *baseURL
	cfg.Mode = *mode
	cfg.StoreBackend = *backend
	cfg.StoreDSN = *dsn
	cfg.OutputFile = *outputFile
	cfg.LogFile = *logFile
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current book")
	}()

	backendStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("opening store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := backendStore.Close(); err != nil {
			slog.Error("close store", slog.Any("error", err))
		}
	}()

	client, err := catalog.NewClient(cfg.BaseURL, cfg.UserAgent, cfg.Timeout)
	if err != nil {
		slog.Error("initialising catalog client", slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Close()

	sink, err := pipeline.NewSink(backendStore)
	if err != nil {
		slog.Error("initialising sink", slog.Any("error", err))
		os.Exit(1)
	}

	dump, err := pipeline.NewDumpWriter(cfg.DumpPath(time.Now()))
	if err != nil {
		slog.Error("creating dump writer", slog.Any("error", err))
		os.Exit(1)
	}

	s := scraper.New(catalog.NewWalker(client), sink, dump)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	var pw progress.Writer
	if cfg.Mode == config.ModeDumpOnly && isTerminal(os.Stderr) {
		pw = progress.NewWriter()
		pw.SetOutputWriter(os.Stderr)
		pw.SetUpdateFrequency(250 * time.Millisecond)
		pw.Style().Visibility.ETA = true
		pw.Style().Visibility.Speed = true
		s.SetProgress(pw)
		go pw.Render()
	}

	slog.Info("starting sync",
		slog.String("base_url", cfg.BaseURL),
		slog.String("mode", cfg.Mode),
		slog.String("dump", dump.Path()),
	)

	result, err := s.Run(ctx)
	if pw != nil {
		for pw.IsRenderInProgress() && pw.LengthActive() > 0 {
			time.Sleep(50 * time.Millisecond)
		}
		pw.Stop()
	}
	if err != nil {
		slog.Error("sync failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := dump.Validate(); err != nil {
		slog.Error("dump validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, dump.Path())
}

// openStore picks the store backend for the run. Dump-only runs still need
// within-run dedup, so they get the in-memory backend instead of a durable
// one.
func openStore(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	if cfg.Mode == config.ModeDumpOnly {
		return memory.New(), nil
	}
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return postgres.New(ctx, cfg.StoreDSN)
	default:
		return sqlite.New(cfg.StoreDSN)
	}
}

func printSummary(result *scraper.Result, dumpPath string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Sync complete")
	fmt.Printf("  Advertised:    %d\n", result.Summary.Count)
	fmt.Printf("  Stored:        %d\n", result.Summary.Success)
	fmt.Printf("  Skipped:       %d\n", result.Skipped)
	fmt.Printf("  Errors:        %d\n", result.Summary.Errors)
	fmt.Printf("  Pages:         %d\n", result.Pages)
	fmt.Printf("  Duration:      %v\n", result.Elapsed)
	fmt.Printf("  Dump file:     %s\n", dumpPath)
	fmt.Println(separator)
}

func newLogger(verbose bool, logFile string) (*slog.Logger, *slog.LevelVar, func(), error) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	closeLog := func() {}
	var out io.Writer = os.Stdout
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, nil, err
		}
		out = io.MultiWriter(os.Stdout, f)
		closeLog = func() { _ = f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) && logFile == "" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler), level, closeLog, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
