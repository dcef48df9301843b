package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medscrape/medscrape/config"
	"github.com/medscrape/medscrape/models"
	"github.com/medscrape/medscrape/pipeline"
	"github.com/medscrape/medscrape/scraper"
)

func main() {
	defaultCfg := config.DefaultConfig()
	delayDefault := int(defaultCfg.Delay / time.Millisecond)
	if value, ok, err := config.EnvInt("MEDSCRAPE_DELAY_MS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid MEDSCRAPE_DELAY_MS: %v\n", err)
		os.Exit(1)
	} else if ok {
		delayDefault = value
	}
	snapshotDefault := defaultCfg.SnapshotEvery
	if value, ok, err := config.EnvInt("MEDSCRAPE_SNAPSHOT_EVERY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid MEDSCRAPE_SNAPSHOT_EVERY: %v\n", err)
		os.Exit(1)
	} else if ok {
		snapshotDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("MEDSCRAPE_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("MEDSCRAPE_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	delayMs := flag.Int("delay", delayDefault, "Delay before each request (milliseconds)")
	timeoutS := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Request timeout (seconds)")
	snapshotEvery := flag.Int("snapshot-every", snapshotDefault, "Write a progress snapshot every N records (0 disables)")
	snapshotDir := flag.String("snapshot-dir", defaultCfg.SnapshotDir, "Directory for progress snapshots")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	locatorsFile := flag.String("locators", "", "YAML file with selector cascades (built-in defaults when empty)")
	urlsFile := flag.String("urls", "", "File with one page URL per line")
	domainToken := flag.String("domain-token", defaultCfg.DomainToken, "Token identifying the site's own asset URLs")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.Timeout = time.Duration(*timeoutS) * time.Second
	cfg.SnapshotEvery = *snapshotEvery
	cfg.SnapshotDir = *snapshotDir
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.LocatorsFile = *locatorsFile
	cfg.DomainToken = *domainToken
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	urls, err := collectURLs(*urlsFile, flag.Args())
	if err != nil {
		slog.Error("reading URL list", slog.Any("error", err))
		os.Exit(1)
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "no URLs configured: pass page URLs as arguments or via -urls")
		os.Exit(1)
	}

	locators := config.DefaultLocators()
	if cfg.LocatorsFile != "" {
		locators, err = config.LoadLocators(cfg.LocatorsFile)
		if err != nil {
			slog.Error("loading locators", slog.Any("error", err))
			os.Exit(1)
		}
	}

	runner, err := scraper.NewRunner(cfg, locators)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.SnapshotEvery > 0 {
		runner.Snapshotter = pipeline.NewSnapshotter(cfg.SnapshotDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(runner.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting scrape",
		slog.Int("urls", len(urls)),
		slog.Duration("delay", cfg.Delay),
		slog.String("output", cfg.OutputFile),
	)

	startTime := time.Now()
	result, err := runner.Run(ctx, urls)
	if err != nil {
		// Interrupt between URLs: nothing is exported beyond snapshots
		// already on disk.
		slog.Info("scrape aborted", slog.Any("reason", err))
		shutdownMetrics(metricsServer)
		return
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Write(result.Records); err != nil {
		slog.Error("writing results", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
		os.Exit(1)
	}

	shutdownMetrics(metricsServer)
	printSummary(result, time.Since(startTime), cfg.OutputFile)
}

// collectURLs merges the -urls file with positional arguments, file first.
func collectURLs(path string, args []string) ([]string, error) {
	var urls []string
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	urls = append(urls, args...)
	return urls, nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.BatchResult, duration time.Duration, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Total URLs:    %d\n", result.TotalCount)
	fmt.Printf("  Successful:    %d\n", result.SuccessCount)
	fmt.Printf("  Failed:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output file:   %s\n", outputFile)
	if len(result.FailedURLs) > 0 {
		fmt.Println("  Failed URLs:")
		for _, failed := range result.FailedURLs {
			fmt.Printf("    - %s: %s\n", failed.URL, failed.Status)
		}
	}
	fmt.Println(separator)
}

func shutdownMetrics(server *http.Server) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
