package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"attractions-crawler/internal/browser"
	"attractions-crawler/internal/config"
	"attractions-crawler/internal/db"
	"attractions-crawler/internal/logging"
	"attractions-crawler/internal/metrics"
	"attractions-crawler/internal/scraper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "scraper: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "scraper",
		Short: "Crawl the attractions listing into the local database",
		Long: `scraper walks the paginated attractions listing starting at SCRAPING_URL,
opens every detail page and stores one record per detail link. A run resumes
from the highest page already stored.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfgFile)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "Path to config file")
	flags.String("url", "", "Listing URL to start from (overrides SCRAPING_URL)")
	flags.String("db", "", "Path to SQLite database")
	flags.String("images", "", "Directory for downloaded images")
	flags.Int("pages", 0, "Maximum listing pages to visit")
	flags.String("driver", "", "Browser driver: chrome or static")
	flags.Bool("headless", true, "Run Chrome in headless mode (set false to see browser)")
	flags.Duration("wait-timeout", 0, "Bound for every element wait")
	flags.Duration("settle-delay", 0, "Pause after returning to the listing")
	flags.Bool("dev", false, "Use the development logger")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address while crawling")

	return cmd
}

func run(cmd *cobra.Command, cfgFile string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Fail before any browser or network setup
	if err := cfg.ValidateCrawl(); err != nil {
		logger.Error("Invalid crawl configuration", zap.Error(err))
		return err
	}

	logger.Info("Using database", zap.String("path", cfg.DB.Path))
	database, err := db.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		stopMetrics := serveMetrics(cfg.Metrics.Addr, m, logger)
		defer stopMetrics()
	}

	images, err := scraper.NewImageFetcher(scraper.ImageOptions{
		Dir:       cfg.Images.Dir,
		Timeout:   cfg.Images.Timeout,
		UserAgent: cfg.Crawler.UserAgent,
	}, logger.Named("images"), m)
	if err != nil {
		return err
	}

	driver, err := newDriver(cfg, logger.Named("browser"))
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer driver.Close()

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Info("Received interrupt signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	s := scraper.New(driver, database, images, cfg.ScraperConfig(), logger.Named("scraper"), m)
	sum, err := s.Run(ctx, cfg.StartURL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Scraper cancelled by user", zap.String("run_id", sum.RunID))
			return nil
		}
		return fmt.Errorf("scraper failed: %w", err)
	}

	logger.Info("Scraping completed",
		zap.String("run_id", sum.RunID),
		zap.Int("start_page", sum.StartPage),
		zap.Int("last_page", sum.LastPage),
		zap.Int("inserted", sum.Inserted),
		zap.Int("duplicates", sum.Duplicates),
		zap.String("stop", string(sum.Stop)),
		zap.Duration("duration", sum.Duration))
	return nil
}

func newDriver(cfg config.Config, logger *zap.Logger) (browser.Driver, error) {
	switch cfg.Crawler.Driver {
	case config.DriverStatic:
		return browser.NewStatic(nil, cfg.Crawler.UserAgent, logger), nil
	default:
		return browser.NewChrome(browser.ChromeOptions{
			Headless:  cfg.Crawler.Headless,
			UserAgent: cfg.Crawler.UserAgent,
			ExecPath:  cfg.Crawler.ChromePath,
		}, logger)
	}
}

func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
