package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pricescout/internal/api"
	"pricescout/internal/config"
	"pricescout/internal/extract"
	"pricescout/internal/fetcher"
	"pricescout/internal/observability"
	"pricescout/internal/rates"
	"pricescout/internal/scheduler"
	"pricescout/internal/storage"
)

var (
	cfgFile string
	verbose bool
	timeout time.Duration
)

func main() {
	// A local .env is optional; env vars win over the config file either way.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pricescout",
		Short: "pricescout — product page price/name extraction service",
		Long: `pricescout extracts a product's name and displayed price from arbitrary
retail web pages and serves the result to the ordering and admin bots.

Features:
  • Rule-ordered title and price extraction over unstructured pages
  • Browser-like fetching with User-Agent rotation and per-request sessions
  • Order history persisted to Postgres, MongoDB, or a local JSONL log
  • Exchange-rate table with local-price conversion and commission
  • Daily staleness reminder for the rate table`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(ratesCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the extraction HTTP service",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(&cfg.Logging)

	metrics := observability.NewMetrics()

	httpFetcher := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
	defer httpFetcher.Close()

	extractor := extract.New(httpFetcher, &cfg.Extract, metrics, logger)

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	rateStore, err := rates.NewStore(&cfg.Rates, logger)
	if err != nil {
		return fmt.Errorf("create rates store: %w", err)
	}

	if cfg.Reminder.Enabled {
		reminder := scheduler.NewReminder(&cfg.Reminder, rateStore, logger)
		if err := reminder.Start(); err != nil {
			return fmt.Errorf("start reminder: %w", err)
		}
		defer reminder.Stop()
	}

	logger.Info("starting service",
		"port", cfg.Server.Port,
		"storage", store.Name(),
		"rates", cfg.Rates.Path,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(&cfg.Server, extractor, store, rateStore, metrics, logger)
	return server.Start(ctx)
}

// extractCmd creates the "extract" subcommand for one-shot extraction.
func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract a product's name and price from a URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 15*time.Second, "fetch timeout")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	rawURL := args[0]
	if err := config.ValidateURL(rawURL); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if timeout > 0 {
		cfg.Fetcher.Timeout = timeout
	}

	logger := setupLogger(&cfg.Logging)

	httpFetcher := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
	defer httpFetcher.Close()

	extractor := extract.New(httpFetcher, &cfg.Extract, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	info := extractor.Extract(ctx, rawURL)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

// ratesCmd creates the "rates" subcommand group.
func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Inspect or edit the exchange-rate table",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current rate table",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRates()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(store.Load())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <currency> <rate>",
		Short: "Set one currency's conversion rate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid rate %q: %w", args[1], err)
			}
			store, err := openRates()
			if err != nil {
				return err
			}
			if err := store.SetRate(args[0], rate); err != nil {
				return err
			}
			fmt.Printf("%s = %g\n", args[0], rate)
			return nil
		},
	})

	return cmd
}

func openRates() (*rates.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(&cfg.Logging)
	return rates.NewStore(&cfg.Rates, logger)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pricescout %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Server:\n")
			fmt.Printf("  Port:              %d\n", cfg.Server.Port)
			fmt.Printf("  Rate Limit:        %g req/s\n", cfg.Server.RequestsPerSecond)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Timeout:           %s\n", cfg.Fetcher.Timeout)
			fmt.Printf("  Follow Redirects:  %v\n", cfg.Fetcher.FollowRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nExtract:\n")
			if len(cfg.Extract.TitleRules) == 0 {
				fmt.Printf("  Title Rules:       built-in defaults\n")
			} else {
				fmt.Printf("  Title Rules:       %d configured\n", len(cfg.Extract.TitleRules))
			}
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("\nRates:\n")
			fmt.Printf("  Path:              %s\n", cfg.Rates.Path)
			fmt.Printf("  Commission:        %g%% (min %g)\n", cfg.Rates.CommissionRate*100, cfg.Rates.CommissionMin)
			fmt.Printf("\nReminder:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Reminder.Enabled)
			fmt.Printf("  Schedule:          %s\n", cfg.Reminder.Schedule)
			return nil
		},
	}
}

// setupLogger creates a structured logger from config.
func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	out := os.Stderr
	if cfg.Output == "stdout" {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}
