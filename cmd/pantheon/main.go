package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/TobiSchelling/pantheon/internal/article"
	"github.com/TobiSchelling/pantheon/internal/config"
	"github.com/TobiSchelling/pantheon/internal/database"
	"github.com/TobiSchelling/pantheon/internal/logger"
	"github.com/TobiSchelling/pantheon/internal/report"
	"github.com/TobiSchelling/pantheon/internal/server"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	log        *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "pantheon",
	Short:        "Catalog of historical figures",
	Long:         "Pantheon keeps a catalog of historical figures, their birthplaces and occupations, and reports statistics over it.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		var err error
		path, resolveErr := config.ResolveConfigPath(configPath)
		switch {
		case resolveErr == nil:
			cfg, err = config.Load(path)
		case configPath != "":
			return resolveErr
		default:
			cfg, err = config.Default()
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if verbose {
			cfg.Logging.Level = "debug"
		}
		log = logger.New(cfg.Logging)
		slog.SetDefault(log)
		if resolveErr != nil {
			log.Debug("no config file found, using built-in defaults")
		} else {
			log.Debug("config loaded", "path", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("pantheon", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/pantheon/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the data directory, page size and import delimiter.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Catalog:")
		fmt.Printf("  Figures: %s\n", humanize.Comma(int64(stats.TotalFigures)))
		fmt.Printf("  Countries: %s\n", humanize.Comma(int64(stats.TotalCountries)))
		fmt.Printf("  Cities: %s\n", humanize.Comma(int64(stats.TotalCities)))
		fmt.Printf("  Occupations: %s\n", humanize.Comma(int64(stats.TotalOccupations)))
		return nil
	},
}

// --- analyze command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print the statistics report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := report.Build(cmd.Context(), db, cfg.Report)
		if err != nil {
			return fmt.Errorf("building report: %w", err)
		}
		return report.WriteText(cmd.OutOrStdout(), r)
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		err = server.Serve(ctx, db, cfg, log, port)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- fetch command ---

var fetchLimit int

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch article summaries for figures that have none",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := article.NewFetcher(db, cfg.Fetch).FetchMissing(ctx, fetchLimit)
		if err != nil {
			return err
		}

		fmt.Println("\nFetch complete:")
		fmt.Printf("  Summaries stored: %d\n", result.Fetched)
		fmt.Printf("  No usable text: %d\n", result.Empty)
		fmt.Printf("  Failed: %d\n", result.Failed)
		return nil
	},
}

func init() {
	fetchCmd.Flags().IntVarP(&fetchLimit, "limit", "n", 50, "Maximum number of figures to fetch")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "pantheon.db")
	return database.Open(dbPath)
}

