package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/catalog/internal/config"
	"github.com/TobiSchelling/catalog/internal/feedimport"
	"github.com/TobiSchelling/catalog/internal/logging"
	"github.com/TobiSchelling/catalog/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "catalog",
	Short:   "Searchable catalog of articles and code snippets",
	Long:    "catalog serves a small web app to search articles by free text and add new ones, backed by a hosted Postgres REST API.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger, err = logging.New(cfg.Logging.Level, verbose)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		if path != "" {
			logger.Debug("config loaded", zap.String("path", path))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(importCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("catalog", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config to the XDG config directory",
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
		fmt.Println("Set SUPABASE_URL and SUPABASE_KEY (or a .env file) to reach your store.")
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		srv, err := server.New(app.svc, logger)
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.ListenAndServe(cmd.Context(), fmt.Sprintf("127.0.0.1:%d", port))
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- add command ---

var (
	addTitle       string
	addDescription string
	addCode        string
	addCodeFile    string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an article",
	RunE: func(cmd *cobra.Command, args []string) error {
		code := addCode
		if addCodeFile != "" {
			data, err := os.ReadFile(addCodeFile)
			if err != nil {
				return fmt.Errorf("reading code file: %w", err)
			}
			code = string(data)
		}

		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		out := app.svc.Insert(cmd.Context(), newArticle(addTitle, addDescription, code))
		if !out.OK() {
			if out.Err != nil {
				return fmt.Errorf("article not added (%s): %w", out.Reason, out.Err)
			}
			return fmt.Errorf("article not added (%s)", out.Reason)
		}
		if out.Article != nil {
			fmt.Printf("Added article [%d]: %s\n", out.Article.ID, out.Article.Title)
		} else {
			fmt.Println("Article added")
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Article title (required)")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Article description (required)")
	addCmd.Flags().StringVar(&addCode, "code", "", "Code; separate blocks with a blank line")
	addCmd.Flags().StringVar(&addCodeFile, "code-file", "", "Read code from a file")
	addCmd.MarkFlagsMutuallyExclusive("code", "code-file")
}

// --- search command ---

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search articles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.store.Search(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		if res.Error != nil {
			return fmt.Errorf("search failed: %w", res.Error)
		}
		printArticles(os.Stdout, res.Data)
		return nil
	},
}

// --- import command ---

var fetchExcerpt bool

var importCmd = &cobra.Command{
	Use:   "import [feed-url]",
	Short: "Import entries of an RSS/Atom feed as articles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		opts := []feedimport.Option{feedimport.WithLogger(logger)}
		if fetchExcerpt || cfg.Import.FetchExcerpt {
			opts = append(opts, feedimport.WithExcerpts(feedimport.NewExcerptFetcher(cfg.Import.Timeout)))
		}

		summary, err := feedimport.New(app.svc, opts...).Import(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Println("Import complete:")
		fmt.Printf("  Entries found: %d\n", summary.Found)
		fmt.Printf("  Inserted: %d\n", summary.Inserted)
		fmt.Printf("  Skipped (missing title or description): %d\n", summary.Skipped)
		fmt.Printf("  Failed: %d\n", summary.Failed)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&fetchExcerpt, "fetch-excerpt", false, "Fetch a description from the linked page when the entry has none")
}
