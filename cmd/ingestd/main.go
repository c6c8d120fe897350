// Ingestd runs the startup-intelligence content pipeline: it fetches
// news items per category, enhances them into long-form articles with a
// generative model, and serves the trigger/run-log API.
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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/pulsewire/ingest/internal/api"
	"github.com/pulsewire/ingest/internal/covergen"
	"github.com/pulsewire/ingest/internal/enhancer"
	"github.com/pulsewire/ingest/internal/ingest"
	"github.com/pulsewire/ingest/internal/newsapi"
	"github.com/pulsewire/ingest/internal/store"
	"github.com/pulsewire/ingest/pkg/config"
	"github.com/pulsewire/ingest/pkg/llm"
)

var version = "dev"

// appConfig is the full daemon configuration, loadable from YAML with
// env overrides.
type appConfig struct {
	Port              string         `yaml:"port" env:"PORT"`
	DBPath            string         `yaml:"db_path" env:"INGEST_DB"`
	JWTSecret         string         `yaml:"jwt_secret" env:"JWT_SECRET"`
	AdminPasswordHash string         `yaml:"admin_password_hash" env:"ADMIN_PASSWORD_HASH"`
	PlaceholderCover  string         `yaml:"placeholder_cover"`
	FontPath          string         `yaml:"font_path" env:"COVER_FONT"`
	ScheduleInterval  time.Duration  `yaml:"schedule_interval" env:"SCHEDULE_INTERVAL"`
	CallsPerMinute    int            `yaml:"calls_per_minute"`
	Debug             bool           `yaml:"debug" env:"DEBUG"`
	News              newsapi.Config `yaml:"news"`
	LLM               llm.Config     `yaml:"llm"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		Port:             "8080",
		DBPath:           "data/ingest.db",
		PlaceholderCover: "/covers/placeholder.png",
		ScheduleInterval: 6 * time.Hour,
		CallsPerMinute:   10,
		LLM:              llm.DefaultConfig(),
	}
}

func main() {
	// Best effort; the daemon also runs on plain env vars.
	_ = godotenv.Load()

	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "ingestd",
		Short: "Startup intelligence content pipeline",
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "ingestd.yaml", "config file path")

	rootCmd.AddCommand(serveCmd(&cfgPath))
	rootCmd.AddCommand(runCmd(&cfgPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	var noSchedule bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the ingestion scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return serve(cfg, noSchedule)
		},
	}

	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "disable the interval scheduler")
	return cmd
}

func runCmd(cfgPath *string) *cobra.Command {
	var category, query string
	var count int
	var noAI bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one ingestion pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return runOnce(cfg, category, query, count, !noAI)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "run one category instead of all")
	cmd.Flags().StringVar(&query, "query", "", "override the search query (requires --category)")
	cmd.Flags().IntVar(&count, "count", 0, "articles to fetch (requires --category)")
	cmd.Flags().BoolVar(&noAI, "no-ai", false, "skip generative enhancement")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("ingestd", version)
		},
	}
}

func loadConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()
	if err := config.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}

	if cfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Credentials have no compiled-in defaults; fail before the first run.
	if cfg.News.APIKey == "" {
		return cfg, fmt.Errorf("news API key is required (NEWS_API_KEY)")
	}
	if cfg.LLM.APIKey == "" {
		return cfg, fmt.Errorf("generative API key is required (GEMINI_API_KEY)")
	}
	return cfg, nil
}

// buildPipeline wires the store, clients, and orchestrator. The returned
// cleanup closes the store and the LLM client.
func buildPipeline(cfg appConfig) (*ingest.Orchestrator, *store.Store, func(), error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("create LLM client: %w", err)
	}

	// One token bucket shared by the news client and the enhancer keeps
	// total outbound call rate under upstream limits.
	perMinute := cfg.CallsPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)

	orch := ingest.NewOrchestrator(
		newsapi.NewClient(cfg.News, limiter),
		enhancer.New(client, limiter, 0),
		st,
		ingest.NewStoreSink(st),
		ingest.NewAssembler(cfg.PlaceholderCover),
	)

	cleanup := func() {
		_ = client.Close()
		_ = st.Close()
	}
	return orch, st, cleanup, nil
}

func runOnce(cfg appConfig, category, query string, count int, useAI bool) error {
	orch, _, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()

	if category != "" {
		n, err := orch.RunCategory(ctx, ingest.Params{
			Query:          query,
			Category:       category,
			ArticlesNeeded: count,
			UseAI:          useAI,
		})
		if err != nil {
			return err
		}
		slog.Info("category run complete", "category", category, "articles", n)
		return nil
	}

	summary := orch.RunAll(ctx)
	slog.Info("full run complete",
		"articles", summary.ArticlesGenerated,
		"errors", summary.ErrorsEncountered)
	return nil
}

func serve(cfg appConfig, noSchedule bool) error {
	orch, st, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (JWT_SECRET)")
	}
	if cfg.AdminPasswordHash == "" {
		return fmt.Errorf("admin password hash is required (ADMIN_PASSWORD_HASH)")
	}

	server := api.NewServer(orch, st, covergen.New(cfg.FontPath), cfg.JWTSecret, cfg.AdminPasswordHash)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: corsMiddleware(server.Routes()),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !noSchedule {
		scheduler := ingest.NewScheduler(orch, cfg.ScheduleInterval)
		go scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	go func() {
		slog.Info("starting API server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	return nil
}

// corsMiddleware allows the local dashboard during development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "http://localhost:3000")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
