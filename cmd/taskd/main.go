package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"taskd/internal/config"
	"taskd/internal/db"
	"taskd/internal/metrics"
	"taskd/internal/runner"
	"taskd/internal/tasks"
	"taskd/internal/telemetry"
	"taskd/internal/web"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "taskd",
	Short: "Persistent dependency-aware task scheduler",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler daemon and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.BindPFlag("http_addr", cmd.Flags().Lookup("http-addr"))
		viper.BindPFlag("database_url", cmd.Flags().Lookup("db"))
		viper.BindPFlag("max_concurrent_tasks", cmd.Flags().Lookup("workers"))
		viper.BindPFlag("scheduler_poll_interval_ms", cmd.Flags().Lookup("poll-interval"))

		cfg := config.Load(cfgFile)
		telemetry.InitLogger(cfg.LogLevel, cfg.LogFile)

		return serve(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	serveCmd.Flags().String("http-addr", ":8080", "HTTP listen address")
	serveCmd.Flags().String("db", "", "database URL (postgres://... or SQLite file path)")
	serveCmd.Flags().Int("workers", 3, "maximum concurrently executing tasks")
	serveCmd.Flags().Int("poll-interval", 500, "scheduler poll interval in milliseconds")

	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.NewStore(db.ParseDatabaseURL(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	// Requeue anything a previous process left RUNNING before the loop
	// starts producing work.
	if _, err := runner.Recover(ctx, store); err != nil {
		return fmt.Errorf("startup recovery: %w", err)
	}

	m := metrics.New()
	pool := runner.NewPool(cfg.MaxConcurrentTasks)
	pool.Start()

	exec := runner.NewExecutor(store, m, nil)
	sched := runner.NewScheduler(store, pool, exec, m, cfg.PollInterval)
	service := tasks.NewService(store)
	server := web.NewServer(store, service, m, cfg.HTTPAddr)

	slog.Info("starting scheduler daemon",
		"db", cfg.DatabaseURL,
		"max_concurrent_tasks", cfg.MaxConcurrentTasks,
		"poll_interval", cfg.PollInterval,
		"http_addr", cfg.HTTPAddr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return server.Start(gctx)
	})

	err = g.Wait()

	// Drain in-flight tasks so their terminal status lands in the store.
	pool.Stop()

	if err != nil {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
