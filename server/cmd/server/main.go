package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/regionstat/pkg/types"
	"github.com/obsidianstack/regionstat/server/internal/api"
	"github.com/obsidianstack/regionstat/server/internal/config"
	"github.com/obsidianstack/regionstat/server/internal/logging"
	"github.com/obsidianstack/regionstat/server/internal/metrics"
	"github.com/obsidianstack/regionstat/server/internal/query"
	"github.com/obsidianstack/regionstat/server/internal/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "regionstat-server",
		Short:         "Per-region latency and uptime summaries over a static telemetry dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newQueryCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the telemetry dataset and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, configPath, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	return cmd
}

func newQueryCommand() *cobra.Command {
	var configPath, dataPath, uptimeField string
	var regions []string
	var threshold int
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Summarise regions from the dataset and print JSON to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Defaults()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if dataPath != "" {
				cfg.Telemetry.Path = dataPath
			}
			if uptimeField != "" {
				cfg.Telemetry.UptimeField = uptimeField
			}

			st, err := store.Load(cfg.Telemetry.Path, store.Options{UptimeField: cfg.Telemetry.UptimeField})
			if err != nil {
				return err
			}
			resp := query.New(st, nil).Handle(types.QueryRequest{Regions: regions, ThresholdMs: threshold})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (optional)")
	cmd.Flags().StringVar(&dataPath, "data", "", "telemetry dataset file (overrides telemetry.path)")
	cmd.Flags().StringVar(&uptimeField, "uptime-field", "", "uptime field name in the dataset (overrides telemetry.uptime_field)")
	cmd.Flags().StringSliceVar(&regions, "region", nil, "region to summarise (repeatable)")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "latency breach threshold in milliseconds")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("threshold")
	return cmd
}

// serve runs the HTTP API until ctx is cancelled. A dataset that cannot be
// loaded is returned as an error before anything listens.
func serve(ctx context.Context, configPath string, stdout io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}

	logger := logging.New(cfg.Log, stdout)
	defer logger.Close() //nolint:errcheck
	slog.SetDefault(logger.Logger)

	slog.Info("regionstat-server starting", "config", configPath)
	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"telemetry_path", cfg.Telemetry.Path,
		"uptime_field", cfg.Telemetry.UptimeField,
		"rate_limit_rps", cfg.Server.RateLimit.RequestsPerSecond,
	)

	st, err := store.Load(cfg.Telemetry.Path, store.Options{UptimeField: cfg.Telemetry.UptimeField})
	if err != nil {
		slog.Error("failed to load telemetry dataset", "path", cfg.Telemetry.Path, "err", err)
		return err
	}
	slog.Info("telemetry loaded", "records", st.Len(), "regions", len(st.Regions()))

	reg := metrics.New(st)
	handler := api.New(query.New(st, reg), st, reg, api.Options{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CORS:         cfg.Server.CORS,
		RateLimit:    cfg.Server.RateLimit,
		Logger:       logger.Logger,
	})

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	grp, groupCtx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	grp.Go(func() error {
		<-groupCtx.Done()
		slog.Info("regionstat-server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	// Hot reload applies the log level only; the dataset is fixed for the
	// process lifetime.
	grp.Go(func() error {
		err := config.Watch(groupCtx, configPath, func(updated *config.Config) {
			logger.SetLevel(updated.Log.SlogLevel())
			slog.Info("log level updated", "level", logger.Level())
			if updated.Telemetry != cfg.Telemetry {
				slog.Warn("telemetry settings changed; restart to load the new dataset",
					"path", updated.Telemetry.Path)
			}
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
		return nil
	})

	if err := grp.Wait(); err != nil {
		slog.Error("regionstat-server stopped", "err", err)
		return err
	}
	return nil
}
