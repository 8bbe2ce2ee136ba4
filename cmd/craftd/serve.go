package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/craftd/craftd"
	"github.com/craftd/craftd/internal/logger"
)

const httpShutdownTimeout = 5 * time.Second

func createServeCommand(global *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the craftd daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(global.ConfigPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := craftd.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, closeLog := logger.New(cfg.Log)
	defer func() { _ = closeLog() }()
	slog.SetDefault(log)

	if err := craftd.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var sinks []craftd.HistorySink
	if cfg.HistoryDSN != "" {
		sink, err := craftd.NewHistorySink(cfg.HistoryDSN)
		if err != nil {
			return fmt.Errorf("open history sink: %w", err)
		}
		if c, ok := sink.(io.Closer); ok {
			defer func() { _ = c.Close() }()
		}
		sinks = append(sinks, sink)
	}

	mgr, err := craftd.New(craftd.ManagerOptions{
		DataDir:          cfg.DataDir,
		DefaultJavaPath:  cfg.JavaPath,
		StopCommand:      cfg.StopCommand,
		GracePeriod:      cfg.GracePeriod,
		JavaProbeTimeout: cfg.JavaProbeTimeout,
		ReadyPhrases:     cfg.ReadyPhrases,
		Logger:           log,
		HistorySinks:     sinks,
	})
	if err != nil {
		return err
	}
	if err := mgr.LoadAll(); err != nil {
		return err
	}

	apiSrv, err := craftd.NewHTTPServer(cfg.Listen, cfg.BasePath, mgr)
	if err != nil {
		return err
	}
	log.Info("api listening", "addr", cfg.Listen, "base_path", cfg.BasePath)

	var metricsSrv *http.Server
	if cfg.MetricsListen != "" {
		metricsSrv = &http.Server{
			Addr:              cfg.MetricsListen,
			Handler:           craftd.MetricsHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() { _ = metricsSrv.ListenAndServe() }()
		log.Info("metrics listening", "addr", cfg.MetricsListen)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	_ = apiSrv.Shutdown(ctx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
	}
	// Terminate child servers last so the API stops accepting lifecycle
	// requests first.
	mgr.Shutdown()
	return nil
}
