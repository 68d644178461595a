package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tipchain/config"
	gatewayconfig "tipchain/gateway/config"
	"tipchain/observability/logging"
	telemetry "tipchain/observability/otel"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to node configuration")
	flag.Parse()

	bootLogger := logging.Setup("tipd", os.Getenv("TIP_ENV"))
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "error", err)
		os.Exit(1)
	}

	logOpts := logging.Options{Service: "tipd", Env: cfg.Environment, Level: cfg.Log.Level}
	if cfg.Log.File != "" {
		logOpts.File = &logging.FileOptions{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   true,
		}
	}
	logger, logCloser := logging.SetupWithOptions(logOpts)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "tipd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     cfg.Telemetry.Headers,
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		logger.Error("failed to initialise telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(flushCtx)
	}()

	gw, err := gatewayconfig.Load(cfg.GatewayConfigFile)
	if err != nil {
		logger.Error("load gateway config", "error", err)
		os.Exit(1)
	}
	if err := gw.RequireSecret(); err != nil {
		logger.Error("gateway auth", "error", err)
		os.Exit(1)
	}

	n, err := openNode(cfg, logger)
	if err != nil {
		logger.Error("open node", "error", err)
		os.Exit(1)
	}
	defer n.Close()

	handler, err := n.handler(cfg, gw)
	if err != nil {
		logger.Error("configure routes", "error", err)
		os.Exit(1)
	}
	server := &http.Server{
		Addr:              gw.ListenAddress,
		Handler:           handler,
		ReadTimeout:       gw.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      gw.WriteTimeout,
		IdleTimeout:       gw.IdleTimeout,
	}

	listener, err := net.Listen("tcp", gw.ListenAddress)
	if err != nil {
		logger.Error("listen", "error", err)
		os.Exit(1)
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", listener.Addr().String(), "tls", gw.Security.TLSCertFile != "")
		if gw.Security.TLSCertFile != "" {
			serveErr <- server.ServeTLS(listener, gw.Security.TLSCertFile, gw.Security.TLSKeyFile)
			return
		}
		serveErr <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "error", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	logger.Info("tipd stopped")
}
