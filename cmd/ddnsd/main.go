package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Travis-Britz/ddnsd"
	"github.com/Travis-Britz/ddnsd/internal/config"
	"github.com/Travis-Britz/ddnsd/internal/log"
)

var (
	configFile  = flag.String("config", filepath.Join(os.Getenv("HOME"), ".ddnsd.yaml"), "Path to the configuration file")
	once        = flag.Bool("once", false, "Run a single check and exit")
	staticIP    = flag.String("ip", "", "IP address to set instead of looking one up")
	verbose     = flag.Bool("v", false, "Enable verbose logging")
	setup       = flag.Bool("setup", false, "Prompt for configuration values and save them")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9253")
)

func main() {
	flag.Parse()

	logger := log.MustNewLogger(*verbose).Named("main")
	defer func() {
		err := logger.Sync()
		var perr *fs.PathError
		if err != nil && !errors.As(err, &perr) {
			fmt.Fprintln(os.Stderr, err)
		}
	}()

	if err := run(logger); err != nil {
		logger.Error("ddnsd failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	if *setup || (!config.Exists(*configFile) && interactive) {
		logger.Info("running setup", zap.String("config", *configFile))
		if err := runSetup(*configFile, os.Stdin, os.Stdout, readSecret); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		if *setup {
			return nil
		}
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel, logger)

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error creating %s provider: %w", cfg.Provider, err)
	}
	resolver, err := buildResolver(cfg.Resolver, *staticIP)
	if err != nil {
		return fmt.Errorf("error creating resolver: %w", err)
	}

	sinks := []ddnsd.Sink{ddnsd.LogSink(logger.Named("reconciler")), ddnsd.LineSink(os.Stdout)}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		sinks = append(sinks, newCountdown(os.Stdout))
	}

	r, err := ddnsd.New(provider, resolver, cfg.Targets(),
		ddnsd.WithInterval(cfg.Interval.Duration()),
		ddnsd.WithName(cfg.Domain),
		ddnsd.WithLogger(logger),
		ddnsd.WithSink(ddnsd.Sinks(sinks...)),
	)
	if err != nil {
		return fmt.Errorf("error creating reconciler: %w", err)
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	if *once {
		return r.Cycle(ctx).Err()
	}

	if err := r.Start(ctx); err != nil {
		return err
	}
	r.Wait()
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if err := config.CheckPermissions(path); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

func handleSignals(cancel func(), logger *zap.Logger) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	logger.Info("received signal; stopping", zap.Stringer("signal", sig))
	cancel()
}
