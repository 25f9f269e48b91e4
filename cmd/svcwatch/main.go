// Package main is the entry point for svcwatch, the service-health reporter.
// It loads the layered configuration, wires the watch pipeline, starts the
// scheduler and runs as either a Windows service or a foreground process.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Guliveer/svcwatch/internal/config"
	"github.com/Guliveer/svcwatch/internal/metrics"
	"github.com/Guliveer/svcwatch/internal/process"
	"github.com/Guliveer/svcwatch/internal/scheduler"
	"github.com/Guliveer/svcwatch/internal/service"
	"github.com/Guliveer/svcwatch/internal/submit"
	"github.com/Guliveer/svcwatch/internal/transport"
	"github.com/Guliveer/svcwatch/internal/watch"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file (default: search standard locations)")
	monitorHost = flag.String("monitor-host", "", "Monitor host URL (overrides config and env)")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
	once        = flag.Bool("once", false, "Run one cycle per service, print the reports as JSON and exit")
	showVersion = flag.Bool("version", false, "Show version and exit")
	install     = flag.Bool("install", false, "Register svcwatch as a system service (Windows SCM or systemd) and exit")
	uninstall   = flag.Bool("uninstall", false, "Remove the system service registration and exit")
	writeConfig = flag.String("write-config", "", "Write the resolved configuration to this path and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("svcwatch %s\n", version)
		os.Exit(0)
	}

	if *install || *uninstall {
		if err := manageService(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	cli := config.CLIOverrides{MonitorHost: *monitorHost, LogLevel: *logLevel}
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadLayered(cli, embeddedConfig, *configPath)
	} else {
		cfg, err = config.LoadLayered(cli, embeddedConfig)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting svcwatch",
		zap.String("version", version),
		zap.String("monitor_host", cfg.Monitor.Host),
		zap.Int("services", len(cfg.Services)))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if *writeConfig != "" {
		if err := config.WriteConfig(cfg, *writeConfig); err != nil {
			logger.Fatal("Failed to write config", zap.Error(err))
		}
		logger.Info("Configuration written", zap.String("path", *writeConfig))
		return
	}

	if *once {
		if err := runOnce(cfg, logger); err != nil {
			logger.Error("Watch cycle failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if service.IsWindowsService() {
		logger.Info("Running as Windows service")
		svc := service.New(logger, func(ctx context.Context) {
			run(ctx, cfg, logger)
		})
		if err := svc.Run(); err != nil {
			logger.Fatal("Service failed", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	run(ctx, cfg, logger)
	logger.Info("svcwatch stopped")
}

// manageService handles -install and -uninstall.
func manageService() error {
	if *uninstall {
		return service.Uninstall()
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable: %w", err)
	}
	var args []string
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}
	return service.Install(exe, args...)
}

// run wires the pipeline and blocks until the context is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	watcher, closeFn, err := newWatcher(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer closeFn()

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, cfg.Metrics.Path, logger); err != nil {
				logger.Error("Metrics listener failed", zap.Error(err))
			}
		}()
	}

	sched := scheduler.New(watcher, cfg, logger)
	sched.OnOutcome(func(o scheduler.Outcome) {
		if o.Err == nil && o.Result.SubmitErr != nil {
			logger.Warn("Report not delivered",
				zap.String("service", o.Service),
				zap.String("cycle_id", o.Result.CycleID))
		}
	})
	sched.Start(ctx)
}

// runOnce runs a single round and writes the reports to stdout.
func runOnce(cfg *config.Config, logger *zap.Logger) error {
	watcher, closeFn, err := newWatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	outcomes := scheduler.New(watcher, cfg, logger).RunOnce(context.Background())

	reports := make(map[string]any, len(outcomes))
	var failed error
	for _, o := range outcomes {
		if o.Err != nil {
			reports[o.Service] = map[string]string{"error": o.Err.Error()}
			if failed == nil {
				failed = fmt.Errorf("%s: %w", o.Service, o.Err)
			}
			continue
		}
		reports[o.Service] = o.Result.Report
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return err
	}
	return failed
}

// newWatcher builds the watch pipeline. The returned func releases the
// submitter's connection, if it holds one.
func newWatcher(cfg *config.Config, logger *zap.Logger) (*watch.Watcher, func(), error) {
	sub, err := submit.New(cfg.Monitor, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating submitter: %w", err)
	}
	if sub == nil {
		logger.Warn("No monitor host configured, reports will only be logged")
	}

	closeFn := func() {}
	if c, ok := sub.(io.Closer); ok {
		closeFn = func() {
			if err := c.Close(); err != nil {
				logger.Warn("Closing submitter", zap.Error(err))
			}
		}
	}

	watcher := watch.New(watch.Deps{
		Client:    transport.NewClient(cfg.Collection.HTTPTimeout.Duration),
		Manager:   process.NewPM2(cfg.PM2.Bin, nil, logger),
		Submitter: sub,
	}, logger)
	return watcher, closeFn, nil
}

// initLogger creates a zap logger based on the configuration.
// It outputs to both console (human-readable) and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Console output goes to stderr so -once keeps stdout for JSON.
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
