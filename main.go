package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"i4.energy/across/gpstracker/gpio"
	"i4.energy/across/gpstracker/gps"
	"i4.energy/across/gpstracker/modem"
	"i4.energy/across/gpstracker/telemetry"
	"i4.energy/across/gpstracker/tracker"
	"i4.energy/across/gpstracker/upload"
)

func main() {
	RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	configFile, _ := pflag.CommandLine.GetString("config")
	config, err := LoadConfig(WithDefaults(), WithFile(configFile), WithEnv(), WithFlags(pflag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(config)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		WithLogger(logger.With("component", "modem")).
		WithEchoOn(config.Echo).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	session, err := modem.New(ctx, modemConfig)
	if err != nil {
		logger.Error("Failed to open modem", "error", err, "port", config.SerialPort)
		os.Exit(1)
	}

	var powerLines modem.PowerLines
	lines, err := gpio.OpenLines(config.GPIOChip, config.PowerKeyLine, config.ResetLine)
	if err != nil {
		logger.Warn("Power control lines unavailable, hard reset disabled", "error", err)
	} else {
		powerLines = modem.PowerLines{PowerKey: lines.PowerKey, Reset: lines.Reset}
	}

	lifecycle := modem.NewLifecycle(session, powerLines, modem.LifecycleConfig{}, logger.With("component", "lifecycle"))
	receiver := gps.NewAcquisition(session, gps.Config{}, logger.With("component", "gps"))
	uploader := upload.NewSequencer(session, upload.Config{
		Host: config.UploadHost,
		Port: config.UploadPort,
		Path: config.UploadPath,
		APN:  config.APN,
	}, logger.With("component", "upload"))

	console := tracker.NewChannelConsole(16)

	var reporter tracker.Reporter
	if config.MQTTBroker != "" {
		publisher, err := telemetry.Connect(telemetry.Config{
			Broker:       config.MQTTBroker,
			Topic:        config.MQTTTopic,
			CommandTopic: config.MQTTTopic + "/command",
			OnCommand:    console.Submit,
		}, logger.With("component", "telemetry"))
		if err != nil {
			logger.Warn("Telemetry disabled", "error", err)
		} else {
			reporter = publisher
			defer publisher.Close()
		}
	}

	machine, err := tracker.New(tracker.Deps{
		Session:   session,
		Lifecycle: lifecycle,
		GPS:       receiver,
		Uploader:  uploader,
		Console:   console,
		Reporter:  reporter,
	}, tracker.Config{
		StartupDelay:       config.StartupDelay,
		ReadInterval:       config.ReadInterval,
		GPSTimeout:         config.GPSTimeout,
		ResetAfterFailures: config.ResetAfterFailures,
	}, logger.With("component", "tracker"))
	if err != nil {
		logger.Error("Failed to create tracker", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:  logger.With("component", "server"),
			Tracker: machine,
			Console: console,
		},
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	go readConsole(ctx, os.Stdin, console, logger.With("component", "console"))

	logger.Info("Starting GPS tracker", "port", config.SerialPort, "upload_host", config.UploadHost)

	// The module's power state is unknown at boot.
	_ = machine.HardReset(ctx)

	if err := machine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Tracker stopped", "error", err)
	}
	logger.Info("Received shutdown signal")

	logger.Info("Closing modem connection")
	if err := session.Close(); err != nil {
		logger.Error("Failed to close modem", "error", err)
	}
	if err := lines.Close(); err != nil {
		logger.Error("Failed to release power control lines", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger: JSON records for collectors, or
// charmbracelet/log's human readable output for a terminal.
func newLogger(config *Config) *slog.Logger {
	level := parseLevel(config.LogLevel)
	if config.LogFormat == "text" {
		handler := log.NewWithOptions(os.Stderr, log.Options{
			Level:           log.Level(level),
			ReportTimestamp: true,
			TimeFormat:      time.StampMilli,
		})
		return slog.New(handler)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
