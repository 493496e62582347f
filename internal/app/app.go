package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"riftward/server/internal/ability"
	"riftward/server/internal/arena"
	servernet "riftward/server/internal/net"
	"riftward/server/internal/telemetry"
	"riftward/server/logging"
	loggingSinks "riftward/server/logging/sinks"
)

// EnvConfig is the process configuration, populated from the environment.
type EnvConfig struct {
	ListenAddr       string        `env:"RIFTWARD_LISTEN_ADDR" envDefault:":8080"`
	TickRate         int           `env:"RIFTWARD_TICK_RATE" envDefault:"15"`
	KeyframeInterval int           `env:"RIFTWARD_KEYFRAME_INTERVAL" envDefault:"30"`
	ResultWindow     int           `env:"RIFTWARD_RESULT_WINDOW" envDefault:"256"`
	DisconnectAfter  time.Duration `env:"RIFTWARD_DISCONNECT_AFTER" envDefault:"6s"`
	SigningKey       string        `env:"RIFTWARD_SIGNING_KEY"`
	AbilitiesFile    string        `env:"RIFTWARD_ABILITIES_FILE"`
	Loadout          []string      `env:"RIFTWARD_LOADOUT"`
	Seed             int64         `env:"RIFTWARD_SEED"`
	StaticDir        string        `env:"RIFTWARD_STATIC_DIR"`
	LogSinks         []string      `env:"RIFTWARD_LOG_SINKS" envDefault:"console"`
	LogFilePath      string        `env:"RIFTWARD_LOG_FILE" envDefault:"riftward-events.ndjson"`
	LogBufferSize    int           `env:"RIFTWARD_LOG_BUFFER" envDefault:"512"`
	LogSeverity      string        `env:"RIFTWARD_LOG_SEVERITY" envDefault:"info"`
}

// Config bundles the optional collaborators Run accepts from main.
type Config struct {
	Logger telemetry.Logger
}

// Run wires configuration, logging, the hub, and the HTTP surface, then
// serves until the context is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	var envCfg EnvConfig
	if err := env.Parse(&envCfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	if len(envCfg.SigningKey) > 64 {
		return fmt.Errorf("signing key must be at most 64 bytes, got %d", len(envCfg.SigningKey))
	}

	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = envCfg.LogSinks
	logConfig.BufferSize = envCfg.LogBufferSize
	logConfig.MinimumSeverity = logging.ParseSeverity(envCfg.LogSeverity)
	logConfig.JSON.FilePath = envCfg.LogFilePath

	sinks, cleanup, err := buildSinks(logConfig)
	if err != nil {
		return err
	}
	defer cleanup()

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := logging.NewMetrics()

	hubCfg := arena.DefaultHubConfig()
	hubCfg.TickRate = envCfg.TickRate
	hubCfg.KeyframeInterval = envCfg.KeyframeInterval
	hubCfg.ResultWindow = envCfg.ResultWindow
	hubCfg.DisconnectAfter = envCfg.DisconnectAfter
	hubCfg.SigningKey = []byte(envCfg.SigningKey)
	hubCfg.Seed = envCfg.Seed
	hubCfg.Logger = telemetryLogger
	hubCfg.Metrics = telemetry.WrapMetrics(metrics)
	hubCfg.Publisher = router
	if envCfg.AbilitiesFile != "" {
		registry, err := ability.LoadFile(envCfg.AbilitiesFile)
		if err != nil {
			return fmt.Errorf("failed to load ability catalog: %w", err)
		}
		hubCfg.Abilities = registry
	}
	if len(envCfg.Loadout) > 0 {
		hubCfg.Loadout = envCfg.Loadout
	}

	hub, err := arena.NewHub(hubCfg)
	if err != nil {
		return fmt.Errorf("failed to construct hub: %w", err)
	}

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Logger:    fallbackLogger,
		Telemetry: metrics,
		StaticDir: envCfg.StaticDir,
	})

	srv := &http.Server{Addr: envCfg.ListenAddr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	telemetryLogger.Printf("server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// buildSinks constructs the enabled sinks and a cleanup for any opened files.
func buildSinks(cfg logging.Config) ([]logging.NamedSink, func(), error) {
	var sinks []logging.NamedSink
	var files []*os.File
	cleanup := func() {
		for _, f := range files {
			f.Close()
		}
	}

	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{
			Name: "console",
			Sink: loggingSinks.NewConsole(os.Stdout, cfg.Console),
		})
	}
	if cfg.HasSink("json") {
		file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.JSON.FilePath, err)
		}
		files = append(files, file)
		sinks = append(sinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval),
		})
	}
	if cfg.HasSink("memory") {
		sinks = append(sinks, logging.NamedSink{
			Name: "memory",
			Sink: loggingSinks.NewMemory(),
		})
	}
	return sinks, cleanup, nil
}
