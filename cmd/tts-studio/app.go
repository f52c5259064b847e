package main

import (
	"context"
	"fmt"
	"os"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/config"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/download"
	"github.com/book-expert/tts-studio/internal/engine"
	"github.com/book-expert/tts-studio/internal/fileutil"
	"github.com/book-expert/tts-studio/internal/objectstore"
	"github.com/book-expert/tts-studio/internal/remote"
	"github.com/book-expert/tts-studio/internal/session"
	"github.com/book-expert/tts-studio/internal/status"
	"github.com/book-expert/tts-studio/internal/textsource"
	"github.com/book-expert/tts-studio/internal/textsource/text"
	"github.com/book-expert/tts-studio/internal/voices"
	"github.com/nats-io/nats.go"
)

const (
	bootstrapLogFile = "tts-studio-bootstrap.log"
	logFile          = "tts-studio.log"
)

// app holds everything a command needs and releases it on close.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	engine  engine.Engine
	remote  *remote.Client
	session *session.Session
	conn    *nats.Conn
}

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	err := fileutil.EnsureDir(logPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

func loadConfig(configPath string, log *logger.Logger) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}

	cfg, err := config.Load(log)
	if err == nil {
		return cfg, nil
	}

	log.Warn("No project configuration found (%v), using defaults and environment", err)

	return config.FromEnv()
}

// newApp runs the two-phase bootstrap and wires every component.
func newApp(ctx context.Context, configPath string) (*app, error) {
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	defer func() { _ = bootstrapLog.Close() }()

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := loadConfig(configPath, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	log, err := setupLogger(cfg.Paths.BaseLogsDir, logFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return nil, fmt.Errorf("failed to create final logger: %w", err)
	}

	application := &app{cfg: cfg, log: log}

	application.engine, err = engine.New(cfg.Speech, log)
	if err != nil {
		application.close()

		return nil, fmt.Errorf("failed to create speech engine: %w", err)
	}

	sink, err := application.newSink(ctx)
	if err != nil {
		application.close()

		return nil, err
	}

	var normalizer *text.Normalizer
	if cfg.Text.Normalize {
		normalizer = text.NewNormalizer()
	}

	application.remote = remote.NewClient(remote.Options{
		BaseURL:        cfg.Remote.BaseURL,
		Endpoint:       cfg.Remote.Endpoint,
		VoicesEndpoint: cfg.Remote.VoicesEndpoint,
		FileName:       cfg.Download.FileName,
		Timeout:        cfg.Remote.Timeout(),
	}, log)

	application.session = session.New(session.Deps{
		Engine:   application.engine,
		Status:   status.NewReporter(log),
		Text:     textsource.NewManager(cfg.Text.MaxUploadBytes, normalizer, log),
		Catalog:  voices.NewCatalog(application.engine, cfg.Speech.VoicesRetryDelay(), log),
		Renderer: application.remote,
		Sink:     sink,
		Log:      log,
	}, session.OptionsFromConfig(cfg))

	log.System("tts-studio initialized (engine %s, backend %s, sink %s)",
		cfg.Speech.Engine, cfg.Remote.BaseURL, cfg.Download.Sink)

	return application, nil
}

func (a *app) newSink(ctx context.Context) (core.Sink, error) {
	if a.cfg.Download.Sink != config.SinkNATS {
		return download.NewFileSink(a.cfg.Download.OutputDir, a.log), nil
	}

	conn, err := objectstore.Connect(a.cfg.NATS.URL)
	if err != nil {
		return nil, err
	}

	a.conn = conn

	store, err := objectstore.New(ctx, conn, a.cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return nil, err
	}

	return download.NewObjectStoreSink(
		store,
		conn,
		a.cfg.NATS.AudioObjectStoreBucket,
		a.cfg.NATS.AudioCreatedSubject,
		a.log,
	), nil
}

func (a *app) close() {
	if a.engine != nil {
		closeErr := a.engine.Close()
		if closeErr != nil {
			a.log.Warn("Failed to close speech engine: %v", closeErr)
		}
	}

	if a.conn != nil {
		drainErr := a.conn.Drain()
		if drainErr != nil {
			a.log.Warn("Failed to drain NATS connection: %v", drainErr)
		}
	}

	closeErr := a.log.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
	}
}
