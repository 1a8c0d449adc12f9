// Package cmd implements the phoque sub-commands.
package cmd

import (
	"fmt"
	"io"
	"os"

	"grimm.is/phoque/internal/config"
	"grimm.is/phoque/internal/firewall"
	"grimm.is/phoque/internal/i18n"
	"grimm.is/phoque/internal/logging"
	"grimm.is/phoque/internal/metrics"
	"grimm.is/phoque/internal/storage"
)

// Printer is the global message printer for the CLI
var Printer = i18n.NewCLIPrinter()

// Stdout receives command output. Stderr receives logs.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// BackendOptions are passed to every backend the CLI creates. Tests use it
// to swap in fake runners.
var BackendOptions []firewall.Option

// session is everything one command invocation needs.
type session struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Registry
	backend firewall.Backend
	manager *firewall.Manager
}

// openSession loads the configuration, sets up logging and opens the rule
// store. An unsupported operating system is reported before anything is
// read.
func openSession(configFile string) (*session, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{Level: level, Output: Stderr, JSON: cfg.LogJSON})
	logging.SetDefault(logger)

	opts := append([]firewall.Option{firewall.WithLogger(logger.WithComponent("firewall"))}, BackendOptions...)
	backend, err := firewall.DetectBackend(opts...)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Store, cfg.RulesFile, logger.WithComponent("storage"))
	if err != nil {
		return nil, err
	}

	reg := metrics.New()
	mgr, err := firewall.NewManager(store, backend,
		firewall.WithManagerLogger(logger.WithComponent("manager")),
		firewall.WithMetrics(reg),
		firewall.WithActiveOnly(cfg.ActiveOnly()),
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("session ready",
		"backend", backend.Name(),
		"store", cfg.Store,
		"rules_file", cfg.RulesFile,
		"active_only", cfg.ActiveOnly())

	return &session{
		cfg:     cfg,
		logger:  logger,
		metrics: reg,
		backend: backend,
		manager: mgr,
	}, nil
}

// close flushes metrics. A failure to write them never fails the command.
func (s *session) close() {
	if err := s.metrics.WriteTextfile(s.cfg.MetricsTextfile()); err != nil {
		s.logger.Warn("metrics not written", "error", err)
	}
}
