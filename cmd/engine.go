package cmd

import (
	"github.com/PolarWolf314/knox/internal/audit"
	"github.com/PolarWolf314/knox/internal/configs"
	"github.com/PolarWolf314/knox/internal/metrics"
	"github.com/PolarWolf314/knox/internal/utils"
	"github.com/PolarWolf314/knox/internal/vault"
	"github.com/PolarWolf314/knox/internal/workflows"
)

// engine is the wired set of services a command runs against.
type engine struct {
	settings *configs.Settings
	svc      *workflows.Service
	vaults   *vault.Manager
	metrics  *metrics.Collector
	audit    *audit.FileRecorder
}

// newEngine loads the configuration and builds the service, vault manager
// and their collaborators.
func newEngine() (*engine, error) {
	Logger.Debugf("Loading configuration from %q", configPath)
	settings, err := configs.Load(configPath)
	if err != nil {
		return nil, Logger.ErrorfAndReturn("failed to load configuration: %w", err)
	}
	cfg, err := settings.EngineConfig()
	if err != nil {
		return nil, Logger.ErrorfAndReturn("invalid configuration: %w", err)
	}
	Logger.Debugf("Engine config: algorithm=%s kdf=%s chunk=%d workers=%d",
		cfg.Algorithm, cfg.KDF.Algorithm, cfg.ChunkSize, cfg.Workers)

	username, err := utils.GetUsername()
	if err != nil {
		Logger.Warnf("Could not determine the current user for the audit log: %v", err)
	}

	recorder := audit.NewFileRecorder(settings.AuditLog, username)
	collector := metrics.New()
	svc, err := workflows.New(cfg,
		workflows.WithLogger(Logger),
		workflows.WithRecorder(recorder),
		workflows.WithMetrics(collector),
	)
	if err != nil {
		return nil, Logger.ErrorfAndReturn("failed to start engine: %w", err)
	}

	return &engine{
		settings: settings,
		svc:      svc,
		vaults:   vault.NewManager(svc, configs.NewFileRegistry(settings.Registry)),
		metrics:  collector,
		audit:    recorder,
	}, nil
}
