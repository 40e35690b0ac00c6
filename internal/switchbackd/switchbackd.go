package switchbackd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/evdal/switchback/internal/api"
	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/docker"
	"github.com/evdal/switchback/internal/logging"
	"github.com/evdal/switchback/internal/notify"
	"github.com/evdal/switchback/internal/orchestrator"
	"github.com/evdal/switchback/internal/probe"
	"github.com/evdal/switchback/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Run boots the daemon and blocks until SIGINT or SIGTERM. An empty
// configPath means the default location under the data directory.
func Run(configPath string) error {
	serverConfig, err := config.LoadServerConfig(resolveConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}
	if err := serverConfig.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	logBroker := logging.NewBroker()
	logLevel := logging.ParseLevel(serverConfig.LogLevel)
	logger := logging.NewLogger(logLevel, logBroker)

	if err := os.MkdirAll(serverConfig.DataDir, constants.ModeDirPrivate); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", serverConfig.DataDir, err)
	}

	db, err := store.New(serverConfig.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dockerClient, err := docker.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create docker client: %w", err)
	}
	defer dockerClient.Close()

	controller := docker.NewController(dockerClient, db, logger)
	prober := probe.NewHTTPProber(docker.ProbeAddress(dockerClient))

	var notifier notify.Notifier
	if serverConfig.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(serverConfig.WebhookURL, logger)
		logger.Info("Webhook notifications enabled", "url", serverConfig.WebhookURL)
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	orch := orchestrator.New(controller, prober, notifier, db, logger)
	orch.SetHistoryLimit(serverConfig.HistoryLimit)

	apiToken, err := config.LoadAPIToken()
	if err != nil {
		return err
	}

	server := api.NewServer(api.ServerOptions{
		Listen:   serverConfig.Listen,
		APIToken: apiToken,
		LogLevel: logLevel,
	}, orch, controller, db, logBroker, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	logger.Info("switchbackd started",
		"version", constants.Version,
		"listen", serverConfig.Listen,
		"dataDir", serverConfig.DataDir)

	select {
	case err := <-errChan:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	return nil
}

func resolveConfigPath(configPath string) string {
	if configPath != "" {
		return configPath
	}
	dataDir := constants.DefaultDataDir
	if fromEnv := os.Getenv(constants.EnvVarDataDir); fromEnv != "" {
		dataDir = fromEnv
	}
	return filepath.Join(dataDir, constants.ServerConfigFileName)
}
