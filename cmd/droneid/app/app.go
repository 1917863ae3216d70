package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/skywatch/droneid/internal/sdr"
	"github.com/skywatch/droneid/internal/storage"
)

const storageDir = "data"

// Run wires the receiver, storage and orchestrator together and runs the
// session until the context is cancelled or the sample source runs dry.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	recv, err := createReceiver(&config.Receiver, logger)
	if err != nil {
		return fmt.Errorf("failed to create receiver: %w", err)
	}
	defer recv.Close()

	var options []func(*Orchestrator)
	if config.Storage.Enabled {
		store, err := createStorage(&config.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer store.Close()

		options = append(options, WithStore(store, "replay"))
	}

	return NewOrchestrator(config, recv, logger, options...).Run(ctx)
}

func createReceiver(config *ReceiverConfig, logger *slog.Logger) (sdr.Receiver, error) {
	recv, err := sdr.NewReplayReceiver(config.ReplayFile, config.SampleRate, sdr.WithReplayLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating replay receiver: %w", err)
	}
	return recv, nil
}

func createStorage(config *StorageConfig) (storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("droneid_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}
