// Package config loads server and client runtime configuration from
// the environment using struct tags, so deployment differences (region
// name, queue poll interval, metrics port) never require a recompile.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig holds the settings the consumer process needs to create
// and drive a region.
type ServerConfig struct {
	RegionName          string        `env:"BEAMFORMER_SHM_NAME" envDefault:"/beamformer_shared_memory"`
	ReservedParamBlocks uint32        `env:"BEAMFORMER_RESERVED_PARAMETER_BLOCKS" envDefault:"1"`
	ExportPipeDir       string        `env:"BEAMFORMER_EXPORT_PIPE_DIR" envDefault:"/tmp"`
	QueuePollInterval   time.Duration `env:"BEAMFORMER_QUEUE_POLL_INTERVAL" envDefault:"200us"`
	MetricsAddr         string        `env:"BEAMFORMER_METRICS_ADDR" envDefault:":9090"`
	LogLevel            string        `env:"BEAMFORMER_LOG_LEVEL" envDefault:"info"`
}

// ClientConfig holds the settings a client attaching to an existing
// region needs.
type ClientConfig struct {
	RegionName    string        `env:"BEAMFORMER_SHM_NAME" envDefault:"/beamformer_shared_memory"`
	ExportPipeDir string        `env:"BEAMFORMER_EXPORT_PIPE_DIR" envDefault:"/tmp"`
	LockTimeout   time.Duration `env:"BEAMFORMER_LOCK_TIMEOUT" envDefault:"1s"`
}

// LoadServerConfig parses a ServerConfig from the process environment.
func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// LoadClientConfig parses a ClientConfig from the process environment.
func LoadClientConfig() (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}
