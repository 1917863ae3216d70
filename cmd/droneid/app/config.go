package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skywatch/droneid/internal/dsp"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Receiver ReceiverConfig `yaml:"receiver"`
	Storage  StorageConfig  `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level maps the configured log level onto slog, defaulting to info.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
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

// ReceiverConfig represents the capture source and demodulation settings
type ReceiverConfig struct {
	// ReplayFile is the interleaved float32 I/Q file the receiver
	// replays. Hardware capture runs as an external frontend feeding
	// this format.
	ReplayFile string `yaml:"replayFile"`

	SampleRate float64 `yaml:"sampleRate"`      // Hz
	Gain       *int    `yaml:"gain"`            // dB, nil selects AGC
	Duration   float64 `yaml:"captureDuration"` // seconds per frequency hop
	Workers    int     `yaml:"workers"`
	Band24Only bool    `yaml:"band24Only"`
	Legacy     bool    `yaml:"legacy"`
	PacketType string  `yaml:"packetType"`
}

// PacketKind returns the burst envelope the detector looks for.
func (r ReceiverConfig) PacketKind() dsp.PacketType {
	return dsp.PacketType(r.PacketType)
}

// StorageConfig represents storage settings
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
}

var validPacketTypes = map[dsp.PacketType]struct{}{
	dsp.PacketDroneID: {},
	dsp.PacketC2:      {},
	dsp.PacketBeacon:  {},
	dsp.PacketPairing: {},
	dsp.PacketVideo:   {},
}

// LoadConfig reads and validates the YAML configuration at path,
// applying receiver defaults for absent fields.
func LoadConfig(path string) (*Config, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := Config{
		Receiver: ReceiverConfig{
			SampleRate: 50e6,
			Duration:   1.3,
			Workers:    2,
			PacketType: string(dsp.PacketDroneID),
		},
	}
	if err = yaml.Unmarshal(p, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if config.Receiver.ReplayFile == "" {
		return nil, fmt.Errorf("receiver.replayFile is required")
	}
	if config.Receiver.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid receiver.sampleRate %f", config.Receiver.SampleRate)
	}
	if config.Receiver.Duration <= 0 {
		return nil, fmt.Errorf("invalid receiver.captureDuration %f", config.Receiver.Duration)
	}
	if config.Receiver.Workers < 1 {
		return nil, fmt.Errorf("invalid receiver.workers %d", config.Receiver.Workers)
	}
	if _, ok := validPacketTypes[config.Receiver.PacketKind()]; !ok {
		return nil, fmt.Errorf("unknown receiver.packetType '%s'", config.Receiver.PacketType)
	}

	return &config, nil
}
