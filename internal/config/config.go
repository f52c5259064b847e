// Package config provides the configuration structure for tts-studio.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override, e.g. TTS_STUDIO_REMOTE_BASE_URL.
const EnvPrefix = "TTS_STUDIO_"

// Speech engine kinds.
const (
	EngineEspeak    = "espeak"
	EngineSay       = "say"
	EngineSimulated = "simulated"
)

// Download sink kinds.
const (
	SinkFile = "file"
	SinkNATS = "nats"
)

// Validation errors.
var (
	ErrUnknownEngine      = errors.New("unknown speech engine")
	ErrUnknownSink        = errors.New("unknown download sink")
	ErrRateRange          = errors.New("rate bounds are invalid")
	ErrPitchRange         = errors.New("pitch bounds are invalid")
	ErrTimeoutNonPositive = errors.New("remote timeout must be positive")
	ErrBaseURLEmpty       = errors.New("remote base url cannot be empty")
	ErrFileNameInvalid    = errors.New("download file name must have an extension")
	ErrNATSURLEmpty       = errors.New("nats url is required for the nats sink")
	ErrMaxUploadBytes     = errors.New("max upload bytes must be positive")
	ErrRetryDelayNegative = errors.New("voices retry delay cannot be negative")
	ErrOptionOutOfBounds  = errors.New("option outside configured bounds")
)

const (
	errFmtReadConfigFile   = "failed to read config file %s: %w"
	errFmtDecodeConfigFile = "failed to decode config file %s: %w"
)

// SpeechConfig configures the host speech engine and playback bounds.
type SpeechConfig struct {
	Engine             string    `env:"ENGINE"                toml:"engine"`
	BinaryPath         string    `env:"BINARY_PATH"           toml:"binary_path"`
	VoicesDir          string    `env:"VOICES_DIR"            toml:"voices_dir"`
	VoicesRetryDelayMS int       `env:"VOICES_RETRY_DELAY_MS" toml:"voices_retry_delay_ms"`
	RateMin            float64   `env:"RATE_MIN"              toml:"rate_min"`
	RateMax            float64   `env:"RATE_MAX"              toml:"rate_max"`
	PitchMin           float64   `env:"PITCH_MIN"             toml:"pitch_min"`
	PitchMax           float64   `env:"PITCH_MAX"             toml:"pitch_max"`
	DefaultRate        float64   `env:"DEFAULT_RATE"          toml:"default_rate"`
	DefaultPitch       float64   `env:"DEFAULT_PITCH"         toml:"default_pitch"`
	RateOptions        []float64 `env:"RATE_OPTIONS"          toml:"rate_options"`
	PitchOptions       []float64 `env:"PITCH_OPTIONS"         toml:"pitch_options"`
}

// RemoteConfig configures the remote render backend.
type RemoteConfig struct {
	BaseURL        string   `env:"BASE_URL"        toml:"base_url"`
	Endpoint       string   `env:"ENDPOINT"        toml:"endpoint"`
	VoicesEndpoint string   `env:"VOICES_ENDPOINT" toml:"voices_endpoint"`
	TimeoutSeconds int      `env:"TIMEOUT_SECONDS" toml:"timeout_seconds"`
	DefaultVoice   string   `env:"DEFAULT_VOICE"   toml:"default_voice"`
	DefaultModel   string   `env:"DEFAULT_MODEL"   toml:"default_model"`
	VoiceOptions   []string `env:"VOICE_OPTIONS"   toml:"voice_options"`
	ModelOptions   []string `env:"MODEL_OPTIONS"   toml:"model_options"`
}

// DownloadConfig configures where rendered files are saved.
type DownloadConfig struct {
	Sink      string `env:"SINK"       toml:"sink"`
	OutputDir string `env:"OUTPUT_DIR" toml:"output_dir"`
	FileName  string `env:"FILE_NAME"  toml:"file_name"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                    string `env:"URL"                       toml:"url"`
	AudioObjectStoreBucket string `env:"AUDIO_OBJECT_STORE_BUCKET" toml:"audio_object_store_bucket"`
	AudioCreatedSubject    string `env:"AUDIO_CREATED_SUBJECT"     toml:"audio_created_subject"`
}

// TextConfig configures text resolution.
type TextConfig struct {
	Normalize      bool  `env:"NORMALIZE"        toml:"normalize"`
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" toml:"max_upload_bytes"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `env:"BASE_LOGS_DIR" toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Speech   SpeechConfig   `envPrefix:"SPEECH_"   toml:"speech"`
	Remote   RemoteConfig   `envPrefix:"REMOTE_"   toml:"remote"`
	Download DownloadConfig `envPrefix:"DOWNLOAD_" toml:"download"`
	NATS     NATSConfig     `envPrefix:"NATS_"     toml:"nats"`
	Text     TextConfig     `envPrefix:"TEXT_"     toml:"text"`
	Paths    PathsConfig    `envPrefix:"PATHS_"    toml:"paths"`
}

// Load locates the project configuration through the central configurator,
// then applies environment overrides and defaults.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finish(&cfg)
}

// LoadFile decodes the TOML file at path, then applies environment overrides
// and defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf(errFmtReadConfigFile, path, err)
	}

	var cfg Config

	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf(errFmtDecodeConfigFile, path, err)
	}

	return finish(&cfg)
}

// FromEnv builds a configuration from defaults and environment overrides only.
func FromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
