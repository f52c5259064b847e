package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"
)

const appName = "tts-studio"

// Default values.
const (
	DefaultEngine             = EngineEspeak
	DefaultVoicesRetryDelayMS = 100
	DefaultRateMin            = 0.5
	DefaultRateMax            = 2.0
	DefaultPitchMin           = 0.5
	DefaultPitchMax           = 2.0
	DefaultRate               = 1.0
	DefaultPitch              = 1.0
	DefaultBaseURL            = "http://127.0.0.1:5000"
	DefaultEndpoint           = "/api/tts"
	DefaultVoicesEndpoint     = "/api/voices"
	DefaultTimeoutSeconds     = 60
	DefaultRemoteVoice        = "alloy"
	DefaultRemoteModel        = "tts-1"
	DefaultSink               = SinkFile
	DefaultFileName           = "tts_output.mp3"
	DefaultBucket             = "AUDIO_FILES"
	DefaultAudioSubject       = "tts.audio.created"
	DefaultMaxUploadBytes     = 10 << 20
)

// Hard limits the configured bounds must stay within.
const (
	rateFloor    = 0.1
	rateCeiling  = 10.0
	pitchCeiling = 2.0
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()

	return cfg
}

// ApplyDefaults fills every zero value with its default.
func (c *Config) ApplyDefaults() {
	c.Speech.applyDefaults()
	c.Remote.applyDefaults()
	c.Download.applyDefaults()
	c.NATS.applyDefaults()

	if c.Text.MaxUploadBytes == 0 {
		c.Text.MaxUploadBytes = DefaultMaxUploadBytes
	}

	if c.Paths.BaseLogsDir == "" {
		c.Paths.BaseLogsDir = DefaultLogsDir()
	}
}

func (s *SpeechConfig) applyDefaults() {
	if s.Engine == "" {
		s.Engine = DefaultEngine
	}

	if s.BinaryPath == "" {
		s.BinaryPath = defaultBinary(s.Engine)
	}

	if s.VoicesRetryDelayMS == 0 {
		s.VoicesRetryDelayMS = DefaultVoicesRetryDelayMS
	}

	setFloat(&s.RateMin, DefaultRateMin)
	setFloat(&s.RateMax, DefaultRateMax)
	setFloat(&s.PitchMin, DefaultPitchMin)
	setFloat(&s.PitchMax, DefaultPitchMax)
	setFloat(&s.DefaultRate, DefaultRate)
	setFloat(&s.DefaultPitch, DefaultPitch)

	if len(s.RateOptions) == 0 {
		s.RateOptions = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}
	}

	if len(s.PitchOptions) == 0 {
		s.PitchOptions = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}
	}
}

func (r *RemoteConfig) applyDefaults() {
	setString(&r.BaseURL, DefaultBaseURL)
	setString(&r.Endpoint, DefaultEndpoint)
	setString(&r.VoicesEndpoint, DefaultVoicesEndpoint)
	setString(&r.DefaultVoice, DefaultRemoteVoice)
	setString(&r.DefaultModel, DefaultRemoteModel)

	if r.TimeoutSeconds == 0 {
		r.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if len(r.VoiceOptions) == 0 {
		r.VoiceOptions = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
	}

	if len(r.ModelOptions) == 0 {
		r.ModelOptions = []string{"tts-1", "tts-1-hd"}
	}
}

func (d *DownloadConfig) applyDefaults() {
	setString(&d.Sink, DefaultSink)
	setString(&d.FileName, DefaultFileName)

	if d.OutputDir == "" {
		d.OutputDir = DefaultOutputDir()
	}
}

func (n *NATSConfig) applyDefaults() {
	setString(&n.AudioObjectStoreBucket, DefaultBucket)
	setString(&n.AudioCreatedSubject, DefaultAudioSubject)
}

// VoicesRetryDelay returns the fixed delay before the single voice re-enumeration.
func (s SpeechConfig) VoicesRetryDelay() time.Duration {
	return time.Duration(s.VoicesRetryDelayMS) * time.Millisecond
}

// Timeout returns the remote request timeout.
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Validate checks the configuration for values the front-end cannot work with.
func (c *Config) Validate() error {
	speech := c.Speech

	if !slices.Contains([]string{EngineEspeak, EngineSay, EngineSimulated}, speech.Engine) {
		return fmt.Errorf("%w: %q", ErrUnknownEngine, speech.Engine)
	}

	if speech.VoicesRetryDelayMS < 0 {
		return fmt.Errorf("%w: %d", ErrRetryDelayNegative, speech.VoicesRetryDelayMS)
	}

	err := checkBounds(ErrRateRange, rateFloor, rateCeiling,
		speech.RateMin, speech.RateMax, speech.DefaultRate, speech.RateOptions)
	if err != nil {
		return err
	}

	err = checkBounds(ErrPitchRange, 0, pitchCeiling,
		speech.PitchMin, speech.PitchMax, speech.DefaultPitch, speech.PitchOptions)
	if err != nil {
		return err
	}

	if c.Remote.BaseURL == "" {
		return ErrBaseURLEmpty
	}

	if c.Remote.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: got %d", ErrTimeoutNonPositive, c.Remote.TimeoutSeconds)
	}

	if filepath.Ext(c.Download.FileName) == "" {
		return fmt.Errorf("%w: %q", ErrFileNameInvalid, c.Download.FileName)
	}

	switch c.Download.Sink {
	case SinkFile:
	case SinkNATS:
		if c.NATS.URL == "" {
			return ErrNATSURLEmpty
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSink, c.Download.Sink)
	}

	if c.Text.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: got %d", ErrMaxUploadBytes, c.Text.MaxUploadBytes)
	}

	return nil
}

// checkBounds validates a positive [lo, hi] range inside [floor, ceiling] that
// contains the default and every option.
func checkBounds(kind error, floor, ceiling, lo, hi, def float64, options []float64) error {
	if lo <= 0 || lo < floor || hi > ceiling || lo > hi {
		return fmt.Errorf("%w: [%.2f, %.2f]", kind, lo, hi)
	}

	if def < lo || def > hi {
		return fmt.Errorf("%w: default %.2f outside [%.2f, %.2f]", kind, def, lo, hi)
	}

	for _, option := range options {
		if option < lo || option > hi {
			return fmt.Errorf("%w: %w %.2f", kind, ErrOptionOutOfBounds, option)
		}
	}

	return nil
}

// DefaultLogsDir returns the per-user log directory.
func DefaultLogsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName, "logs")
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", appName)
	case "windows":
		return filepath.Join(home, "AppData", "Local", appName, "logs")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			return filepath.Join(xdg, appName, "logs")
		}

		return filepath.Join(home, ".local", "state", appName, "logs")
	}
}

// DefaultOutputDir returns the user's download directory, or the working
// directory when there is none.
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	downloads := filepath.Join(home, "Downloads")

	info, statErr := os.Stat(downloads)
	if statErr != nil || !info.IsDir() {
		return "."
	}

	return downloads
}

func defaultBinary(engine string) string {
	switch engine {
	case EngineSay:
		return "say"
	case EngineEspeak:
		return "espeak-ng"
	default:
		return ""
	}
}

func setString(target *string, def string) {
	if *target == "" {
		*target = def
	}
}

func setFloat(target *float64, def float64) {
	if *target == 0 {
		*target = def
	}
}
