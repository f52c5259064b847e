// Package session wires the text source, voice catalog, playback controller,
// remote render client and download sink into the operations the front-end
// exposes, and turns their errors into status messages.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/config"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/playback"
	"github.com/book-expert/tts-studio/internal/remote"
	"github.com/book-expert/tts-studio/internal/status"
	"github.com/book-expert/tts-studio/internal/textsource"
	"github.com/book-expert/tts-studio/internal/voices"
)

// Status messages.
const (
	msgFileLoaded        = "File loaded successfully!"
	msgUnsupportedFile   = "Please upload a .txt file"
	msgReadError         = "Error reading file"
	msgNoText            = "Please enter some text or upload a file"
	msgEngineUnsupported = "Speech engine not available. Install espeak-ng or set speech.engine in the configuration."
	msgEngineWarning     = "Warning: " + msgEngineUnsupported
	msgGenerating        = "Generating audio..."
	msgGenerated         = "Audio generated successfully! Click Play to hear it."
	msgGenerateFirst     = "Please generate audio first"
	msgPlaying           = "Playing audio..."
	msgPaused            = "Audio paused"
	msgResumed           = "Audio resumed"
	msgStopped           = "Audio stopped"
	msgFinished          = "Playback finished"
	msgNoDownloadText    = "No text to download"
	msgPreparing         = "Preparing download..."
	msgDownloaded        = "Audio downloaded successfully!"
)

const (
	msgFmtGenerateError = "Error generating audio: %s"
	msgFmtPlayError     = "Error playing audio: %s"
	msgFmtServerError   = "Error: %s"
	msgFmtDownloadError = "Error preparing download: %s"
	msgFmtUnavailable   = "Backend not available. To download audio files, start the render backend at %s. " +
		"Use Play to listen locally."
)

const (
	logFmtDownloadSaved = "Saved rendered audio to %s"
	logFmtDownloadFail  = "Download failed: %v"
)

var (
	// ErrNotGenerated rejects Play and Download before a successful Generate.
	ErrNotGenerated = errors.New("no generated audio")
	// ErrNoText rejects a download without text.
	ErrNoText = errors.New("no text to download")
)

// Renderer requests downloadable audio from the render backend.
type Renderer interface {
	RequestDownload(ctx context.Context, text, voiceID, modelID string) (*remote.Artifact, error)
	BaseURL() string
}

// Options are the selectable values and their starting points.
type Options struct {
	Bounds             playback.Bounds
	RateOptions        []float64
	PitchOptions       []float64
	DefaultRate        float64
	DefaultPitch       float64
	RemoteVoices       []string
	RemoteModels       []string
	DefaultRemoteVoice string
	DefaultRemoteModel string
}

// OptionsFromConfig reads Options from a validated configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Bounds: playback.Bounds{
			RateMin:  cfg.Speech.RateMin,
			RateMax:  cfg.Speech.RateMax,
			PitchMin: cfg.Speech.PitchMin,
			PitchMax: cfg.Speech.PitchMax,
		},
		RateOptions:        cfg.Speech.RateOptions,
		PitchOptions:       cfg.Speech.PitchOptions,
		DefaultRate:        cfg.Speech.DefaultRate,
		DefaultPitch:       cfg.Speech.DefaultPitch,
		RemoteVoices:       cfg.Remote.VoiceOptions,
		RemoteModels:       cfg.Remote.ModelOptions,
		DefaultRemoteVoice: cfg.Remote.DefaultVoice,
		DefaultRemoteModel: cfg.Remote.DefaultModel,
	}
}

// Deps are the components a Session drives.
type Deps struct {
	Engine   core.SpeechEngine
	Status   *status.Reporter
	Text     *textsource.Manager
	Catalog  *voices.Catalog
	Renderer Renderer
	Sink     core.Sink
	Log      *logger.Logger
}

// Snapshot is everything the front-end renders.
type Snapshot struct {
	View            View
	Text            string
	Upload          textsource.Upload
	VoiceLabel      string
	VoiceCount      int
	Rate            float64
	Pitch           float64
	RemoteVoice     string
	RemoteModel     string
	State           playback.State
	ControlsEnabled bool
	Status          status.Status
}

// Session is one user's front-end state.
type Session struct {
	engine   core.SpeechEngine
	status   *status.Reporter
	text     *textsource.Manager
	catalog  *voices.Catalog
	player   *playback.Controller
	renderer Renderer
	sink     core.Sink
	views    *Views
	opts     Options
	log      *logger.Logger

	mu          sync.Mutex
	rate        float64
	pitch       float64
	remoteVoice string
	remoteModel string
	generated   bool
}

// New creates a Session over deps.
func New(deps Deps, opts Options) *Session {
	s := &Session{
		engine:      deps.Engine,
		status:      deps.Status,
		text:        deps.Text,
		catalog:     deps.Catalog,
		player:      playback.NewController(deps.Engine, deps.Catalog, opts.Bounds, deps.Log),
		renderer:    deps.Renderer,
		sink:        deps.Sink,
		views:       NewViews(deps.Status),
		opts:        opts,
		log:         deps.Log,
		rate:        opts.DefaultRate,
		pitch:       opts.DefaultPitch,
		remoteVoice: opts.DefaultRemoteVoice,
		remoteModel: opts.DefaultRemoteModel,
	}

	s.player.Subscribe(s.onPlayback)

	return s
}

// Start enumerates voices and warns when the speech engine is unavailable.
func (s *Session) Start(ctx context.Context) error {
	if !s.engine.Available() {
		s.status.Error(msgEngineWarning)
	}

	_, err := s.catalog.Start(ctx)

	return err
}

// Player returns the playback controller.
func (s *Session) Player() *playback.Controller {
	return s.player
}

// Status returns the status reporter.
func (s *Session) Status() *status.Reporter {
	return s.status
}

// Catalog returns the voice catalog.
func (s *Session) Catalog() *voices.Catalog {
	return s.catalog
}

// SwitchView activates target and clears the status.
func (s *Session) SwitchView(target View) error {
	return s.views.Switch(target)
}

// NextView switches to the other view.
func (s *Session) NextView() View {
	return s.views.Next()
}

// SetText replaces the text box content.
func (s *Session) SetText(content string) {
	s.text.SetText(content)
}

// BrowseFile loads the file at path into the text box.
func (s *Session) BrowseFile(path string) error {
	return s.reportUpload(s.text.Browse(path))
}

// DropFile loads a file pasted or dropped onto the terminal.
func (s *Session) DropFile(pasted string) error {
	return s.reportUpload(s.text.Drop(pasted))
}

func (s *Session) reportUpload(err error) error {
	switch {
	case err == nil:
		s.status.Success(msgFileLoaded)
	case errors.Is(err, textsource.ErrUnsupportedFileType):
		s.status.Error(msgUnsupportedFile)
	case errors.Is(err, textsource.ErrNoPath):
	default:
		s.status.Error(msgReadError)
	}

	return err
}

// Generate validates the current text and settings and enables the
// transport controls. It produces no audio.
func (s *Session) Generate() error {
	text := s.text.ResolveText()
	if text == "" {
		s.setGenerated(false)
		s.status.Error(msgNoText)

		return fmt.Errorf("%w: %w", playback.ErrGeneration, playback.ErrEmptyInput)
	}

	if !s.engine.Available() {
		s.setGenerated(false)
		s.status.Error(msgEngineUnsupported)

		return fmt.Errorf("%w: %w", playback.ErrGeneration, playback.ErrEngineUnavailable)
	}

	s.status.Info(msgGenerating)

	_, err := s.player.Generate(text, s.settings())
	if err != nil {
		s.setGenerated(false)
		s.status.Error(fmt.Sprintf(msgFmtGenerateError, reason(err, playback.ErrGeneration)))

		return err
	}

	s.setGenerated(true)
	s.status.Success(msgGenerated)

	return nil
}

// Play speaks the current text box content with the current settings,
// cancelling anything already speaking.
func (s *Session) Play() (*core.Utterance, error) {
	if !s.ControlsEnabled() {
		s.status.Error(msgGenerateFirst)

		return nil, ErrNotGenerated
	}

	utterance, err := s.player.Play(s.text.ResolveText(), s.settings())
	if err != nil {
		if errors.Is(err, playback.ErrEmptyInput) {
			s.status.Error(msgNoText)
		} else {
			s.status.Error(fmt.Sprintf(msgFmtPlayError, reason(err, playback.ErrSpeechEngine)))
		}

		return nil, err
	}

	return utterance, nil
}

// TogglePause pauses when speaking and resumes when paused.
func (s *Session) TogglePause() (playback.EventKind, error) {
	if !s.ControlsEnabled() {
		return playback.EventNone, nil
	}

	kind, err := s.player.Toggle()
	if err != nil {
		s.status.Error(fmt.Sprintf(msgFmtPlayError, reason(err, playback.ErrSpeechEngine)))
	}

	return kind, err
}

// Stop cancels playback. It reports whether an utterance was active.
func (s *Session) Stop() bool {
	if !s.ControlsEnabled() {
		return false
	}

	stopped := s.player.Stop()
	s.status.Info(msgStopped)

	return stopped
}

// Download renders the current text remotely and saves the result to the
// sink. It returns where the file went.
func (s *Session) Download(ctx context.Context) (string, error) {
	if !s.ControlsEnabled() {
		s.status.Error(msgGenerateFirst)

		return "", ErrNotGenerated
	}

	return s.download(ctx)
}

// DownloadNow renders and saves without the Generate gate.
func (s *Session) DownloadNow(ctx context.Context) (string, error) {
	return s.download(ctx)
}

func (s *Session) download(ctx context.Context) (string, error) {
	text := s.text.ResolveText()
	if text == "" {
		s.status.Error(msgNoDownloadText)

		return "", ErrNoText
	}

	s.status.Info(msgPreparing)

	s.mu.Lock()
	voiceID, modelID := s.remoteVoice, s.remoteModel
	s.mu.Unlock()

	artifact, err := s.renderer.RequestDownload(ctx, text, voiceID, modelID)
	if err != nil {
		s.logWarn(logFmtDownloadFail, err)

		var serverErr *remote.ServerError

		switch {
		case errors.Is(err, remote.ErrNetworkUnavailable):
			s.status.Info(fmt.Sprintf(msgFmtUnavailable, s.renderer.BaseURL()))
		case errors.As(err, &serverErr):
			s.status.Error(fmt.Sprintf(msgFmtServerError, serverErr.Message))
		default:
			s.status.Error(fmt.Sprintf(msgFmtDownloadError, err))
		}

		return "", err
	}

	location, err := s.sink.Save(ctx, artifact.Name, artifact.Data)
	if err != nil {
		s.logWarn(logFmtDownloadFail, err)
		s.status.Error(fmt.Sprintf(msgFmtDownloadError, err))

		return "", err
	}

	if s.log != nil {
		s.log.Info(logFmtDownloadSaved, location)
	}

	s.status.Success(msgDownloaded)

	return location, nil
}

// Configure selects the local voice by index and sets rate and pitch.
func (s *Session) Configure(voiceIndex int, rate, pitch float64) error {
	err := s.opts.Bounds.Check(playback.Settings{VoiceIndex: voiceIndex, Rate: rate, Pitch: pitch})
	if err != nil {
		return err
	}

	err = s.catalog.Select(voiceIndex)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rate = rate
	s.pitch = pitch
	s.mu.Unlock()

	return nil
}

// NextVoice cycles the local voice selection.
func (s *Session) NextVoice() string {
	return s.catalog.Label(s.catalog.Next())
}

// NextRate cycles through the rate options.
func (s *Session) NextRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rate = nextOption(s.opts.RateOptions, s.rate)

	return s.rate
}

// NextPitch cycles through the pitch options.
func (s *Session) NextPitch() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pitch = nextOption(s.opts.PitchOptions, s.pitch)

	return s.pitch
}

// NextRemoteVoice cycles the voice sent to the render backend.
func (s *Session) NextRemoteVoice() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remoteVoice = nextOption(s.opts.RemoteVoices, s.remoteVoice)

	return s.remoteVoice
}

// NextRemoteModel cycles the model sent to the render backend.
func (s *Session) NextRemoteModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remoteModel = nextOption(s.opts.RemoteModels, s.remoteModel)

	return s.remoteModel
}

// SetRemote sets the voice and model sent to the render backend. Empty
// values keep the current ones.
func (s *Session) SetRemote(voiceID, modelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if voiceID != "" {
		s.remoteVoice = voiceID
	}

	if modelID != "" {
		s.remoteModel = modelID
	}
}

// ControlsEnabled reports whether Generate has enabled the transport controls.
func (s *Session) ControlsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generated
}

// Snapshot returns the state to render.
func (s *Session) Snapshot() Snapshot {
	selected := s.catalog.Selected()
	list := s.catalog.Cached()

	label := voices.DefaultLabel
	if selected >= 0 && selected < len(list) {
		label = list[selected].Label()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		View:            s.views.Active(),
		Text:            s.text.Text(),
		Upload:          s.text.Upload(),
		VoiceLabel:      label,
		VoiceCount:      len(list),
		Rate:            s.rate,
		Pitch:           s.pitch,
		RemoteVoice:     s.remoteVoice,
		RemoteModel:     s.remoteModel,
		State:           s.player.State(),
		ControlsEnabled: s.generated,
		Status:          s.status.Current(),
	}
}

func (s *Session) settings() playback.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return playback.Settings{VoiceIndex: s.catalog.Selected(), Rate: s.rate, Pitch: s.pitch}
}

func (s *Session) setGenerated(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generated = enabled
}

func (s *Session) onPlayback(event playback.Event) {
	switch event.Kind {
	case playback.EventStarted:
		s.status.Info(msgPlaying)
	case playback.EventPaused:
		s.status.Info(msgPaused)
	case playback.EventResumed:
		s.status.Info(msgResumed)
	case playback.EventFinished:
		s.status.Success(msgFinished)
	case playback.EventFailed:
		s.status.Error(fmt.Sprintf(msgFmtPlayError, reason(event.Err, playback.ErrSpeechEngine)))
	case playback.EventNone, playback.EventStopped:
	}
}

func (s *Session) logWarn(format string, args ...any) {
	if s.log != nil {
		s.log.Warn(format, args...)
	}
}

// reason strips the sentinel prefix from err's message.
func reason(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

// nextOption returns the option after current, or the first one when current
// is not an option.
func nextOption[T comparable](options []T, current T) T {
	if len(options) == 0 {
		return current
	}

	index := slices.Index(options, current)

	return options[(index+1)%len(options)]
}
