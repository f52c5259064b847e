// Package playback drives the host speech engine through a three-state
// machine: Idle, Speaking and Paused.
//
// Every Play builds a fresh Utterance and cancels whatever was active first,
// so at most one utterance is ever speaking or paused. Completions from
// superseded utterances are ignored.
package playback

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/google/uuid"
)

// State is the playback state.
type State int

// Playback states.
const (
	StateIdle State = iota
	StateSpeaking
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyInput rejects blank text.
	ErrEmptyInput = errors.New("empty input")
	// ErrGeneration wraps every failure of Generate.
	ErrGeneration = errors.New("generation failed")
	// ErrSpeechEngine wraps failures reported by the host speech engine.
	ErrSpeechEngine = errors.New("speech engine error")
	// ErrInvalidSettings rejects a rate or pitch outside the configured bounds.
	ErrInvalidSettings = errors.New("invalid playback settings")
	// ErrEngineUnavailable reports an engine that cannot speak on this host.
	ErrEngineUnavailable = errors.New("speech engine not available")
)

const (
	logFmtPlay     = "Playing utterance %s (%d chars, voice %q, rate %.2f, pitch %.2f)"
	logFmtFinished = "Utterance %s finished"
	logFmtFailed   = "Utterance %s failed: %v"
	logFmtStopped  = "Utterance %s stopped"
)

// EventKind classifies an Event.
type EventKind int

// Event kinds. EventNone is returned by Toggle when nothing changed.
const (
	EventNone EventKind = iota
	EventStarted
	EventPaused
	EventResumed
	EventStopped
	EventFinished
	EventFailed
)

// Event reports a transition. Err is set for EventFailed only.
type Event struct {
	Kind        EventKind
	UtteranceID string
	Err         error
}

// Settings are the user's voice, rate and pitch choices.
type Settings struct {
	VoiceIndex int
	Rate       float64
	Pitch      float64
}

// Bounds are the inclusive limits for rate and pitch.
type Bounds struct {
	RateMin  float64
	RateMax  float64
	PitchMin float64
	PitchMax float64
}

// Check reports ErrInvalidSettings when s is outside b.
func (b Bounds) Check(s Settings) error {
	if s.Rate < b.RateMin || s.Rate > b.RateMax {
		return fmt.Errorf("%w: rate %.2f outside [%.2f, %.2f]", ErrInvalidSettings, s.Rate, b.RateMin, b.RateMax)
	}

	if s.Pitch < b.PitchMin || s.Pitch > b.PitchMax {
		return fmt.Errorf("%w: pitch %.2f outside [%.2f, %.2f]", ErrInvalidSettings, s.Pitch, b.PitchMin, b.PitchMax)
	}

	return nil
}

// Descriptor is what Generate validated and holds for playback.
type Descriptor struct {
	Text     string
	Settings Settings
}

// VoiceResolver maps a voice index to a voice from a fresh snapshot. nil
// selects the engine default.
type VoiceResolver interface {
	Resolve(index int) *core.Voice
}

// Controller owns the single current utterance.
type Controller struct {
	engine core.SpeechEngine
	voices VoiceResolver
	bounds Bounds
	log    *logger.Logger

	mu        sync.Mutex
	state     State
	current   *core.Utterance
	held      *Descriptor
	listeners []func(Event)
}

// NewController creates an idle Controller. log may be nil.
func NewController(engine core.SpeechEngine, voices VoiceResolver, bounds Bounds, log *logger.Logger) *Controller {
	return &Controller{
		engine: engine,
		voices: voices,
		bounds: bounds,
		log:    log,
		state:  StateIdle,
	}
}

// Subscribe registers fn for every transition.
func (c *Controller) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, fn)
}

// Generate validates text and settings and holds them as a Descriptor. It
// produces no audio. A failure drops any previously held Descriptor.
func (c *Controller) Generate(text string, settings Settings) (Descriptor, error) {
	trimmed := strings.TrimSpace(text)

	var err error

	switch {
	case trimmed == "":
		err = fmt.Errorf("%w: %w", ErrGeneration, ErrEmptyInput)
	default:
		checkErr := c.bounds.Check(settings)
		if checkErr != nil {
			err = fmt.Errorf("%w: %w", ErrGeneration, checkErr)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.held = nil

		return Descriptor{}, err
	}

	descriptor := Descriptor{Text: trimmed, Settings: settings}
	c.held = &descriptor

	return descriptor, nil
}

// Held returns the Descriptor from the last successful Generate.
func (c *Controller) Held() (Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.held == nil {
		return Descriptor{}, false
	}

	return *c.held, true
}

// Play cancels any active utterance and starts speaking text as a new one.
// Blank text fails with ErrEmptyInput and leaves the state unchanged.
func (c *Controller) Play(text string, settings Settings) (*core.Utterance, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyInput
	}

	err := c.bounds.Check(settings)
	if err != nil {
		return nil, err
	}

	if !c.engine.Available() {
		return nil, fmt.Errorf("%w: %w", ErrSpeechEngine, ErrEngineUnavailable)
	}

	utterance := &core.Utterance{
		ID:    uuid.NewString(),
		Text:  trimmed,
		Voice: c.voices.Resolve(settings.VoiceIndex),
		Rate:  settings.Rate,
		Pitch: settings.Pitch,
	}

	c.mu.Lock()
	c.engine.Cancel()
	completion := c.engine.Speak(utterance)
	c.current = utterance
	c.state = StateSpeaking
	c.mu.Unlock()

	if c.log != nil {
		voiceName := ""
		if utterance.Voice != nil {
			voiceName = utterance.Voice.Name
		}

		c.log.Info(logFmtPlay, utterance.ID, len(trimmed), voiceName, settings.Rate, settings.Pitch)
	}

	c.emit(Event{Kind: EventStarted, UtteranceID: utterance.ID})

	go c.watch(utterance, completion)

	return utterance, nil
}

// Pause pauses a speaking utterance. It reports false when there was nothing
// to pause.
func (c *Controller) Pause() (bool, error) {
	c.mu.Lock()

	if c.state != StateSpeaking || !c.engine.Speaking() {
		c.mu.Unlock()

		return false, nil
	}

	err := c.engine.Pause()
	if err != nil {
		c.mu.Unlock()

		return false, fmt.Errorf("%w: %w", ErrSpeechEngine, err)
	}

	c.state = StatePaused
	id := c.current.ID
	c.mu.Unlock()

	c.emit(Event{Kind: EventPaused, UtteranceID: id})

	return true, nil
}

// Resume continues the paused utterance. It reports false when nothing was
// paused.
func (c *Controller) Resume() (bool, error) {
	c.mu.Lock()

	if c.state != StatePaused {
		c.mu.Unlock()

		return false, nil
	}

	err := c.engine.Resume()
	if err != nil {
		c.mu.Unlock()

		return false, fmt.Errorf("%w: %w", ErrSpeechEngine, err)
	}

	c.state = StateSpeaking
	id := c.current.ID
	c.mu.Unlock()

	c.emit(Event{Kind: EventResumed, UtteranceID: id})

	return true, nil
}

// Toggle resumes when paused and pauses when speaking. It returns the kind of
// transition made, or EventNone.
func (c *Controller) Toggle() (EventKind, error) {
	if c.State() == StatePaused {
		resumed, err := c.Resume()
		if err != nil || !resumed {
			return EventNone, err
		}

		return EventResumed, nil
	}

	paused, err := c.Pause()
	if err != nil || !paused {
		return EventNone, err
	}

	return EventPaused, nil
}

// Stop cancels unconditionally and returns to Idle. It reports whether an
// utterance was active.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	c.engine.Cancel()
	stopped := c.current
	c.current = nil
	c.state = StateIdle
	c.mu.Unlock()

	if stopped == nil {
		return false
	}

	if c.log != nil {
		c.log.Info(logFmtStopped, stopped.ID)
	}

	c.emit(Event{Kind: EventStopped, UtteranceID: stopped.ID})

	return true
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Current returns the active utterance, or nil when Idle.
func (c *Controller) Current() *core.Utterance {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}

func (c *Controller) watch(utterance *core.Utterance, completion *core.Completion) {
	<-completion.Done()

	err := completion.Err()

	c.mu.Lock()
	if c.current != utterance {
		c.mu.Unlock()

		return
	}

	c.current = nil
	c.state = StateIdle
	c.mu.Unlock()

	switch {
	case err == nil:
		if c.log != nil {
			c.log.Info(logFmtFinished, utterance.ID)
		}

		c.emit(Event{Kind: EventFinished, UtteranceID: utterance.ID})
	case errors.Is(err, core.ErrSpeechCanceled):
		c.emit(Event{Kind: EventStopped, UtteranceID: utterance.ID})
	default:
		if c.log != nil {
			c.log.Error(logFmtFailed, utterance.ID, err)
		}

		c.emit(Event{
			Kind:        EventFailed,
			UtteranceID: utterance.ID,
			Err:         fmt.Errorf("%w: %w", ErrSpeechEngine, err),
		})
	}
}

func (c *Controller) emit(event Event) {
	c.mu.Lock()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}
