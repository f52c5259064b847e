package engine

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/tts-studio/internal/core"
)

// DefaultSimulatedWPM is the speaking speed of the simulated engine at rate 1.
const DefaultSimulatedWPM = 180

// SimulatedVoices returns the voice list the simulated engine starts with.
func SimulatedVoices() []core.Voice {
	return []core.Voice{
		{ID: "sim-en-us", Name: "Simulated English", Language: "en-us"},
		{ID: "sim-en-gb", Name: "Simulated British English", Language: "en-gb"},
		{ID: "sim-fr-fr", Name: "Simulated French", Language: "fr-fr"},
		{ID: "sim-de-de", Name: "Simulated German", Language: "de-de"},
	}
}

// Simulated "speaks" for as long as the text would take to read aloud. It
// needs no audio device.
type Simulated struct {
	wordsPerMinute float64

	mu         sync.Mutex
	voices     []core.Voice
	listeners  []func()
	completion *core.Completion
	timer      *time.Timer
	remaining  time.Duration
	startedAt  time.Time
	paused     bool
}

// NewSimulated creates a Simulated engine.
func NewSimulated(wordsPerMinute float64, voices []core.Voice) *Simulated {
	return &Simulated{wordsPerMinute: wordsPerMinute, voices: voices}
}

// Duration returns how long u takes to speak.
func (s *Simulated) Duration(u *core.Utterance) time.Duration {
	words := max(len(strings.Fields(u.Text)), 1)
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}

	return time.Duration(float64(words) * float64(time.Minute) / (s.wordsPerMinute * rate))
}

// Speak cancels any active utterance and starts timing u.
func (s *Simulated) Speak(u *core.Utterance) *core.Completion {
	s.Cancel()

	completion := core.NewCompletion()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.completion = completion
	s.paused = false
	s.arm(s.Duration(u))

	return completion
}

// Pause stops the clock, keeping the remaining time.
func (s *Simulated) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completion == nil || s.paused {
		return nil
	}

	s.timer.Stop()
	s.remaining -= time.Since(s.startedAt)
	s.paused = true

	return nil
}

// Resume restarts the clock with the remaining time.
func (s *Simulated) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completion == nil || !s.paused {
		return nil
	}

	s.paused = false
	s.arm(max(s.remaining, 0))

	return nil
}

// Cancel ends the active utterance with core.ErrSpeechCanceled.
func (s *Simulated) Cancel() {
	s.mu.Lock()
	completion := s.completion
	s.completion = nil
	s.paused = false

	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	if completion != nil {
		completion.Resolve(core.ErrSpeechCanceled)
	}
}

// Speaking reports whether an utterance is active.
func (s *Simulated) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.completion != nil
}

// Paused reports whether the active utterance is paused.
func (s *Simulated) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.paused
}

// Voices returns the current voice list.
func (s *Simulated) Voices() []core.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.voices)
}

// SetVoices replaces the voice list and fires the change notification.
func (s *Simulated) SetVoices(voices []core.Voice) {
	s.mu.Lock()
	s.voices = voices
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, listener := range listeners {
		listener()
	}
}

// OnVoicesChanged registers fn.
func (s *Simulated) OnVoicesChanged(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

// Available always reports true.
func (s *Simulated) Available() bool { return true }

// Close cancels any active utterance.
func (s *Simulated) Close() error {
	s.Cancel()

	return nil
}

// arm must be called with s.mu held.
func (s *Simulated) arm(d time.Duration) {
	completion := s.completion
	s.remaining = d
	s.startedAt = time.Now()
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.completion != completion || s.paused {
			s.mu.Unlock()

			return
		}

		s.completion = nil
		s.mu.Unlock()

		completion.Resolve(nil)
	})
}
