// Package enginetest provides a manually driven speech engine for tests.
package enginetest

import (
	"errors"
	"slices"
	"sync"

	"github.com/book-expert/tts-studio/internal/core"
)

// ErrNotSpeaking is returned by Finish and Fail when nothing is active.
var ErrNotSpeaking = errors.New("fake engine is not speaking")

// Fake is a core.SpeechEngine whose utterances only end when the test says so.
type Fake struct {
	mu          sync.Mutex
	voices      []core.Voice
	queued      [][]core.Voice
	voiceCalls  int
	listeners   []func()
	spoken      []*core.Utterance
	current     *core.Utterance
	completion  *core.Completion
	paused      bool
	cancels     int
	unavailable bool
	pauseErr    error
}

// NewFake returns an available Fake reporting voices.
func NewFake(voices ...core.Voice) *Fake {
	return &Fake{voices: voices}
}

// Speak records u and makes it the active utterance.
func (f *Fake) Speak(u *core.Utterance) *core.Completion {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.spoken = append(f.spoken, u)
	f.current = u
	f.completion = core.NewCompletion()
	f.paused = false

	return f.completion
}

// Pause marks the active utterance paused.
func (f *Fake) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pauseErr != nil {
		return f.pauseErr
	}

	if f.current != nil {
		f.paused = true
	}

	return nil
}

// Resume clears the paused flag.
func (f *Fake) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pauseErr != nil {
		return f.pauseErr
	}

	f.paused = false

	return nil
}

// Cancel resolves the active utterance with core.ErrSpeechCanceled.
func (f *Fake) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancels++

	f.end(core.ErrSpeechCanceled)
}

// Speaking reports whether an utterance is active.
func (f *Fake) Speaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.current != nil
}

// Paused reports whether the active utterance is paused.
func (f *Fake) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.paused
}

// Voices returns the next queued list if any, otherwise the configured voices.
func (f *Fake) Voices() []core.Voice {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.voiceCalls++

	if len(f.queued) > 0 {
		next := f.queued[0]
		f.queued = f.queued[1:]

		if len(f.queued) == 0 {
			f.voices = next
		}

		return slices.Clone(next)
	}

	return slices.Clone(f.voices)
}

// OnVoicesChanged registers fn.
func (f *Fake) OnVoicesChanged(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listeners = append(f.listeners, fn)
}

// Available reports false after SetAvailable(false).
func (f *Fake) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return !f.unavailable
}

// SetAvailable toggles Available.
func (f *Fake) SetAvailable(available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unavailable = !available
}

// SetPauseError makes Pause and Resume fail with err.
func (f *Fake) SetPauseError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pauseErr = err
}

// QueueVoices makes successive Voices calls return lists in order. The last
// list stays in effect afterwards.
func (f *Fake) QueueVoices(lists ...[]core.Voice) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queued = append(f.queued, lists...)
}

// SetVoices replaces the voice list and fires the change notification.
func (f *Fake) SetVoices(voices ...core.Voice) {
	f.mu.Lock()
	f.voices = voices
	f.queued = nil
	listeners := slices.Clone(f.listeners)
	f.mu.Unlock()

	for _, listener := range listeners {
		listener()
	}
}

// Finish ends the active utterance naturally.
func (f *Fake) Finish() error {
	return f.resolve(nil)
}

// Fail ends the active utterance with err.
func (f *Fake) Fail(err error) error {
	return f.resolve(err)
}

// Spoken returns every utterance passed to Speak, in order.
func (f *Fake) Spoken() []*core.Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.spoken)
}

// Cancels returns how many times Cancel was called.
func (f *Fake) Cancels() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.cancels
}

// VoiceCalls returns how many times Voices was called.
func (f *Fake) VoiceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.voiceCalls
}

func (f *Fake) resolve(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current == nil {
		return ErrNotSpeaking
	}

	f.end(err)

	return nil
}

func (f *Fake) end(err error) {
	if f.completion != nil {
		f.completion.Resolve(err)
	}

	f.current = nil
	f.completion = nil
	f.paused = false
}
