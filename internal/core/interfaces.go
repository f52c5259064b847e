// Package core defines the shared types and interfaces of the speech front-end.
package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrSpeechCanceled resolves the completion of an utterance that was cancelled
// before it finished speaking.
var ErrSpeechCanceled = errors.New("speech canceled")

// Voice is one entry of a host speech engine's voice list.
type Voice struct {
	// ID is the engine-specific identifier passed back to the engine when speaking.
	ID string
	// Name is the human-readable voice name.
	Name string
	// Language is a BCP 47-like language tag (e.g. "en-us").
	Language string
}

// Label returns the display form used in voice pickers.
func (v Voice) Label() string {
	return fmt.Sprintf("%s (%s)", v.Name, v.Language)
}

// Utterance is one bounded request to synthesize speech from text.
// A fresh Utterance is built for every play action and never reused.
type Utterance struct {
	ID    string
	Text  string
	Voice *Voice // nil selects the engine default
	Rate  float64
	Pitch float64
}

// SpeechEngine is the host speech synthesizer the front-end drives.
type SpeechEngine interface {
	// Speak starts speaking u asynchronously. The returned Completion resolves
	// exactly once: nil on natural end, ErrSpeechCanceled on Cancel, or the
	// engine failure otherwise.
	Speak(u *Utterance) *Completion
	Pause() error
	Resume() error
	// Cancel stops any utterance that is speaking or paused.
	Cancel()
	// Speaking reports whether an utterance is active, including while paused.
	Speaking() bool
	Paused() bool
	// Voices enumerates the voices currently known to the engine. The list may
	// be empty while the engine is still initialising.
	Voices() []Voice
	// OnVoicesChanged registers fn to be called whenever the voice list changes.
	OnVoicesChanged(fn func())
	// Available reports whether the engine can speak at all on this host.
	Available() bool
}

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Sink materializes a rendered audio file and returns where it was placed.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}
