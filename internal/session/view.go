package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/book-expert/tts-studio/internal/status"
)

// View is one of the two mutually exclusive input modes.
type View int

// Input views.
const (
	ViewText View = iota
	ViewUpload
)

var allViews = []View{ViewText, ViewUpload}

// ErrUnknownView rejects a switch to a view that does not exist.
var ErrUnknownView = errors.New("unknown view")

func (v View) String() string {
	switch v {
	case ViewText:
		return "Text Input"
	case ViewUpload:
		return "File Upload"
	default:
		return "unknown"
	}
}

// Views keeps exactly one view active.
type Views struct {
	status *status.Reporter

	mu     sync.Mutex
	active map[View]bool
}

// NewViews creates Views with the text view active.
func NewViews(reporter *status.Reporter) *Views {
	return &Views{
		status: reporter,
		active: map[View]bool{ViewText: true, ViewUpload: false},
	}
}

// Switch deactivates every view, activates target and clears the status.
func (v *Views) Switch(target View) error {
	v.mu.Lock()
	if _, known := v.active[target]; !known {
		v.mu.Unlock()

		return fmt.Errorf("%w: %d", ErrUnknownView, target)
	}

	for _, view := range allViews {
		v.active[view] = false
	}

	v.active[target] = true
	v.mu.Unlock()

	v.status.Clear()

	return nil
}

// Next switches to the view after the active one.
func (v *Views) Next() View {
	next := allViews[(int(v.Active())+1)%len(allViews)]
	_ = v.Switch(next)

	return next
}

// Active returns the active view.
func (v *Views) Active() View {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, view := range allViews {
		if v.active[view] {
			return view
		}
	}

	return ViewText
}
