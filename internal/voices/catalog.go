// Package voices exposes the host speech engine's voice list for selection.
//
// The engine may report an empty list until it has finished initialising, so
// Start retries once after a fixed delay and also re-enumerates whenever the
// engine signals a change. Selection is by position in the current snapshot
// and is therefore best-effort: a change can shift or remove the voice an
// index referred to, in which case the engine default is used.
package voices

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/core"
)

// DefaultIndex selects the platform default voice.
const DefaultIndex = -1

// DefaultLabel is the display name of DefaultIndex.
const DefaultLabel = "Default"

// ErrVoiceIndexOutOfRange rejects a selection outside the current snapshot.
var ErrVoiceIndexOutOfRange = errors.New("voice index out of range")

const (
	logFmtVoicesEmpty   = "Voice list empty, retrying in %s"
	logFmtVoicesLoaded  = "Voice list loaded with %d voices"
	logFmtVoicesChanged = "Voice list changed, now %d voices"
)

// Catalog holds the latest voice snapshot and the current selection.
type Catalog struct {
	engine     core.SpeechEngine
	retryDelay time.Duration
	log        *logger.Logger

	mu         sync.Mutex
	snapshot   []core.Voice
	selected   int
	listeners  []func([]core.Voice)
	subscribed bool
}

// NewCatalog creates a Catalog over engine. log may be nil.
func NewCatalog(engine core.SpeechEngine, retryDelay time.Duration, log *logger.Logger) *Catalog {
	return &Catalog{
		engine:     engine,
		retryDelay: retryDelay,
		log:        log,
		selected:   DefaultIndex,
	}
}

// Start subscribes to the engine's change notification and enumerates the
// voices. An empty first enumeration is retried once after the fixed delay.
// The only error is ctx ending during that delay.
func (c *Catalog) Start(ctx context.Context) ([]core.Voice, error) {
	c.mu.Lock()
	if !c.subscribed {
		c.subscribed = true
		c.engine.OnVoicesChanged(c.onVoicesChanged)
	}
	c.mu.Unlock()

	list := c.Refresh()
	if len(list) > 0 {
		c.logInfo(logFmtVoicesLoaded, len(list))

		return list, nil
	}

	c.logInfo(logFmtVoicesEmpty, c.retryDelay)

	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("voice enumeration: %w", ctx.Err())
	case <-timer.C:
	}

	list = c.Refresh()
	c.logInfo(logFmtVoicesLoaded, len(list))

	return list, nil
}

// List re-enumerates the engine and returns the fresh snapshot.
func (c *Catalog) List() []core.Voice {
	list := c.engine.Voices()

	c.mu.Lock()
	c.snapshot = slices.Clone(list)
	c.mu.Unlock()

	return list
}

// Cached returns the snapshot from the last enumeration without asking the
// engine again.
func (c *Catalog) Cached() []core.Voice {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.snapshot)
}

// Refresh re-enumerates and notifies subscribers.
func (c *Catalog) Refresh() []core.Voice {
	list := c.List()

	c.mu.Lock()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, listener := range listeners {
		listener(slices.Clone(list))
	}

	return list
}

// Subscribe registers fn to receive every new snapshot.
func (c *Catalog) Subscribe(fn func([]core.Voice)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, fn)
}

// Select pins the voice at index, or the default for DefaultIndex.
func (c *Catalog) Select(index int) error {
	list := c.List()

	if index < DefaultIndex || index >= len(list) {
		return fmt.Errorf("%w: %d of %d", ErrVoiceIndexOutOfRange, index, len(list))
	}

	c.mu.Lock()
	c.selected = index
	c.mu.Unlock()

	return nil
}

// Next advances the selection through default and every voice in turn and
// returns the new index.
func (c *Catalog) Next() int {
	list := c.List()

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.selected + 1
	if next >= len(list) {
		next = DefaultIndex
	}

	c.selected = next

	return next
}

// Selected returns the selected index.
func (c *Catalog) Selected() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selected
}

// Resolve returns the voice at index in a fresh snapshot, or nil for the
// default or a stale index.
func (c *Catalog) Resolve(index int) *core.Voice {
	if index < 0 {
		return nil
	}

	list := c.List()
	if index >= len(list) {
		return nil
	}

	voice := list[index]

	return &voice
}

// Label returns the display label for index.
func (c *Catalog) Label(index int) string {
	voice := c.Resolve(index)
	if voice == nil {
		return DefaultLabel
	}

	return voice.Label()
}

func (c *Catalog) onVoicesChanged() {
	list := c.Refresh()
	c.logInfo(logFmtVoicesChanged, len(list))
}

func (c *Catalog) logInfo(format string, args ...any) {
	if c.log != nil {
		c.log.Info(format, args...)
	}
}
