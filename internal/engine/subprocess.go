// Package engine provides host speech engines: a local synthesizer process
// (espeak-ng or macOS say) and a timer-driven simulation.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/config"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/fsnotify/fsnotify"
)

const (
	baseWordsPerMinute = 175
	baseEspeakPitch    = 50
	maxEspeakPitch     = 99
	voicesDebounce     = 500 * time.Millisecond
)

// pipeWaitDelay bounds how long Wait waits for stderr after the process
// exits, in case a child inherited the pipe.
const pipeWaitDelay = time.Second

var (
	// ErrPauseUnsupported is returned by Pause and Resume where processes
	// cannot be suspended.
	ErrPauseUnsupported = errors.New("pausing speech is not supported on this platform")
	// ErrUnknownKind rejects an engine kind New does not know.
	ErrUnknownKind = errors.New("unknown engine kind")
)

const (
	errFmtStart          = "failed to start %s: %w"
	errFmtExited         = "%s exited: %w"
	logFmtVoicesFailed   = "Failed to list voices with %s: %v"
	logFmtWatchFailed    = "Failed to watch voices directory %s: %v"
	logFmtWatcherError   = "Voices watcher error: %v"
	logFmtVoicesReloaded = "Voices directory %s changed, reloading voice list"
)

// Engine is a speech engine that holds resources until closed.
type Engine interface {
	core.SpeechEngine
	Close() error
}

// New builds the engine selected by cfg.Engine.
func New(cfg config.SpeechConfig, log *logger.Logger) (Engine, error) {
	switch cfg.Engine {
	case config.EngineEspeak, config.EngineSay:
		return NewSubprocess(cfg.Engine, cfg.BinaryPath, cfg.VoicesDir, log), nil
	case config.EngineSimulated:
		return NewSimulated(DefaultSimulatedWPM, SimulatedVoices()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Engine)
	}
}

type run struct {
	cmd        *exec.Cmd
	completion *core.Completion
	canceled   atomic.Bool
	stderr     bytes.Buffer
}

// Subprocess speaks each utterance with a new synthesizer process reading
// the text from stdin.
type Subprocess struct {
	kind      string
	binary    string
	voicesDir string
	log       *logger.Logger

	mu        sync.Mutex
	active    *run
	paused    bool
	voices    []core.Voice
	listeners []func()
	watcher   *fsnotify.Watcher
	debounce  *time.Timer
}

// NewSubprocess creates an engine running binary. kind is config.EngineEspeak
// or config.EngineSay. A non-empty voicesDir is watched and any change in it
// fires the voices-changed notification.
func NewSubprocess(kind, binary, voicesDir string, log *logger.Logger) *Subprocess {
	engine := &Subprocess{
		kind:      kind,
		binary:    binary,
		voicesDir: voicesDir,
		log:       log,
	}

	if voicesDir != "" {
		engine.startWatcher()
	}

	return engine
}

// Args returns the synthesizer arguments for u.
func (s *Subprocess) Args(u *core.Utterance) []string {
	wpm := strconv.Itoa(int(math.Round(baseWordsPerMinute * u.Rate)))

	if s.kind == config.EngineSay {
		args := []string{"-r", wpm}
		if u.Voice != nil {
			args = append(args, "-v", u.Voice.ID)
		}

		return append(args, "-f", "-")
	}

	pitch := int(math.Round(baseEspeakPitch * u.Pitch))
	pitch = min(max(pitch, 0), maxEspeakPitch)

	args := []string{"--stdin", "-s", wpm, "-p", strconv.Itoa(pitch)}
	if u.Voice != nil {
		args = append(args, "-v", u.Voice.ID)
	}

	return args
}

// Speak cancels any active process and starts a new one for u.
func (s *Subprocess) Speak(u *core.Utterance) *core.Completion {
	s.Cancel()

	current := &run{completion: core.NewCompletion()}

	cmd := exec.Command(s.binary, s.Args(u)...)
	cmd.Stdin = strings.NewReader(u.Text)
	cmd.Stderr = &current.stderr
	cmd.WaitDelay = pipeWaitDelay
	current.cmd = cmd

	err := cmd.Start()
	if err != nil {
		return core.Resolved(fmt.Errorf(errFmtStart, s.binary, err))
	}

	s.mu.Lock()
	s.active = current
	s.paused = false
	s.mu.Unlock()

	go s.wait(current)

	return current.completion
}

func (s *Subprocess) wait(current *run) {
	waitErr := current.cmd.Wait()

	s.mu.Lock()
	if s.active == current {
		s.active = nil
		s.paused = false
	}
	s.mu.Unlock()

	switch {
	case current.canceled.Load():
		current.completion.Resolve(core.ErrSpeechCanceled)
	case waitErr != nil:
		detail := strings.TrimSpace(current.stderr.String())
		if detail != "" {
			waitErr = fmt.Errorf("%w: %s", waitErr, detail)
		}

		current.completion.Resolve(fmt.Errorf(errFmtExited, s.binary, waitErr))
	default:
		current.completion.Resolve(nil)
	}
}

// Pause suspends the active process.
func (s *Subprocess) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.paused {
		return nil
	}

	err := suspend(s.active.cmd.Process)
	if err != nil {
		return err
	}

	s.paused = true

	return nil
}

// Resume continues a suspended process.
func (s *Subprocess) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || !s.paused {
		return nil
	}

	err := resume(s.active.cmd.Process)
	if err != nil {
		return err
	}

	s.paused = false

	return nil
}

// Cancel kills the active process and waits until it has exited.
func (s *Subprocess) Cancel() {
	s.mu.Lock()
	current := s.active
	s.active = nil
	s.paused = false
	s.mu.Unlock()

	if current == nil {
		return
	}

	current.canceled.Store(true)
	_ = current.cmd.Process.Kill()

	<-current.completion.Done()
}

// Speaking reports whether a process is running or suspended.
func (s *Subprocess) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active != nil
}

// Paused reports whether the active process is suspended.
func (s *Subprocess) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.paused
}

// Available reports whether the binary can be found.
func (s *Subprocess) Available() bool {
	_, err := exec.LookPath(s.binary)

	return err == nil
}

// Voices lists the synthesizer's voices. The list is cached until the voices
// directory changes; a failed or empty listing is not cached.
func (s *Subprocess) Voices() []core.Voice {
	s.mu.Lock()
	cached := s.voices
	s.mu.Unlock()

	if cached != nil {
		return slices.Clone(cached)
	}

	listArgs := []string{"--voices"}
	if s.kind == config.EngineSay {
		listArgs = []string{"-v", "?"}
	}

	output, err := exec.Command(s.binary, listArgs...).Output()
	if err != nil {
		if s.log != nil {
			s.log.Warn(logFmtVoicesFailed, s.binary, err)
		}

		return nil
	}

	var list []core.Voice
	if s.kind == config.EngineSay {
		list = ParseSayVoices(string(output))
	} else {
		list = ParseEspeakVoices(string(output))
	}

	if len(list) > 0 {
		s.mu.Lock()
		s.voices = list
		s.mu.Unlock()
	}

	return slices.Clone(list)
}

// OnVoicesChanged registers fn.
func (s *Subprocess) OnVoicesChanged(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

// Close stops the voices watcher and cancels any active process.
func (s *Subprocess) Close() error {
	s.Cancel()

	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil

	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}

	return watcher.Close()
}

func (s *Subprocess) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logWarn(logFmtWatchFailed, s.voicesDir, err)

		return
	}

	err = watcher.Add(s.voicesDir)
	if err != nil {
		s.logWarn(logFmtWatchFailed, s.voicesDir, err)
		_ = watcher.Close()

		return
	}

	s.watcher = watcher

	go s.watch(watcher)
}

func (s *Subprocess) watch(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}

			s.mu.Lock()
			if s.debounce != nil {
				s.debounce.Stop()
			}

			s.debounce = time.AfterFunc(voicesDebounce, s.voicesChanged)
			s.mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			s.logWarn(logFmtWatcherError, err)
		}
	}
}

func (s *Subprocess) voicesChanged() {
	s.mu.Lock()
	s.voices = nil
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info(logFmtVoicesReloaded, s.voicesDir)
	}

	for _, listener := range listeners {
		listener()
	}
}

func (s *Subprocess) logWarn(format string, args ...any) {
	if s.log != nil {
		s.log.Warn(format, args...)
	}
}
