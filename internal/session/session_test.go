package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/tts-studio/internal/config"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/download"
	"github.com/book-expert/tts-studio/internal/engine/enginetest"
	"github.com/book-expert/tts-studio/internal/playback"
	"github.com/book-expert/tts-studio/internal/remote"
	"github.com/book-expert/tts-studio/internal/session"
	"github.com/book-expert/tts-studio/internal/status"
	"github.com/book-expert/tts-studio/internal/textsource"
	"github.com/book-expert/tts-studio/internal/voices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var alice = core.Voice{ID: "alice", Name: "Alice", Language: "en-gb"}

type harness struct {
	engine  *enginetest.Fake
	status  *status.Reporter
	session *session.Session
	outDir  string
}

func newHarness(t *testing.T, backendURL string) *harness {
	t.Helper()

	engine := enginetest.NewFake(alice)
	reporter := status.NewReporter(nil)
	outDir := t.TempDir()

	sess := session.New(session.Deps{
		Engine:  engine,
		Status:  reporter,
		Text:    textsource.NewManager(config.DefaultMaxUploadBytes, nil, nil),
		Catalog: voices.NewCatalog(engine, time.Millisecond, nil),
		Renderer: remote.NewClient(remote.Options{
			BaseURL:        backendURL,
			Endpoint:       config.DefaultEndpoint,
			VoicesEndpoint: config.DefaultVoicesEndpoint,
			FileName:       config.DefaultFileName,
			Timeout:        5 * time.Second,
		}, nil),
		Sink: download.NewFileSink(outDir, nil),
	}, session.OptionsFromConfig(config.Default()))

	return &harness{engine: engine, status: reporter, session: sess, outDir: outDir}
}

func (h *harness) current() status.Status {
	return h.status.Current()
}

func (h *harness) generated(t *testing.T, text string) {
	t.Helper()

	h.session.SetText(text)
	require.NoError(t, h.session.Generate())
}

func (h *harness) savedFiles(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(h.outDir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names
}

func unreachableURL(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	return url
}

func TestSwitchView_ClearsStatus(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	h.status.Error("Please upload a .txt file")

	require.NoError(t, h.session.SwitchView(session.ViewUpload))
	assert.True(t, h.current().IsZero())
	assert.Equal(t, session.ViewUpload, h.session.Snapshot().View)

	h.status.Info("x")
	assert.Equal(t, session.ViewText, h.session.NextView())
	assert.True(t, h.current().IsZero())

	require.ErrorIs(t, h.session.SwitchView(session.View(7)), session.ErrUnknownView)
}

func TestGenerate_EmptyTextLeavesControlsDisabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	h.session.SetText("   ")

	err := h.session.Generate()
	require.ErrorIs(t, err, playback.ErrGeneration)
	require.ErrorIs(t, err, playback.ErrEmptyInput)

	assert.False(t, h.session.ControlsEnabled())
	assert.Equal(t, status.Status{Message: "Please enter some text or upload a file", Severity: status.SeverityError},
		h.current())
}

func TestGenerate_EnablesControls(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	h.generated(t, "Hello there")

	assert.True(t, h.session.ControlsEnabled())
	assert.Equal(t, "Audio generated successfully! Click Play to hear it.", h.current().Message)
	assert.Equal(t, status.SeveritySuccess, h.current().Severity)
	assert.Empty(t, h.engine.Spoken())
}

func TestGenerate_EngineUnavailable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	h.engine.SetAvailable(false)
	h.session.SetText("Hello")

	require.ErrorIs(t, h.session.Generate(), playback.ErrEngineUnavailable)
	assert.False(t, h.session.ControlsEnabled())
	assert.Equal(t, status.SeverityError, h.current().Severity)
}

func TestPlay_RequiresGenerate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	h.session.SetText("Hello")

	_, err := h.session.Play()
	require.ErrorIs(t, err, session.ErrNotGenerated)
	assert.Equal(t, "Please generate audio first", h.current().Message)
	assert.Empty(t, h.engine.Spoken())
}

func TestPlay_StatusFollowsPlayback(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	h.generated(t, "Hello there")

	utterance, err := h.session.Play()
	require.NoError(t, err)
	assert.Equal(t, "Hello there", utterance.Text)
	assert.Equal(t, status.Status{Message: "Playing audio...", Severity: status.SeverityInfo}, h.current())

	kind, err := h.session.TogglePause()
	require.NoError(t, err)
	assert.Equal(t, playback.EventPaused, kind)
	assert.Equal(t, "Audio paused", h.current().Message)

	kind, err = h.session.TogglePause()
	require.NoError(t, err)
	assert.Equal(t, playback.EventResumed, kind)
	assert.Equal(t, "Audio resumed", h.current().Message)

	require.NoError(t, h.engine.Finish())

	assert.Eventually(t, func() bool {
		return h.current() == status.Status{Message: "Playback finished", Severity: status.SeveritySuccess}
	}, waitFor, tick)
	assert.Equal(t, playback.StateIdle, h.session.Snapshot().State)
}

func TestPlay_ReadsCurrentTextBox(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	h.generated(t, "first")
	h.session.SetText("edited after generate")

	utterance, err := h.session.Play()
	require.NoError(t, err)
	assert.Equal(t, "edited after generate", utterance.Text)
}

func TestPlay_EngineFailureReported(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	h.generated(t, "Hello")

	_, err := h.session.Play()
	require.NoError(t, err)
	require.NoError(t, h.engine.Fail(errors.New("audio device busy")))

	assert.Eventually(t, func() bool {
		return h.current() == status.Status{
			Message:  "Error playing audio: audio device busy",
			Severity: status.SeverityError,
		}
	}, waitFor, tick)
}

func TestStop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	assert.False(t, h.session.Stop(), "stop is disabled before generate")

	h.generated(t, "Hello")

	_, err := h.session.Play()
	require.NoError(t, err)

	assert.True(t, h.session.Stop())
	assert.Equal(t, status.Status{Message: "Audio stopped", Severity: status.SeverityInfo}, h.current())
	assert.Equal(t, playback.StateIdle, h.session.Snapshot().State)
	assert.False(t, h.engine.Speaking())
}

func TestDownload_SavesArtifact(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.generated(t, "Hello")

	location, err := h.session.Download(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))
	assert.Equal(t, config.DefaultFileName, filepath.Base(location))
	assert.Equal(t, status.Status{Message: "Audio downloaded successfully!", Severity: status.SeveritySuccess},
		h.current())
}

func TestDownload_ServerErrorMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.generated(t, "Hello")

	_, err := h.session.Download(context.Background())

	var serverErr *remote.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, status.Status{Message: "Error: boom", Severity: status.SeverityError}, h.current())
	assert.Empty(t, h.savedFiles(t))
}

func TestDownload_BackendUnavailableIsInformational(t *testing.T) {
	t.Parallel()

	backend := unreachableURL(t)
	h := newHarness(t, backend)
	h.generated(t, "Hello")

	_, err := h.session.Download(context.Background())
	require.ErrorIs(t, err, remote.ErrNetworkUnavailable)

	current := h.current()
	assert.Equal(t, status.SeverityInfo, current.Severity)
	assert.Contains(t, current.Message, backend)
	assert.Contains(t, current.Message, "Use Play to listen locally")
	assert.Empty(t, h.savedFiles(t))

	_, err = h.session.Play()
	require.NoError(t, err, "local playback still works")
}

func TestDownload_Gating(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))

	_, err := h.session.Download(context.Background())
	require.ErrorIs(t, err, session.ErrNotGenerated)

	_, err = h.session.DownloadNow(context.Background())
	require.ErrorIs(t, err, session.ErrNoText)
	assert.Equal(t, status.Status{Message: "No text to download", Severity: status.SeverityError}, h.current())
}

func TestDownload_SendsRemoteSelection(t *testing.T) {
	t.Parallel()

	received := make(chan remote.Request, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request remote.Request
		if decodeErr := json.NewDecoder(r.Body).Decode(&request); decodeErr == nil {
			received <- request
		}

		_, _ = w.Write([]byte("mp3"))
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.session.SetText("Hi")
	assert.Equal(t, "echo", h.session.NextRemoteVoice())
	assert.Equal(t, "tts-1-hd", h.session.NextRemoteModel())

	_, err := h.session.DownloadNow(context.Background())
	require.NoError(t, err)

	select {
	case request := <-received:
		assert.Equal(t, remote.Request{Text: "Hi", Voice: "echo", Model: "tts-1-hd"}, request)
	case <-time.After(waitFor):
		t.Fatal("backend never received the request")
	}
}

func TestBrowseFile(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	h.session.SetText("keep me")

	dir := t.TempDir()

	pdf := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o600))

	err := h.session.BrowseFile(pdf)
	require.ErrorIs(t, err, textsource.ErrUnsupportedFileType)
	assert.Equal(t, "Please upload a .txt file", h.current().Message)
	assert.Equal(t, "keep me", h.session.Snapshot().Text)

	err = h.session.BrowseFile(filepath.Join(dir, "missing.txt"))
	require.ErrorIs(t, err, textsource.ErrIO)
	assert.Equal(t, "Error reading file", h.current().Message)
	assert.Equal(t, "keep me", h.session.Snapshot().Text)

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("from a file"), 0o600))

	require.NoError(t, h.session.DropFile("'"+notes+"'"))
	assert.Equal(t, status.Status{Message: "File loaded successfully!", Severity: status.SeveritySuccess}, h.current())

	snapshot := h.session.Snapshot()
	assert.Equal(t, "from a file", snapshot.Text)
	assert.Equal(t, "notes.txt", snapshot.Upload.FileName)
}

func TestStart_WarnsWhenEngineUnavailable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))
	h.engine.SetAvailable(false)

	require.NoError(t, h.session.Start(context.Background()))
	assert.Equal(t, status.SeverityError, h.current().Severity)
	assert.Contains(t, h.current().Message, "Warning:")
}

func TestStart_LoadsVoices(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))

	require.NoError(t, h.session.Start(context.Background()))
	assert.True(t, h.current().IsZero())
	assert.Equal(t, 1, h.session.Snapshot().VoiceCount)

	assert.Equal(t, alice.Label(), h.session.NextVoice())
	assert.Equal(t, alice.Label(), h.session.Snapshot().VoiceLabel)
	assert.Equal(t, voices.DefaultLabel, h.session.NextVoice())
}

func TestNextRateAndPitch(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))

	assert.InEpsilon(t, 1.25, h.session.NextRate(), 0.001)
	assert.InEpsilon(t, 1.5, h.session.NextRate(), 0.001)
	assert.InEpsilon(t, 1.25, h.session.NextPitch(), 0.001)

	h.generated(t, "Hello")

	utterance, err := h.session.Play()
	require.NoError(t, err)
	assert.InEpsilon(t, 1.5, utterance.Rate, 0.001)
	assert.InEpsilon(t, 1.25, utterance.Pitch, 0.001)
}

func TestConfigure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, unreachableURL(t))

	require.ErrorIs(t, h.session.Configure(voices.DefaultIndex, 9, 1), playback.ErrInvalidSettings)
	require.ErrorIs(t, h.session.Configure(3, 1, 1), voices.ErrVoiceIndexOutOfRange)
	require.NoError(t, h.session.Configure(0, 0.75, 1.5))

	h.generated(t, "Hello")

	utterance, err := h.session.Play()
	require.NoError(t, err)
	require.NotNil(t, utterance.Voice)
	assert.Equal(t, alice, *utterance.Voice)
	assert.InEpsilon(t, 0.75, utterance.Rate, 0.001)
	assert.InEpsilon(t, 1.5, utterance.Pitch, 0.001)
}
