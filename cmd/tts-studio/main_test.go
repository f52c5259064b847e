package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configTemplate = `
[speech]
engine = "simulated"

[remote]
base_url = %q

[download]
sink = "file"
output_dir = %q

[paths]
base_logs_dir = %q
`

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func writeConfig(t *testing.T, baseURL string) (configPath, outputDir string) {
	t.Helper()

	dir := t.TempDir()
	outputDir = filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outputDir, 0o750))

	configPath = filepath.Join(dir, "tts-studio.toml")
	content := fmt.Sprintf(configTemplate, baseURL, outputDir, filepath.Join(dir, "logs"))
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return configPath, outputDir
}

func execute(t *testing.T, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())

	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestVoicesCommand(t *testing.T) {
	t.Parallel()

	configPath, _ := writeConfig(t, "http://127.0.0.1:1")

	result := execute(t, "--config", configPath, "voices")
	require.NoError(t, result.err)

	lines := strings.Split(strings.TrimSpace(result.stdout), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, " -1  Default", lines[0])
	assert.Equal(t, "  0  Simulated English (en-us)", lines[1])
}

func TestSpeakCommand(t *testing.T) {
	t.Parallel()

	configPath, _ := writeConfig(t, "http://127.0.0.1:1")

	result := execute(t, "--config", configPath, "speak", "--text", "Hello there", "--rate", "2", "--voice", "1")
	require.NoError(t, result.err)

	assert.Contains(t, result.stderr, "Playing audio...")
	assert.Contains(t, result.stderr, "Playback finished")
}

func TestSpeakCommand_RejectsBadSettings(t *testing.T) {
	t.Parallel()

	configPath, _ := writeConfig(t, "http://127.0.0.1:1")

	result := execute(t, "--config", configPath, "speak", "--text", "Hi", "--voice", "42")
	require.Error(t, result.err)

	result = execute(t, "--config", configPath, "speak", "--text", "Hi", "--rate", "9")
	require.Error(t, result.err)
}

func TestDownloadCommand(t *testing.T) {
	t.Parallel()

	requests := make(chan map[string]string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr == nil {
			requests <- body
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	configPath, outputDir := writeConfig(t, server.URL)

	result := execute(t, "--config", configPath, "download", "--text", "Hello", "--voice", "nova")
	require.NoError(t, result.err)

	location := strings.TrimSpace(result.stdout)
	assert.Equal(t, filepath.Join(outputDir, "tts_output.mp3"), location)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))
	assert.Contains(t, result.stderr, "Audio downloaded successfully!")

	body := <-requests
	assert.Equal(t, map[string]string{"text": "Hello", "voice": "nova", "model": "tts-1"}, body)
}

func TestDownloadCommand_FromFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("mp3"))
	}))
	defer server.Close()

	configPath, _ := writeConfig(t, server.URL)

	notes := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("from a file"), 0o600))

	result := execute(t, "--config", configPath, "download", "--file", notes)
	require.NoError(t, result.err)
	assert.Contains(t, result.stderr, "File loaded successfully!")
}

func TestDownloadCommand_InputErrors(t *testing.T) {
	t.Parallel()

	configPath, _ := writeConfig(t, "http://127.0.0.1:1")

	result := execute(t, "--config", configPath, "download")
	require.ErrorIs(t, result.err, errNoInput)

	result = execute(t, "--config", configPath, "download", "--text", "a", "--file", "b.txt")
	require.Error(t, result.err)
}

func TestLanguagesCommand(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"fr":"French","en":"English"}`))
	}))
	defer server.Close()

	configPath, _ := writeConfig(t, server.URL)

	result := execute(t, "--config", configPath, "languages")
	require.NoError(t, result.err)
	assert.Equal(t, "en       English\nfr       French\n", result.stdout)
}

func TestMissingConfigFile(t *testing.T) {
	t.Parallel()

	result := execute(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "voices")
	require.Error(t, result.err)
}
