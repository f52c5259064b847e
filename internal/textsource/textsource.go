// Package textsource resolves the text to synthesize from the text box or an
// uploaded plain-text file.
package textsource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/textsource/text"
)

// PlainTextType is the only accepted upload content type.
const PlainTextType = "text/plain"

var (
	// ErrUnsupportedFileType rejects an upload that is not plain text.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrIO reports a failed file read.
	ErrIO = errors.New("file read failed")
	// ErrFileTooLarge is wrapped together with ErrIO.
	ErrFileTooLarge = errors.New("file exceeds the upload limit")
	// ErrNoPath reports a drop or browse without a usable path.
	ErrNoPath = errors.New("no file path given")
)

const (
	logFmtUploadRejected = "Rejected upload %q with content type %q"
	logFmtUploadFailed   = "Failed to read upload %q: %v"
	logFmtUploadLoaded   = "Loaded upload %q (%d bytes)"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Upload is the most recent successful upload.
type Upload struct {
	FileName string
	Content  string
}

// Manager owns the text box content and the upload state.
type Manager struct {
	mu         sync.Mutex
	text       string
	upload     Upload
	maxBytes   int64
	normalizer *text.Normalizer
	log        *logger.Logger
}

// NewManager creates a Manager. A nil normalizer leaves resolved text as typed;
// log may be nil.
func NewManager(maxBytes int64, normalizer *text.Normalizer, log *logger.Logger) *Manager {
	return &Manager{
		maxBytes:   maxBytes,
		normalizer: normalizer,
		log:        log,
	}
}

// SetText replaces the text box content.
func (m *Manager) SetText(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.text = content
}

// Text returns the raw text box content.
func (m *Manager) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.text
}

// Upload returns the last successful upload.
func (m *Manager) Upload() Upload {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.upload
}

// ResolveText returns the trimmed text box content, normalized when enabled.
// An empty result means there is no input.
func (m *Manager) ResolveText() string {
	resolved := strings.TrimSpace(m.Text())
	if resolved == "" || m.normalizer == nil {
		return resolved
	}

	return m.normalizer.Normalize(resolved)
}

// Browse loads the file at path, as picked from a file chooser.
func (m *Manager) Browse(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return ErrNoPath
	}

	return m.loadPath(path)
}

// Drop loads a file dropped onto the terminal. Terminals paste dropped files
// as quoted, escaped or file:// paths; only the first one is used.
func (m *Manager) Drop(pasted string) error {
	path := CleanDroppedPath(pasted)
	if path == "" {
		return ErrNoPath
	}

	return m.loadPath(path)
}

// Select loads content delivered with an explicit name and content type. An
// empty contentType is derived from the name.
func (m *Manager) Select(name, contentType string, reader io.Reader) error {
	if contentType == "" {
		contentType = ContentTypeFor(name)
	}

	if !IsPlainText(contentType) {
		m.logWarn(logFmtUploadRejected, name, contentType)

		return fmt.Errorf("%w: %q", ErrUnsupportedFileType, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(reader, m.maxBytes+1))
	if err != nil {
		m.logError(logFmtUploadFailed, name, err)

		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	if int64(len(data)) > m.maxBytes {
		m.logError(logFmtUploadFailed, name, ErrFileTooLarge)

		return fmt.Errorf("%w: %w", ErrIO, ErrFileTooLarge)
	}

	content := decode(data)

	m.mu.Lock()
	m.text = content
	m.upload = Upload{FileName: filepath.Base(name), Content: content}
	m.mu.Unlock()

	if m.log != nil {
		m.log.Info(logFmtUploadLoaded, name, len(data))
	}

	return nil
}

func (m *Manager) loadPath(path string) error {
	contentType := ContentTypeFor(path)
	if !IsPlainText(contentType) {
		m.logWarn(logFmtUploadRejected, path, contentType)

		return fmt.Errorf("%w: %q", ErrUnsupportedFileType, contentType)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		m.logError(logFmtUploadFailed, path, err)

		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	defer func() { _ = file.Close() }()

	return m.Select(path, contentType, file)
}

func (m *Manager) logWarn(format string, args ...any) {
	if m.log != nil {
		m.log.Warn(format, args...)
	}
}

func (m *Manager) logError(format string, args ...any) {
	if m.log != nil {
		m.log.Error(format, args...)
	}
}

// ContentTypeFor derives a content type from a file name's extension.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))

	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}

	switch ext {
	case ".txt", ".text":
		return PlainTextType
	default:
		return ""
	}
}

// IsPlainText reports whether contentType is text/plain, ignoring parameters.
func IsPlainText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)

	return err == nil && mediaType == PlainTextType
}

// CleanDroppedPath extracts the first file path from pasted drop text.
func CleanDroppedPath(pasted string) string {
	for _, line := range strings.Split(pasted, "\n") {
		candidate := strings.TrimSpace(line)
		if candidate == "" {
			continue
		}

		if len(candidate) >= 2 {
			first, last := candidate[0], candidate[len(candidate)-1]
			if (first == '\'' || first == '"') && first == last {
				candidate = candidate[1 : len(candidate)-1]
			}
		}

		if strings.HasPrefix(candidate, "file://") {
			parsed, err := url.Parse(candidate)
			if err == nil {
				candidate = parsed.Path
			}
		} else {
			candidate = strings.ReplaceAll(candidate, `\ `, " ")
		}

		return candidate
	}

	return ""
}

func decode(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}
