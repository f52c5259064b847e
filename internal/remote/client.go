// Package remote talks to the render backend that turns text into a
// downloadable audio file.
//
// Failures come in two tiers. A transport failure (no backend listening, the
// connection dropped) is ErrNetworkUnavailable: local playback still works and
// the user only needs to start the backend. An HTTP error status is a
// *ServerError carrying the backend's own message.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerRequestID   = "X-Request-ID"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"
)

// Default request values.
const (
	DefaultVoice = "alloy"
	DefaultModel = "tts-1"
)

// Messages substituted when the backend's error payload is unusable.
const (
	UnknownErrorMessage = "Unknown error"
	FallbackMessage     = "Failed to generate audio"
)

var (
	// ErrNetworkUnavailable reports a transport-level failure.
	ErrNetworkUnavailable = errors.New("render backend unreachable")
	// ErrEmptyText rejects a request without text.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrEmptyAudio reports a successful response without a body.
	ErrEmptyAudio = errors.New("received empty audio data")
)

const (
	logFmtRequest     = "Requesting render %s (%d chars, voice %s, model %s)"
	logFmtRendered    = "Render %s returned %d bytes"
	logFmtServerError = "Render %s failed with status %d: %s"
	logFmtUnreachable = "Render backend at %s unreachable: %v"
)

// ServerError is an HTTP error status returned by the backend.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("render backend returned %d: %s", e.Code, e.Message)
}

// Request is the JSON body of a render request.
type Request struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
	Model string `json:"model"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Artifact is a rendered audio file ready to be saved.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	RequestID   string
}

// Client sends render requests to one backend.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	endpoint       string
	voicesEndpoint string
	fileName       string
	log            *logger.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	Endpoint       string
	VoicesEndpoint string
	FileName       string
	Timeout        time.Duration
}

// NewClient creates a Client. log may be nil.
func NewClient(opts Options, log *logger.Logger) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: opts.Timeout},
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		endpoint:       opts.Endpoint,
		voicesEndpoint: opts.VoicesEndpoint,
		fileName:       opts.FileName,
		log:            log,
	}
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestDownload renders text remotely. Empty voiceID and modelID select
// DefaultVoice and DefaultModel. There are no retries.
func (c *Client) RequestDownload(ctx context.Context, text, voiceID, modelID string) (*Artifact, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	request := Request{Text: text, Voice: voiceID, Model: modelID}
	if request.Voice == "" {
		request.Voice = DefaultVoice
	}

	if request.Model == "" {
		request.Model = DefaultModel
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	requestID := uuid.NewString()

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+c.endpoint,
		bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeMPEG)
	httpReq.Header.Set(headerRequestID, requestID)

	c.logInfo(logFmtRequest, requestID, len(text), request.Voice, request.Model)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logWarn(logFmtUnreachable, c.baseURL, err)

		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		serverErr := parseErrorResponse(resp)
		c.logWarn(logFmtServerError, requestID, serverErr.Code, serverErr.Message)

		return nil, serverErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logWarn(logFmtUnreachable, c.baseURL, err)

		return nil, fmt.Errorf("%w: failed to read audio data: %w", ErrNetworkUnavailable, err)
	}

	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	c.logInfo(logFmtRendered, requestID, len(data))

	contentType := resp.Header.Get(headerContentType)
	if contentType == "" {
		contentType = contentTypeMPEG
	}

	return &Artifact{
		Name:        c.fileName,
		ContentType: contentType,
		Data:        data,
		RequestID:   requestID,
	}, nil
}

// ListLanguages fetches the backend's language table, code to display name.
func (c *Client) ListLanguages(ctx context.Context) (map[string]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.voicesEndpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerAccept, contentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	var languages map[string]string

	err = json.NewDecoder(resp.Body).Decode(&languages)
	if err != nil {
		return nil, fmt.Errorf("failed to decode language table: %w", err)
	}

	return languages, nil
}

func parseErrorResponse(resp *http.Response) *ServerError {
	serverErr := &ServerError{Code: resp.StatusCode, Message: UnknownErrorMessage}

	var payload errorResponse

	err := json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return serverErr
	}

	serverErr.Message = payload.Error
	if serverErr.Message == "" {
		serverErr.Message = FallbackMessage
	}

	return serverErr
}

func (c *Client) logInfo(format string, args ...any) {
	if c.log != nil {
		c.log.Info(format, args...)
	}
}

func (c *Client) logWarn(format string, args ...any) {
	if c.log != nil {
		c.log.Warn(format, args...)
	}
}
