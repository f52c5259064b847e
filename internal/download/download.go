// Package download materializes rendered audio: as a file in a local
// directory, or as an object in a NATS bucket announced with an event.
package download

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/fileutil"
	"github.com/google/uuid"
)

const (
	filePermissions = 0o600
	partialPattern  = ".tts-studio-*.part"
)

const (
	logFmtSavedFile   = "Saved %s (%s)"
	logFmtSavedObject = "Stored %s in bucket %s and announced it on %s"
)

// FileSink writes downloads into a directory, numbering repeated names.
type FileSink struct {
	dir string
	log *logger.Logger
}

// NewFileSink creates a FileSink for dir. log may be nil.
func NewFileSink(dir string, log *logger.Logger) *FileSink {
	return &FileSink{dir: dir, log: log}
}

// Save writes data under name and returns the final path. The file only
// appears under its final name once it is complete.
func (s *FileSink) Save(_ context.Context, name string, data []byte) (string, error) {
	err := fileutil.EnsureDir(s.dir)
	if err != nil {
		return "", err
	}

	partial, err := os.CreateTemp(s.dir, partialPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file in %s: %w", s.dir, err)
	}

	partialPath := partial.Name()

	defer func() { _ = os.Remove(partialPath) }()

	_, writeErr := partial.Write(data)
	closeErr := partial.Close()

	if writeErr != nil {
		return "", fmt.Errorf("failed to write %s: %w", partialPath, writeErr)
	}

	if closeErr != nil {
		return "", fmt.Errorf("failed to close %s: %w", partialPath, closeErr)
	}

	err = os.Chmod(partialPath, filePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to set permissions on %s: %w", partialPath, err)
	}

	finalPath, err := fileutil.UniquePath(s.dir, fileutil.SanitizeFilename(name))
	if err != nil {
		return "", err
	}

	err = os.Rename(partialPath, finalPath)
	if err != nil {
		return "", fmt.Errorf("failed to move download to %s: %w", finalPath, err)
	}

	if s.log != nil {
		s.log.Info(logFmtSavedFile, finalPath, fileutil.FormatFileSize(int64(len(data))))
	}

	return finalPath, nil
}

// Publisher sends a message on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ObjectStoreSink uploads downloads to an object store and publishes an
// AudioChunkCreatedEvent for each one.
type ObjectStoreSink struct {
	store     core.ObjectStore
	publisher Publisher
	bucket    string
	subject   string
	log       *logger.Logger
}

// NewObjectStoreSink creates an ObjectStoreSink. log may be nil.
func NewObjectStoreSink(
	store core.ObjectStore,
	publisher Publisher,
	bucket, subject string,
	log *logger.Logger,
) *ObjectStoreSink {
	return &ObjectStoreSink{
		store:     store,
		publisher: publisher,
		bucket:    bucket,
		subject:   subject,
		log:       log,
	}
}

// Save uploads data under a fresh "<workflow id>/<name>" key and returns
// "<bucket>/<key>".
func (s *ObjectStoreSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	workflowID := uuid.NewString()
	key := workflowID + "/" + fileutil.SanitizeFilename(filepath.Base(name))

	err := s.store.Upload(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("failed to upload download: %w", err)
	}

	event := &events.AudioChunkCreatedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: workflowID,
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		AudioKey:   key,
		PageNumber: 1,
		TotalPages: 1,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal audio created event: %w", err)
	}

	err = s.publisher.Publish(s.subject, payload)
	if err != nil {
		return "", fmt.Errorf("failed to publish audio created event: %w", err)
	}

	if s.log != nil {
		s.log.Info(logFmtSavedObject, key, s.bucket, s.subject)
	}

	return s.bucket + "/" + key, nil
}
