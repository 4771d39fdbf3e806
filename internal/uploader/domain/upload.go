package domain

import (
	"errors"
	"fmt"
	"net/url"
)

// Status is the lifecycle status of a single upload.
type Status string

const (
	StatusStarted   Status = "STARTED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// ErrorKind classifies why an upload attempt did not succeed.
type ErrorKind string

const (
	// KindResponse means the server responded with a non-success status.
	// The upload stays queued and is retried on a later job run.
	KindResponse ErrorKind = "RESPONSE"

	// KindNetwork means no response was obtained at all.
	// The upload stays queued and is retried on a later job run.
	KindNetwork ErrorKind = "NETWORK"

	// KindMissingFile means the local file is gone. Terminal: the upload
	// is dropped from the queue and never retried.
	KindMissingFile ErrorKind = "MISSING_FILE"
)

// UploadError describes a failed or abandoned upload attempt.
type UploadError struct {
	Kind       ErrorKind
	HTTPStatus int // only set for KindResponse
	Message    string
}

func (e *UploadError) Error() string {
	if e.Kind == KindResponse {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the upload stays queued for a future attempt.
func (e *UploadError) Retryable() bool {
	return e.Kind == KindResponse || e.Kind == KindNetwork
}

// Upload describes one queued file upload. Immutable once created; the
// queue store owns it, the orchestrator only references it while a batch
// is in flight.
type Upload struct {
	ID             string            `json:"id"`
	FilePath       string            `json:"filePath"`
	UploadURL      string            `json:"uploadUrl"`
	DeleteOnUpload bool              `json:"deleteOnUpload"`
	Extras         map[string]string `json:"extras,omitempty"`
}

// Validate checks that the upload descriptor is usable.
func (u *Upload) Validate() error {
	if u.ID == "" {
		return errors.New("upload ID must not be empty")
	}
	if u.FilePath == "" {
		return errors.New("upload file path must not be empty")
	}
	if u.UploadURL == "" {
		return errors.New("upload URL must not be empty")
	}
	parsed, err := url.Parse(u.UploadURL)
	if err != nil {
		return fmt.Errorf("invalid upload URL %s: %w", u.UploadURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("upload URL %s must be absolute", u.UploadURL)
	}
	return nil
}

// DeepCopy returns an independent copy of the upload descriptor.
func (u *Upload) DeepCopy() *Upload {
	if u == nil {
		return nil
	}

	uploadCopy := *u
	if u.Extras != nil {
		uploadCopy.Extras = make(map[string]string, len(u.Extras))
		for k, v := range u.Extras {
			uploadCopy.Extras[k] = v
		}
	}

	return &uploadCopy
}
