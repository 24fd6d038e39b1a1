// Package upload tracks each selected statement file through validation,
// transfer and remote processing. The session exclusively owns its file
// items; all mutation goes through the session, keyed by file ID, and is
// last-writer-wins per field so concurrent transfers never contend across
// files.
package upload

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Status is one state of a file's upload lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusValidating Status = "validating"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// next holds the single allowed forward transition per state. Transitions
// are monotonic: no backward moves, error reachable from any non-terminal
// state.
var next = map[Status]Status{
	StatusPending:    StatusValidating,
	StatusValidating: StatusUploading,
	StatusUploading:  StatusProcessing,
	StatusProcessing: StatusSuccess,
}

var (
	ErrFileNotFound      = errors.New("file not found in session")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrFileInFlight      = errors.New("file transfer in progress")
)

// FileItem is one file tracked by a session.
type FileItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	MimeType        string `json:"mimeType"`
	SizeBytes       int64  `json:"sizeBytes"`
	ProgressPercent int    `json:"progressPercent"`
	Status          Status `json:"status"`
	Error           string `json:"error,omitempty"`
	RemoteURL       string `json:"remoteUrl,omitempty"`
	RemoteKey       string `json:"remoteKey,omitempty"`
	ParsedPayload   any    `json:"parsedPayload,omitempty"`
}

// Session is the mutable collection of files for one upload flow.
type Session struct {
	mu    sync.Mutex
	order []string
	files map[string]*FileItem
}

func NewSession() *Session {
	return &Session{files: map[string]*FileItem{}}
}

// Add registers a newly accepted file in the pending state and returns a
// snapshot of it.
func (s *Session) Add(name, mimeType string, sizeBytes int64) FileItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &FileItem{
		ID:        uuid.NewString(),
		Name:      name,
		MimeType:  mimeType,
		SizeBytes: sizeBytes,
		Status:    StatusPending,
	}
	s.order = append(s.order, item.ID)
	s.files[item.ID] = item
	return *item
}

// Transition advances a file one step along the lifecycle. Moving to any
// state other than the file's single allowed successor fails.
func (s *Session) Transition(id string, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	if next[item.Status] != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, item.Status, to)
	}
	item.Status = to
	if to == StatusSuccess {
		item.ProgressPercent = 100
	}
	return nil
}

// Fail moves a file to the terminal error state with a user-facing reason.
// Error is reachable from every non-terminal state.
func (s *Session) Fail(id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	if item.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, item.Status, StatusError)
	}
	item.Status = StatusError
	item.Error = reason
	return nil
}

// SetProgress records transfer progress. Progress is monotonically
// non-decreasing per file; a stale lower value is ignored rather than
// rewinding the bar.
func (s *Session) SetProgress(id string, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > item.ProgressPercent {
		item.ProgressPercent = percent
	}
	return nil
}

// SetRemote records the storage key and URL once bytes have landed.
func (s *Session) SetRemote(id, key, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	item.RemoteKey = key
	item.RemoteURL = url
	return nil
}

// SetParsedPayload attaches best-effort extracted data to a file. Transfer
// success is independent of parse success.
func (s *Session) SetParsedPayload(id string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	item.ParsedPayload = payload
	return nil
}

// Remove drops a file from the active set. Files with an in-flight transfer
// cannot be removed; cancellation mid-transfer is not supported.
func (s *Session) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	switch item.Status {
	case StatusValidating, StatusUploading, StatusProcessing:
		return fmt.Errorf("%w: %s", ErrFileInFlight, id)
	}
	delete(s.files, id)
	for i, fileID := range s.order {
		if fileID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Reset drops every file and returns the session to its initial state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.files = map[string]*FileItem{}
}

// Get returns a snapshot of one file.
func (s *Session) Get(id string) (FileItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.files[id]
	if !ok {
		return FileItem{}, false
	}
	return *item, true
}

// Files returns snapshots of all files in insertion order.
func (s *Session) Files() []FileItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.files[id])
	}
	return out
}

// HasSuccess reports whether at least one file finished successfully; this
// gates the downstream company-info step.
func (s *Session) HasSuccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.files {
		if item.Status == StatusSuccess {
			return true
		}
	}
	return false
}

// AllComplete reports whether no transfer is still in flight. Errored files
// count as complete; they stay visible but do not block navigation.
func (s *Session) AllComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.files {
		if !item.Status.Terminal() {
			return false
		}
	}
	return true
}
