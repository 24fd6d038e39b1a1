package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/RendaniXcode/moneypro/src/logger"
	"github.com/RendaniXcode/moneypro/src/parsers"
	"github.com/RendaniXcode/moneypro/src/security/validation"
	"github.com/RendaniXcode/moneypro/src/storage"
	"github.com/RendaniXcode/moneypro/src/upload"
)

type uploadServiceImpl struct {
	store              storage.ObjectStore
	transfers          *semaphore.Weighted
	maxUploadSizeBytes int64
	allowedTypes       []string
	folder             string

	// processingDelay is how long to wait before promoting a stored file to
	// success. The processing backend offers no completion channel, so this
	// optimistic fixed delay is the fallback; a genuinely slow job is not
	// observable from here.
	processingDelay time.Duration
}

func NewUploadService(store storage.ObjectStore, maxUploadSizeBytes int64, allowedTypes []string, folder string, concurrency int64, processingDelay time.Duration) UploadService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &uploadServiceImpl{
		store:              store,
		transfers:          semaphore.NewWeighted(concurrency),
		maxUploadSizeBytes: maxUploadSizeBytes,
		allowedTypes:       allowedTypes,
		folder:             folder,
		processingDelay:    processingDelay,
	}
}

// ProcessUpload drives one file through pending, validating, uploading,
// processing and success. Any validation or transfer failure lands the file
// in the terminal error state without touching sibling uploads; the returned
// snapshot reflects the file's final state either way.
func (s *uploadServiceImpl) ProcessUpload(ctx context.Context, session *upload.Session, name, mimeType string, sizeBytes int64, file io.ReadSeeker) (upload.FileItem, error) {
	item := session.Add(name, mimeType, sizeBytes)
	logger.L.Info("ProcessUpload START", "fileId", item.ID, "name", name, "type", mimeType, "size", sizeBytes)

	// Initial screening at accept time.
	if err := validation.ValidateFileMeta(name, mimeType, sizeBytes, s.maxUploadSizeBytes, s.allowedTypes); err != nil {
		return s.fail(session, item.ID, err)
	}

	// Secondary pass immediately before transfer: the policy may have
	// changed since drop time, and spreadsheet MIME sniffing is unreliable.
	if err := session.Transition(item.ID, upload.StatusValidating); err != nil {
		return s.fail(session, item.ID, err)
	}
	if err := validation.ValidateFileMeta(name, mimeType, sizeBytes, s.maxUploadSizeBytes, s.allowedTypes); err != nil {
		return s.fail(session, item.ID, err)
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		return s.fail(session, item.ID, err)
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadSizeBytes+1))
	if err != nil {
		return s.fail(session, item.ID, fmt.Errorf("%w: reading file: %v", storage.ErrTransferFailed, err))
	}
	if int64(len(data)) > s.maxUploadSizeBytes {
		return s.fail(session, item.ID, &validation.ValidationError{
			Reason:  validation.ReasonSize,
			Message: fmt.Sprintf("File is too large. Maximum file size is %dMB.", s.maxUploadSizeBytes/(1024*1024)),
		})
	}

	// Best-effort structured extraction for non-PDF types. Transfer success
	// is independent of parse success.
	s.parseSideChannel(session, item.ID, mimeType, data)

	if err := s.transfers.Acquire(ctx, 1); err != nil {
		return s.fail(session, item.ID, fmt.Errorf("%w: %v", storage.ErrTransferFailed, err))
	}
	defer s.transfers.Release(1)

	if err := session.Transition(item.ID, upload.StatusUploading); err != nil {
		return s.fail(session, item.ID, err)
	}

	key := storage.MakeObjectKey(s.folder, name)
	url, err := s.store.Upload(ctx, key, mimeType, int64(len(data)), bytes.NewReader(data), func(percent int) {
		if err := session.SetProgress(item.ID, percent); err != nil {
			logger.L.Warn("Dropping progress update", "fileId", item.ID, "error", err)
		}
	})
	if err != nil {
		return s.fail(session, item.ID, err)
	}
	if err := session.SetRemote(item.ID, key, url); err != nil {
		return s.fail(session, item.ID, err)
	}

	if err := session.Transition(item.ID, upload.StatusProcessing); err != nil {
		return s.fail(session, item.ID, err)
	}

	// Optimistic promotion: without a completion signal from the extraction
	// job, wait the configured delay and declare success.
	select {
	case <-time.After(s.processingDelay):
	case <-ctx.Done():
		return s.fail(session, item.ID, fmt.Errorf("%w: %v", storage.ErrTransferFailed, ctx.Err()))
	}

	if err := session.Transition(item.ID, upload.StatusSuccess); err != nil {
		return s.fail(session, item.ID, err)
	}

	final, _ := session.Get(item.ID)
	logger.L.Info("ProcessUpload END", "fileId", item.ID, "key", key)
	return final, nil
}

func (s *uploadServiceImpl) parseSideChannel(session *upload.Session, fileID, mimeType string, data []byte) {
	parser, err := parsers.GetParser(mimeType)
	if err != nil {
		if !errors.Is(err, parsers.ErrNoParser) {
			logger.L.Warn("Parser lookup failed", "fileId", fileID, "type", mimeType, "error", err)
		}
		return
	}
	payload, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		logger.L.Warn("Side-channel parse failed, continuing upload", "fileId", fileID, "type", mimeType, "error", err)
		return
	}
	if err := session.SetParsedPayload(fileID, payload); err != nil {
		logger.L.Warn("Failed to attach parsed payload", "fileId", fileID, "error", err)
	}
}

func (s *uploadServiceImpl) fail(session *upload.Session, fileID string, cause error) (upload.FileItem, error) {
	if err := session.Fail(fileID, cause.Error()); err != nil {
		logger.L.Error("Failed to mark file as errored", "fileId", fileID, "error", err)
	}
	logger.L.Warn("ProcessUpload failed", "fileId", fileID, "error", cause)
	item, _ := session.Get(fileID)
	return item, fmt.Errorf("%w: %w", ErrUploadFailed, cause)
}
