package validation

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrValidationFailed is the sentinel wrapped by every ValidationError.
var ErrValidationFailed = errors.New("file validation failed")

// Reason classifies why a file was rejected so the caller can surface a
// specific message per file.
type Reason string

const (
	ReasonSize Reason = "size"
	ReasonType Reason = "type"
)

// ValidationError is a pre-transfer rejection with a user-facing message.
type ValidationError struct {
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// spreadsheetTypes are the MIME types whose extension must be cross-checked:
// spreadsheet MIME sniffing is unreliable, so a declared spreadsheet type
// with a mismatched extension is rejected.
var spreadsheetTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel":                                          true,
}

var spreadsheetExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// ValidateFileMeta screens a file on its declared metadata before any bytes
// move: declared MIME type against the configured allow-list, size against
// the single configured ceiling, and the spreadsheet extension cross-check.
func ValidateFileMeta(name, mimeType string, sizeBytes, maxSizeBytes int64, allowedTypes []string) error {
	normalized := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))

	allowed := false
	for _, t := range allowedTypes {
		if t == normalized {
			allowed = true
			break
		}
	}
	if !allowed {
		return &ValidationError{
			Reason:  ReasonType,
			Message: "Invalid file type. Please upload PDF, JSON, Excel, or CSV files.",
		}
	}

	if sizeBytes > maxSizeBytes {
		return &ValidationError{
			Reason:  ReasonSize,
			Message: fmt.Sprintf("File is too large. Maximum file size is %dMB.", maxSizeBytes/(1024*1024)),
		}
	}

	if spreadsheetTypes[normalized] {
		ext := strings.ToLower(filepath.Ext(name))
		if !spreadsheetExtensions[ext] {
			return &ValidationError{
				Reason:  ReasonType,
				Message: "Invalid Excel file format. Only .xlsx and .xls files are allowed.",
			}
		}
	}

	return nil
}

// allowedDetectedTypes are content types http.DetectContentType may report
// for the accepted upload formats. xlsx detects as zip, xls as a generic
// binary stream; strict parsing later is what actually rejects bad content.
var allowedDetectedTypes = map[string]bool{
	"text/plain":                true, // CSV and JSON are usually sniffed as plain text
	"text/csv":                  true,
	"application/csv":           true,
	"application/json":          true,
	"application/pdf":           true,
	"application/zip":           true,
	"application/octet-stream":  true,
	"application/x-ole-storage": true,
}

// ValidateFileContentByMagicBytes checks the actual file content signature
// (magic bytes) against the accepted formats. It returns the detected content
// type, and resets the read pointer so the caller can consume the full file.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512) // 512 bytes is all DetectContentType considers
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset so the transfer and parsers read the full file.
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	if !allowedDetectedTypes[detected] {
		return detected, &ValidationError{
			Reason:  ReasonType,
			Message: fmt.Sprintf("detected file content type '%s' does not match an accepted format", detected),
		}
	}

	return detected, nil
}
