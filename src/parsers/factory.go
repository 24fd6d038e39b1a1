package parsers

import (
	"errors"
	"fmt"
)

// ErrNoParser indicates a MIME type with no client-side parser. PDF extraction
// happens server-side after upload, so PDFs fall in this bucket.
var ErrNoParser = errors.New("no parser available")

func GetParser(mimeType string) (Parser, error) {
	switch mimeType {
	case "text/csv":
		return NewCSVParser(), nil
	case "application/json":
		return NewJSONParser(), nil
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel":
		return NewSpreadsheetParser(), nil
	default:
		return nil, fmt.Errorf("%w for type: %s", ErrNoParser, mimeType)
	}
}
