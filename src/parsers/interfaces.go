package parsers

import "io"

// Parser extracts best-effort structured data from an uploaded statement.
// Results attach to the owning file as an opportunistic preview; a parse
// failure never fails the upload itself.
type Parser interface {
	Parse(file io.Reader) (any, error)
}
