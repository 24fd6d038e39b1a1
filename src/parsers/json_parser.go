package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONDocParser decodes an uploaded JSON document as-is.
type JSONDocParser struct{}

func NewJSONParser() *JSONDocParser {
	return &JSONDocParser{}
}

func (p *JSONDocParser) Parse(file io.Reader) (any, error) {
	dec := json.NewDecoder(file)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON file: %w", err)
	}
	return doc, nil
}
