package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVRowParser reads a headered CSV into one map per data row, keyed by the
// header labels.
type CSVRowParser struct{}

func NewCSVParser() *CSVRowParser {
	return &CSVRowParser{}
}

func (p *CSVRowParser) Parse(file io.Reader) (any, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, label := range header {
			if i < len(record) {
				row[label] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
