package parsers

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetParser reads the first sheet of an Excel workbook into one map
// per data row, keyed by the header row, mirroring the CSV parser's output.
type SpreadsheetParser struct{}

func NewSpreadsheetParser() *SpreadsheetParser {
	return &SpreadsheetParser{}
}

func (p *SpreadsheetParser) Parse(file io.Reader) (any, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}

	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	cells, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(cells) == 0 {
		return []map[string]string(nil), nil
	}

	header := cells[0]
	var rows []map[string]string
	for _, record := range cells[1:] {
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
