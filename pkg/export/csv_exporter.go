package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Section is one titled table of an export, such as a single student group.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Dataset defines tabular export content made of one or more sections.
type Dataset struct {
	Title    string
	Sections []Section
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes each section as a title row, a header row and its records,
// separated by an empty record.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Sections) == 0 {
		return nil, fmt.Errorf("csv requires at least one section")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for i, section := range data.Sections {
		if len(section.Headers) == 0 {
			return nil, fmt.Errorf("csv section %q has no headers", section.Title)
		}
		if i > 0 {
			if err := writer.Write([]string{""}); err != nil {
				return nil, fmt.Errorf("write csv separator: %w", err)
			}
		}
		if section.Title != "" {
			if err := writer.Write([]string{section.Title}); err != nil {
				return nil, fmt.Errorf("write csv title: %w", err)
			}
		}
		if err := writer.Write(section.Headers); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		for _, row := range section.Rows {
			record := make([]string, len(section.Headers))
			copy(record, row)
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
