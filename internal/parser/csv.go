// Package parser reads the selected CSV locally so the dashboard can show
// what is about to be uploaded. Nothing here rejects a file.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Preview describes a CSV file without interpreting its values.
type Preview struct {
	Delimiter rune
	Columns   []string
	Rows      int
}

// SniffDelimiter picks ',', ';' or tab from the header line and the file name.
func SniffDelimiter(name string, content []byte) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	header, _, _ := bytes.Cut(content, []byte("\n"))
	best, bestN := ',', bytes.Count(header, []byte(","))
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(header, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// ReadCSV returns all records, ragged rows included.
func ReadCSV(content []byte, delim rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

// PreviewCSV counts data rows and reads the header.
func PreviewCSV(name string, content []byte) (*Preview, error) {
	delim := SniffDelimiter(name, content)
	r := csv.NewReader(bytes.NewReader(content))
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Preview{Delimiter: delim}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	p := &Preview{Delimiter: delim, Columns: append([]string(nil), header...)}
	for {
		_, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", p.Rows+2, err)
		}
		p.Rows++
	}
	return p, nil
}
