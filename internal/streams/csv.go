package streams

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\uFEFF"

// ParseCSV reads a "name,url" table. The header is required, matched
// case-insensitively and may list the columns in any order; extra columns
// are ignored. Records with a different field count than the header become
// rows with Err set so the importer can report them in place.
func ParseCSV(r io.Reader) ([]ImportRow, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && string(prefix) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, NewStreamError(ErrCodeInvalidParams, "csv file is empty", nil)
	}
	if err != nil {
		return nil, NewStreamError(ErrCodeInvalidParams, "failed to read csv header", err)
	}

	nameCol, urlCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "name":
			if nameCol < 0 {
				nameCol = i
			}
		case "url":
			if urlCol < 0 {
				urlCol = i
			}
		}
	}
	if nameCol < 0 || urlCol < 0 {
		return nil, NewStreamError(ErrCodeInvalidParams, "csv header must contain 'name' and 'url' columns", nil)
	}

	var rows []ImportRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, NewStreamError(ErrCodeInvalidParams, "failed to read csv", err)
			}
			rows = append(rows, ImportRow{Err: fmt.Errorf("malformed record on line %d: %w", parseErr.Line, parseErr.Err)})
			continue
		}

		if len(record) != len(header) {
			line, _ := reader.FieldPos(0)
			rows = append(rows, ImportRow{
				Err: fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(record)),
			})
			continue
		}

		rows = append(rows, ImportRow{
			Name: strings.TrimSpace(record[nameCol]),
			URL:  strings.TrimSpace(record[urlCol]),
		})
	}
	return rows, nil
}
