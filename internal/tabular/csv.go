package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrEmpty is returned when a table has no header line.
var ErrEmpty = errors.New("empty table")

const bom = "\ufeff"

// ParseSeparator turns a configured separator into a rune. "tab" and `\t`
// select a tab; anything else must be exactly one character.
func ParseSeparator(sep string) (rune, error) {
	switch sep {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(sep) != 1 {
		return 0, fmt.Errorf("separator %q must be a single character", sep)
	}
	r, _ := utf8.DecodeRuneInString(sep)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("separator %q not allowed", sep)
	}
	return r, nil
}

// Read decodes a delimited table whose first line is the header. Header names
// are trimmed and a leading byte-order mark is dropped.
func Read(r io.Reader, sep rune) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], bom))
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		rows = append(rows, record)
	}
	return New(header, rows), nil
}

// ReadFile opens path and decodes it with Read.
func ReadFile(path string, sep rune) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	frame, err := Read(file, sep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

// Write encodes the frame, header first.
func (f *Frame) Write(w io.Writer, sep rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = sep
	if err := writer.Write(f.Header); err != nil {
		return err
	}
	for _, row := range f.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Bytes returns the encoded frame.
func (f *Frame) Bytes(sep rune) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := f.Write(buf, sep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
