package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"asic-advisor/internal/domain"
)

// Format is the on-disk layout of a dataset file.
type Format string

const (
	// FormatJSONLines is one JSON value per line.
	FormatJSONLines Format = "jsonl"
	// FormatJSON is a single JSON document.
	FormatJSON Format = "json"
)

const maxLineSize = 1 << 20

// ParseFormat validates a file format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSONLines, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("repository: unknown file format %q", s)
	}
}

// FileSource reads a dataset from a local file on every call.
type FileSource struct {
	path   string
	format Format
}

// NewFileSource creates a FileSource. The file is not opened until Records.
func NewFileSource(path string, format Format) (*FileSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("repository: file path must not be empty")
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	return &FileSource{path: path, format: format}, nil
}

// Path returns the file the source reads.
func (f *FileSource) Path() string { return f.path }

// Records parses the whole file. A JSON document that is an array yields its
// elements; any other JSON value yields a single record.
func (f *FileSource) Records(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.format == FormatJSONLines {
		return readJSONLines(f.path)
	}
	return readJSONDocument(f.path)
}

func readJSONLines(path string) ([]domain.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("repository: open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	records := make([]domain.Record, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, fmt.Errorf("repository: %s line %d: invalid JSON", path, lineNo)
		}
		// scanner reuses its buffer
		records = append(records, append(domain.Record(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("repository: read %s: %w", path, err)
	}
	return records, nil
}

func readJSONDocument(path string) ([]domain.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("repository: open %s: %w", path, err)
	}
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("repository: %s: invalid JSON document", path)
	}
	if raw[0] != '[' {
		return []domain.Record{domain.Record(raw)}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("repository: %s: decode array: %w", path, err)
	}
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		records = append(records, domain.Record(item))
	}
	return records, nil
}
