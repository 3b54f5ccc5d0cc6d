// Package sink persists result records.
//
// The engine only knows the Sink interface and appends records in discovery
// order; the storage format lives entirely on this side. The primary format
// is JSONL (one record per line, full float64 precision), with a partitioned
// copy per run mirroring the historical layout used for regression tracking:
//
//	results/results.jsonl                      latest run
//	results/historical/commit=<id>/results.jsonl
package sink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gobench-cli/gobench/internal/meta"
	"github.com/gobench-cli/gobench/internal/record"
)

// Sink receives result records in discovery order.
type Sink interface {
	Append(rec record.ResultRecord) error
	Close() error
}

// Multi fans records out to several sinks.
type Multi []Sink

// Append implements Sink.
func (m Multi) Append(rec record.ResultRecord) error {
	for _, s := range m {
		if err := s.Append(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink, returning the first error.
func (m Multi) Close() error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// JSONL writes one JSON record per line.
type JSONL struct {
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONL creates (or truncates) a JSONL result file, creating parent
// directories as needed.
func NewJSONL(path string) (*JSONL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create results file: %w", err)
	}

	w := bufio.NewWriter(f)
	return &JSONL{f: f, w: w, enc: json.NewEncoder(w)}, nil
}

// Append implements Sink.
func (s *JSONL) Append(rec record.ResultRecord) error {
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *JSONL) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("failed to flush results: %w", err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("failed to close results: %w", err)
	}
	return nil
}

// ReadJSONL loads every record from a JSONL result file.
func ReadJSONL(path string) ([]record.ResultRecord, error) {
	// #nosec G304 - controlled path from CLI
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	var records []record.ResultRecord
	dec := json.NewDecoder(f)
	line := 0

	for {
		var rec record.ResultRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid result at record %d: %w", line+1, err)
		}
		line++
		records = append(records, rec)
	}

	return records, nil
}

// PartitionDir resolves the partitioned save directory for a run:
// base/historical/<key>=<value>/... for each partition key in order.
// Unknown keys are an error so a typo in partition_by never silently
// collapses history into one bucket.
func PartitionDir(base string, partitionBy []string, md meta.Metadata) (string, error) {
	dir := filepath.Join(base, "historical")
	for _, key := range partitionBy {
		value, ok := md.Value(key)
		if !ok {
			return "", fmt.Errorf("unknown partition key %q", key)
		}
		if value == "" {
			value = "unknown"
		}
		dir = filepath.Join(dir, fmt.Sprintf("%s=%s", key, value))
	}
	return dir, nil
}

// SavePartitioned writes the run's records into the partitioned historical
// layout and refreshes the latest-run copy at base/results.jsonl.
func SavePartitioned(base string, partitionBy []string, md meta.Metadata, records []record.ResultRecord) error {
	dir, err := PartitionDir(base, partitionBy, md)
	if err != nil {
		return err
	}

	if err := writeAll(filepath.Join(dir, "results.jsonl"), records); err != nil {
		return err
	}
	return writeAll(filepath.Join(base, "results.jsonl"), records)
}

func writeAll(path string, records []record.ResultRecord) error {
	s, err := NewJSONL(path)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := s.Append(rec); err != nil {
			_ = s.Close()
			return err
		}
	}
	return s.Close()
}
