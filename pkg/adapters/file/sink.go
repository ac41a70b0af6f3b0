// Package file persists telemetry as a JSON trace document on the local
// filesystem.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/telemetry"
)

// DefaultPath is used when New receives an empty path.
var DefaultPath = filepath.Join(".orichalcum", "trace.json")

// Trace is the on-disk document.
type Trace struct {
	Events []telemetry.Event        `json:"events"`
	Issues []schema.ValidationIssue `json:"issues"`
}

// Sink buffers events and issues. Flush merges them into the trace file.
type Sink struct {
	Path string

	mu     sync.Mutex
	events []telemetry.Event
	issues []schema.ValidationIssue
}

// New creates a sink writing to path.
func New(path string) *Sink {
	if path == "" {
		path = DefaultPath
	}
	return &Sink{Path: path}
}

func (s *Sink) Record(_ context.Context, e telemetry.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *Sink) RecordIssue(_ context.Context, issue schema.ValidationIssue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues = append(s.issues, issue)
	return nil
}

// Flush appends the buffered records to the trace file. The file is replaced
// atomically, so readers never see a partial document.
func (s *Sink) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 && len(s.issues) == 0 {
		return nil
	}

	trace, err := Load(s.Path)
	if err != nil {
		return err
	}
	trace.Events = append(trace.Events, s.events...)
	trace.Issues = append(trace.Issues, s.issues...)

	if err := writeAtomic(s.Path, trace); err != nil {
		return err
	}
	s.events = nil
	s.issues = nil
	return nil
}

// Load reads a trace file. A missing file is an empty trace.
func Load(path string) (*Trace, error) {
	trace := &Trace{Events: []telemetry.Event{}, Issues: []schema.ValidationIssue{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return trace, nil
		}
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	if err := json.Unmarshal(data, trace); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace: %w", err)
	}
	return trace, nil
}

func writeAtomic(path string, trace *Trace) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure trace directory: %w", err)
	}

	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}

	// same directory keeps the rename on one filesystem
	tmp, err := os.CreateTemp(dir, "tmp-trace-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing trace file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to trace: %w", err)
	}
	return nil
}
