package event

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Journal appends each published event as a single JSON line to a per-day
// file, so events could be replayed after a crash. Replay itself is not
// implemented; the journal is a forensic record.
type Journal struct {
	mu      sync.Mutex
	dir     string
	file    *os.File
	fileDay string
}

// NewJournal creates a journal writing under dir.
func NewJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return &Journal{dir: dir}, nil
}

// Append writes one event record. Called before dispatch.
func (j *Journal) Append(evt Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := j.fileForLocked(evt.Timestamp)
	if err != nil {
		return err
	}

	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}

// Close closes the current journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

func (j *Journal) fileForLocked(ts time.Time) (*os.File, error) {
	day := ts.Format("20060102")
	if j.file != nil && j.fileDay == day {
		return j.file, nil
	}

	if j.file != nil {
		_ = j.file.Close()
	}

	path := filepath.Join(j.dir, fmt.Sprintf("events_%s.jsonl", day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}

	j.file = f
	j.fileDay = day
	return f, nil
}
