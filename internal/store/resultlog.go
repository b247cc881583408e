package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/minjae-dev/stockpulse/internal/contracts"
)

// ResultLog is the append-only daily record of raw consultation results,
// written before any notification or persistence decision is made.
type ResultLog struct {
	mu  sync.Mutex
	dir string
}

// NewResultLog ensures the log directory exists.
func NewResultLog(dir string) (*ResultLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create result log dir: %w", err)
	}
	return &ResultLog{dir: dir}, nil
}

// Append writes one result as a JSON line to today's file.
func (l *ResultLog) Append(result contracts.ConsultationResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.dir, fmt.Sprintf("results_%s.jsonl", time.Now().Format("20060102")))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open result log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	return nil
}
