package consult

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DebugSink stores failing prompt/response pairs for offline inspection.
// Write failures are reported but never fatal.
type DebugSink struct {
	dir string
}

// NewDebugSink ensures the dump directory exists.
func NewDebugSink(dir string) (*DebugSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}
	return &DebugSink{dir: dir}, nil
}

type debugRecord struct {
	Symbol    string    `json:"symbol"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
}

// Dump writes one failure record.
func (s *DebugSink) Dump(symbol, requestID, prompt, response string, cause error) error {
	rec := debugRecord{
		Symbol:    strings.ToUpper(symbol),
		RequestID: requestID,
		Timestamp: time.Now(),
		Prompt:    prompt,
		Response:  response,
	}
	if cause != nil {
		rec.Error = cause.Error()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode debug record: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", rec.Symbol, rec.Timestamp.Format("20060102_150405.000"))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write debug record: %w", err)
	}

	return nil
}
