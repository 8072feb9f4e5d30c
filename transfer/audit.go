package transfer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pansave/internal"
)

// AuditLog is the append-only per-item outcome log of a transfer run,
// written as one JSON object per line for post-run inspection
type AuditLog struct {
	mutex sync.Mutex
	file  *os.File
	enc   *json.Encoder
	path  string
}

// OpenAuditLog creates the audit file for one run under dir
func OpenAuditLog(dir, runID string) (*AuditLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	name := fmt.Sprintf("transfer_%s_%s.jsonl", time.Now().Format("20060102_150405"), runID[:8])
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &AuditLog{
		file: file,
		enc:  json.NewEncoder(file),
		path: path,
	}, nil
}

// Record appends one entry. Audit failures are reported but must never
// abort the batch, so callers log and continue.
func (a *AuditLog) Record(entry internal.AuditEntry) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.enc.Encode(entry)
}

// Path returns the audit file location for the end-of-run report
func (a *AuditLog) Path() string {
	return a.path
}

// Close flushes and closes the audit file
func (a *AuditLog) Close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.file.Close()
}
