// Package datalog owns the append-only CSV log the dashboard tails.
// The file is only ever appended to, never truncated or rewritten.
package datalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gulfcoastlabs/flood_station/pkg/frame"
)

// Appender writes readings to the log file. A single worker process owns a
// given log path; concurrent writers are not supported.
type Appender struct {
	path           string
	schema         Schema
	syncEveryWrite bool

	mu            sync.Mutex
	file          *os.File
	headerChecked bool
}

// NewAppender prepares an appender for the given path. When syncEveryWrite is
// set, every append is forced to stable storage before it returns, so a crash
// right after a successful Append never loses that record.
func NewAppender(path string, schema Schema, syncEveryWrite bool) *Appender {
	return &Appender{
		path:           path,
		schema:         schema,
		syncEveryWrite: syncEveryWrite,
	}
}

// EnsureHeader writes the header row if the file is missing or empty.
// Once a header exists it is never written again, no matter how many times
// the worker restarts against the same path.
func (a *Appender) EnsureHeader() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ensureHeaderLocked()
}

func (a *Appender) ensureHeaderLocked() error {
	if a.headerChecked {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	info, err := os.Stat(a.path)
	if err == nil && info.Size() > 0 {
		a.headerChecked = true
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	file, err := a.openLocked()
	if err != nil {
		return err
	}
	if _, err := file.WriteString(a.schema.HeaderRow() + "\n"); err != nil {
		a.closeLocked()
		return fmt.Errorf("failed to write log header: %w", err)
	}
	if a.syncEveryWrite {
		if err := file.Sync(); err != nil {
			a.closeLocked()
			return fmt.Errorf("failed to sync log header: %w", err)
		}
	}
	a.headerChecked = true
	return nil
}

// Append serializes one reading in schema order and appends it to the log.
func (a *Appender) Append(r *frame.Reading) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ensureHeaderLocked(); err != nil {
		return err
	}
	file, err := a.openLocked()
	if err != nil {
		return err
	}

	row := strings.Join(a.schema.Record(r), ",") + "\n"
	if _, err := file.WriteString(row); err != nil {
		// Drop the handle so the next attempt reopens cleanly
		a.closeLocked()
		return fmt.Errorf("failed to append reading: %w", err)
	}
	if a.syncEveryWrite {
		if err := file.Sync(); err != nil {
			a.closeLocked()
			return fmt.Errorf("failed to sync log file: %w", err)
		}
	}
	return nil
}

func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *Appender) openLocked() (*os.File, error) {
	if a.file != nil {
		return a.file, nil
	}
	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	a.file = file
	return file, nil
}

func (a *Appender) closeLocked() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}
