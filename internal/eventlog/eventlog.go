// Package eventlog persists every rover observation and mining attempt to
// an append-only JSON Lines file. Appends are serialized and unbuffered: a
// successful Append is immediately visible to readers and survives restart.
// The file is never rewritten, compacted, or rotated by the daemon.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/chrissnell/remoterover/internal/types"
	"go.uber.org/zap"
)

// Log is the append-only event log. All reads serve from an in-memory
// index that mirrors the file exactly; the file is replayed once at Open.
type Log struct {
	mu      sync.RWMutex
	path    string
	file    *os.File
	entries []types.LogEntry
	mirror  chan<- types.LogEntry
	logger  *zap.SugaredLogger
}

// Open replays an existing log file into memory and prepares it for
// appending. A torn final line from an interrupted write is truncated away;
// anything after the first unparseable line is discarded with it.
func Open(path string, logger *zap.SugaredLogger) (*Log, error) {
	l := &Log{
		path:   path,
		logger: logger,
	}

	if err := l.replay(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open event log %s: %w", path, err)
	}
	l.file = file

	logger.Infof("event log %s opened with %d entries", path, len(l.entries))
	return l, nil
}

func (l *Log) replay() error {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not read event log %s: %w", l.path, err)
	}
	defer f.Close()

	var validOffset int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		var entry types.LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			l.logger.Warnf("event log %s: unparseable record at offset %d, truncating tail", l.path, validOffset)
			break
		}
		l.entries = append(l.entries, entry)
		validOffset += int64(len(line)) + 1
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("could not scan event log %s: %w", l.path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("could not stat event log %s: %w", l.path, err)
	}
	if stat.Size() > validOffset {
		if err := os.Truncate(l.path, validOffset); err != nil {
			return fmt.Errorf("could not truncate torn tail of %s: %w", l.path, err)
		}
	}
	return nil
}

// SetMirror attaches an optional channel that receives a copy of every
// appended entry. Delivery is best-effort and never delays the append.
func (l *Log) SetMirror(ch chan<- types.LogEntry) {
	l.mu.Lock()
	l.mirror = ch
	l.mu.Unlock()
}

// Append serializes the entry to the file and the in-memory index. The
// in-memory index is only updated after the file write succeeds, so memory
// never claims records the disk does not hold.
func (l *Log) Append(entry types.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("could not marshal log entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("could not append to event log: %w", err)
	}
	l.entries = append(l.entries, entry)

	if l.mirror != nil {
		select {
		case l.mirror <- entry:
		default:
			l.logger.Debugf("event mirror channel full, entry not mirrored")
		}
	}
	return nil
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// All returns every entry in chronological order.
func (l *Log) All() []types.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail returns the most recent n entries in chronological order. n larger
// than the log returns everything; n <= 0 returns an empty slice.
func (l *Log) Tail(n int) []types.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 {
		return []types.LogEntry{}
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]types.LogEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Filter returns the most recent entries matching action, capped at limit.
// An empty action matches everything.
func (l *Log) Filter(action string, limit int) []types.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 {
		return []types.LogEntry{}
	}

	out := make([]types.LogEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if action == "" || l.entries[i].Action == action {
			out = append(out, l.entries[i])
		}
	}
	// Collected newest-first; flip to chronological.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Close closes the underlying file. Appends after Close fail.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
