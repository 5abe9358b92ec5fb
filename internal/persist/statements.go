package persist

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Statement is one executed SQL statement as captured in debug mode.
type Statement struct {
	ChangeSet string        `json:"change_set,omitempty"`
	SQL       string        `json:"sql"`
	Params    []any         `json:"params"`
	Took      time.Duration `json:"took_ns"`
	At        time.Time     `json:"at"`
	Error     string        `json:"error,omitempty"`
}

// Kind returns the lower-cased leading keyword (insert, delete, ...).
func (s Statement) Kind() string {
	return statementKind(s.SQL)
}

type statementLog struct {
	mu    sync.Mutex
	items []Statement
}

func (l *statementLog) append(s Statement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, s)
}

func (l *statementLog) snapshot() []Statement {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Statement, len(l.items))
	copy(out, l.items)
	return out
}

func (l *statementLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

func statementKind(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

// writeStatementsJSONL atomically writes one JSON object per statement using
// the temp-file, fsync, rename pattern.
func writeStatementsJSONL(path string, statements []Statement) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".statements-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(format string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf(format, err)
	}

	w := bufio.NewWriter(tmp)
	for _, s := range statements {
		rec, err := json.Marshal(s)
		if err != nil {
			return fail("encoding statement: %w", err)
		}
		if _, err := w.Write(rec); err != nil {
			return fail("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
