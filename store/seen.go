package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SeenLog is an append-only file of ids, one per line, loaded into memory on
// open. Tools use it to skip games they already processed.
//
// A crash mid-append can leave a partial last line; it is read back as an id
// that never matches, which only costs one reprocessed game.
type SeenLog struct {
	mu   sync.RWMutex
	file *os.File
	seen map[string]struct{}
}

func OpenSeenLog(path string) (*SeenLog, error) {
	if path == "" {
		return nil, fmt.Errorf("seen log path is required")
	}

	seen := make(map[string]struct{})
	if f, err := os.Open(path); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if id := strings.TrimSpace(sc.Text()); id != "" {
				seen[id] = struct{}{}
			}
		}
		_ = f.Close()
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read seen log: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create seen log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open seen log: %w", err)
	}
	return &SeenLog{file: file, seen: seen}, nil
}

func (l *SeenLog) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[id]
	return ok
}

func (l *SeenLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.seen)
}

// Add appends ids not already present and syncs once.
func (l *SeenLog) Add(ids ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("seen log is closed")
	}

	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := l.seen[id]; ok {
			continue
		}
		if _, err := l.file.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("append seen log: %w", err)
		}
		l.seen[id] = struct{}{}
		added++
	}
	if added == 0 {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync seen log: %w", err)
	}
	return nil
}

func (l *SeenLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
