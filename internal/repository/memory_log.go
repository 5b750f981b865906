package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"studymate-bot/internal/models"
)

// MemoryLog is an append-only text log per (user, tier).
type MemoryLog interface {
	Append(ctx context.Context, userID int64, tier models.MemoryTier, line string) error
	Load(ctx context.Context, userID int64, tier models.MemoryTier) (string, error)
}

type memoryKey struct {
	userID int64
	tier   models.MemoryTier
}

// backupTimeFormat is the timestamp lumberjack puts into rotated file names.
const backupTimeFormat = "2006-01-02T15-04-05.000"

// FileMemoryLog stores each (user, tier) log in <dir>/user_<id>_<tier>.txt.
// The file rotates at maxSizeMB; Load returns the rotated backups oldest
// first followed by the live file. Only maxBackups > 0 drops old lines.
type FileMemoryLog struct {
	dir        string
	maxSizeMB  int
	maxBackups int

	mu      sync.Mutex
	writers map[memoryKey]*lumberjack.Logger

	// appends share rotate, Load takes it exclusively so a rotation never
	// happens between reading the backups and the live file
	rotate sync.RWMutex
}

func NewFileMemoryLog(dir string, maxSizeMB, maxBackups int) (*FileMemoryLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create memory dir: %w", err)
	}
	return &FileMemoryLog{
		dir:        dir,
		maxSizeMB:  maxSizeMB,
		maxBackups: maxBackups,
		writers:    make(map[memoryKey]*lumberjack.Logger),
	}, nil
}

func (m *FileMemoryLog) path(userID int64, tier models.MemoryTier) string {
	return filepath.Join(m.dir, fmt.Sprintf("user_%d_%s.txt", userID, tier))
}

func (m *FileMemoryLog) writer(userID int64, tier models.MemoryTier) *lumberjack.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey{userID: userID, tier: tier}
	w, ok := m.writers[key]
	if !ok {
		w = &lumberjack.Logger{
			Filename:   m.path(userID, tier),
			MaxSize:    m.maxSizeMB,
			MaxBackups: m.maxBackups,
		}
		m.writers[key] = w
	}
	return w
}

// Append writes line plus a newline in a single locked write, so concurrent
// appends for the same user never interleave.
func (m *FileMemoryLog) Append(_ context.Context, userID int64, tier models.MemoryTier, line string) error {
	m.rotate.RLock()
	defer m.rotate.RUnlock()

	if _, err := m.writer(userID, tier).Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("append %s memory for user %d: %w", tier, userID, err)
	}
	return nil
}

func (m *FileMemoryLog) Load(_ context.Context, userID int64, tier models.MemoryTier) (string, error) {
	m.rotate.Lock()
	defer m.rotate.Unlock()

	live := m.path(userID, tier)
	files, err := backupFiles(live)
	if err != nil {
		return "", fmt.Errorf("load %s memory for user %d: %w", tier, userID, err)
	}
	files = append(files, live)

	var b strings.Builder
	for _, name := range files {
		data, err := os.ReadFile(name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("load %s memory for user %d: %w", tier, userID, err)
		}
		b.Write(data)
	}
	return b.String(), nil
}

// backupFiles lists lumberjack backups of live (<name>-<timestamp><ext>),
// oldest first.
func backupFiles(live string) ([]string, error) {
	dir := filepath.Dir(live)
	ext := filepath.Ext(live)
	prefix := strings.TrimSuffix(filepath.Base(live), ext) + "-"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type backup struct {
		name string
		at   time.Time
	}
	var backups []backup
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
		at, err := time.Parse(backupTimeFormat, stamp)
		if err != nil {
			continue
		}
		backups = append(backups, backup{name: filepath.Join(dir, name), at: at})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].at.Before(backups[j].at) })

	out := make([]string, len(backups))
	for i, b := range backups {
		out[i] = b.name
	}
	return out, nil
}

func (m *FileMemoryLog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for key, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(m.writers, key)
	}
	return errors.Join(errs...)
}

// SplitLines splits a loaded log into its lines.
func SplitLines(log string) []string {
	log = strings.TrimSuffix(log, "\n")
	if log == "" {
		return nil
	}
	return strings.Split(log, "\n")
}
