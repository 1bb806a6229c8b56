package logging

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"biblegen/internal/domain"
)

const (
	buildLogPrefix = "build-"
	buildLogSuffix = ".jsonl"

	DefaultKeepBuilds = 10
)

// BuildLog is the per-build JSONL diagnostic log. Records go to the file
// and, when given, to a console handler; warnings and errors are counted
// for the build report.
type BuildLog struct {
	ID   string
	Path string

	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	counts *counts
	logger *slog.Logger
	clock  func() time.Time
}

// OpenBuildLog creates build-<id>.jsonl in dir. console may be nil.
func OpenBuildLog(dir string, console slog.Handler) (*BuildLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	id := uuid.New().String()
	path := filepath.Join(dir, buildLogPrefix+id+buildLogSuffix)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create build log: %w", err)
	}

	bl := &BuildLog{
		ID:     id,
		Path:   path,
		file:   f,
		buf:    bufio.NewWriter(f),
		counts: &counts{},
		clock:  time.Now,
	}

	var handler slog.Handler = NewHandler(lockedWriter{bl}, LevelDebug, FormatJSON)
	if console != nil {
		handler = fanoutHandler{handler, console}
	}
	bl.logger = slog.New(&countingHandler{next: handler, counts: bl.counts}).With("build_id", id)
	return bl, nil
}

type lockedWriter struct{ bl *BuildLog }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.bl.mu.Lock()
	defer w.bl.mu.Unlock()
	if w.bl.buf == nil {
		return 0, os.ErrClosed
	}
	return w.bl.buf.Write(p)
}

// Logger returns the build's logger.
func (b *BuildLog) Logger() *slog.Logger {
	return b.logger
}

// Warnings returns the number of warnings logged so far.
func (b *BuildLog) Warnings() int {
	return int(b.counts.warnings.Load())
}

// Errors returns the number of errors logged so far.
func (b *BuildLog) Errors() int {
	return int(b.counts.errors.Load())
}

type ReportSummary struct {
	Errors    int                `json:"errors"`
	Warnings  int                `json:"warnings"`
	Processed domain.CorpusStats `json:"processed"`
}

// Report summarizes a finished build.
type Report struct {
	BuildID   string        `json:"build_id"`
	Timestamp string        `json:"timestamp"`
	LogFile   string        `json:"log_file"`
	Summary   ReportSummary `json:"summary"`
}

// Report flushes the log and returns the build summary.
func (b *BuildLog) Report(stats domain.CorpusStats) (Report, error) {
	if err := b.flush(); err != nil {
		return Report{}, err
	}
	return Report{
		BuildID:   b.ID,
		Timestamp: b.clock().UTC().Format(time.RFC3339),
		LogFile:   b.Path,
		Summary: ReportSummary{
			Errors:    b.Errors(),
			Warnings:  b.Warnings(),
			Processed: stats,
		},
	}, nil
}

func (b *BuildLog) flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf == nil {
		return nil
	}
	if err := b.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush build log: %w", err)
	}
	return nil
}

// Close flushes and closes the log file.
func (b *BuildLog) Close() error {
	if err := b.flush(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file, b.buf = nil, nil
	return err
}

// RotateLogs keeps the keep most recently modified build logs in dir and
// deletes the rest. keep <= 0 disables rotation.
func RotateLogs(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	type logFile struct {
		path    string
		modTime time.Time
	}
	var logs []logFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, buildLogPrefix) || !strings.HasSuffix(name, buildLogSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		logs = append(logs, logFile{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}
	if len(logs) <= keep {
		return 0, nil
	}

	sort.Slice(logs, func(i, j int) bool {
		if logs[i].modTime.Equal(logs[j].modTime) {
			return logs[i].path < logs[j].path
		}
		return logs[i].modTime.Before(logs[j].modTime)
	})

	removed := 0
	for _, l := range logs[:len(logs)-keep] {
		if err := os.Remove(l.path); err != nil {
			return removed, fmt.Errorf("failed to delete old build log %s: %w", l.path, err)
		}
		removed++
	}
	return removed, nil
}
