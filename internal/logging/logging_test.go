package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"biblegen/internal/domain"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("json: %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error")
	}
}

func TestNewHandler_Timestamp(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, LevelInfo, FormatJSON)
	l := slog.New(h)
	l.Debug("hidden")
	l.Info("shown", "k", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	ts, ok := rec["time"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	require.Equal(t, "shown", rec["msg"])
}

func TestBuildLog(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	bl, err := OpenBuildLog(dir, NewHandler(&console, LevelError, FormatText))
	require.NoError(t, err)
	bl.clock = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	log := bl.Logger()
	log.Info("processing", "version", "kjv")
	log.Warn("duplicate verse", "book", "Genesis")
	log.Warn("duplicate verse", "book", "Exodus")
	log.With("stage", "map").Error("bad reference")

	report, err := bl.Report(domain.CorpusStats{Books: 2, Chapters: 3, Verses: 40})
	require.NoError(t, err)
	require.NoError(t, bl.Close())

	require.Equal(t, bl.ID, report.BuildID)
	require.Equal(t, "2024-05-06T07:08:09Z", report.Timestamp)
	require.Equal(t, 1, report.Summary.Errors)
	require.Equal(t, 2, report.Summary.Warnings)
	require.Equal(t, 40, report.Summary.Processed.Verses)
	require.Equal(t, filepath.Join(dir, "build-"+bl.ID+".jsonl"), bl.Path)

	f, err := os.Open(bl.Path)
	require.NoError(t, err)
	defer f.Close()

	var records []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 4)
	require.Equal(t, bl.ID, records[0]["build_id"])
	require.Equal(t, "map", records[3]["stage"])

	// Only the error reached the console handler.
	require.Equal(t, 1, strings.Count(console.String(), "\n"))
	require.Contains(t, console.String(), "bad reference")
}

func TestBuildLog_CloseTwice(t *testing.T) {
	bl, err := OpenBuildLog(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, bl.Close())
	require.NoError(t, bl.Close())
}

func TestRotateLogs(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, "build-"+string(rune('a'+i))+".jsonl")
		require.NoError(t, os.WriteFile(p, []byte("{}\n"), 0o644))
		mt := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(p, mt, mt))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	removed, err := RotateLogs(dir, 2)
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{"build-d.jsonl", "build-e.jsonl", "notes.txt"}, names)
}

func TestRotateLogs_MissingDir(t *testing.T) {
	removed, err := RotateLogs(filepath.Join(t.TempDir(), "absent"), 3)
	require.NoError(t, err)
	require.Zero(t, removed)
}
