package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"biblegen/config"
)

func run(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestBuildLookupValidate(t *testing.T) {
	dir := t.TempDir()
	datasets := map[string]string{
		"kjv.txt": "Genesis\nChapter 1\n1 In the beginning God created the heaven and the earth.\n2 And the earth was without form, and void.\n",
		"web.txt": "Genesis\nChapter 1\n1 In the beginning, God created the heavens and the earth.\n",
	}
	for name, text := range datasets {
		p := filepath.Join(dir, "datasets", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(text), 0o644))
	}

	require.NoError(t, run("--dir", dir, "build", "--quiet", "--no-html"))
	require.FileExists(t, filepath.Join(dir, "out", "crossrefs.json"))
	require.FileExists(t, config.BuildDBPath(filepath.Join(dir, "out")))
	require.NoFileExists(t, filepath.Join(dir, "out", "sitemap.xml"))

	require.NoError(t, run("--dir", dir, "lookup", "Genesis.1.2"))
	require.Error(t, run("--dir", dir, "lookup", "Genesis"))
	require.Error(t, run("--dir", dir, "lookup", "Exodus.1.1"))

	require.NoError(t, run("--dir", dir, "validate"))
}

func TestResolvePaths(t *testing.T) {
	c := config.DefaultConfig()
	c.Datasets.Paths = []string{"kjv.txt", "/abs/web.txt"}
	c.Output.Dir = "/srv/out"
	resolvePaths(c, "/project")

	require.Equal(t, filepath.Join("/project", "datasets"), c.Datasets.Dir)
	require.Equal(t, []string{filepath.Join("/project", "kjv.txt"), "/abs/web.txt"}, c.Datasets.Paths)
	require.Equal(t, "/srv/out", c.Output.Dir)
	require.Equal(t, filepath.Join("/project", "logs"), c.Logging.Dir)
}

func TestWatchDirs(t *testing.T) {
	c := config.DefaultConfig()
	c.Datasets.Dir = "/data"
	require.Equal(t, []string{"/data"}, watchDirs(c))

	c.Datasets.Paths = []string{"/b/web.txt", "/a/kjv.txt", "/b/asv.txt"}
	require.Equal(t, []string{"/a", "/b"}, watchDirs(c))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "<1s"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m5s"},
		{2*time.Hour + 7*time.Minute, "2h7m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
