package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveInputFiles(t *testing.T) {
	in := t.TempDir()
	archive := filepath.Join(t.TempDir(), "archive")

	var paths []string
	for _, name := range []string{"customers.csv", "catalog.csv"} {
		p := filepath.Join(in, name)
		require.NoError(t, os.WriteFile(p, []byte("a,b\n1,2\n"), 0644))
		paths = append(paths, p)
	}

	fm := NewFileManager("", archive)
	require.NoError(t, fm.EnsureDirectories())

	archived, err := fm.ArchiveInputFiles(paths)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(archive, "customers.csv"),
		filepath.Join(archive, "catalog.csv"),
	}, archived)

	assert.False(t, FileExists(paths[0]))
	assert.True(t, FileExists(archived[0]))
}

func TestArchiveUsesDateSubdirs(t *testing.T) {
	fm := NewFileManager("", "/archive")
	fm.UseTimestampSubdirs = true
	fm.now = func() time.Time { return time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC) }

	assert.Equal(t, filepath.Join("/archive", "2024", "03", "07", "items.csv"), fm.getArchivePath("/in/items.csv"))
}

func TestArchiveMissingFile(t *testing.T) {
	fm := NewFileManager("", t.TempDir())
	_, err := fm.ArchiveInputFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("migration_{run}_{date}", map[string]string{"run": "abc"}, ".yaml")
	assert.True(t, strings.HasPrefix(name, "migration_abc_"))
	assert.True(t, strings.HasSuffix(name, ".yaml"))

	assert.Equal(t, "report.yaml", GenerateOutputFileName("report.yaml", nil, ".yaml"))
	assert.NotEqual(t, GenerateOutputFileName("{uuid}", nil, ""), GenerateOutputFileName("{uuid}", nil, ""))
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteErrorLog([]ErrorLogEntry{
		{Timestamp: time.Now(), Stage: "customers", Message: "batch 2 (records 51-100): connection reset"},
	}, filepath.Join(dir, "reports"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total Errors: 1")
	assert.Contains(t, string(data), "Stage:     customers")
	assert.Contains(t, string(data), "connection reset")
}
