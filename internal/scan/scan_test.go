package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lyndonlyu/tokenscope/internal/classify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lengthCounter counts one token per byte so totals are easy to predict.
type lengthCounter struct{}

func (lengthCounter) Count(text string) (int, error) { return len(text), nil }

// refusingCounter fails on any text containing marker.
type refusingCounter struct{ marker string }

func (c refusingCounter) Count(text string) (int, error) {
	if strings.Contains(text, c.marker) {
		return 0, errors.New("error matching")
	}
	return len(text), nil
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py":        strings.Repeat("x", 10),
		"README":      strings.Repeat("y", 5),
		".git/config": strings.Repeat("z", 100),
	})
	return root
}

func newScanner() *Scanner {
	return New(lengthCounter{}, zerolog.Nop())
}

func TestScanDefaults(t *testing.T) {
	root := fixture(t)

	res, err := newScanner().Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.py", "README"}, res.AllFiles)
	assert.Equal(t, []FileRecord{{Path: "a.py", Tokens: 10}}, res.Files)
	assert.Equal(t, 10, res.Total)
	for _, f := range res.AllFiles {
		assert.False(t, strings.HasPrefix(f, ".git/"), "git metadata must be pruned: %s", f)
	}

	_, counted := res.Tokens("README")
	assert.False(t, counted)
	require.Len(t, res.Skipped(), 1)
	assert.Equal(t, "README", res.Skipped()[0].Path)
}

func TestScanIncludeReadmeLicense(t *testing.T) {
	root := fixture(t)

	res, err := newScanner().Scan(context.Background(), root, Options{IncludeReadmeLicense: true})
	require.NoError(t, err)

	n, ok := res.Tokens("README")
	require.True(t, ok)
	assert.Equal(t, 5, n)
	assert.Equal(t, 15, res.Total)
}

func TestScanPatternWithGitFiles(t *testing.T) {
	root := fixture(t)
	p, err := classify.CompilePattern(`\.git`)
	require.NoError(t, err)

	res, err := newScanner().Scan(context.Background(), root, Options{IncludeGit: true, Pattern: p})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.py", "README", ".git/config"}, res.AllFiles)
	assert.Equal(t, []FileRecord{{Path: ".git/config", Tokens: 100}}, res.Files)
	assert.Equal(t, 100, res.Total)
	_, ok := res.Tokens("a.py")
	assert.False(t, ok)
	_, ok = res.Tokens("README")
	assert.False(t, ok)
}

func TestScanPatternSelectsOnlyMatches(t *testing.T) {
	root := fixture(t)
	writeFiles(t, root, map[string]string{
		".gitignore":  "bin/",
		"notes.xyz":   "abc",
		"src/lib.xyz": "de",
	})
	p, err := classify.CompilePattern(`\.xyz$`)
	require.NoError(t, err)

	res, err := newScanner().Scan(context.Background(), root, Options{Pattern: p})
	require.NoError(t, err)

	assert.ElementsMatch(t, []FileRecord{
		{Path: "notes.xyz", Tokens: 3},
		{Path: "src/lib.xyz", Tokens: 2},
	}, res.Files)
	assert.Equal(t, 5, res.Total)
	assert.NotContains(t, res.AllFiles, ".git/config")
}

func TestScanSubpath(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"top.go":           "package top",
		"src/lib/a.go":     "package a",
		"src/lib/b.txt":    "bb",
		"other/ignored.md": "# no",
	})

	res, err := newScanner().Scan(context.Background(), root, Options{Subpath: "src"})
	require.NoError(t, err)

	// Paths stay relative to the repository root.
	assert.Equal(t, []string{"src/lib/a.go", "src/lib/b.txt"}, res.AllFiles)
	assert.Equal(t, 11, res.Total)
	assert.Equal(t, "src", res.Subpath)
}

func TestScanSubpathErrors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"file.go": "x"})

	_, err := newScanner().Scan(context.Background(), root, Options{Subpath: "../outside"})
	assert.ErrorIs(t, err, ErrSubpathEscapes)

	_, err = newScanner().Scan(context.Background(), root, Options{Subpath: "missing"})
	assert.Error(t, err)

	_, err = newScanner().Scan(context.Background(), root, Options{Subpath: "file.go"})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestScanSubpathInsideGitIsPruned(t *testing.T) {
	root := fixture(t)

	res, err := newScanner().Scan(context.Background(), root, Options{Subpath: ".git"})
	require.NoError(t, err)
	assert.Empty(t, res.AllFiles)
	assert.True(t, res.Empty())
}

func TestScanUnreadableFileDoesNotAbort(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.go": "aaaa",
		"z.go": "zz",
	})
	require.NoError(t, os.Symlink(filepath.Join(root, "missing-target"), filepath.Join(root, "m.go")))

	res, err := newScanner().Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "m.go", "z.go"}, res.AllFiles)
	assert.Equal(t, 6, res.Total)
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, "m.go", res.Failed()[0].Path)
	assert.NotEmpty(t, res.Failed()[0].Reason)
	assert.Equal(t, Failed, res.Outcomes[1].Status)
}

func TestScanDecodesInvalidUTF8Leniently(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin.txt"), []byte{'a', 0xff, 0xfe, 'b'}, 0644))

	res, err := newScanner().Scan(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestScanSkipsSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"real/a.go": "a"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))

	res, err := newScanner().Scan(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"real/a.go"}, res.AllFiles)
}

func TestScanCountErrorIsRecordedAsFailed(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.go":   "aaaa",
		"bad.go": "??bad??",
		"z.go":   "zz",
	})

	res, err := New(refusingCounter{marker: "bad"}, zerolog.Nop()).Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 6, res.Total)
	_, counted := res.Tokens("bad.go")
	assert.False(t, counted)
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, "bad.go", res.Failed()[0].Path)
	assert.Contains(t, res.Failed()[0].Reason, "error matching")
}

func TestScanStopsWhenCancelled(t *testing.T) {
	root := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newScanner().Scan(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestScanEmptyTree(t *testing.T) {
	res, err := newScanner().Scan(context.Background(), t.TempDir(), Options{})
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Empty(t, res.AllFiles)
}

func TestResultTop(t *testing.T) {
	res := &Result{Files: []FileRecord{
		{Path: "b.go", Tokens: 5},
		{Path: "a.go", Tokens: 5},
		{Path: "c.go", Tokens: 50},
		{Path: "d.go", Tokens: 1},
	}}

	top := res.Top(3)
	assert.Equal(t, []FileRecord{
		{Path: "c.go", Tokens: 50},
		{Path: "a.go", Tokens: 5},
		{Path: "b.go", Tokens: 5},
	}, top)
	assert.Len(t, res.Top(10), 4)
	// Original order untouched.
	assert.Equal(t, "b.go", res.Files[0].Path)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "counted", Counted.String())
	assert.Equal(t, "unsupported", Unsupported.String())
	assert.Equal(t, "failed", Failed.String())
}
