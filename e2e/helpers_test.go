package e2e_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TestEnv encapsulates a temporary isolated environment for a single test.
type TestEnv struct {
	Home     string // temp HOME directory (~/.tokenscope, cache live here)
	CacheDir string
	T        *testing.T
}

func newTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	home := t.TempDir()
	return &TestEnv{
		Home:     home,
		CacheDir: filepath.Join(home, "cache"),
		T:        t,
	}
}

// newRepo creates a local git repository holding files and returns its path,
// which tokenscope accepts as a locator.
func (e *TestEnv) newRepo(files map[string]string) string {
	e.T.Helper()
	dir := e.T.TempDir()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		e.T.Fatalf("git init: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		e.T.Fatalf("worktree: %v", err)
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			e.T.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			e.T.Fatalf("write %s: %v", name, err)
		}
		if _, err := wt.Add(name); err != nil {
			e.T.Fatalf("git add %s: %v", name, err)
		}
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            &object.Signature{Name: "e2e", Email: "e2e@example.com", When: time.Now()},
	})
	if err != nil {
		e.T.Fatalf("git commit: %v", err)
	}
	return dir
}

// run executes the compiled binary with the given arguments.
func (e *TestEnv) run(args ...string) (stdout, stderr string, exitCode int) {
	e.T.Helper()

	cmd := exec.Command(tokenscopeBin, args...)
	cmd.Dir = e.Home
	cmd.Env = []string{
		"HOME=" + e.Home,
		"PATH=" + os.Getenv("PATH"),
		"TMPDIR=" + e.T.TempDir(),
		"NO_COLOR=1",
	}

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()

	exitCode = 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	return outBuf.String(), errBuf.String(), exitCode
}

// cacheEntries lists the populated cache entries.
func (e *TestEnv) cacheEntries() []string {
	e.T.Helper()
	dirents, err := os.ReadDir(e.CacheDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, d := range dirents {
		if d.IsDir() && !strings.HasPrefix(d.Name(), ".") {
			names = append(names, d.Name())
		}
	}
	return names
}
