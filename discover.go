package symdex

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
)

// FileLister enumerates candidate files under a workspace root. It is the
// fast file-content scanner seam: implementations should honor
// version-control ignore semantics natively.
type FileLister interface {
	ListFiles(ctx context.Context, root string) ([]string, error)
}

// GitLister discovers files with git ls-files, which respects .gitignore,
// .git/info/exclude and global excludes. Outside a repository (or without
// git installed) it falls back to a filesystem walk that skips hidden
// directories and the default ignore set.
type GitLister struct{}

// ListFiles implements FileLister.
func (GitLister) ListFiles(ctx context.Context, root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect ignore rules.
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return walkFiles(root)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paths = append(paths, filepath.Join(root, line))
	}
	return paths, nil
}

// walkFiles is the non-git fallback: a recursive walk skipping hidden
// directories and the hardcoded default ignore names.
func walkFiles(root string) ([]string, error) {
	defaults := make(map[string]struct{}, len(defaultIgnoreNames))
	for _, name := range defaultIgnoreNames {
		defaults[name] = struct{}{}
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			name := d.Name()
			if path != root {
				if _, skip := defaults[name]; skip || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}
	return paths, nil
}

// discover returns the canonical candidate file set for the workspace,
// applying the configured include whitelist and exclude globs. Discovery
// failure degrades to an empty set: it must only produce a no-op indexing
// pass, never crash the engine.
func (e *Engine) discover(ctx context.Context) []string {
	paths, err := e.lister.ListFiles(ctx, e.root)
	if err != nil {
		e.log.Warn("file discovery failed, treating workspace as empty", "err", err)
		return nil
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		cp := canonicalPath(p)
		if e.excludedByGlobs(cp) {
			continue
		}
		out = append(out, cp)
	}
	return out
}
