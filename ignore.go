package symdex

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultIgnoreNames is the minimal hardcoded set the fast filter always
// resets to before reparsing ignore-file content, so deleting the ignore
// file reverts to safe defaults instead of leaving stale rules.
var defaultIgnoreNames = []string{
	".git", "node_modules", "vendor", "__pycache__",
	"dist", "build", "out", ".idea", ".vscode",
}

// FastFilter is the approximate first tier of the ignore filter: plain name
// sets derived from ignore-file content, cheap enough to run on every
// watcher event. It deliberately skips glob patterns and nested paths it
// cannot represent safely; the authoritative filter re-validates batches
// before they are indexed.
type FastFilter struct {
	root string

	mu        sync.RWMutex
	rootNames map[string]struct{} // anchored at the workspace root
	anyNames  map[string]struct{} // matched against any path segment
}

// NewFastFilter returns a filter seeded with the hardcoded defaults.
func NewFastFilter(root string) *FastFilter {
	f := &FastFilter{root: root}
	f.Reload("")
	return f
}

// Reload resets the pattern sets to the defaults and then parses content as
// ignore-file lines. Lines with glob metacharacters or interior separators
// are skipped; they are the authoritative filter's job.
func (f *FastFilter) Reload(content string) {
	rootNames := make(map[string]struct{})
	anyNames := make(map[string]struct{}, len(defaultIgnoreNames))
	for _, name := range defaultIgnoreNames {
		anyNames[name] = struct{}{}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		if strings.ContainsAny(line, "*?[") {
			continue
		}
		line = strings.TrimSuffix(line, "/")
		if rest, anchored := strings.CutPrefix(line, "/"); anchored {
			if rest != "" && !strings.Contains(rest, "/") {
				rootNames[rest] = struct{}{}
			}
			continue
		}
		if !strings.Contains(line, "/") {
			anyNames[line] = struct{}{}
		}
	}

	f.mu.Lock()
	f.rootNames = rootNames
	f.anyNames = anyNames
	f.mu.Unlock()
}

// ReloadFromFile re-reads the workspace .gitignore. A missing file leaves
// just the defaults in place.
func (f *FastFilter) ReloadFromFile() {
	b, err := os.ReadFile(filepath.Join(f.root, ".gitignore"))
	if err != nil {
		f.Reload("")
		return
	}
	f.Reload(string(b))
}

// Excluded reports whether path is discarded by the fast filter.
func (f *FastFilter) Excluded(path string) bool {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		rel = path
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")

	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.rootNames[segments[0]]; ok {
		return true
	}
	for _, seg := range segments {
		if _, ok := f.anyNames[seg]; ok {
			return true
		}
	}
	return false
}

// excludedByGlobs applies the configured include whitelist and exclude
// globs against the workspace-relative path.
func (e *Engine) excludedByGlobs(path string) bool {
	rel, err := filepath.Rel(e.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	if len(e.cfg.Include) > 0 {
		matched := false
		for _, glob := range e.cfg.Include {
			if ok, _ := doublestar.Match(glob, rel); ok {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}
	}
	for _, glob := range e.cfg.Exclude {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
	}
	return false
}

// filterBatch is the authoritative second tier: before a batch is
// physically indexed, each path is re-validated against the configured
// globs and version-control ignore rules.
func (e *Engine) filterBatch(ctx context.Context, batch []string) []string {
	ignored := gitIgnored(ctx, e.root, batch, e.log)

	out := make([]string, 0, len(batch))
	for _, path := range batch {
		if e.excludedByGlobs(path) {
			continue
		}
		if ignored[path] {
			continue
		}
		out = append(out, path)
	}
	return out
}

// gitIgnored asks git check-ignore which of the given paths the repository
// ignores. When git is unavailable (or the root is not a repository) it
// returns nil and the glob rules stand alone.
func gitIgnored(ctx context.Context, root string, paths []string, log *slog.Logger) map[string]bool {
	rels := make([]string, 0, len(paths))
	relToAbs := make(map[string]string, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		rels = append(rels, rel)
		relToAbs[rel] = p
	}
	if len(rels) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, "git", "check-ignore", "-z", "--stdin")
	cmd.Dir = root
	cmd.Stdin = strings.NewReader(strings.Join(rels, "\x00") + "\x00")
	out, err := cmd.Output()
	if err != nil {
		// Exit status 1 just means no path is ignored.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			log.Debug("git check-ignore unavailable", "err", err)
		}
		return nil
	}

	ignored := make(map[string]bool)
	for _, rel := range bytes.Split(out, []byte{0}) {
		if len(rel) == 0 {
			continue
		}
		if abs, ok := relToAbs[string(rel)]; ok {
			ignored[abs] = true
		}
	}
	return ignored
}
