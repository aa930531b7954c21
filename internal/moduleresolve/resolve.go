package moduleresolve

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kestrel-ci/pomimpact/internal/tsconfig"
)

// Resolver resolves module specifiers to repo-relative file paths,
// following spec §4.G: "relative paths, tsconfig-style path aliases, and
// parent-directory file-name fallbacks (for asset literals)".
type Resolver struct {
	repoRoot   string
	baseURL    string
	paths      map[string][]string
	extensions []string
}

// New builds a Resolver from a loaded tsconfig and the configured source
// extensions (spec §6 `file_extensions`).
func New(repoRoot string, cfg *tsconfig.Config, extensions []string) *Resolver {
	r := &Resolver{repoRoot: repoRoot, extensions: extensions}
	if cfg != nil {
		r.baseURL = cfg.CompilerOptions.BaseURL
		r.paths = cfg.CompilerOptions.Paths
	}
	return r
}

// Resolve turns specifier, referenced from fromPath (repo-relative,
// forward-slashed), into a repo-relative path if it names an in-repo file.
// ok is false for bare package specifiers ("react", "@playwright/test")
// that don't resolve within the repository.
func (r *Resolver) Resolve(fromPath, specifier string) (string, bool) {
	if specifier == "" {
		return "", false
	}

	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		base := filepath.ToSlash(filepath.Join(filepath.Dir(fromPath), specifier))
		if resolved, ok := r.probe(base); ok {
			return resolved, true
		}
		return "", false
	}

	if resolved, ok := r.resolveAlias(specifier); ok {
		return resolved, true
	}

	if r.baseURL != "" {
		base := filepath.ToSlash(filepath.Join(r.baseURL, specifier))
		if resolved, ok := r.probe(base); ok {
			return resolved, true
		}
	}

	// Parent-directory file-name fallback: an asset literal referenced by
	// bare name (no relative prefix) is searched for by base name walking
	// up from fromPath's directory, the heuristic spec §4.G names for
	// "asset literals" that aren't proper module specifiers.
	if resolved, ok := r.parentDirFallback(fromPath, specifier); ok {
		return resolved, true
	}

	return "", false
}

func (r *Resolver) resolveAlias(specifier string) (string, bool) {
	for pattern, targets := range r.paths {
		prefix := strings.TrimSuffix(pattern, "*")
		hasWildcard := strings.HasSuffix(pattern, "*")
		if hasWildcard {
			if !strings.HasPrefix(specifier, prefix) {
				continue
			}
		} else if specifier != pattern {
			continue
		}
		remainder := strings.TrimPrefix(specifier, prefix)
		for _, target := range targets {
			targetPrefix := strings.TrimSuffix(target, "*")
			candidate := targetPrefix + remainder
			base := filepath.ToSlash(filepath.Join(r.baseURL, candidate))
			if resolved, ok := r.probe(base); ok {
				return resolved, true
			}
		}
	}
	return "", false
}

// probe tries base as-is, then with each configured extension, then as a
// directory index file, against the real file system under repoRoot.
func (r *Resolver) probe(base string) (string, bool) {
	candidates := []string{base}
	for _, ext := range r.extensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range r.extensions {
		candidates = append(candidates, filepath.ToSlash(filepath.Join(base, "index"+ext)))
	}

	for _, c := range candidates {
		full := filepath.Join(r.repoRoot, filepath.FromSlash(c))
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

func (r *Resolver) parentDirFallback(fromPath, specifier string) (string, bool) {
	dir := filepath.Dir(fromPath)
	for {
		candidate := filepath.ToSlash(filepath.Join(dir, specifier))
		full := filepath.Join(r.repoRoot, filepath.FromSlash(candidate))
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return candidate, true
		}
		if dir == "." || dir == "/" || dir == "" {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}
