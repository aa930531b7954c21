package tsast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parse parses content with the grammar for lang. Each call builds a fresh
// *sitter.Parser: tree-sitter parsers are not safe to reuse across
// goroutines, so one is allocated per file rather than shared.
func Parse(ctx context.Context, lang Language, content []byte) (*sitter.Tree, error) {
	g, err := grammar(lang)
	if err != nil {
		return nil, err
	}
	parser := sitter.NewParser()
	parser.SetLanguage(g)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tsast: parse failed: %w", err)
	}
	return tree, nil
}

// revisionKey identifies one (revision, path) pair for the AST and
// fingerprint caches described in spec §3/§5.
type revisionKey struct {
	revision string
	path     string
}

// parsedEntry is one cached AST, keyed additionally by a content hash so a
// stale cache entry is never returned for content that changed underneath
// an unstable revision label (e.g. the empty "" working-tree revision).
type parsedEntry struct {
	hash    string
	tree    *sitter.Tree
	content []byte
}

// ASTCache memoizes parsed trees by (revision, path), per spec §3: "Fingerprints
// are memoized keyed by (revision, path, node-span, fingerprint-kind)" and
// §5: "the engine holds at most one AST per cached (revision, path)".
// Safe for concurrent reads; writes are serialized by mu, matching the
// fork-join discipline in spec §5.
type ASTCache struct {
	mu      sync.RWMutex
	entries map[revisionKey]parsedEntry
	maxSize int
	order   []revisionKey // FIFO eviction list; a full LRU isn't needed since
	// each path is parsed at most once per revision within a run.
}

// NewASTCache creates a cache bounded to maxSize entries. maxSize <= 0 means
// unbounded, appropriate for test fixtures and small repositories.
func NewASTCache(maxSize int) *ASTCache {
	return &ASTCache{
		entries: make(map[revisionKey]parsedEntry),
		maxSize: maxSize,
	}
}

// GetOrParse returns the cached tree for (revision, path) if content hashes
// equal, else parses, caches, and returns the fresh tree.
func (c *ASTCache) GetOrParse(ctx context.Context, revision, path string, lang Language, content []byte) (*sitter.Tree, []byte, error) {
	key := revisionKey{revision: revision, path: path}
	h := hashContent(content)

	c.mu.RLock()
	if e, ok := c.entries[key]; ok && e.hash == h {
		c.mu.RUnlock()
		return e.tree, e.content, nil
	}
	c.mu.RUnlock()

	tree, err := Parse(ctx, lang, content)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = parsedEntry{hash: h, tree: tree, content: content}
	c.evictLocked()
	return tree, content, nil
}

func (c *ASTCache) evictLocked() {
	if c.maxSize <= 0 {
		return
	}
	for len(c.order) > c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:8])
}
