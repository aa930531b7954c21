package tsast

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Fingerprint renders node as a normalized token stream: comments are
// elided, whitespace is collapsed, and only named nodes contribute tokens.
// Two fingerprints are equal iff the spec's "semantically equivalent under
// this normalization" condition holds — this is the detector's sole notion
// of "did this member change".
func Fingerprint(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	writeFingerprint(&b, node, content)
	return b.String()
}

func writeFingerprint(b *strings.Builder, node *sitter.Node, content []byte) {
	if node == nil {
		return
	}
	if node.Type() == "comment" {
		return
	}

	childCount := int(node.NamedChildCount())
	if childCount == 0 {
		// Leaf node: the token itself is the only thing that can vary
		// (identifiers, literals, operators rendered as leaves).
		b.WriteString(node.Type())
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(node.Content(content)))
		b.WriteByte(' ')
		return
	}

	b.WriteString(node.Type())
	b.WriteByte('(')
	for i := 0; i < childCount; i++ {
		writeFingerprint(b, node.NamedChild(i), content)
	}
	b.WriteByte(')')
}

// fingerprintKey is (revision, path, span, kind) per spec §3.
type fingerprintKey struct {
	revision string
	path     string
	start    uint32
	end      uint32
	kind     string
}

// FingerprintCache memoizes Fingerprint results. Reads are lock-free under
// RLock; writes take the full lock, matching ASTCache's discipline so the
// two caches can be shared across the fork-join phases described in spec §5
// without becoming a contention point.
type FingerprintCache struct {
	mu      sync.RWMutex
	entries map[fingerprintKey]string
	maxSize int
	order   []fingerprintKey
}

// NewFingerprintCache creates a cache bounded to maxSize entries (<=0 means
// unbounded).
func NewFingerprintCache(maxSize int) *FingerprintCache {
	return &FingerprintCache{
		entries: make(map[fingerprintKey]string),
		maxSize: maxSize,
	}
}

// Get returns the fingerprint for node under (revision, path, kind),
// computing and caching it on first access.
func (c *FingerprintCache) Get(revision, path, kind string, node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	key := fingerprintKey{
		revision: revision,
		path:     path,
		start:    node.StartByte(),
		end:      node.EndByte(),
		kind:     kind,
	}

	c.mu.RLock()
	if v, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	v := Fingerprint(node, content)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = v
	if c.maxSize > 0 {
		for len(c.order) > c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	return v
}
