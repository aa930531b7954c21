package walk

import "strings"

// MatchGlob implements the glob syntax from spec §6: `*` matches any
// sequence of characters within one path segment; `**` matches any
// sequence including path separators, and `**/` may also match nothing
// (so `**/*.ts` matches `Login.ts`); every other character matches
// literally after normalizing path to forward slashes. Used by the
// global-watch pattern matcher and by profile path predicates.
func MatchGlob(pattern, path string) bool {
	pattern = normalizeSlashes(pattern)
	path = normalizeSlashes(path)
	return matchGlob(pattern, path)
}

func normalizeSlashes(s string) string {
	return strings.ReplaceAll(s, "\\", "/")
}

// matchGlob is a small recursive-descent matcher: it walks pattern and
// path byte-by-byte (rune-by-rune would overcomplicate this for the ASCII
// path alphabet pomimpact operates on), branching on `**`, `*`, and
// literal runs.
func matchGlob(pattern, path string) bool {
	for {
		if pattern == "" {
			return path == ""
		}

		if strings.HasPrefix(pattern, "**") {
			rest := pattern[2:]
			// A trailing "**" (optionally with a following "/") matches
			// everything remaining.
			segmentStart := strings.HasPrefix(rest, "/")
			rest = strings.TrimPrefix(rest, "/")
			if rest == "" {
				return true
			}
			// Try every suffix of path as the continuation point for rest,
			// including path == "" for the case rest itself can match empty.
			// After "**/", rest may only start at the beginning of a segment.
			for i := 0; i <= len(path); i++ {
				if segmentStart && i > 0 && path[i-1] != '/' {
					continue
				}
				if matchGlob(rest, path[i:]) {
					return true
				}
			}
			return false
		}

		if strings.HasPrefix(pattern, "*") {
			rest := pattern[1:]
			// `*` may match zero characters, up to the next `/` in path.
			limit := strings.IndexByte(path, '/')
			if limit < 0 {
				limit = len(path)
			}
			for i := 0; i <= limit; i++ {
				if matchGlob(rest, path[i:]) {
					return true
				}
			}
			return false
		}

		if path == "" {
			return false
		}
		if pattern[0] != path[0] {
			return false
		}
		pattern = pattern[1:]
		path = path[1:]
	}
}
