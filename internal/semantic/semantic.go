// Package semantic implements Component E, the Semantic Change Detector:
// per changed file, it diffs base and head AST fingerprints at both the
// top-level-runtime granularity and the class-member granularity.
package semantic

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kestrel-ci/pomimpact/internal/classmodel"
	"github.com/kestrel-ci/pomimpact/internal/tsast"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// FileReader reads path's content as of revision, matching the
// (path, revision)-keyed collaborator named in spec §1.
type FileReader func(revision, path string) ([]byte, error)

// WarnFunc records a non-fatal diagnostic (spec §7 category 4).
type WarnFunc func(kind, path, message string)

// FileResult is one changed file's contribution to the detector's output.
type FileResult struct {
	Path                   string
	TopLevelRuntimeChanged bool
	ChangedMethodsByClass  map[string]map[string]bool
}

func newFileResult(path string) *FileResult {
	return &FileResult{Path: path, ChangedMethodsByClass: make(map[string]map[string]bool)}
}

func (r *FileResult) record(class, member string) {
	if r.ChangedMethodsByClass[class] == nil {
		r.ChangedMethodsByClass[class] = make(map[string]bool)
	}
	r.ChangedMethodsByClass[class][member] = true
}

// Detector holds the fingerprint caches shared across an invocation's
// changed files (spec §5's "safe for parallel reads" cache contract).
type Detector struct {
	fingerprints *tsast.FingerprintCache
}

// New creates a Detector with a fingerprint cache bounded to cacheSize
// entries (<=0 for unbounded).
func New(cacheSize int) *Detector {
	return &Detector{fingerprints: tsast.NewFingerprintCache(cacheSize)}
}

// DetectFile runs steps 1-5 of spec §4.E against one changed source file.
// A nil result (with nil error) means base and head were byte-identical —
// the caller should simply not merge anything for this file.
func (d *Detector) DetectFile(ctx context.Context, entry types.ChangeEntry, baseRev, headRev string, lang tsast.Language, read FileReader, warn WarnFunc) (*FileResult, error) {
	path := entry.EffectivePath

	baseContent, baseErr := readOrEmpty(read, baseRev, pathForRevision(entry, true))
	headContent, headErr := readOrEmpty(read, headRev, pathForRevision(entry, false))

	if baseErr != nil && warn != nil {
		warn("per-file-read-error", path, "could not read base revision: "+baseErr.Error())
	}
	if headErr != nil && warn != nil {
		warn("per-file-read-error", path, "could not read head revision: "+headErr.Error())
	}

	if string(baseContent) == string(headContent) {
		return nil, nil
	}

	baseTree, _ := tsast.Parse(ctx, lang, baseContent)
	headTree, _ := tsast.Parse(ctx, lang, headContent)

	var baseRoot, headRoot *sitter.Node
	if baseTree != nil {
		baseRoot = baseTree.RootNode()
	}
	if headTree != nil {
		headRoot = headTree.RootNode()
	}

	result := newFileResult(path)

	baseFM := classmodel.BuildFile(path, baseRoot, baseContent)
	headFM := classmodel.BuildFile(path, headRoot, headContent)

	baseRuntimeFP := d.topLevelRuntimeFingerprint("base:"+path, baseRoot, baseContent)
	headRuntimeFP := d.topLevelRuntimeFingerprint("head:"+path, headRoot, headContent)

	classByName := mergeClasses(baseFM, headFM)

	if baseRuntimeFP != headRuntimeFP {
		result.TopLevelRuntimeChanged = true
		for name, pair := range classByName {
			for _, cls := range []*types.ClassModel{pair.base, pair.head} {
				if cls == nil {
					continue
				}
				for memberName := range cls.CallableMembersByName {
					result.record(name, memberName)
				}
			}
		}
		return result, nil
	}

	for name, pair := range classByName {
		identities := unionIdentities(pair.base, pair.head)
		for identity := range identities {
			baseMember := memberOf(pair.base, identity)
			headMember := memberOf(pair.head, identity)

			baseFP := d.memberFingerprint("base:"+path, baseMember, baseContent)
			headFP := d.memberFingerprint("head:"+path, headMember, headContent)
			if baseFP == headFP {
				continue
			}

			if identity.Kind.Callable() {
				result.record(name, identity.Name)
				continue
			}
			// Non-callable field change: every callable member of the
			// class is reachable from the field via `this` (spec §4.E.4).
			for _, cls := range []*types.ClassModel{pair.base, pair.head} {
				if cls == nil {
					continue
				}
				for memberName := range cls.CallableMembersByName {
					result.record(name, memberName)
				}
			}
		}
	}

	return result, nil
}

func pathForRevision(entry types.ChangeEntry, base bool) string {
	if base {
		if entry.OldPath != "" {
			return entry.OldPath
		}
		return entry.EffectivePath
	}
	if entry.NewPath != "" {
		return entry.NewPath
	}
	return entry.EffectivePath
}

func readOrEmpty(read FileReader, revision, path string) ([]byte, error) {
	content, err := read(revision, path)
	if err != nil {
		return nil, err
	}
	return content, nil
}

type classPair struct {
	base *types.ClassModel
	head *types.ClassModel
}

func mergeClasses(base, head *classmodel.FileModel) map[string]classPair {
	out := make(map[string]classPair)
	if base != nil {
		for _, c := range base.Classes {
			p := out[c.Name]
			p.base = c
			out[c.Name] = p
		}
	}
	if head != nil {
		for _, c := range head.Classes {
			p := out[c.Name]
			p.head = c
			out[c.Name] = p
		}
	}
	return out
}

func unionIdentities(base, head *types.ClassModel) map[types.MemberIdentity]bool {
	out := make(map[types.MemberIdentity]bool)
	if base != nil {
		for id := range base.MembersByIdentity {
			out[id] = true
		}
	}
	if head != nil {
		for id := range head.MembersByIdentity {
			out[id] = true
		}
	}
	return out
}

func memberOf(cls *types.ClassModel, identity types.MemberIdentity) *types.MemberModel {
	if cls == nil {
		return nil
	}
	return cls.MembersByIdentity[identity]
}

// memberFingerprint combines overload-signature fingerprints with the
// implementation-body fingerprint (spec §3 "Fingerprint"). A missing
// member (renamed away, or not yet added) fingerprints as "".
func (d *Detector) memberFingerprint(revision string, member *types.MemberModel, content []byte) string {
	if member == nil {
		return ""
	}
	fp := ""
	for _, n := range member.OverloadNodes {
		if node, ok := n.(*sitter.Node); ok {
			fp += "|ovl:" + d.fingerprints.Get(revision, member.ClassName+"#"+member.MemberName, "overload", node, content)
		}
	}
	if node, ok := member.ImplementationNode.(*sitter.Node); ok {
		fp += "|impl:" + d.fingerprints.Get(revision, member.ClassName+"#"+member.MemberName, "implementation", node, content)
	}
	return fp
}

// topLevelRuntimeFingerprint concatenates the fingerprints of every
// runtime-relevant top-level node (spec §4.E.3).
func (d *Detector) topLevelRuntimeFingerprint(revision string, root *sitter.Node, content []byte) string {
	if root == nil {
		return ""
	}
	fp := ""
	tsast.WalkTopLevel(root, func(node *sitter.Node) {
		if !tsast.IsTopLevelRuntimeRelevant(node, content) {
			return
		}
		fp += "|" + d.fingerprints.Get(revision, "toplevel", "runtime", node, content)
	})
	return fp
}
