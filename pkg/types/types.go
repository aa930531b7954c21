// Package types holds the data model shared across the pomimpact engine:
// change entries, fixture maps, class/member models, impact sets, and the
// final result record. Every exported type here corresponds to a structure
// named in the specification's data model section.
package types

// ChangeStatus is the canonical post-normalization status of a change entry.
type ChangeStatus uint8

const (
	StatusAdded ChangeStatus = iota
	StatusModified
	StatusDeleted
	StatusRenamed
)

func (s ChangeStatus) String() string {
	switch s {
	case StatusAdded:
		return "A"
	case StatusModified:
		return "M"
	case StatusDeleted:
		return "D"
	case StatusRenamed:
		return "R"
	default:
		return "?"
	}
}

// ChangeSource identifies which upstream comparison produced a ChangeEntry.
type ChangeSource uint8

const (
	SourceBaseHead ChangeSource = iota
	SourceWorkingTree
	SourceUntracked
)

// ChangeEntry is a single normalized file change, per spec §3.
type ChangeEntry struct {
	Status        ChangeStatus
	OldPath       string
	NewPath       string
	EffectivePath string
	RawStatus     string
	Source        ChangeSource
}

// MemberKind distinguishes the five callable-or-not class member shapes.
type MemberKind uint8

const (
	KindConstructor MemberKind = iota
	KindCall
	KindGet
	KindSet
	KindField
)

func (k MemberKind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindCall:
		return "call"
	case KindGet:
		return "get"
	case KindSet:
		return "set"
	case KindField:
		return "field"
	default:
		return "unknown"
	}
}

// Callable reports whether members of this kind can be invoked or reached
// through a call expression (Constructor, Call, Get, Set — not Field).
func (k MemberKind) Callable() bool {
	return k != KindField
}

// MemberIdentity is the (kind, name) key used to diff members across
// revisions so a getter and setter of the same name never collide.
type MemberIdentity struct {
	Kind MemberKind
	Name string
}

// MemberKey is the "<Class>#<Member>" string used throughout the
// propagation engine's graphs and visited sets.
type MemberKey string

// NewMemberKey builds the canonical propagation-graph key for a member.
func NewMemberKey(class, member string) MemberKey {
	return MemberKey(class + "#" + member)
}

// FixtureKey is a property name bound in a spec's test-callback parameter.
type FixtureKey string

// MemberModel is one class member as built from its AST, per spec §3's
// "Member model". OverloadNodes holds signature-only declarations (no
// body); ImplementationNode is the node with a body, if any. Nodes are
// carried as *sitter.Node via the Node interface so pkg/types doesn't need
// to import go-tree-sitter's concrete node type; internal/classmodel stores
// them, and internal/propagation and internal/semantic type-assert them
// back to *sitter.Node.
type MemberModel struct {
	ClassName          string
	MemberName         string
	Kind               MemberKind
	Callable           bool
	OverloadNodes      []Node
	ImplementationNode Node
}

// Node is satisfied by *sitter.Node; it lets pkg/types reference AST nodes
// without importing go-tree-sitter directly.
type Node interface {
	Content([]byte) string
}

// ClassModel is the per-class structure built from AST (spec §3 "Class
// model"): every member indexed by identity, a name-only projection over
// the callable kinds, and the composed-field map used by the propagation
// engine's resolution rules.
type ClassModel struct {
	Name                     string
	SuperName                string
	MembersByIdentity        map[MemberIdentity]*MemberModel
	CallableMembersByName    map[string]*MemberModel
	ComposedFieldClassByName map[string]string
	DeclaredInPath           string
}

// NewClassModel returns an empty, ready-to-populate ClassModel for name.
func NewClassModel(name, superName, path string) *ClassModel {
	return &ClassModel{
		Name:                     name,
		SuperName:                superName,
		MembersByIdentity:        make(map[MemberIdentity]*MemberModel),
		CallableMembersByName:    make(map[string]*MemberModel),
		ComposedFieldClassByName: make(map[string]string),
		DeclaredInPath:           path,
	}
}

// SelectionReason is the documented reason a spec file was selected.
type SelectionReason string

const (
	ReasonDirectChangedSpec      SelectionReason = "direct-changed-spec"
	ReasonMatchedImportGraph     SelectionReason = "matched-import-graph"
	ReasonMatchedPrecise         SelectionReason = "matched-precise"
	ReasonMatchedUncertainOpen   SelectionReason = "matched-uncertain-fail-open"
	ReasonRetainedNoImpactedMeth SelectionReason = "retained-no-impacted-methods"
	ReasonRetainedNoBindings     SelectionReason = "retained-no-bindings"
	ReasonRetainedReadError      SelectionReason = "retained-read-error"
	ReasonGlobalWatchForceAll    SelectionReason = "global-watch-force-all"
)

// SelectionBias controls how Stage B of the spec selection pipeline treats
// uncertain call sites.
type SelectionBias string

const (
	BiasFailOpen   SelectionBias = "fail-open"
	BiasBalanced   SelectionBias = "balanced"
	BiasFailClosed SelectionBias = "fail-closed"
)

// GlobalWatchMode toggles the global-watch evaluator.
type GlobalWatchMode string

const (
	GlobalWatchForceAllInProject GlobalWatchMode = "force-all-in-project"
	GlobalWatchDisabled          GlobalWatchMode = "disabled"
)

// FileInfo describes one entry yielded by the recursive directory lister
// collaborator (spec §1(c)).
type FileInfo struct {
	Path      string // relative to the scan root
	Name      string
	Extension string
	Size      int64
	IsDir     bool
}

// Warning is a single non-fatal diagnostic (spec §7 category 4).
type Warning struct {
	Kind    string // e.g. "dynamic-this-index", "deep-this-chain", "status-fallback"
	Path    string
	Message string
}

// CoverageStats tracks the uncertainty counters spec §4.I requires.
type CoverageStats struct {
	UncertainCallSitesTotal int
	StatusFallbacks         int
}

// ChangeSourceBreakdown counts entries contributed by each upstream source.
type ChangeSourceBreakdown struct {
	BaseHead    int
	WorkingTree int
	Untracked   int
}

// GlobalWatchSummary records whether and why global-watch forced all specs.
type GlobalWatchSummary struct {
	Enabled        bool
	Forced         bool
	MatchedDirect  []string
	MatchedClosure []string
}

// SizeStats captures the cardinality of every intermediate set, for
// diagnostics and the "statistics are zeroed on force-all" invariant.
type SizeStats struct {
	ChangedFiles                int
	ChangedMethods              int
	TopLevelRuntimeChangedFiles int
	ImpactedClasses             int
	ImpactedMethods             int
	FixtureKeys                 int
	SpecsConsideredStageA       int
	SpecsSelected               int
}

// Result is the complete output of one engine invocation (spec §4.I, §6).
type Result struct {
	SelectedSpecs    []string
	SelectedSpecsAbs []string
	ReasonsByPath    map[string]SelectionReason
	StatusCounts     map[ChangeStatus]int
	Warnings         []Warning
	Coverage         CoverageStats
	ChangeSources    ChangeSourceBreakdown
	GlobalWatch      GlobalWatchSummary
	Sizes            SizeStats
	HasAnythingToRun bool
}
