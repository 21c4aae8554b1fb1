package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/structura-app/adapter/internal/speckle"
)

// DefaultLimit caps emitted elements when Options.Limit is not set.
const DefaultLimit = 20000

// UnnamedPlaceholder is used when a node carries no name.
const UnnamedPlaceholder = "Unnamed"

// Source records which durable-identity field produced an element's
// stable id.
type Source string

const (
	// SourceIFCGlobalID means the stable id came from the node's IFC
	// global id, durable across authoring tools.
	SourceIFCGlobalID Source = "ifcGlobalId"

	// SourceApplicationID means the stable id came from the
	// application-scoped identifier.
	SourceApplicationID Source = "applicationId"
)

// Element is one flattened, deduplicated model element.
//
// StableID is the durable identity used for dedup and as the relational
// natural key. SpeckleID is the originating node's volatile id, kept
// only so viewers can correlate rows back to scene objects; it is never
// a dedup key.
type Element struct {
	StableID   string `json:"guid"`
	SpeckleID  string `json:"speckle_id,omitempty"`
	Name       string `json:"name"`
	SimpleType string `json:"type"`
	IFCType    string `json:"ifc_type,omitempty"`
	Source     Source `json:"source"`
}

// Rules are the classification knobs of the engine. Unset fields fall
// back to their DefaultRules counterpart field by field.
type Rules struct {
	// Denylist rejects nodes whose type tag contains any of these
	// substrings. These identify non-semantic payloads (render-material
	// definitions, render proxies, raw mesh geometry).
	Denylist []string

	// AssemblyIFCTypes lists domain-type tags that mark a node as an
	// element assembly.
	AssemblyIFCTypes []string

	// AssemblyTypeSuffixes lists type-tag suffixes that mark a node as
	// an element assembly.
	AssemblyTypeSuffixes []string

	// IdentityFields orders the durable-identity fields by preference.
	// Valid entries: "ifcGlobalId", "applicationId".
	IdentityFields []Source
}

// DefaultRules returns the built-in classification rules.
func DefaultRules() Rules {
	return Rules{
		Denylist:             []string{"RenderMaterial", "Proxy", "Mesh"},
		AssemblyIFCTypes:     []string{"IFCELEMENTASSEMBLY"},
		AssemblyTypeSuffixes: []string{"IFCElementAssembly"},
		IdentityFields:       []Source{SourceIFCGlobalID, SourceApplicationID},
	}
}

// Options configure one extraction run.
type Options struct {
	// Limit is a hard cap on emitted elements, not on nodes visited.
	// Zero or negative means DefaultLimit.
	Limit int

	// IncludeAssemblies emits assembly container nodes as elements in
	// addition to their members. Off by default to avoid double-counting.
	IncludeAssemblies bool

	// Rules override the classification rules. A zero Rules value means
	// DefaultRules.
	Rules Rules
}

func (o Options) limit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

// rules fills unset rule fields from the defaults independently, so a
// caller overriding one knob (say the denylist) keeps the built-in
// behavior for the rest. A nil slice means unset; a non-nil empty
// Denylist or assembly list is an explicit "match nothing".
// IdentityFields falls back when empty either way, since extraction is
// meaningless without an identity preference.
func (o Options) rules() Rules {
	r := o.Rules
	defaults := DefaultRules()
	if r.Denylist == nil {
		r.Denylist = defaults.Denylist
	}
	if r.AssemblyIFCTypes == nil {
		r.AssemblyIFCTypes = defaults.AssemblyIFCTypes
	}
	if r.AssemblyTypeSuffixes == nil {
		r.AssemblyTypeSuffixes = defaults.AssemblyTypeSuffixes
	}
	if len(r.IdentityFields) == 0 {
		r.IdentityFields = defaults.IdentityFields
	}
	return r
}

// Extract walks the graph rooted at root and returns its elements in
// traversal order. Deterministic for a fixed graph; the result length
// is min(limit, distinct stable elements reachable from root).
//
// Traversal is iterative (explicit stack), so pathologically deep
// graphs cannot overflow the goroutine stack, and each volatile object
// id is popped at most once, so cyclic graphs terminate.
func Extract(root *speckle.Object, opts Options) []Element {
	if root == nil {
		return []Element{}
	}

	limit := opts.limit()
	rules := opts.rules()

	elements := []Element{}
	stack := []*speckle.Object{root}
	seenVolatile := make(map[string]struct{})
	seenStable := make(map[string]struct{})

	for len(stack) > 0 && len(elements) < limit {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if obj == nil {
			continue
		}

		// Cycle/revisit guard on the volatile object id. Nodes without
		// an id cannot be revisit-guarded, but they also cannot be
		// re-referenced by the wire format, so the walk still terminates.
		if obj.ID != "" {
			if _, seen := seenVolatile[obj.ID]; seen {
				continue
			}
			seenVolatile[obj.ID] = struct{}{}
		}

		if el, ok := classify(obj, rules, opts.IncludeAssemblies); ok {
			if _, dup := seenStable[el.StableID]; !dup {
				seenStable[el.StableID] = struct{}{}
				elements = append(elements, el)
			}
			// A duplicate stable id is dropped, but its children are
			// still expanded: duplicate subgraphs may reach nodes the
			// first copy did not.
		}

		stack = append(stack, obj.Children()...)
	}

	return elements
}

// classify applies the candidate-element test to one node. Returns the
// element and true when the node is a user-facing element; false means
// the node contributes nothing to the output (but its children are
// still traversed by the caller).
func classify(obj *speckle.Object, rules Rules, includeAssemblies bool) (Element, bool) {
	typeTag := strings.TrimSpace(obj.SpeckleType)
	if typeTag == "" {
		// Structural-only node (untyped grouping), never an element and
		// never counted against the limit.
		return Element{}, false
	}

	for _, noise := range rules.Denylist {
		if strings.Contains(typeTag, noise) {
			return Element{}, false
		}
	}

	if !includeAssemblies {
		for _, ifcType := range rules.AssemblyIFCTypes {
			if obj.IFCType == ifcType {
				return Element{}, false
			}
		}
		for _, suffix := range rules.AssemblyTypeSuffixes {
			if strings.HasSuffix(typeTag, suffix) {
				return Element{}, false
			}
		}
	}

	stableID, source := stableIdentity(obj, rules.IdentityFields)
	if stableID == "" {
		// Common for pure grouping/collection nodes.
		return Element{}, false
	}

	name := obj.Name
	if name == "" {
		name = UnnamedPlaceholder
	}

	return Element{
		StableID:   stableID,
		SpeckleID:  obj.ID,
		Name:       norm.NFC.String(name),
		SimpleType: simpleType(typeTag),
		IFCType:    obj.IFCType,
		Source:     source,
	}, true
}

// stableIdentity picks the first non-empty durable-identity field in
// preference order. Identity strings are NFC-normalized so that dedup
// and the relational natural key are stable across unicode encodings of
// the same identifier.
func stableIdentity(obj *speckle.Object, fields []Source) (string, Source) {
	for _, field := range fields {
		var value string
		switch field {
		case SourceIFCGlobalID:
			value = obj.IFCGlobalID
		case SourceApplicationID:
			value = obj.ApplicationID
		}
		if value != "" {
			return norm.NFC.String(value), field
		}
	}
	return "", ""
}

// simpleType strips any namespace prefix from a type tag, keeping the
// last dot-separated segment.
func simpleType(typeTag string) string {
	if idx := strings.LastIndex(typeTag, "."); idx >= 0 {
		return typeTag[idx+1:]
	}
	return typeTag
}
