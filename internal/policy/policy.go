// Package policy loads the extraction policy: the classification rules
// and default limit used by the traversal engine.
//
// The built-in defaults ship as a CUE document compiled into the
// binary; an optional user file is unified over them, so a deployment
// can extend the denylist or reorder identity preference without a
// code change, while the CUE schema keeps the result well-typed.
package policy

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/structura-app/adapter/internal/extract"
)

// defaultCUE is the embedded policy document. The #Policy definition is
// the schema; the policy value carries defaults that a user file may
// override field by field.
const defaultCUE = `
#Policy: {
	denylist: [...string]
	assemblyIfcTypes: [...string]
	assemblyTypeSuffixes: [...string]
	identityFields: [...("ifcGlobalId" | "applicationId")]
	defaultLimit: int & >0
}

policy: #Policy & {
	denylist:             *["RenderMaterial", "Proxy", "Mesh"] | [...string]
	assemblyIfcTypes:     *["IFCELEMENTASSEMBLY"] | [...string]
	assemblyTypeSuffixes: *["IFCElementAssembly"] | [...string]
	identityFields:       *["ifcGlobalId", "applicationId"] | [...string]
	defaultLimit:         int | *20000
}
`

// Policy is the decoded extraction policy.
type Policy struct {
	Denylist             []string `json:"denylist"`
	AssemblyIFCTypes     []string `json:"assemblyIfcTypes"`
	AssemblyTypeSuffixes []string `json:"assemblyTypeSuffixes"`
	IdentityFields       []string `json:"identityFields"`
	DefaultLimit         int      `json:"defaultLimit"`
}

// Rules converts the policy into the engine's classification rules.
func (p Policy) Rules() extract.Rules {
	fields := make([]extract.Source, 0, len(p.IdentityFields))
	for _, f := range p.IdentityFields {
		fields = append(fields, extract.Source(f))
	}
	return extract.Rules{
		Denylist:             p.Denylist,
		AssemblyIFCTypes:     p.AssemblyIFCTypes,
		AssemblyTypeSuffixes: p.AssemblyTypeSuffixes,
		IdentityFields:       fields,
	}
}

// Default returns the built-in policy.
// Panics if the embedded CUE document does not compile, which is a
// build defect, not a runtime condition.
func Default() Policy {
	p, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("policy: embedded defaults invalid: %v", err))
	}
	return p
}

// Load returns the policy from the given CUE file unified over the
// embedded defaults. An empty path loads the defaults alone.
//
// The result must be fully concrete and satisfy the #Policy schema;
// violations are returned with CUE's file/position context attached.
func Load(path string) (Policy, error) {
	ctx := cuecontext.New()

	value := ctx.CompileString(defaultCUE, cue.Filename("policy-defaults.cue"))
	if err := value.Err(); err != nil {
		return Policy{}, fmt.Errorf("compiling embedded policy: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Policy{}, fmt.Errorf("reading policy file: %w", err)
		}
		user := ctx.CompileBytes(data, cue.Filename(path))
		if err := user.Err(); err != nil {
			return Policy{}, fmt.Errorf("compiling policy file %s: %w", path, err)
		}
		value = value.Unify(user)
		if err := value.Err(); err != nil {
			return Policy{}, fmt.Errorf("merging policy file %s: %w", path, err)
		}
	}

	policyVal := value.LookupPath(cue.ParsePath("policy"))
	if !policyVal.Exists() {
		return Policy{}, fmt.Errorf("policy document has no \"policy\" field")
	}
	if err := policyVal.Validate(cue.Concrete(true)); err != nil {
		return Policy{}, fmt.Errorf("validating policy: %w", err)
	}

	var p Policy
	if err := policyVal.Decode(&p); err != nil {
		return Policy{}, fmt.Errorf("decoding policy: %w", err)
	}
	if len(p.IdentityFields) == 0 {
		return Policy{}, fmt.Errorf("policy must list at least one identity field")
	}

	return p, nil
}
