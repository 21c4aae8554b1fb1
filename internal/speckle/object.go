package speckle

import "sort"

// Well-known field names in the Speckle wire format.
const (
	fieldID            = "id"
	fieldSpeckleType   = "speckle_type"
	fieldName          = "name"
	fieldIFCType       = "ifcType"
	fieldIFCGlobalID   = "ifcGlobalId"
	fieldApplicationID = "applicationId"
	fieldElements      = "elements"
	fieldReferencedID  = "referencedId"

	// referenceType marks a placeholder object that points at another
	// object in the same closure by id.
	referenceType = "reference"
)

// Object is one vertex of a received object graph.
//
// ID is the volatile Speckle object id: unique within one received
// graph, but a content hash that changes whenever the object's payload
// changes. It must never be used as a durable element identity.
//
// IFCGlobalID and ApplicationID are the two durable-identity fields; a
// node may carry either, both, or neither.
//
// Elements is the well-known child collection. Extra holds every other
// field of the wire object; after linking, child-typed values in Extra
// are *Object or []*Object, everything else keeps its decoded JSON
// shape.
type Object struct {
	ID            string
	SpeckleType   string
	Name          string
	IFCType       string
	IFCGlobalID   string
	ApplicationID string
	Elements      []*Object
	Extra         map[string]any
}

// Children returns every child object reachable from this node: the
// Elements collection first, then child-typed values found in Extra in
// key order. Extra keys are visited sorted so that traversal order is
// deterministic for a fixed graph.
//
// Values in Extra that are not child-typed are skipped; a malformed
// field never yields an error, only no children.
func (o *Object) Children() []*Object {
	var children []*Object

	for _, el := range o.Elements {
		if el != nil {
			children = append(children, el)
		}
	}

	if len(o.Extra) == 0 {
		return children
	}

	keys := make([]string, 0, len(o.Extra))
	for k := range o.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := o.Extra[k].(type) {
		case *Object:
			if v != nil {
				children = append(children, v)
			}
		case []*Object:
			for _, child := range v {
				if child != nil {
					children = append(children, child)
				}
			}
		}
	}

	return children
}
