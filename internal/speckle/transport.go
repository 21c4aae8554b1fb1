package speckle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ServerTransport downloads object closures for a single stream.
//
// The Speckle REST endpoint GET /objects/{stream}/{object} streams the
// full closure of an object as newline-delimited JSON: the root object
// plus every object transitively referenced by it. Child references
// inside an object's payload are placeholders of the form
//
//	{"speckle_type": "reference", "referencedId": "<object id>"}
//
// which Receive links back to the decoded objects, producing an
// in-memory graph that may legitimately contain cycles.
type ServerTransport struct {
	serverURL string
	token     string
	streamID  string
	http      *http.Client
}

// StreamID returns the stream this transport is scoped to.
func (t *ServerTransport) StreamID() string {
	return t.streamID
}

// Receive downloads and links the object closure rooted at objectID.
//
// Any network, auth, or decode failure aborts the whole receive; no
// partial graph is ever returned.
func (t *ServerTransport) Receive(ctx context.Context, objectID string) (*Object, error) {
	url := fmt.Sprintf("%s/objects/%s/%s", t.serverURL, t.streamID, objectID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create objects request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, &ClientError{Code: ErrCodeTransport, Message: "objects request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, notFoundError("object %s not found in stream %s", objectID, t.streamID)
	}
	if resp.StatusCode >= 400 {
		return nil, &ClientError{Code: ErrCodeTransport, Message: fmt.Sprintf("objects HTTP %d", resp.StatusCode)}
	}

	root, total, err := decodeClosure(resp.Body, objectID)
	if err != nil {
		return nil, err
	}

	slog.Debug("received object closure",
		"stream_id", t.streamID,
		"object_id", objectID,
		"objects", total,
	)

	return root, nil
}

// decodeClosure reads a stream of JSON objects, builds an Object for
// each, links references, and returns the root.
func decodeClosure(r io.Reader, rootID string) (*Object, int, error) {
	// First pass: decode every raw object in the closure, keyed by id.
	raws := make(map[string]map[string]any)

	dec := json.NewDecoder(r)
	for {
		var raw map[string]any
		if err := dec.Decode(&raw); err == io.EOF {
			break
		} else if err != nil {
			return nil, 0, &ClientError{Code: ErrCodeDecode, Message: "decoding object closure", Err: err}
		}

		id, _ := raw[fieldID].(string)
		if id == "" {
			return nil, 0, &ClientError{Code: ErrCodeDecode, Message: "closure contains an object without an id"}
		}
		raws[id] = raw
	}

	if len(raws) == 0 {
		return nil, 0, &ClientError{Code: ErrCodeDecode, Message: "empty object closure"}
	}
	if _, ok := raws[rootID]; !ok {
		return nil, 0, &ClientError{Code: ErrCodeDecode, Message: fmt.Sprintf("closure is missing root object %s", rootID)}
	}

	// Second pass: allocate shells up front so reference linking can
	// form cycles, then fill fields.
	objects := make(map[string]*Object, len(raws))
	for id := range raws {
		objects[id] = &Object{ID: id}
	}
	for id, raw := range raws {
		fillObject(objects[id], raw, objects)
	}

	return objects[rootID], len(objects), nil
}

// fillObject populates obj from its raw wire fields, linking references
// through the closure's object table.
func fillObject(obj *Object, raw map[string]any, objects map[string]*Object) {
	for key, value := range raw {
		switch key {
		case fieldID:
			obj.ID, _ = value.(string)
		case fieldSpeckleType:
			obj.SpeckleType, _ = value.(string)
		case fieldName:
			obj.Name, _ = value.(string)
		case fieldIFCType:
			obj.IFCType, _ = value.(string)
		case fieldIFCGlobalID:
			obj.IFCGlobalID, _ = value.(string)
		case fieldApplicationID:
			obj.ApplicationID, _ = value.(string)
		case fieldElements:
			obj.Elements = linkList(value, objects)
		default:
			if obj.Extra == nil {
				obj.Extra = make(map[string]any)
			}
			obj.Extra[key] = linkValue(value, objects)
		}
	}
}

// linkValue converts a raw field value into its in-memory shape:
// reference placeholders become *Object, inline objects are decoded
// recursively, lists holding children become []*Object, and everything
// else is kept as decoded JSON.
func linkValue(value any, objects map[string]*Object) any {
	switch v := value.(type) {
	case map[string]any:
		if child := linkObject(v, objects); child != nil {
			return child
		}
		return v
	case []any:
		if children := linkList(v, objects); children != nil {
			return children
		}
		return v
	default:
		return value
	}
}

// linkObject turns a raw map into an *Object when it is a reference
// placeholder or an inline typed object. Returns nil for plain maps.
// A reference to an id outside the closure yields nil rather than an
// error; the remote graph's shape is only loosely schema-constrained.
func linkObject(raw map[string]any, objects map[string]*Object) *Object {
	typeTag, _ := raw[fieldSpeckleType].(string)
	if typeTag == "" {
		return nil
	}

	if typeTag == referenceType {
		refID, _ := raw[fieldReferencedID].(string)
		if refID == "" {
			return nil
		}
		return objects[refID] // nil if the closure does not contain it
	}

	// Inline typed object without its own closure entry.
	if id, _ := raw[fieldID].(string); id != "" {
		if obj, ok := objects[id]; ok {
			return obj
		}
	}
	obj := &Object{}
	fillObject(obj, raw, objects)
	return obj
}

// linkList converts a raw list to []*Object when it holds child-typed
// values. Non-child entries are dropped; a list with no children at all
// returns nil so the caller can keep the original value.
func linkList(value any, objects map[string]*Object) []*Object {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	var children []*Object
	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if child := linkObject(raw, objects); child != nil {
			children = append(children, child)
		}
	}
	return children
}
