package speckle

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closureServer serves the given newline-delimited JSON closure for any
// object request on the stream.
func closureServer(t *testing.T, streamID string, lines ...string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.True(t, strings.HasPrefix(r.URL.Path, "/objects/"+streamID+"/"))
		fmt.Fprint(w, strings.Join(lines, "\n"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{ServerURL: serverURL, Token: "tok"})
	require.NoError(t, err)
	return c
}

func TestReceive_SingleObject(t *testing.T) {
	srv := closureServer(t, "s1",
		`{"id":"root","speckle_type":"Objects.BuiltElements.Wall","name":"W","ifcGlobalId":"G1","height":2.5}`,
	)

	c := newTestClient(t, srv.URL)
	root, err := c.Receive(context.Background(), "s1", "root")
	require.NoError(t, err)

	assert.Equal(t, "root", root.ID)
	assert.Equal(t, "Objects.BuiltElements.Wall", root.SpeckleType)
	assert.Equal(t, "W", root.Name)
	assert.Equal(t, "G1", root.IFCGlobalID)
	assert.Equal(t, 2.5, root.Extra["height"])
}

func TestReceive_LinksReferences(t *testing.T) {
	srv := closureServer(t, "s1",
		`{"id":"root","speckle_type":"Speckle.Core.Models.Collection","elements":[{"speckle_type":"reference","referencedId":"child-1"},{"speckle_type":"reference","referencedId":"child-2"}]}`,
		`{"id":"child-1","speckle_type":"Objects.BuiltElements.Wall","ifcGlobalId":"G1"}`,
		`{"id":"child-2","speckle_type":"Objects.BuiltElements.Door","ifcGlobalId":"G2"}`,
	)

	c := newTestClient(t, srv.URL)
	root, err := c.Receive(context.Background(), "s1", "root")
	require.NoError(t, err)

	require.Len(t, root.Elements, 2)
	assert.Equal(t, "child-1", root.Elements[0].ID)
	assert.Equal(t, "G1", root.Elements[0].IFCGlobalID)
	assert.Equal(t, "child-2", root.Elements[1].ID)
}

func TestReceive_LinksReferenceInArbitraryField(t *testing.T) {
	srv := closureServer(t, "s1",
		`{"id":"root","speckle_type":"Speckle.Core.Models.Collection","@walls":[{"speckle_type":"reference","referencedId":"w1"}],"owner":{"speckle_type":"reference","referencedId":"w1"}}`,
		`{"id":"w1","speckle_type":"Objects.BuiltElements.Wall","ifcGlobalId":"G1"}`,
	)

	c := newTestClient(t, srv.URL)
	root, err := c.Receive(context.Background(), "s1", "root")
	require.NoError(t, err)

	walls, ok := root.Extra["@walls"].([]*Object)
	require.True(t, ok)
	require.Len(t, walls, 1)
	assert.Equal(t, "w1", walls[0].ID)

	owner, ok := root.Extra["owner"].(*Object)
	require.True(t, ok)
	assert.Same(t, walls[0], owner)
}

func TestReceive_CyclicReferences(t *testing.T) {
	srv := closureServer(t, "s1",
		`{"id":"a","speckle_type":"Objects.BuiltElements.Wall","ifcGlobalId":"GA","next":{"speckle_type":"reference","referencedId":"b"}}`,
		`{"id":"b","speckle_type":"Objects.BuiltElements.Wall","ifcGlobalId":"GB","next":{"speckle_type":"reference","referencedId":"a"}}`,
	)

	c := newTestClient(t, srv.URL)
	root, err := c.Receive(context.Background(), "s1", "a")
	require.NoError(t, err)

	b, ok := root.Extra["next"].(*Object)
	require.True(t, ok)
	assert.Equal(t, "b", b.ID)

	back, ok := b.Extra["next"].(*Object)
	require.True(t, ok)
	assert.Same(t, root, back)
}

func TestReceive_InlineObject(t *testing.T) {
	srv := closureServer(t, "s1",
		`{"id":"root","speckle_type":"Speckle.Core.Models.Collection","elements":[{"id":"inline-1","speckle_type":"Objects.BuiltElements.Beam","name":"B1","applicationId":"app-1"}]}`,
	)

	c := newTestClient(t, srv.URL)
	root, err := c.Receive(context.Background(), "s1", "root")
	require.NoError(t, err)

	require.Len(t, root.Elements, 1)
	assert.Equal(t, "inline-1", root.Elements[0].ID)
	assert.Equal(t, "B1", root.Elements[0].Name)
	assert.Equal(t, "app-1", root.Elements[0].ApplicationID)
}

func TestReceive_DanglingReferenceSkipped(t *testing.T) {
	// A reference to an id outside the closure yields no child rather
	// than an error.
	srv := closureServer(t, "s1",
		`{"id":"root","speckle_type":"Speckle.Core.Models.Collection","elements":[{"speckle_type":"reference","referencedId":"gone"}]}`,
	)

	c := newTestClient(t, srv.URL)
	root, err := c.Receive(context.Background(), "s1", "root")
	require.NoError(t, err)
	assert.Empty(t, root.Elements)
}

func TestReceive_MissingRoot(t *testing.T) {
	srv := closureServer(t, "s1",
		`{"id":"other","speckle_type":"Objects.BuiltElements.Wall"}`,
	)

	c := newTestClient(t, srv.URL)
	_, err := c.Receive(context.Background(), "s1", "root")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing root object")
}

func TestReceive_EmptyClosure(t *testing.T) {
	srv := closureServer(t, "s1")

	c := newTestClient(t, srv.URL)
	_, err := c.Receive(context.Background(), "s1", "root")
	require.Error(t, err)
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeDecode, ce.Code)
}

func TestReceive_MalformedPayload(t *testing.T) {
	srv := closureServer(t, "s1", `{"id":"root", not json`)

	c := newTestClient(t, srv.URL)
	_, err := c.Receive(context.Background(), "s1", "root")
	require.Error(t, err)
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeDecode, ce.Code)
}

func TestReceive_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Receive(context.Background(), "s1", "root")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestReceive_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Receive(context.Background(), "s1", "root")
	require.Error(t, err)
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeTransport, ce.Code)
}
