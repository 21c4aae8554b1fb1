package speckle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every network round trip to the Speckle server.
const DefaultTimeout = 60 * time.Second

// Config carries everything the client needs to reach a Speckle server.
// Construct once and inject; there is no package-level account state.
type Config struct {
	// ServerURL is the Speckle server base URL. A missing scheme is
	// defaulted to http://.
	ServerURL string

	// Token is the personal access token used as a Bearer credential.
	Token string

	// Timeout bounds each HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client resolves model versions and hands out per-stream transports.
type Client struct {
	serverURL string
	token     string
	http      *http.Client
}

// NewClient creates a client for the given server.
// Returns an error if the token is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("speckle: token is not set")
	}

	serverURL := strings.TrimRight(cfg.ServerURL, "/")
	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		serverURL = "http://" + serverURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		serverURL: serverURL,
		token:     cfg.Token,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// ServerURL returns the normalized server base URL.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// Transport returns a ServerTransport scoped to one stream.
func (c *Client) Transport(streamID string) *ServerTransport {
	return &ServerTransport{
		serverURL: c.serverURL,
		token:     c.token,
		streamID:  streamID,
		http:      c.http,
	}
}

// Receive downloads the object closure rooted at objectID from the given
// stream. Convenience wrapper over Transport(streamID).Receive.
func (c *Client) Receive(ctx context.Context, streamID, objectID string) (*Object, error) {
	return c.Transport(streamID).Receive(ctx, objectID)
}

// resolveQuery lists a stream's branches with their most recent commit.
const resolveQuery = `
query StreamBranches($streamId: String!) {
  stream(id: $streamId) {
    branches(limit: 200) {
      items {
        id
        name
        commits(limit: 1) {
          items {
            referencedObject
            createdAt
          }
        }
      }
    }
  }
}`

type resolveResponse struct {
	Stream *struct {
		Branches struct {
			Items []resolveBranch `json:"items"`
		} `json:"branches"`
	} `json:"stream"`
}

type resolveBranch struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Commits struct {
		Items []struct {
			ReferencedObject string `json:"referencedObject"`
			CreatedAt        string `json:"createdAt"`
		} `json:"items"`
	} `json:"commits"`
}

// ResolveObjectID resolves a (stream, model) pair to the root object id
// of the model's latest committed version.
//
// Fails with a descriptive NOT_FOUND error if the stream is inaccessible,
// the model id is not among the stream's branches, the branch has no
// commits, or the latest commit carries no referenced object.
func (c *Client) ResolveObjectID(ctx context.Context, streamID, modelID string) (string, error) {
	data, err := c.graphql(ctx, resolveQuery, map[string]any{"streamId": streamID})
	if err != nil {
		return "", err
	}

	var resp resolveResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", &ClientError{Code: ErrCodeDecode, Message: "decoding stream branches response", Err: err}
	}

	if resp.Stream == nil {
		return "", notFoundError("stream %s not found or no access", streamID)
	}

	var target *resolveBranch
	for i := range resp.Stream.Branches.Items {
		if resp.Stream.Branches.Items[i].ID == modelID {
			target = &resp.Stream.Branches.Items[i]
			break
		}
	}
	if target == nil {
		return "", notFoundError("model (branch) with id %s not found in stream %s", modelID, streamID)
	}

	if len(target.Commits.Items) == 0 {
		return "", notFoundError("no commits found for this model/branch")
	}

	objectID := target.Commits.Items[0].ReferencedObject
	if objectID == "" {
		return "", notFoundError("latest commit has no referenced object")
	}

	slog.Debug("resolved model version",
		"stream_id", streamID,
		"model_id", modelID,
		"object_id", objectID,
	)

	return objectID, nil
}

// graphql posts a query to the server's /graphql endpoint and returns the
// raw data payload.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ClientError{Code: ErrCodeTransport, Message: "graphql request failed", Err: err}
	}
	defer resp.Body.Close()

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &ClientError{Code: ErrCodeDecode, Message: fmt.Sprintf("graphql HTTP %d: unreadable body", resp.StatusCode), Err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &ClientError{Code: ErrCodeTransport, Message: fmt.Sprintf("graphql HTTP %d", resp.StatusCode)}
	}

	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return nil, &ClientError{Code: ErrCodeGraphQL, Message: "graphql errors: " + strings.Join(msgs, "; ")}
	}

	return envelope.Data, nil
}
