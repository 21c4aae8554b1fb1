// Package adapter wires the pipeline together: resolve a model's
// latest version, receive its object graph, extract elements, and hand
// the snapshot to the store.
package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/structura-app/adapter/internal/extract"
	"github.com/structura-app/adapter/internal/speckle"
	"github.com/structura-app/adapter/internal/store"
)

// Default element caps for the two pipeline entry points. Debug runs
// return payloads to a UI and stay small; sync runs want the full
// model.
const (
	DefaultDebugLimit = 2000
	DefaultSyncLimit  = 10000
)

// GraphSource is the remote object-graph boundary the service consumes:
// version resolution plus graph receive. *speckle.Client satisfies it.
type GraphSource interface {
	ResolveObjectID(ctx context.Context, streamID, modelID string) (string, error)
	Receive(ctx context.Context, streamID, objectID string) (*speckle.Object, error)
}

// Syncer is the relational boundary the service consumes.
// *store.Store satisfies it.
type Syncer interface {
	SyncModel(ctx context.Context, streamID, modelID, versionID string, elements []extract.Element) (store.SyncResult, error)
	ElementStatuses(ctx context.Context, streamID, modelID string) ([]store.ElementStatus, error)
	UpdateStatuses(ctx context.Context, elementIDs []string, status string) (int64, error)
}

// Options configure a Service.
type Options struct {
	// Rules are the extraction classification rules.
	// Zero value means extract.DefaultRules.
	Rules extract.Rules

	// DebugLimit caps elements returned by Debug. Zero means
	// DefaultDebugLimit.
	DebugLimit int

	// SyncLimit caps elements persisted by Sync. Zero means
	// DefaultSyncLimit.
	SyncLimit int

	// RunTokens generates the token attached to each sync run's log
	// lines. Nil means UUIDv7 tokens.
	RunTokens TokenGenerator
}

// Service executes the adapter pipeline. Construct once with explicit
// dependencies and inject everywhere; it holds no mutable state.
type Service struct {
	source GraphSource
	store  Syncer
	opts   Options
}

// NewService creates a Service over the given graph source and store.
func NewService(source GraphSource, st Syncer, opts Options) *Service {
	if opts.DebugLimit <= 0 {
		opts.DebugLimit = DefaultDebugLimit
	}
	if opts.SyncLimit <= 0 {
		opts.SyncLimit = DefaultSyncLimit
	}
	if opts.RunTokens == nil {
		opts.RunTokens = UUIDv7Generator{}
	}
	return &Service{source: source, store: st, opts: opts}
}

// DebugResult is the outcome of a non-persisting extraction run.
type DebugResult struct {
	StreamID string            `json:"stream_id"`
	ModelID  string            `json:"model_id"`
	ObjectID string            `json:"object_id"`
	Count    int               `json:"count"`
	Items    []extract.Element `json:"items"`
}

// Debug resolves, receives, and extracts a model without touching the
// store. Used by the debug endpoint and the extract CLI command.
func (s *Service) Debug(ctx context.Context, streamID, modelID string, limit int, includeAssemblies bool) (DebugResult, error) {
	if limit <= 0 {
		limit = s.opts.DebugLimit
	}

	objectID, elements, err := s.extractModel(ctx, streamID, modelID, limit, includeAssemblies)
	if err != nil {
		return DebugResult{}, err
	}

	return DebugResult{
		StreamID: streamID,
		ModelID:  modelID,
		ObjectID: objectID,
		Count:    len(elements),
		Items:    elements,
	}, nil
}

// SyncSummary is the outcome of one persisted synchronization run.
type SyncSummary struct {
	ObjectID string           `json:"object_id"`
	Details  store.SyncResult `json:"details"`
}

// Sync runs the full pipeline for one model and persists the snapshot.
//
// The run is not retried on failure: the store transaction rolls back
// and prior state stays untouched, so callers can retry the whole
// operation safely.
func (s *Service) Sync(ctx context.Context, streamID, modelID string) (SyncSummary, error) {
	runToken := s.opts.RunTokens.Generate()
	started := time.Now()

	log := slog.With("run_token", runToken, "stream_id", streamID, "model_id", modelID)
	log.Info("sync starting")

	objectID, elements, err := s.extractModel(ctx, streamID, modelID, s.opts.SyncLimit, false)
	if err != nil {
		log.Error("sync failed", "stage", "extract", "error", err)
		return SyncSummary{}, err
	}
	log.Debug("extraction complete", "object_id", objectID, "elements", len(elements))

	result, err := s.store.SyncModel(ctx, streamID, modelID, objectID, elements)
	if err != nil {
		log.Error("sync failed", "stage", "persist", "error", err)
		return SyncSummary{}, fmt.Errorf("persisting model %s: %w", modelID, err)
	}

	log.Info("sync complete",
		"object_id", objectID,
		"elements", result.ElementsCount,
		"duration", time.Since(started),
	)

	return SyncSummary{ObjectID: objectID, Details: result}, nil
}

// Statuses returns the workflow statuses synchronized for a model.
func (s *Service) Statuses(ctx context.Context, streamID, modelID string) ([]store.ElementStatus, error) {
	return s.store.ElementStatuses(ctx, streamID, modelID)
}

// UpdateStatuses sets the workflow status for a list of durable element
// ids. Returns the number of rows touched.
func (s *Service) UpdateStatuses(ctx context.Context, elementIDs []string, status string) (int64, error) {
	return s.store.UpdateStatuses(ctx, elementIDs, status)
}

// extractModel is the shared resolve -> receive -> extract front half
// of the pipeline.
func (s *Service) extractModel(ctx context.Context, streamID, modelID string, limit int, includeAssemblies bool) (string, []extract.Element, error) {
	objectID, err := s.source.ResolveObjectID(ctx, streamID, modelID)
	if err != nil {
		return "", nil, fmt.Errorf("resolving model %s in stream %s: %w", modelID, streamID, err)
	}

	root, err := s.source.Receive(ctx, streamID, objectID)
	if err != nil {
		return "", nil, fmt.Errorf("receiving object %s: %w", objectID, err)
	}

	elements := extract.Extract(root, extract.Options{
		Limit:             limit,
		IncludeAssemblies: includeAssemblies,
		Rules:             s.opts.Rules,
	})

	return objectID, elements, nil
}
