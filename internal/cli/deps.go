package cli

import (
	"time"

	"github.com/structura-app/adapter/internal/adapter"
	"github.com/structura-app/adapter/internal/config"
	"github.com/structura-app/adapter/internal/policy"
	"github.com/structura-app/adapter/internal/speckle"
	"github.com/structura-app/adapter/internal/store"
)

// openStore opens the relational store from the loaded config.
func openStore(cfg config.Config) (*store.Store, error) {
	return store.Open(cfg.Database.Path, store.WithBranch(cfg.Sync.Branch))
}

// buildService constructs the full pipeline service: Speckle client,
// extraction policy, and store, all from the loaded config.
func buildService(cfg config.Config, st *store.Store) (*adapter.Service, error) {
	if err := cfg.ValidateRemote(); err != nil {
		return nil, err
	}

	client, err := speckle.NewClient(speckle.Config{
		ServerURL: cfg.Speckle.ServerURL,
		Token:     cfg.Speckle.Token,
		Timeout:   time.Duration(cfg.Speckle.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	pol, err := policy.Load(cfg.Policy.File)
	if err != nil {
		return nil, err
	}

	return adapter.NewService(client, st, serviceOptions(cfg, pol)), nil
}

// serviceOptions maps the loaded config and policy onto pipeline
// options. A config limit wins when set; a zero config limit falls
// back to the policy's default limit.
func serviceOptions(cfg config.Config, pol policy.Policy) adapter.Options {
	opts := adapter.Options{
		Rules:      pol.Rules(),
		DebugLimit: cfg.Sync.DebugLimit,
		SyncLimit:  cfg.Sync.SyncLimit,
	}
	if opts.DebugLimit <= 0 {
		opts.DebugLimit = pol.DefaultLimit
	}
	if opts.SyncLimit <= 0 {
		opts.SyncLimit = pol.DefaultLimit
	}
	return opts
}
