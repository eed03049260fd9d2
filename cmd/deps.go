package cmd

import (
	"context"
	"fmt"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/bkt"
	"github.com/abhisek/masterypath/internal/cache"
	"github.com/abhisek/masterypath/internal/engine"
	"github.com/abhisek/masterypath/internal/store"
)

// openCache returns Redis when cache.url is set, otherwise an in-process
// cache. The returned close func is never nil.
func openCache(ctx context.Context) (cache.Cache, func() error, error) {
	if cfg.Cache.URL == "" {
		return cache.NewMemory(), func() error { return nil }, nil
	}
	r, err := cache.New(ctx, cfg.Cache.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect cache: %w", err)
	}
	return r, r.Close, nil
}

// newModel builds the configured knowledge update model.
func newModel() (bkt.Model, error) {
	curve, err := cfg.BKT.NewCurve()
	if err != nil {
		return nil, err
	}
	return bkt.New(cfg.BKT.Params(), curve), nil
}

func newEngine(b bank.Bank, repo store.KnowledgeRepo, c cache.Cache) (*engine.Engine, error) {
	model, err := newModel()
	if err != nil {
		return nil, err
	}
	return engine.New(b, repo, engine.Config{
		Prior:          cfg.Engine.Prior,
		Threshold:      cfg.Engine.Threshold,
		StorageTimeout: cfg.Engine.StorageTimeout,
		ProgressTTL:    cfg.Cache.TTL,
		Model:          model,
		Cache:          c,
		Logger:         logger,
	}), nil
}

// storedCatalog loads the published catalog and fails when it is empty.
func storedCatalog(ctx context.Context, st *store.Store) (*bank.Catalog, error) {
	cat, err := st.Catalog().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if _, objectives, _ := cat.Counts(); objectives == 0 {
		return nil, fmt.Errorf("no catalog in the store: run `masterypath catalog import <file>` first")
	}
	return cat, nil
}
