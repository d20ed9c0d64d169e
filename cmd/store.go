package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/RishavT/iitmdocs/internal/store"
)

// initStore opens the configured job history store. It returns nil when
// store.driver is "none".
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// requireStore is initStore for commands that cannot run without history.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("job history is disabled: set store.driver to sqlite or postgres")
	}
	return st, nil
}
