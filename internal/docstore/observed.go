package docstore

import (
	"context"
	"errors"
	"time"
)

// ObserveFunc receives the outcome of each store operation.
type ObserveFunc func(ctx context.Context, operation string, success bool, duration time.Duration)

type observed struct {
	Store
	observe ObserveFunc
}

// WithObserver reports every operation on s to observe as
// "docstore.<op>". A missing document counts as success.
func WithObserver(s Store, observe ObserveFunc) Store {
	if observe == nil {
		return s
	}
	return &observed{Store: s, observe: observe}
}

func (o *observed) done(ctx context.Context, op string, started time.Time, err error) {
	o.observe(ctx, "docstore."+op, err == nil || errors.Is(err, ErrNotFound), time.Since(started))
}

func (o *observed) Load(ctx context.Context, name string) ([]byte, error) {
	started := time.Now()
	data, err := o.Store.Load(ctx, name)
	o.done(ctx, "load", started, err)
	return data, err
}

func (o *observed) Save(ctx context.Context, name string, data []byte) error {
	started := time.Now()
	err := o.Store.Save(ctx, name, data)
	o.done(ctx, "save", started, err)
	return err
}

func (o *observed) Delete(ctx context.Context, name string) (bool, error) {
	started := time.Now()
	removed, err := o.Store.Delete(ctx, name)
	o.done(ctx, "delete", started, err)
	return removed, err
}

func (o *observed) List(ctx context.Context) ([]Document, error) {
	started := time.Now()
	docs, err := o.Store.List(ctx)
	o.done(ctx, "list", started, err)
	return docs, err
}
