package store

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"Gin_postgres_redis_inventory/cache"
	"Gin_postgres_redis_inventory/models"
)

// collection wraps a mirror with keyed helpers. Every helper is a full
// load-modify-save of the collection.
type collection[T any] struct {
	name   string
	mirror cache.Mirror[T]
	key    func(T) string
}

func newCollection[T any](name string, m cache.Mirror[T], key func(T) string) *collection[T] {
	return &collection[T]{name: name, mirror: m, key: key}
}

func (c *collection[T]) load(ctx context.Context) ([]T, error) {
	items, err := c.mirror.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", models.ErrUnavailable, c.name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *collection[T]) save(ctx context.Context, items []T) error {
	if err := c.mirror.SaveAll(ctx, items); err != nil {
		return fmt.Errorf("%w: save %s: %w", models.ErrUnavailable, c.name, err)
	}
	return nil
}

// find returns nil when key is absent.
func (c *collection[T]) find(ctx context.Context, key string) (*T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := lo.Find(items, func(it T) bool { return c.key(it) == key })
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c *collection[T]) filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(items, func(it T, _ int) bool { return keep(it) }), nil
}

func (c *collection[T]) upsert(ctx context.Context, vs ...T) error {
	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	for _, v := range vs {
		_, idx, ok := lo.FindIndexOf(items, func(it T) bool { return c.key(it) == c.key(v) })
		if ok {
			items[idx] = v
		} else {
			items = append(items, v)
		}
	}
	return c.save(ctx, items)
}

// update applies fn to the entry with key; models.ErrNotFound if absent.
func (c *collection[T]) update(ctx context.Context, key string, fn func(*T) error) (*T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	_, idx, ok := lo.FindIndexOf(items, func(it T) bool { return c.key(it) == key })
	if !ok {
		return nil, models.ErrNotFound
	}
	if err := fn(&items[idx]); err != nil {
		return nil, err
	}
	if err := c.save(ctx, items); err != nil {
		return nil, err
	}
	v := items[idx]
	return &v, nil
}

// remove deletes the entry with key; models.ErrNotFound if absent.
func (c *collection[T]) remove(ctx context.Context, key string) error {
	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	kept := lo.Reject(items, func(it T, _ int) bool { return c.key(it) == key })
	if len(kept) == len(items) {
		return models.ErrNotFound
	}
	return c.save(ctx, kept)
}
