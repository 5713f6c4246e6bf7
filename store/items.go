package store

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"Gin_postgres_redis_inventory/barcode"
	"Gin_postgres_redis_inventory/models"
)

func (s *Store) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	const op = "store.ListItems"
	return withFallback(ctx, op,
		func(ctx context.Context) ([]models.InventoryItem, error) {
			items, err := s.remote.ListItems(ctx)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.items.save(ctx, items) })
			return nonNil(items), nil
		},
		s.items.load,
	)
}

// GetItem returns (nil, nil) when no item has that id.
func (s *Store) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	const op = "store.GetItem"
	return nilIfNotFound(withFallback(ctx, op,
		func(ctx context.Context) (*models.InventoryItem, error) {
			it, err := s.remote.FindItemByID(ctx, id)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.items.upsert(ctx, *it) })
			return it, nil
		},
		func(ctx context.Context) (*models.InventoryItem, error) { return s.items.find(ctx, id) },
	))
}

// AddItem assigns the id, barcode and added date. ID/Barcode/AddedDate on in are ignored.
func (s *Store) AddItem(ctx context.Context, in models.InventoryItem) (*models.InventoryItem, error) {
	const op = "store.AddItem"
	in.Name = strings.TrimSpace(in.Name)
	if err := validateItem(in); err != nil {
		return nil, err
	}
	in.AddedDate = s.now()

	return withFallback(ctx, op,
		func(ctx context.Context) (*models.InventoryItem, error) {
			seq, err := s.remote.MaxItemSeq(ctx, in.Type)
			if err != nil {
				return nil, err
			}
			it := withItemID(in, seq)
			if err := s.remote.CreateItem(ctx, &it); err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.items.upsert(ctx, it) })
			return &it, nil
		},
		func(ctx context.Context) (*models.InventoryItem, error) {
			items, err := s.items.load(ctx)
			if err != nil {
				return nil, err
			}
			seq := lo.Max(lo.FilterMap(items, func(x models.InventoryItem, _ int) (int, bool) {
				return models.ItemSeq(x.ID, in.Type)
			}))
			it := withItemID(in, seq)
			if err := s.items.save(ctx, append(items, it)); err != nil {
				return nil, err
			}
			return &it, nil
		},
	)
}

func withItemID(in models.InventoryItem, maxSeq int) models.InventoryItem {
	in.ID = models.NextItemID(in.Type, maxSeq)
	in.Barcode = barcode.Item(in.ID)
	return in
}

// UpdateItem applies patch to the item. A quantity change without an explicit
// available shifts available by the same amount, never below zero.
func (s *Store) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.InventoryItem, error) {
	const op = "store.UpdateItem"
	cur, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, models.ErrNotFound
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if patch.Quantity != nil && patch.Available == nil {
		avail := max(cur.Available+*patch.Quantity-cur.Quantity, 0)
		patch.Available = &avail
	}
	next := *cur
	patch.Apply(&next)
	if err := validateItem(next); err != nil {
		return nil, err
	}

	return withFallback(ctx, op,
		func(ctx context.Context) (*models.InventoryItem, error) {
			it, err := s.remote.UpdateItem(ctx, id, patch)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.items.upsert(ctx, *it) })
			return it, nil
		},
		func(ctx context.Context) (*models.InventoryItem, error) {
			return s.items.update(ctx, id, func(it *models.InventoryItem) error {
				patch.Apply(it)
				return nil
			})
		},
	)
}

// DeleteItem leaves borrow records that point at the item untouched.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	const op = "store.DeleteItem"
	_, err := withFallback(ctx, op,
		func(ctx context.Context) (struct{}, error) {
			err := s.remote.DeleteItem(ctx, id)
			if err == nil || isNotFound(err) {
				mirror(ctx, op, func(ctx context.Context) error { return ignoreNotFound(s.items.remove(ctx, id)) })
			}
			return struct{}{}, err
		},
		func(ctx context.Context) (struct{}, error) { return struct{}{}, s.items.remove(ctx, id) },
	)
	return err
}

func validateItem(it models.InventoryItem) error {
	v := &models.ValidationError{}
	if it.Name == "" {
		v.Add("name", "name is required")
	}
	if !it.Type.Valid() {
		v.Add("type", "type must be one of material, tool, apd")
	}
	if it.Quantity < 0 {
		v.Add("quantity", "quantity must not be negative")
	}
	if it.Available < 0 || it.Available > it.Quantity {
		v.Add("available", "available must be between 0 and quantity")
	}
	checkLengths(v, it)
	return v.OrNil()
}
