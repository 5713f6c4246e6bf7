package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"Gin_postgres_redis_inventory/barcode"
	"Gin_postgres_redis_inventory/logger"
	"Gin_postgres_redis_inventory/models"
)

type BorrowRequest struct {
	ItemID            string `json:"itemId"`
	UserEmail         string `json:"userEmail"`
	Quantity          int    `json:"quantity"`
	EstimatedDuration string `json:"estimatedDuration" validate:"max=60"`
}

func (s *Store) ListBorrowRecords(ctx context.Context) ([]models.BorrowRecord, error) {
	const op = "store.ListBorrowRecords"
	return withFallback(ctx, op,
		func(ctx context.Context) ([]models.BorrowRecord, error) {
			recs, err := s.remote.ListBorrowRecords(ctx)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.borrows.save(ctx, recs) })
			return nonNil(recs), nil
		},
		s.borrows.load,
	)
}

// GetBorrowRecord returns (nil, nil) for an unknown id.
func (s *Store) GetBorrowRecord(ctx context.Context, id string) (*models.BorrowRecord, error) {
	const op = "store.GetBorrowRecord"
	return nilIfNotFound(withFallback(ctx, op,
		func(ctx context.Context) (*models.BorrowRecord, error) {
			rec, err := s.remote.FindBorrowRecord(ctx, id)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.borrows.upsert(ctx, *rec) })
			return rec, nil
		},
		func(ctx context.Context) (*models.BorrowRecord, error) { return s.borrows.find(ctx, id) },
	))
}

func (s *Store) ListBorrowRecordsByUser(ctx context.Context, email string) ([]models.BorrowRecord, error) {
	const op = "store.ListBorrowRecordsByUser"
	email = NormalizeEmail(email)
	return withFallback(ctx, op,
		func(ctx context.Context) ([]models.BorrowRecord, error) {
			recs, err := s.remote.ListBorrowRecordsByUser(ctx, email)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.borrows.upsert(ctx, recs...) })
			return nonNil(recs), nil
		},
		func(ctx context.Context) ([]models.BorrowRecord, error) {
			return s.borrows.filter(ctx, func(r models.BorrowRecord) bool { return r.UserEmail == email })
		},
	)
}

func (s *Store) ListBorrowRecordsByItem(ctx context.Context, itemID string) ([]models.BorrowRecord, error) {
	const op = "store.ListBorrowRecordsByItem"
	return withFallback(ctx, op,
		func(ctx context.Context) ([]models.BorrowRecord, error) {
			recs, err := s.remote.ListBorrowRecordsByItem(ctx, itemID)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.borrows.upsert(ctx, recs...) })
			return nonNil(recs), nil
		},
		func(ctx context.Context) ([]models.BorrowRecord, error) {
			return s.borrows.filter(ctx, func(r models.BorrowRecord) bool { return r.ItemID == itemID })
		},
	)
}

// Borrow opens an active record and takes Quantity units off the item's
// available count.
func (s *Store) Borrow(ctx context.Context, in BorrowRequest) (*models.BorrowRecord, error) {
	const op = "store.Borrow"
	in.UserEmail = NormalizeEmail(in.UserEmail)
	in.ItemID = strings.TrimSpace(in.ItemID)
	if err := validateBorrow(in); err != nil {
		return nil, err
	}

	item, err := s.GetItem(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, models.ErrNotFound
	}
	if in.Quantity > item.Available {
		return nil, models.ErrInsufficientStock
	}

	now := s.now()
	rec := models.BorrowRecord{
		ItemID:            in.ItemID,
		UserEmail:         in.UserEmail,
		BorrowDate:        now,
		Quantity:          in.Quantity,
		Status:            models.BorrowActive,
		EstimatedDuration: strings.TrimSpace(in.EstimatedDuration),
	}
	setBorrowID(&rec, "b"+strconv.FormatInt(now.UnixMilli(), 10)+strconv.Itoa(s.randN(1000)))

	return withFallback(ctx, op,
		func(ctx context.Context) (*models.BorrowRecord, error) {
			r := rec
			it, err := s.remote.BorrowItem(ctx, &r)
			if errors.Is(err, models.ErrDuplicate) {
				// 同一毫秒内撞号，加一段随机后缀重试一次
				setBorrowID(&r, rec.ID+strconv.Itoa(s.randN(1000)))
				it, err = s.remote.BorrowItem(ctx, &r)
			}
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error {
				if err := s.borrows.upsert(ctx, r); err != nil {
					return err
				}
				return s.items.upsert(ctx, *it)
			})
			return &r, nil
		},
		func(ctx context.Context) (*models.BorrowRecord, error) { return s.borrowLocal(ctx, rec) },
	)
}

func setBorrowID(r *models.BorrowRecord, id string) {
	r.ID = id
	r.Barcode = barcode.Borrow(id)
}

// borrowLocal applies a borrow to the mirror only. The item write is undone
// if the record write fails.
func (s *Store) borrowLocal(ctx context.Context, rec models.BorrowRecord) (*models.BorrowRecord, error) {
	s.localMu.Lock()
	defer s.localMu.Unlock()
	items, err := s.items.load(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := s.borrows.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(items, func(it models.InventoryItem) bool { return it.ID == rec.ItemID })
	if idx < 0 {
		return nil, models.ErrNotFound
	}
	if items[idx].Available < rec.Quantity {
		return nil, models.ErrInsufficientStock
	}

	before := items[idx]
	items[idx].Available -= rec.Quantity
	if err := s.items.save(ctx, items); err != nil {
		return nil, err
	}
	if err := s.borrows.save(ctx, append(recs, rec)); err != nil {
		items[idx] = before
		s.compensate(ctx, "store.Borrow", s.items.save(ctx, items))
		return nil, err
	}
	return &rec, nil
}

// Return closes an active record and puts its quantity back on the item. An
// item deleted in the meantime is skipped.
func (s *Store) Return(ctx context.Context, id string) (*models.BorrowRecord, error) {
	const op = "store.Return"
	cur, err := s.GetBorrowRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, models.ErrNotFound
	}
	if !cur.Active() {
		return nil, models.ErrAlreadyReturned
	}

	at := s.now()
	return withFallback(ctx, op,
		func(ctx context.Context) (*models.BorrowRecord, error) {
			rec, it, err := s.remote.ReturnBorrowRecord(ctx, id, at)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error {
				if err := s.borrows.upsert(ctx, *rec); err != nil {
					return err
				}
				if it == nil {
					return nil
				}
				return s.items.upsert(ctx, *it)
			})
			return rec, nil
		},
		func(ctx context.Context) (*models.BorrowRecord, error) { return s.returnLocal(ctx, id, at) },
	)
}

func (s *Store) returnLocal(ctx context.Context, id string, at time.Time) (*models.BorrowRecord, error) {
	s.localMu.Lock()
	defer s.localMu.Unlock()
	recs, err := s.borrows.load(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.items.load(ctx)
	if err != nil {
		return nil, err
	}
	ri := indexOf(recs, func(r models.BorrowRecord) bool { return r.ID == id })
	if ri < 0 {
		return nil, models.ErrNotFound
	}
	if !recs[ri].Active() {
		return nil, models.ErrAlreadyReturned
	}

	before := recs[ri]
	recs[ri].Status = models.BorrowReturned
	recs[ri].ReturnDate = &at
	if err := s.borrows.save(ctx, recs); err != nil {
		return nil, err
	}

	ii := indexOf(items, func(it models.InventoryItem) bool { return it.ID == before.ItemID })
	if ii >= 0 {
		items[ii].Available += before.Quantity
		if err := s.items.save(ctx, items); err != nil {
			recs[ri] = before
			s.compensate(ctx, "store.Return", s.borrows.save(ctx, recs))
			return nil, err
		}
	}
	rec := recs[ri]
	return &rec, nil
}

// DeleteBorrowRecord removes the record without touching item availability.
func (s *Store) DeleteBorrowRecord(ctx context.Context, id string) error {
	const op = "store.DeleteBorrowRecord"
	_, err := withFallback(ctx, op,
		func(ctx context.Context) (struct{}, error) {
			err := s.remote.DeleteBorrowRecord(ctx, id)
			if err == nil || isNotFound(err) {
				mirror(ctx, op, func(ctx context.Context) error { return ignoreNotFound(s.borrows.remove(ctx, id)) })
			}
			return struct{}{}, err
		},
		func(ctx context.Context) (struct{}, error) { return struct{}{}, s.borrows.remove(ctx, id) },
	)
	return err
}

// compensate logs an undo that could not be written; the mirror is then
// left half-applied.
func (s *Store) compensate(ctx context.Context, op string, err error) {
	if err != nil {
		logger.Error(ctx, "mirror compensation failed",
			logger.String("op", op),
			logger.ErrorF(err),
		)
	}
}

// indexOf is -1 when nothing matches.
func indexOf[T any](xs []T, pred func(T) bool) int {
	_, i, _ := lo.FindIndexOf(xs, pred)
	return i
}

func validateBorrow(in BorrowRequest) error {
	v := &models.ValidationError{}
	if in.ItemID == "" {
		v.Add("itemId", "itemId is required")
	}
	if in.UserEmail == "" {
		v.Add("userEmail", "userEmail is required")
	}
	if in.Quantity <= 0 {
		v.Add("quantity", "quantity must be greater than 0")
	}
	checkLengths(v, in)
	return v.OrNil()
}
