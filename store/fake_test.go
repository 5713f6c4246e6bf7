package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"Gin_postgres_redis_inventory/cache"
	"Gin_postgres_redis_inventory/models"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

// fakeRemote is an in-memory Remote; down makes every call fail like an
// unreachable database.
type fakeRemote struct {
	mu      sync.Mutex
	down    bool
	items   map[string]models.InventoryItem
	users   map[string]models.User
	borrows map[string]models.BorrowRecord
	calls   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		items:   map[string]models.InventoryItem{},
		users:   map[string]models.User{},
		borrows: map[string]models.BorrowRecord{},
	}
}

func (f *fakeRemote) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *fakeRemote) enter() (func(), error) {
	f.mu.Lock()
	f.calls++
	if f.down {
		f.mu.Unlock()
		return nil, errConnRefused
	}
	return f.mu.Unlock, nil
}

func sortedValues[T any](m map[string]T, key func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}

func (f *fakeRemote) ListItems(context.Context) ([]models.InventoryItem, error) {
	done, err := f.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	return sortedValues(f.items, func(it models.InventoryItem) string { return it.ID }), nil
}

func (f *fakeRemote) FindItemByID(_ context.Context, id string) (*models.InventoryItem, error) {
	done, err := f.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	it, ok := f.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &it, nil
}

func (f *fakeRemote) MaxItemSeq(_ context.Context, t models.ItemType) (int, error) {
	done, err := f.enter()
	if err != nil {
		return 0, err
	}
	defer done()
	m := 0
	for id := range f.items {
		if n, ok := models.ItemSeq(id, t); ok && n > m {
			m = n
		}
	}
	return m, nil
}

func (f *fakeRemote) CreateItem(_ context.Context, it *models.InventoryItem) error {
	done, err := f.enter()
	if err != nil {
		return err
	}
	defer done()
	if _, ok := f.items[it.ID]; ok {
		return models.ErrDuplicate
	}
	f.items[it.ID] = *it
	return nil
}

func (f *fakeRemote) UpdateItem(_ context.Context, id string, patch models.ItemPatch) (*models.InventoryItem, error) {
	done, err := f.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	it, ok := f.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	patch.Apply(&it)
	f.items[id] = it
	return &it, nil
}

func (f *fakeRemote) DeleteItem(_ context.Context, id string) error {
	done, err := f.enter()
	if err != nil {
		return err
	}
	defer done()
	if _, ok := f.items[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeRemote) ListUsers(context.Context) ([]models.User, error) {
	done, err := f.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	return sortedValues(f.users, func(u models.User) string { return u.Email }), nil
}

func (f *fakeRemote) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	done, err := f.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	u, ok := f.users[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (f *fakeRemote) CreateUser(_ context.Context, u *models.User) error {
	done, err := f.enter()
	if err != nil {
		return err
	}
	defer done()
	if _, ok := f.users[u.Email]; ok {
		return models.ErrDuplicate
	}
	f.users[u.Email] = *u
	return nil
}

func (f *fakeRemote) UpdateUser(_ context.Context, email string, patch models.UserPatch) (*models.User, error) {
	done, err := f.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	u, ok := f.users[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	patch.Apply(&u)
	f.users[email] = u
	return &u, nil
}

func (f *fakeRemote) DeleteUser(_ context.Context, email string) error {
	done, err := f.enter()
	if err != nil {
		return err
	}
	defer done()
	if _, ok := f.users[email]; !ok {
		return models.ErrNotFound
	}
	delete(f.users, email)
	return nil
}

func (f *fakeRemote) CountAdmins(context.Context) (int, error) {
	done, err := f.enter()
	if err != nil {
		return 0, err
	}
	defer done()
	n := 0
	for _, u := range f.users {
		if u.Role == models.RoleAdmin {
			n++
		}
	}
	return n, nil
}

func (f *fakeRemote) ListBorrowRecords(context.Context) ([]models.BorrowRecord, error) {
	done, err := f.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	return sortedValues(f.borrows, func(r models.BorrowRecord) string { return r.ID }), nil
}

func (f *fakeRemote) filterBorrows(keep func(models.BorrowRecord) bool) ([]models.BorrowRecord, error) {
	done, err := f.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	var out []models.BorrowRecord
	for _, r := range sortedValues(f.borrows, func(r models.BorrowRecord) string { return r.ID }) {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRemote) ListBorrowRecordsByUser(_ context.Context, email string) ([]models.BorrowRecord, error) {
	return f.filterBorrows(func(r models.BorrowRecord) bool { return r.UserEmail == email })
}

func (f *fakeRemote) ListBorrowRecordsByItem(_ context.Context, itemID string) ([]models.BorrowRecord, error) {
	return f.filterBorrows(func(r models.BorrowRecord) bool { return r.ItemID == itemID })
}

func (f *fakeRemote) FindBorrowRecord(_ context.Context, id string) (*models.BorrowRecord, error) {
	done, err := f.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	r, ok := f.borrows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRemote) BorrowItem(_ context.Context, rec *models.BorrowRecord) (*models.InventoryItem, error) {
	done, err := f.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	it, ok := f.items[rec.ItemID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if it.Available < rec.Quantity {
		return nil, models.ErrInsufficientStock
	}
	if _, ok := f.borrows[rec.ID]; ok {
		return nil, models.ErrDuplicate
	}
	f.borrows[rec.ID] = *rec
	it.Available -= rec.Quantity
	f.items[it.ID] = it
	return &it, nil
}

func (f *fakeRemote) ReturnBorrowRecord(_ context.Context, id string, at time.Time) (*models.BorrowRecord, *models.InventoryItem, error) {
	done, err := f.enter()
	if err != nil {
		return nil, nil, err
	}
	defer done()
	r, ok := f.borrows[id]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	if !r.Active() {
		return nil, nil, models.ErrAlreadyReturned
	}
	r.Status = models.BorrowReturned
	r.ReturnDate = &at
	f.borrows[id] = r
	it, ok := f.items[r.ItemID]
	if !ok {
		return &r, nil, nil
	}
	it.Available += r.Quantity
	f.items[it.ID] = it
	return &r, &it, nil
}

func (f *fakeRemote) DeleteBorrowRecord(_ context.Context, id string) error {
	done, err := f.enter()
	if err != nil {
		return err
	}
	defer done()
	if _, ok := f.borrows[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.borrows, id)
	return nil
}

var errMirrorDown = errors.New("redis: connection pool timeout")

// flakyMirror fails loads or saves on demand.
type flakyMirror[T any] struct {
	cache.Mirror[T]
	failLoad bool
	failSave bool
}

func (m *flakyMirror[T]) LoadAll(ctx context.Context) ([]T, error) {
	if m.failLoad {
		return nil, errMirrorDown
	}
	return m.Mirror.LoadAll(ctx)
}

func (m *flakyMirror[T]) SaveAll(ctx context.Context, items []T) error {
	if m.failSave {
		return errMirrorDown
	}
	return m.Mirror.SaveAll(ctx, items)
}
