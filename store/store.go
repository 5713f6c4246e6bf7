// Package store is the single entry point for entity reads and writes. Every
// operation tries the remote database first and falls back to the local
// mirror when the database cannot be reached.
//
// Reads that succeed remotely refresh the mirror; writes that succeed remotely
// are replayed onto the mirror. When the remote call fails, the same mutation
// is applied to the mirror alone and its result is returned as if the remote
// write had succeeded. The two sides are never reconciled afterwards and can
// diverge.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"Gin_postgres_redis_inventory/cache"
	"Gin_postgres_redis_inventory/logger"
	"Gin_postgres_redis_inventory/models"
)

// Remote is the database accessor (implemented by *db.Repo).
type Remote interface {
	ListItems(ctx context.Context) ([]models.InventoryItem, error)
	FindItemByID(ctx context.Context, id string) (*models.InventoryItem, error)
	MaxItemSeq(ctx context.Context, t models.ItemType) (int, error)
	CreateItem(ctx context.Context, it *models.InventoryItem) error
	UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.InventoryItem, error)
	DeleteItem(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, email string, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, email string) error
	CountAdmins(ctx context.Context) (int, error)

	ListBorrowRecords(ctx context.Context) ([]models.BorrowRecord, error)
	ListBorrowRecordsByUser(ctx context.Context, email string) ([]models.BorrowRecord, error)
	ListBorrowRecordsByItem(ctx context.Context, itemID string) ([]models.BorrowRecord, error)
	FindBorrowRecord(ctx context.Context, id string) (*models.BorrowRecord, error)
	BorrowItem(ctx context.Context, rec *models.BorrowRecord) (*models.InventoryItem, error)
	ReturnBorrowRecord(ctx context.Context, id string, at time.Time) (*models.BorrowRecord, *models.InventoryItem, error)
	DeleteBorrowRecord(ctx context.Context, id string) error
}

// Mirrors groups the local mirror of each entity collection.
type Mirrors struct {
	Items   cache.Mirror[models.InventoryItem]
	Users   cache.Mirror[models.User]
	Borrows cache.Mirror[models.BorrowRecord]
}

// MemoryMirrors is used when no redis is configured, and by tests.
func MemoryMirrors() Mirrors {
	return Mirrors{
		Items:   cache.NewMemoryMirror[models.InventoryItem](cache.KeyItems),
		Users:   cache.NewMemoryMirror[models.User](cache.KeyUsers),
		Borrows: cache.NewMemoryMirror[models.BorrowRecord](cache.KeyBorrows),
	}
}

type Store struct {
	remote  Remote
	items   *collection[models.InventoryItem]
	users   *collection[models.User]
	borrows *collection[models.BorrowRecord]

	// localMu 串行化本进程内只写镜像的借还；多个进程共用 redis 时仍可能丢更新
	localMu sync.Mutex

	now      func() time.Time
	randN    func(n int) int
	pwParams Argon2idParams
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithRand replaces the random source used for borrow record ids.
func WithRand(randN func(n int) int) Option { return func(s *Store) { s.randN = randN } }

func WithPasswordParams(p Argon2idParams) Option { return func(s *Store) { s.pwParams = p } }

func New(remote Remote, m Mirrors, opts ...Option) *Store {
	s := &Store{
		remote:   remote,
		items:    newCollection("inventory_items", m.Items, func(it models.InventoryItem) string { return it.ID }),
		users:    newCollection("users", m.Users, func(u models.User) string { return u.Email }),
		borrows:  newCollection("borrow_records", m.Borrows, func(r models.BorrowRecord) string { return r.ID }),
		now:      func() time.Time { return time.Now().UTC() },
		randN:    rand.IntN,
		pwParams: DefaultArgon2idParams,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// remoteShare 远端调用最多用掉剩余期限的这一部分，其余留给 mirror
const remoteShare = 2.0 / 3.0

// remoteContext 从 ctx 派生远端调用的子期限；ctx 没有期限时原样返回
func remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	dl, ok := ctx.Deadline()
	if !ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(float64(time.Until(dl))*remoteShare))
}

// withFallback runs remote under a share of ctx's deadline; if it fails for a
// reason other than a domain error or a cancelled caller, local runs on ctx
// instead and its result is returned. A remote timeout counts as unavailable.
func withFallback[T any](ctx context.Context, op string,
	remote func(context.Context) (T, error),
	local func(context.Context) (T, error),
) (T, error) {
	rctx, cancel := remoteContext(ctx)
	v, err := remote(rctx)
	cancel()
	if err == nil {
		return v, nil
	}
	if !remoteUnavailable(ctx, err) {
		return v, err
	}

	logger.Warn(ctx, "remote store failed, using local mirror",
		logger.String("op", op),
		logger.ErrorF(err),
	)
	lv, lerr := local(ctx)
	if lerr != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", op, lerr)
	}
	return lv, nil
}

// remoteUnavailable reports whether err is a transport/store failure as
// opposed to an answer the remote store gave about the data. ctx is the
// caller's context, not the remote sub-context.
func remoteUnavailable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	for _, domain := range []error{
		models.ErrNotFound,
		models.ErrDuplicate,
		models.ErrValidation,
		models.ErrInsufficientStock,
		models.ErrAlreadyReturned,
		models.ErrInvalidCredentials,
	} {
		if errors.Is(err, domain) {
			return false
		}
	}
	return true
}

// mirror applies a mutation to the local mirror after a remote success.
// Failure only costs freshness of later fallback reads, so it is logged.
func mirror(ctx context.Context, op string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		logger.Warn(ctx, "local mirror write failed",
			logger.String("op", op),
			logger.ErrorF(err),
		)
	}
}

// nilIfNotFound turns a not-found answer into an empty result.
func nilIfNotFound[T any](v *T, err error) (*T, error) {
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func isNotFound(err error) bool { return errors.Is(err, models.ErrNotFound) }

func ignoreNotFound(err error) error {
	if isNotFound(err) {
		return nil
	}
	return err
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
