package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMirror 一个集合 = 一个 key，值为 JSON 数组，不过期
type RedisMirror[T any] struct {
	rdb *redis.Client
	key string
}

func NewRedisMirror[T any](rdb *redis.Client, key string) *RedisMirror[T] {
	return &RedisMirror[T]{rdb: rdb, key: key}
}

func (m *RedisMirror[T]) LoadAll(ctx context.Context) ([]T, error) {
	b, err := m.rdb.Get(ctx, m.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", m.key, err)
	}
	return decode[T](m.key, b)
}

func (m *RedisMirror[T]) SaveAll(ctx context.Context, items []T) error {
	b, err := encode(m.key, items)
	if err != nil {
		return err
	}
	if err := m.rdb.Set(ctx, m.key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", m.key, err)
	}
	return nil
}
