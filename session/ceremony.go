package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

// CeremonyStore keeps WebAuthn SessionData between the begin and finish
// calls of a registration or login ceremony.
type CeremonyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCeremonyStore(rdb *redis.Client, ttl time.Duration) *CeremonyStore {
	return &CeremonyStore{rdb: rdb, ttl: ttl}
}

// 注册按用户邮箱，登录（discoverable）按临时 sid
func regKey(email string) string { return fmt.Sprintf("webauthn:reg:%s", email) }
func authKey(sid string) string  { return fmt.Sprintf("webauthn:auth:%s", sid) }

func (s *CeremonyStore) SaveReg(ctx context.Context, email string, sd *webauthn.SessionData) error {
	return s.save(ctx, regKey(email), sd)
}

func (s *CeremonyStore) LoadReg(ctx context.Context, email string) (*webauthn.SessionData, error) {
	return s.load(ctx, regKey(email))
}

func (s *CeremonyStore) DelReg(ctx context.Context, email string) {
	_ = s.rdb.Del(ctx, regKey(email)).Err()
}

func (s *CeremonyStore) SaveAuth(ctx context.Context, sid string, sd *webauthn.SessionData) error {
	return s.save(ctx, authKey(sid), sd)
}

func (s *CeremonyStore) LoadAuth(ctx context.Context, sid string) (*webauthn.SessionData, error) {
	return s.load(ctx, authKey(sid))
}

func (s *CeremonyStore) DelAuth(ctx context.Context, sid string) { _ = s.rdb.Del(ctx, authKey(sid)).Err() }

func (s *CeremonyStore) save(ctx context.Context, k string, sd *webauthn.SessionData) error {
	b, err := json.Marshal(sd)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, k, b, s.ttl).Err()
}

func (s *CeremonyStore) load(ctx context.Context, k string) (*webauthn.SessionData, error) {
	b, err := s.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var sd webauthn.SessionData
	if err := json.Unmarshal(b, &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}
