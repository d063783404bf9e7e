// AngelaMos | 2026
// sessions.go

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/booking-api/internal/core"
)

const (
	sessionPrefix = "payment:session"
	lockPrefix    = "payment:lock"
	lockTTL       = 30 * time.Second
)

// releaseScript deletes the lock only if it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Session struct {
	ID      string  `json:"payment_session_id"`
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
}

// SessionStore caches open checkout sessions per booking and serializes
// concurrent opens with a short lock.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Get returns the cached session, or nil if none is cached.
func (s *SessionStore) Get(ctx context.Context, bookingID string) (*Session, error) {
	raw, err := s.client.Get(ctx, core.RedisKey(sessionPrefix, bookingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode payment session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) Put(
	ctx context.Context,
	bookingID string,
	sess Session,
	ttl time.Duration,
) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode payment session: %w", err)
	}

	if err := s.client.Set(ctx, core.RedisKey(sessionPrefix, bookingID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache payment session: %w", err)
	}
	return nil
}

func (s *SessionStore) Forget(ctx context.Context, bookingID string) error {
	if err := s.client.Del(ctx, core.RedisKey(sessionPrefix, bookingID)).Err(); err != nil {
		return fmt.Errorf("drop payment session: %w", err)
	}
	return nil
}

// Lock takes the open lock for bookingID. ok is false when another request
// holds it. The returned release func is safe to call once the lock expired.
func (s *SessionStore) Lock(
	ctx context.Context,
	bookingID string,
) (release func(context.Context), ok bool, err error) {
	key := core.RedisKey(lockPrefix, bookingID)
	token := uuid.New().String()

	ok, err = s.client.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire payment lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func(ctx context.Context) {
		_ = releaseScript.Run(ctx, s.client, []string{key}, token).Err() //nolint:errcheck // lock expires on its own
	}
	return release, true, nil
}
