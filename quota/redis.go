package quota

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/spinwin-labs/spin-reward-service/db/redis"
	"github.com/spinwin-labs/spin-reward-service/errors"
)

const keyPrefix = "spin_data_"

// consumeScript increments the daily count only if a spin remains. A stale
// or missing record counts as zero used. Returns the new remaining count,
// or -1 when the quota is already exhausted. Running on the server keeps
// the read-check-write atomic across service instances.
const consumeScript = `
local raw = redis.call('GET', KEYS[1])
local today = ARGV[1]
local max = tonumber(ARGV[2])
local count = 0
if raw then
  local rec = cjson.decode(raw)
  if rec.date == today then
    count = tonumber(rec.count)
  end
end
if count >= max then
  return -1
end
count = count + 1
redis.call('SET', KEYS[1], cjson.encode({date=today, count=count}))
return max - count
`

// RedisStore is the authoritative quota store.
type RedisStore struct {
	client *redis.Client
	max    int
	now    Clock
}

// NewRedisStore creates a Redis-backed quota store allowing max spins per
// identity per day.
func NewRedisStore(client *redis.Client, max int) *RedisStore {
	return &RedisStore{client: client, max: max, now: time.Now}
}

func (s *RedisStore) key(identity string) string {
	return keyPrefix + identity
}

// Remaining returns the spins left today. Stale records are not rewritten
// here: a write would race the Consume script across instances, and the
// script treats a stale date as zero used anyway.
func (s *RedisStore) Remaining(ctx context.Context, identity string) (int, error) {
	today := dateKey(s.now())

	var rec record
	err := s.client.GetJSON(ctx, s.key(identity), &rec)
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return s.max, nil
		}
		return 0, errors.Wrap(err, errors.ErrRedisError, "failed to read spin quota")
	}

	return remainingIn(rec, today, s.max), nil
}

// Consume uses one spin atomically via a server-side script, so two
// instances racing for the last slot cannot both win it.
func (s *RedisStore) Consume(ctx context.Context, identity string) (int, error) {
	today := dateKey(s.now())

	res, err := s.client.Eval(ctx, consumeScript, []string{s.key(identity)}, today, s.max)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrRedisError, "failed to consume spin quota")
	}

	remaining, ok := res.(int64)
	if !ok {
		return 0, errors.NewWithDebug(errors.ErrRedisError, "failed to consume spin quota",
			fmt.Sprintf("unexpected script result %T", res))
	}
	if remaining < 0 {
		return 0, errors.New(errors.ErrQuotaExceeded, "daily spin limit reached")
	}
	return int(remaining), nil
}
