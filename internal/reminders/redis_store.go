package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	redisKeyPrefix     = "reminders:"
	redisDueKey        = redisKeyPrefix + "due"
	redisProcessingKey = redisKeyPrefix + "processing"
	redisIndexKey      = redisKeyPrefix + "index"

	// DefaultClaimLease is how long a claimed reminder stays invisible before
	// another ClaimDue may hand it out again.
	DefaultClaimLease = 10 * time.Minute
)

// claimScript returns expired leases to the due set, then moves up to ARGV[2]
// due IDs into the processing set scored by their lease deadline.
// KEYS: due, processing. ARGV: asOf ms, limit (0 = all), lease deadline ms.
var claimScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[2], id)
  redis.call('ZADD', KEYS[1], ARGV[1], id)
end
local ids
if tonumber(ARGV[2]) > 0 then
  ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
else
  ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
end
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('ZADD', KEYS[2], ARGV[3], id)
end
return ids
`)

func redisRecordKey(id string) string {
	return redisKeyPrefix + "rec:" + id
}

// RedisStore keeps reminders in Redis: a sorted set of pending IDs scored by
// due time, a sorted set of all IDs scored by creation time, and one JSON
// record per reminder. Claiming atomically moves IDs from the due set into a
// processing set scored by lease deadline, so only one worker wins a given
// reminder, and a reminder whose worker died before recording the outcome is
// handed out again once its lease expires.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	lease  time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		return nil
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("clinic.internal.reminders.redis"),
		lease:  DefaultClaimLease,
	}
}

// WithLease sets how long a claim is held before the reminder is redelivered.
func (s *RedisStore) WithLease(d time.Duration) *RedisStore {
	if d > 0 {
		s.lease = d
	}
	return s
}

func (s *RedisStore) Enqueue(ctx context.Context, r *Reminder) error {
	prepare(r)
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("reminders: marshal reminder: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "reminders.redis.enqueue")
	defer span.End()

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, redisRecordKey(r.ID), data, 0)
	pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(r.CreatedAt.UnixMilli()), Member: r.ID})
	if r.Status == StatusPending {
		pipe.ZAdd(ctx, redisDueKey, redis.Z{Score: float64(r.RemindAt.UnixMilli()), Member: r.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("reminders: enqueue: %w", err)
	}
	return nil
}

func (s *RedisStore) ClaimDue(ctx context.Context, asOf time.Time, limit int) ([]Reminder, error) {
	ctx, span := s.tracer.Start(ctx, "reminders.redis.claim_due")
	defer span.End()

	if limit < 0 {
		limit = 0
	}
	ids, err := claimScript.Run(ctx, s.redis,
		[]string{redisDueKey, redisProcessingKey},
		asOf.UnixMilli(), limit, asOf.Add(s.lease).UnixMilli(),
	).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return nil, fmt.Errorf("reminders: claim due: %w", err)
	}

	out := make([]Reminder, 0, len(ids))
	for _, id := range ids {
		r, err := s.load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.redis.ZRem(ctx, redisProcessingKey, id)
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *RedisStore) load(ctx context.Context, id string) (*Reminder, error) {
	raw, err := s.redis.Get(ctx, redisRecordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reminders: load %s: %w", id, err)
	}
	var r Reminder
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("reminders: decode %s: %w", id, err)
	}
	return &r, nil
}

func (s *RedisStore) save(ctx context.Context, r *Reminder) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("reminders: marshal reminder: %w", err)
	}
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, redisRecordKey(r.ID), data, 0)
	pipe.ZRem(ctx, redisProcessingKey, r.ID)
	if r.Status == StatusPending {
		pipe.ZAdd(ctx, redisDueKey, redis.Z{Score: float64(r.RemindAt.UnixMilli()), Member: r.ID})
	} else {
		pipe.ZRem(ctx, redisDueKey, r.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reminders: save %s: %w", r.ID, err)
	}
	return nil
}

func (s *RedisStore) update(ctx context.Context, id string, fn func(r *Reminder)) error {
	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	fn(r)
	return s.save(ctx, r)
}

func (s *RedisStore) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return s.update(ctx, id, func(r *Reminder) {
		at := sentAt.UTC()
		r.Status = StatusSent
		r.SentAt = &at
		r.Attempts++
		r.LastError = ""
	})
}

func (s *RedisStore) Reschedule(ctx context.Context, id string, next time.Time, attempts int, lastErr string) error {
	return s.update(ctx, id, func(r *Reminder) {
		r.Status = StatusPending
		r.RemindAt = next.UTC()
		r.Attempts = attempts
		r.LastError = lastErr
	})
}

func (s *RedisStore) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	return s.update(ctx, id, func(r *Reminder) {
		r.Status = StatusFailed
		r.Attempts = attempts
		r.LastError = lastErr
	})
}

func (s *RedisStore) List(ctx context.Context, status Status, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	ctx, span := s.tracer.Start(ctx, "reminders.redis.list")
	defer span.End()

	ids, err := s.redis.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reminders: list: %w", err)
	}
	if len(ids) == 0 {
		return []Reminder{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisRecordKey(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reminders: list records: %w", err)
	}

	out := make([]Reminder, 0, limit)
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var r Reminder
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ Store = (*RedisStore)(nil)
