package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Documents live in a Redis hash per key: the "data" field holds the
// payload, the "ver" field holds the CAS token. The Lua scripts below keep
// the data/ver pair and the TTL update atomic; a WATCH/MULTI loop would
// leave a window between the version check and the write.

const insertScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return {0}
end
redis.call("HSET", KEYS[1], "data", ARGV[1], "ver", 1)
if tonumber(ARGV[2]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {1, 1}
`

var insertLua = redis.NewScript(insertScript)

const upsertScript = `
local ver = redis.call("HGET", KEYS[1], "ver")
if not ver or tonumber(ver) ~= tonumber(ARGV[2]) then
  return {0}
end
local next = tonumber(ver) + 1
redis.call("HSET", KEYS[1], "data", ARGV[1], "ver", next)
if tonumber(ARGV[3]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return {1, next}
`

var upsertLua = redis.NewScript(upsertScript)

const getAndTouchScript = `
local data = redis.call("HGET", KEYS[1], "data")
if not data then
  return false
end
local ver = redis.call("HGET", KEYS[1], "ver")
if tonumber(ARGV[1]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {data, tonumber(ver)}
`

var getAndTouchLua = redis.NewScript(getAndTouchScript)

// RedisBucket implements [Bucket] on a primary Redis client plus an
// optional replica client. The replica is only ever consulted through
// GetFromReplica; writes always target the primary.
type RedisBucket struct {
	primary redis.UniversalClient
	replica redis.UniversalClient
}

// NewRedisBucket wraps the given clients as a [Bucket]. replica may be nil,
// in which case GetFromReplica reports ErrUnavailable.
func NewRedisBucket(primary, replica redis.UniversalClient) *RedisBucket {
	return &RedisBucket{
		primary: primary,
		replica: replica,
	}
}

// Insert writes a new document with the given TTL. A ttl <= 0 stores the
// document without expiry.
func (b *RedisBucket) Insert(ctx context.Context, key string, value []byte, ttl time.Duration) (Cas, error) {
	result, err := insertLua.Run(ctx, b.primary, []string{key}, value, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, wrapUnavailable(err)
	}

	status, cas, ok := scriptReply(result)
	if !ok {
		return 0, fmt.Errorf("%w: invalid insert script response", ErrUnavailable)
	}
	if status == 0 {
		return 0, ErrKeyExists
	}
	return cas, nil
}

// Upsert replaces the document iff cas matches the stored version. A
// missing document is reported as ErrCasMismatch as well: the writer's
// view of the document is stale either way.
func (b *RedisBucket) Upsert(ctx context.Context, key string, value []byte, ttl time.Duration, cas Cas) (Cas, error) {
	result, err := upsertLua.Run(ctx, b.primary, []string{key}, value, uint64(cas), ttl.Milliseconds()).Result()
	if err != nil {
		return 0, wrapUnavailable(err)
	}

	status, next, ok := scriptReply(result)
	if !ok {
		return 0, fmt.Errorf("%w: invalid upsert script response", ErrUnavailable)
	}
	if status == 0 {
		return 0, ErrCasMismatch
	}
	return next, nil
}

// GetAndTouch reads the document and refreshes its TTL atomically.
func (b *RedisBucket) GetAndTouch(ctx context.Context, key string, ttl time.Duration) ([]byte, Cas, error) {
	result, err := getAndTouchLua.Run(ctx, b.primary, []string{key}, ttl.Milliseconds()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, ErrKeyNotFound
		}
		return nil, 0, wrapUnavailable(err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) != 2 {
		return nil, 0, fmt.Errorf("%w: invalid get script response", ErrUnavailable)
	}

	data, ok := replyBytes(parts[0])
	if !ok {
		return nil, 0, fmt.Errorf("%w: invalid get script payload", ErrUnavailable)
	}
	ver, ok := parts[1].(int64)
	if !ok {
		return nil, 0, fmt.Errorf("%w: invalid get script version", ErrUnavailable)
	}

	return data, Cas(ver), nil
}

// GetFromReplica reads the document from the replica client without
// touching its TTL. The replica may lag the primary; callers accept the
// staleness in exchange for availability.
func (b *RedisBucket) GetFromReplica(ctx context.Context, key string) ([]byte, Cas, error) {
	if b.replica == nil {
		return nil, 0, fmt.Errorf("%w: no replica configured", ErrUnavailable)
	}

	vals, err := b.replica.HMGet(ctx, key, "data", "ver").Result()
	if err != nil {
		return nil, 0, wrapUnavailable(err)
	}
	if len(vals) != 2 || vals[0] == nil {
		return nil, 0, ErrKeyNotFound
	}

	data, ok := replyBytes(vals[0])
	if !ok {
		return nil, 0, fmt.Errorf("%w: invalid replica payload", ErrUnavailable)
	}

	var cas Cas
	if raw, ok := vals[1].(string); ok {
		ver, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil {
			return nil, 0, fmt.Errorf("%w: invalid replica version", ErrUnavailable)
		}
		cas = Cas(ver)
	}

	return data, cas, nil
}

// Remove deletes the document. No CAS precondition: a concurrent writer
// that raced this delete will fail its own CAS write because the document
// it expects is gone.
func (b *RedisBucket) Remove(ctx context.Context, key string) error {
	deleted, err := b.primary.Del(ctx, key).Result()
	if err != nil {
		return wrapUnavailable(err)
	}
	if deleted == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func scriptReply(result interface{}) (status int64, cas Cas, ok bool) {
	parts, isSlice := result.([]interface{})
	if !isSlice || len(parts) == 0 {
		return 0, 0, false
	}

	status, isInt := parts[0].(int64)
	if !isInt {
		return 0, 0, false
	}
	if status == 0 {
		return 0, 0, true
	}

	if len(parts) < 2 {
		return 0, 0, false
	}
	ver, isInt := parts[1].(int64)
	if !isInt {
		return 0, 0, false
	}

	return status, Cas(ver), true
}

func replyBytes(v interface{}) ([]byte, bool) {
	switch value := v.(type) {
	case string:
		return []byte(value), true
	case []byte:
		return value, true
	default:
		return nil, false
	}
}
