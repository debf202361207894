package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newBucketTest(t *testing.T) (*RedisBucket, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisBucket(rdb, nil), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestInsertRejectsExistingKey(t *testing.T) {
	bucket, _, done := newBucketTest(t)
	defer done()
	ctx := context.Background()

	cas, err := bucket.Insert(ctx, "doc", []byte("one"), time.Hour)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if cas != 1 {
		t.Fatalf("expected initial cas 1, got %d", cas)
	}

	if _, err := bucket.Insert(ctx, "doc", []byte("two"), time.Hour); !errors.Is(err, ErrKeyExists) {
		t.Fatalf("expected ErrKeyExists, got %v", err)
	}

	data, _, err := bucket.GetAndTouch(ctx, "doc", time.Hour)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "one" {
		t.Fatalf("existing document was modified: %q", data)
	}
}

func TestGetAndTouchRefreshesTTL(t *testing.T) {
	bucket, mr, done := newBucketTest(t)
	defer done()
	ctx := context.Background()

	if _, err := bucket.Insert(ctx, "doc", []byte("payload"), 100*time.Second); err != nil {
		t.Fatalf("insert: %v", err)
	}

	mr.FastForward(60 * time.Second)
	if ttl := mr.TTL("doc"); ttl != 40*time.Second {
		t.Fatalf("expected 40s remaining before touch, got %v", ttl)
	}

	data, cas, err := bucket.GetAndTouch(ctx, "doc", 100*time.Second)
	if err != nil {
		t.Fatalf("get and touch: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected payload %q", data)
	}
	if cas != 1 {
		t.Fatalf("expected cas 1, got %d", cas)
	}
	if ttl := mr.TTL("doc"); ttl != 100*time.Second {
		t.Fatalf("expected TTL refreshed to 100s, got %v", ttl)
	}
}

func TestGetAndTouchMissingKey(t *testing.T) {
	bucket, _, done := newBucketTest(t)
	defer done()

	if _, _, err := bucket.GetAndTouch(context.Background(), "nope", time.Hour); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestUpsertCasPrecondition(t *testing.T) {
	bucket, _, done := newBucketTest(t)
	defer done()
	ctx := context.Background()

	first, err := bucket.Insert(ctx, "doc", []byte("v1"), time.Hour)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	second, err := bucket.Upsert(ctx, "doc", []byte("v2"), time.Hour, first)
	if err != nil {
		t.Fatalf("upsert with fresh cas: %v", err)
	}
	if second <= first {
		t.Fatalf("expected cas to advance past %d, got %d", first, second)
	}

	if _, err := bucket.Upsert(ctx, "doc", []byte("v3"), time.Hour, first); !errors.Is(err, ErrCasMismatch) {
		t.Fatalf("expected ErrCasMismatch on stale token, got %v", err)
	}

	data, cas, err := bucket.GetAndTouch(ctx, "doc", time.Hour)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "v2" {
		t.Fatalf("losing writer modified the document: %q", data)
	}
	if cas != second {
		t.Fatalf("expected cas %d after rejected write, got %d", second, cas)
	}
}

func TestUpsertMissingDocument(t *testing.T) {
	bucket, _, done := newBucketTest(t)
	defer done()

	if _, err := bucket.Upsert(context.Background(), "gone", []byte("v"), time.Hour, 1); !errors.Is(err, ErrCasMismatch) {
		t.Fatalf("expected ErrCasMismatch on missing document, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	bucket, _, done := newBucketTest(t)
	defer done()
	ctx := context.Background()

	if err := bucket.Remove(ctx, "nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if _, err := bucket.Insert(ctx, "doc", []byte("v"), time.Hour); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := bucket.Remove(ctx, "doc"); err != nil {
		t.Fatalf("remove existing: %v", err)
	}
	if _, _, err := bucket.GetAndTouch(ctx, "doc", time.Hour); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected document gone, got %v", err)
	}
}

func TestReplicaReadLeavesTTLUntouched(t *testing.T) {
	primary, _, donePrimary := newBucketTest(t)
	defer donePrimary()

	mrReplica, err := miniredis.Run()
	if err != nil {
		t.Fatalf("replica miniredis start: %v", err)
	}
	defer mrReplica.Close()
	replicaClient := redis.NewClient(&redis.Options{Addr: mrReplica.Addr()})
	defer replicaClient.Close()

	// Seed the replica through a bucket pointed straight at it.
	seed := NewRedisBucket(replicaClient, nil)
	if _, err := seed.Insert(context.Background(), "doc", []byte("stale-ok"), 100*time.Second); err != nil {
		t.Fatalf("seed replica: %v", err)
	}
	mrReplica.FastForward(30 * time.Second)

	bucket := NewRedisBucket(primary.primary, replicaClient)
	data, cas, err := bucket.GetFromReplica(context.Background(), "doc")
	if err != nil {
		t.Fatalf("replica read: %v", err)
	}
	if string(data) != "stale-ok" {
		t.Fatalf("unexpected replica payload %q", data)
	}
	if cas != 1 {
		t.Fatalf("expected replica cas 1, got %d", cas)
	}
	if ttl := mrReplica.TTL("doc"); ttl != 70*time.Second {
		t.Fatalf("replica read must not refresh TTL; got %v", ttl)
	}
}

func TestReplicaUnconfigured(t *testing.T) {
	bucket, _, done := newBucketTest(t)
	defer done()

	if _, _, err := bucket.GetFromReplica(context.Background(), "doc"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable without a replica, got %v", err)
	}
}

func TestOutageClassifiedUnavailable(t *testing.T) {
	bucket, mr, done := newBucketTest(t)
	defer done()
	ctx := context.Background()

	if _, err := bucket.Insert(ctx, "doc", []byte("v"), time.Hour); err != nil {
		t.Fatalf("insert: %v", err)
	}

	mr.SetError("LOADING server is loading the dataset")
	if _, _, err := bucket.GetAndTouch(ctx, "doc", time.Hour); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable during outage, got %v", err)
	}
	if _, err := bucket.Upsert(ctx, "doc", []byte("v2"), time.Hour, 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on write during outage, got %v", err)
	}
}
