package roasts

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeCache struct {
	values map[string]string
	getErr error
	bumps  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func (f *fakeCache) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	if f.getErr != nil {
		return redis.NewSliceResult(nil, f.getErr)
	}
	out := make([]any, len(keys))
	for i, k := range keys {
		if v, ok := f.values[k]; ok {
			out[i] = v
		}
	}
	return redis.NewSliceResult(out, nil)
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCache) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.bumps++
	n, _ := strconv.ParseInt(f.values[key], 10, 64)
	n++
	f.values[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

type countingRepo struct {
	*MemoryRepo
	counts  int
	onCount func()
}

func (r *countingRepo) Count(ctx context.Context) (int64, error) {
	r.counts++
	n, err := r.MemoryRepo.Count(ctx)
	if r.onCount != nil {
		hook := r.onCount
		r.onCount = nil
		hook()
	}
	return n, err
}

var sampleRoast = NewRoast{OriginalText: "a", RoastFeedback: "b", RoastType: "other"}

func TestCountCacheServesCachedValue(t *testing.T) {
	inner := &countingRepo{MemoryRepo: NewMemoryRepo()}
	cache := newFakeCache()
	c := newCountCache(inner, cache, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, err := c.Count(ctx)
		if err != nil || n != 0 {
			t.Fatalf("Count: %d %v", n, err)
		}
	}
	if inner.counts != 1 {
		t.Fatalf("expected one repo count, got %d", inner.counts)
	}

	if _, err := c.Insert(ctx, sampleRoast); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if cache.bumps != 1 {
		t.Fatalf("expected generation bump on insert")
	}
	n, err := c.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected fresh count 1, got %d (%v)", n, err)
	}
	if inner.counts != 2 {
		t.Fatalf("expected repo hit after insert, got %d", inner.counts)
	}
}

func TestCountCacheInsertDuringCountIsNotMasked(t *testing.T) {
	inner := &countingRepo{MemoryRepo: NewMemoryRepo()}
	cache := newFakeCache()
	c := newCountCache(inner, cache, time.Minute)
	ctx := context.Background()

	// The insert lands after the repo was read but before the cache is written.
	inner.onCount = func() {
		if _, err := c.Insert(ctx, sampleRoast); err != nil {
			t.Errorf("Insert: %v", err)
		}
	}
	if n, err := c.Count(ctx); err != nil || n != 0 {
		t.Fatalf("first Count: %d %v", n, err)
	}

	n, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected stale count to be discarded, got %d", n)
	}
}

func TestCountCacheFallsThroughOnRedisError(t *testing.T) {
	inner := &countingRepo{MemoryRepo: NewMemoryRepo()}
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")
	c := newCountCache(inner, cache, 0)

	if _, err := c.Count(context.Background()); err != nil {
		t.Fatalf("Count: %v", err)
	}
	if inner.counts != 1 || c.ttl != 30*time.Second {
		t.Fatalf("expected fall-through with default ttl, got counts=%d ttl=%s", inner.counts, c.ttl)
	}
	if _, ok := cache.values[countCacheKey]; ok {
		t.Fatalf("expected no cache write when the generation is unknown")
	}
}

func TestParseStamped(t *testing.T) {
	tests := []struct {
		raw, gen string
		want     int64
		ok       bool
	}{
		{raw: "3:42", gen: "3", want: 42, ok: true},
		{raw: "2:42", gen: "3"},
		{raw: "42", gen: "0"},
		{raw: "0:x", gen: "0"},
	}
	for _, tt := range tests {
		got, ok := parseStamped(tt.raw, tt.gen)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("parseStamped(%q, %q) = %d %v", tt.raw, tt.gen, got, ok)
		}
	}
}
