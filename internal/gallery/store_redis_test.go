package gallery

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"spacelens/pkg/types"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(RedisConfig{Addr: mr.Addr(), TTL: ttl})
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_PutGetList(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get missing = ok:%v err:%v", ok, err)
	}
	want := types.GenerationStatus{AssetID: "a", Status: StatusDone, Model: &types.ModelRef{URL: "u"}, UpdatedUnix: 5}
	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, types.GenerationStatus{AssetID: "b", Status: StatusPending}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !mr.Exists(KeyPrefix + "a") {
		t.Fatalf("key %sa not written", KeyPrefix)
	}

	got, ok, err := s.Get(ctx, "a")
	if err != nil || !ok || got.Status != StatusDone || got.Model == nil || got.Model.URL != "u" {
		t.Fatalf("Get = %+v ok:%v err:%v", got, ok, err)
	}
	all, err := s.List(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("List = %+v err:%v", all, err)
	}
}

func TestRedisStore_TTL(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()
	if err := s.Put(ctx, types.GenerationStatus{AssetID: "a", Status: StatusError}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ttl := mr.TTL(KeyPrefix + "a"); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("status survived its TTL")
	}
}

func TestRedisStore_CorruptValue(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	mr.Set(KeyPrefix+"a", "{not json")
	if _, _, err := s.Get(context.Background(), "a"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestGallery_WithRedisStore(t *testing.T) {
	s, _ := newRedisStore(t, 0)
	g := New(Config{Store: s})
	g.GenerationStarted("a")
	g.GenerationFinished("a", true, &types.ModelRef{URL: "u", AltURL: "v"})
	st, ok, err := g.Status(context.Background(), "a")
	if err != nil || !ok || st.Status != StatusDone || st.Model.AltURL != "v" {
		t.Fatalf("status = %+v ok:%v err:%v", st, ok, err)
	}
}
