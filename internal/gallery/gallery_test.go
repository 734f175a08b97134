package gallery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spacelens/pkg/types"
)

type fakeLister struct {
	mu     sync.Mutex
	calls  int
	models []types.ModelDescriptor
	err    error
}

func (f *fakeLister) ListModels(ctx context.Context) ([]types.ModelDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.models, f.err
}

func (f *fakeLister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fixedNow(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

func TestGallery_PendingThenDoneRefreshesList(t *testing.T) {
	l := &fakeLister{models: []types.ModelDescriptor{{Key: "a.glb", URL: "http://x/a.glb"}}}
	g := New(Config{Lister: l, Now: fixedNow(100)})
	ctx := context.Background()

	g.GenerationStarted("a")
	st, ok, err := g.Status(ctx, "a")
	if err != nil || !ok || st.Status != StatusPending {
		t.Fatalf("status = %+v ok=%v err=%v", st, ok, err)
	}
	if l.count() != 0 {
		t.Fatalf("list refreshed before completion")
	}

	g.GenerationFinished("a", true, &types.ModelRef{URL: "http://x/a.glb"})
	g.Wait()
	st, _, _ = g.Status(ctx, "a")
	if st.Status != StatusDone || st.Model == nil || st.Model.URL != "http://x/a.glb" || st.UpdatedUnix != 100 {
		t.Fatalf("status = %+v", st)
	}
	if l.count() != 1 {
		t.Fatalf("refreshes = %d, want 1", l.count())
	}
	models, at := g.Models()
	if len(models) != 1 || models[0].Key != "a.glb" || at.Unix() != 100 {
		t.Fatalf("models = %+v at %v", models, at)
	}
}

func TestGallery_FailureMarksErrorAndStillRefreshes(t *testing.T) {
	l := &fakeLister{}
	g := New(Config{Lister: l})
	g.GenerationStarted("a")
	g.GenerationFinished("a", false, nil)
	g.Wait()
	st, _, _ := g.Status(context.Background(), "a")
	if st.Status != StatusError || st.Model != nil {
		t.Fatalf("status = %+v", st)
	}
	if l.count() != 1 {
		t.Fatalf("refreshes = %d", l.count())
	}
}

func TestGallery_DiscardedIsNotDone(t *testing.T) {
	l := &fakeLister{models: []types.ModelDescriptor{{Key: "late.glb"}}}
	g := New(Config{Lister: l})
	g.GenerationStarted("a")
	g.GenerationDiscarded("a")
	g.Wait()
	st, ok, err := g.Status(context.Background(), "a")
	if err != nil || !ok || st.Status != StatusCanceled || st.Model != nil {
		t.Fatalf("status = %+v ok=%v err=%v", st, ok, err)
	}
	if l.count() != 1 {
		t.Fatalf("refreshes = %d", l.count())
	}
	if models, _ := g.Models(); len(models) != 1 {
		t.Fatalf("models = %+v", models)
	}
}

func TestGallery_RefreshFailureKeepsCache(t *testing.T) {
	l := &fakeLister{models: []types.ModelDescriptor{{Key: "k"}}}
	g := New(Config{Lister: l})
	if _, err := g.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	l.err = errors.New("down")
	g.GenerationFinished("a", true, &types.ModelRef{URL: "u"})
	g.Wait()
	if models, _ := g.Models(); len(models) != 1 {
		t.Fatalf("cache lost after failed refresh: %+v", models)
	}
}

func TestGallery_NoLister(t *testing.T) {
	g := New(Config{})
	g.GenerationFinished("a", true, &types.ModelRef{URL: "u"})
	g.Wait()
	models, err := g.Refresh(context.Background())
	if err != nil || models != nil {
		t.Fatalf("Refresh = %v, %v", models, err)
	}
}

func TestGallery_StatusesNewestFirst(t *testing.T) {
	var now int64 = 10
	g := New(Config{Now: func() time.Time { return time.Unix(now, 0) }})
	g.GenerationStarted("old")
	now = 20
	g.GenerationStarted("b")
	g.GenerationStarted("a")
	got, err := g.Statuses(context.Background())
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	var ids []string
	for _, s := range got {
		ids = append(ids, s.AssetID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "old" {
		t.Fatalf("order = %v", ids)
	}
}
