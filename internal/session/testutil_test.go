package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spacelens/internal/sam3d"
	"spacelens/pkg/types"
)

type segReply struct {
	res sam3d.SegmentationResult
	err error
}

type segCall struct {
	pts   []types.Point
	reply chan segReply
}

type genReply struct {
	ref types.ModelRef
	err error
}

type genCall struct {
	anchor *types.Point
	reply  chan genReply
}

// fakeBackend hands every call to the test, which answers it explicitly.
// Replies are awaited regardless of ctx so the test controls arrival order.
type fakeBackend struct {
	segCalls chan *segCall
	genCalls chan *genCall
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{segCalls: make(chan *segCall, 16), genCalls: make(chan *genCall, 16)}
}

func (f *fakeBackend) Segment(ctx context.Context, img sam3d.Image, pts []types.Point) (sam3d.SegmentationResult, error) {
	c := &segCall{pts: pts, reply: make(chan segReply, 1)}
	f.segCalls <- c
	r := <-c.reply
	return r.res, r.err
}

func (f *fakeBackend) Generate3D(ctx context.Context, img sam3d.Image, anchor *types.Point) (types.ModelRef, error) {
	c := &genCall{anchor: anchor, reply: make(chan genReply, 1)}
	f.genCalls <- c
	r := <-c.reply
	return r.ref, r.err
}

func nextSeg(t *testing.T, f *fakeBackend) *segCall {
	t.Helper()
	select {
	case c := <-f.segCalls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for segment call")
		return nil
	}
}

func nextGen(t *testing.T, f *fakeBackend) *genCall {
	t.Helper()
	select {
	case c := <-f.genCalls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for generate call")
		return nil
	}
}

type fakeImages struct{ err error }

func (f fakeImages) Image(a types.Asset) (sam3d.Image, error) {
	if f.err != nil {
		return sam3d.Image{}, f.err
	}
	return sam3d.Image{Filename: a.ID + ".jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}, nil
}

type countingHaptics struct {
	mu sync.Mutex
	n  int
}

func (h *countingHaptics) Confirm(string) {
	h.mu.Lock()
	h.n++
	h.mu.Unlock()
}

func (h *countingHaptics) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

type recordingNotifier struct {
	mu       sync.Mutex
	started  []string
	finished []string
	models   []*types.ModelRef
}

func (n *recordingNotifier) GenerationStarted(id string) {
	n.mu.Lock()
	n.started = append(n.started, id)
	n.mu.Unlock()
}

func (n *recordingNotifier) GenerationFinished(id string, ok bool, m *types.ModelRef) {
	n.mu.Lock()
	st := "error"
	if ok {
		st = "done"
	}
	n.finished = append(n.finished, id+":"+st)
	n.models = append(n.models, m)
	n.mu.Unlock()
}

func (n *recordingNotifier) GenerationDiscarded(id string) {
	n.mu.Lock()
	n.finished = append(n.finished, id+":discarded")
	n.mu.Unlock()
}

func (n *recordingNotifier) snapshot() ([]string, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.started...), append([]string(nil), n.finished...)
}

type harness struct {
	s        *Session
	be       *fakeBackend
	haptics  *countingHaptics
	notifier *recordingNotifier
	pub      *MemoryPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets a test adjust the Config before the session is built.
func newHarnessWith(t *testing.T, tweak func(*Config)) *harness {
	t.Helper()
	h := &harness{
		be:       newFakeBackend(),
		haptics:  &countingHaptics{},
		notifier: &recordingNotifier{},
		pub:      NewMemoryPublisher(),
	}
	cfg := Config{
		Segmenter: h.be,
		Generator: h.be,
		Images:    fakeImages{},
		Haptics:   h.haptics,
		Notifier:  h.notifier,
		Publisher: h.pub,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.s = s
	t.Cleanup(func() { _ = s.Close() })
	return h
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) waitState(t *testing.T, id string, want State) Snapshot {
	t.Helper()
	var snap Snapshot
	eventually(t, "state "+string(want), func() bool {
		snap = h.s.Snapshot(id)
		return snap.State == want && !snap.Busy
	})
	return snap
}

func (h *harness) waitEvent(t *testing.T, name string, n int) {
	t.Helper()
	eventually(t, "event "+name, func() bool {
		c := 0
		for _, got := range h.pub.Names() {
			if got == name {
				c++
			}
		}
		return c >= n
	})
}

// segmented drives id to SegmentedReady with a single point.
func (h *harness) segmented(t *testing.T, a types.Asset, p types.Point) {
	t.Helper()
	if _, err := h.s.AddPoint(a, p); err != nil {
		t.Fatalf("AddPoint: %v", err)
	}
	nextSeg(t, h.be).reply <- segReply{res: sam3d.SegmentationResult{PreviewURL: "http://x/" + a.ID + ".png"}}
	h.waitState(t, a.ID, StateSegmentedReady)
}

var (
	assetA  = types.Asset{ID: "a", Width: 1000, Height: 1000}
	assetB  = types.Asset{ID: "b", Width: 1000, Height: 1000}
	errBoom = errors.New("boom")
)

func fg(x, y int) types.Point { return types.Point{X: x, Y: y, Label: types.Foreground} }

// waitFinished waits until the notifier has seen n finished generations.
func (h *harness) waitFinished(t *testing.T, n int) []string {
	t.Helper()
	var finished []string
	eventually(t, "generation finished", func() bool {
		_, finished = h.notifier.snapshot()
		return len(finished) >= n
	})
	return finished
}
