package session

import (
	"reflect"
	"testing"

	"spacelens/internal/sam3d"
	"spacelens/pkg/types"
)

func TestReset_DiscardsLateSegmentation(t *testing.T) {
	h := newHarness(t)
	h.s.SetLayout("a", types.Layout{Width: 100, Height: 100})
	h.s.AddPoint(assetA, fg(1, 1))
	c := nextSeg(t, h.be)
	h.s.Reset("a")

	snap := h.s.Snapshot("a")
	if snap.State != StateIdle || snap.Busy || len(snap.Points) != 0 {
		t.Fatalf("after reset: %+v", snap)
	}
	c.reply <- segReply{res: sam3d.SegmentationResult{PreviewURL: "late"}}
	h.waitEvent(t, EventSegmentStale, 1)

	snap = h.s.Snapshot("a")
	if snap.State != StateIdle || snap.Result != nil || snap.LastPoint != nil {
		t.Fatalf("late response leaked: %+v", snap)
	}
	if snap.Layout == nil {
		t.Fatalf("reset dropped the layout")
	}
	if h.haptics.count() != 0 {
		t.Fatalf("haptics fired for discarded response")
	}
}

func TestReset_DuringGenerationReleasesSlot(t *testing.T) {
	h := newHarness(t)
	h.segmented(t, assetA, fg(1, 1))
	h.s.Generate(assetA)
	stale := nextGen(t, h.be)
	h.s.Reset("a")
	if got := h.s.Snapshot("a").State; got != StateIdle {
		t.Fatalf("state = %s", got)
	}

	// The slot is free before the abandoned call returns.
	h.segmented(t, assetB, fg(2, 2))
	if !h.s.Snapshot("b").CanGenerate {
		t.Fatalf("generation slot still held by the reset asset")
	}
	if _, ok := h.s.Generate(assetB); !ok {
		t.Fatalf("generation slot not released")
	}
	live := nextGen(t, h.be)

	stale.reply <- genReply{ref: types.ModelRef{URL: "late.glb"}}
	h.waitEvent(t, EventGenerateStale, 1)
	if snap := h.s.Snapshot("a"); snap.State != StateIdle || snap.Model != nil {
		t.Fatalf("late generation leaked: %+v", snap)
	}
	if finished := h.waitFinished(t, 1); !reflect.DeepEqual(finished, []string{"a:discarded"}) {
		t.Fatalf("finished = %v", finished)
	}
	if snap := h.s.Snapshot("b"); snap.State != StateGenerating {
		t.Fatalf("stale outcome disturbed the live generation: %+v", snap)
	}

	live.reply <- genReply{ref: types.ModelRef{URL: "b.glb"}}
	h.waitState(t, "b", StateGenerationDone)
	if finished := h.waitFinished(t, 2); !reflect.DeepEqual(finished, []string{"a:discarded", "b:done"}) {
		t.Fatalf("finished = %v", finished)
	}
}

// A stale generation for an asset must not release the slot held by that
// same asset's newer generation.
func TestReset_StaleGenerationKeepsNewerSlot(t *testing.T) {
	h := newHarness(t)
	h.segmented(t, assetA, fg(1, 1))
	h.s.Generate(assetA)
	stale := nextGen(t, h.be)
	h.s.Reset("a")

	h.segmented(t, assetA, fg(3, 3))
	if _, ok := h.s.Generate(assetA); !ok {
		t.Fatalf("regenerate after reset rejected")
	}
	live := nextGen(t, h.be)

	stale.reply <- genReply{ref: types.ModelRef{URL: "late.glb"}}
	h.waitEvent(t, EventGenerateStale, 1)
	h.s.mu.Lock()
	held := h.s.generating
	h.s.mu.Unlock()
	if held != "a" {
		t.Fatalf("generating = %q, want the newer generation to hold the slot", held)
	}

	live.reply <- genReply{ref: types.ModelRef{URL: "a2.glb"}}
	snap := h.waitState(t, "a", StateGenerationDone)
	if snap.Model == nil || snap.Model.URL != "a2.glb" {
		t.Fatalf("model = %+v", snap.Model)
	}
}

// Add then reset, repeatedly: nothing accumulates.
func TestReset_RoundTripLeavesNothing(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.s.AddPoint(assetA, fg(i, i))
		c := nextSeg(t, h.be)
		h.s.Reset("a")
		c.reply <- segReply{res: sam3d.SegmentationResult{PreviewURL: "x"}}
	}
	h.waitEvent(t, EventSegmentStale, 5)
	snap := h.s.Snapshot("a")
	if snap.State != StateIdle || len(snap.Points) != 0 || snap.Result != nil || snap.Busy {
		t.Fatalf("residue after round trips: %+v", snap)
	}
	if snap.Token != 10 {
		t.Fatalf("token = %d, want 10", snap.Token)
	}
}

// Segment, succeed, reset, segment again from Idle: the second session
// carries nothing from the first.
func TestReset_AfterSuccessStartsClean(t *testing.T) {
	h := newHarness(t)
	first := []types.Point{fg(10, 10), fg(20, 20)}
	h.s.AddPoint(assetA, first[0])
	nextSeg(t, h.be).reply <- segReply{res: sam3d.SegmentationResult{PreviewURL: "old"}}
	h.waitState(t, "a", StateSegmentedReady)
	h.s.AddPoint(assetA, first[1])
	c := nextSeg(t, h.be)
	if !reflect.DeepEqual(c.pts, first) {
		t.Fatalf("first list = %+v", c.pts)
	}
	c.reply <- segReply{res: sam3d.SegmentationResult{PreviewURL: "A", MaskURL: "MA"}}
	if snap := h.waitState(t, "a", StateSegmentedReady); snap.Result.PreviewURL != "A" || snap.Result.MaskURL != "MA" {
		t.Fatalf("first result = %+v", snap.Result)
	}

	h.s.Reset("a")
	if _, err := h.s.AddPoint(assetA, fg(30, 30)); err != nil {
		t.Fatalf("AddPoint: %v", err)
	}
	c = nextSeg(t, h.be)
	if want := []types.Point{fg(30, 30)}; !reflect.DeepEqual(c.pts, want) {
		t.Fatalf("second list = %+v, want %+v", c.pts, want)
	}
	snap := h.s.Snapshot("a")
	if snap.State != StateSegmenting || snap.Result != nil || snap.LastPoint != nil || snap.CanGenerate {
		t.Fatalf("segmenting snapshot leaked the first result: %+v", snap)
	}

	c.reply <- segReply{res: sam3d.SegmentationResult{MaskURL: "MB"}}
	snap = h.waitState(t, "a", StateSegmentedReady)
	if snap.Result.PreviewURL != "" || snap.Result.MaskURL != "MB" || snap.Result.Kind() != sam3d.MaskOnly {
		t.Fatalf("second result = %+v", snap.Result)
	}
	if snap.LastPoint == nil || *snap.LastPoint != fg(30, 30) {
		t.Fatalf("last point = %+v", snap.LastPoint)
	}
}

func TestReset_UnknownAssetIsIdle(t *testing.T) {
	h := newHarness(t)
	h.s.Reset("nope")
	if got := h.s.Snapshot("nope"); got.State != StateIdle || got.Token != 1 {
		t.Fatalf("snapshot = %+v", got)
	}
}
