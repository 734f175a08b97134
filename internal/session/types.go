package session

import (
	"time"

	"spacelens/internal/sam3d"
	"spacelens/pkg/types"
)

// State is the lifecycle state of one asset's segmentation session.
type State string

const (
	StateIdle               State = "idle"
	StateSegmenting         State = "segmenting"
	StateSegmentedReady     State = "segmented_ready"
	StateSegmentationFailed State = "segmentation_failed"
	StateGenerating         State = "generating"
	StateGenerationFailed   State = "generation_failed"
	StateGenerationDone     State = "generation_done"
)

// Busy reports whether the state has a request in flight.
func (s State) Busy() bool { return s == StateSegmenting || s == StateGenerating }

// Snapshot is a read-only projection of one asset's session. The presentation
// layer renders it and holds no state of its own.
type Snapshot struct {
	AssetID string
	State   State
	// Token is the newest request token issued for the asset.
	Token       uint64
	Busy        bool
	CanGenerate bool
	// CanRetry is true in GenerationFailed when the retained result allows a retry.
	CanRetry  bool
	Points    []types.Point
	LastPoint *types.Point
	Result    *sam3d.SegmentationResult
	Model     *types.ModelRef
	Err       string
	Layout    *types.Layout
	UpdatedAt time.Time
}

// assetState is the mutable per-asset record guarded by Session.mu.
type assetState struct {
	state    State
	token    uint64
	inflight bool
	cancel   func()

	result    sam3d.SegmentationResult
	hasResult bool
	lastPoint types.Point

	err     string
	model   *types.ModelRef
	layout  *types.Layout
	updated time.Time
}
