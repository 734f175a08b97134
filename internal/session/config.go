package session

import (
	"context"

	"github.com/rs/zerolog"

	"spacelens/internal/points"
	"spacelens/internal/sam3d"
	"spacelens/pkg/types"
)

// Segmenter performs one segmentation call.
type Segmenter interface {
	Segment(ctx context.Context, img sam3d.Image, pts []types.Point) (sam3d.SegmentationResult, error)
}

// Generator performs one 3D generation call.
type Generator interface {
	Generate3D(ctx context.Context, img sam3d.Image, anchor *types.Point) (types.ModelRef, error)
}

// ImageSource produces the upload bytes of an asset.
type ImageSource interface {
	Image(asset types.Asset) (sam3d.Image, error)
}

// Haptics receives an advisory confirmation after a successful segmentation.
type Haptics interface {
	Confirm(assetID string)
}

// Notifier is the gallery side of a generation hand-off. It is told when a
// generation is accepted, when it finishes, and when its outcome arrives after
// the asset was reset. It never writes session state.
type Notifier interface {
	GenerationStarted(assetID string)
	GenerationFinished(assetID string, ok bool, model *types.ModelRef)
	GenerationDiscarded(assetID string)
}

// Config encapsulates the collaborators and tunables of a Session.
// Segmenter, Generator and Images are required.
type Config struct {
	Segmenter Segmenter
	Generator Generator
	Images    ImageSource

	Haptics   Haptics
	Notifier  Notifier
	Publisher EventPublisher

	// MaxPoints bounds each asset's point list (default points.DefaultMaxPoints).
	MaxPoints int
	Logger    zerolog.Logger
}

type noopHaptics struct{}

func (noopHaptics) Confirm(string) {}

type noopNotifier struct{}

func (noopNotifier) GenerationStarted(string)                         {}
func (noopNotifier) GenerationFinished(string, bool, *types.ModelRef) {}
func (noopNotifier) GenerationDiscarded(string)                       {}

func (cfg *Config) applyDefaults() {
	if cfg.MaxPoints <= 0 || cfg.MaxPoints > points.DefaultMaxPoints {
		cfg.MaxPoints = points.DefaultMaxPoints
	}
	if cfg.Haptics == nil {
		cfg.Haptics = noopHaptics{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = noopNotifier{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
}
