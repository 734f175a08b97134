package session

import (
	"context"
	"fmt"
	"time"

	"spacelens/internal/coords"
	"spacelens/internal/sam3d"
	"spacelens/pkg/types"
)

// Ticket describes an accepted segmentation request.
type Ticket struct {
	Token uint64
	// Point is the point that was added, in source pixel space.
	Point types.Point
	// Points is the full list sent to the segmentation backend.
	Points []types.Point
}

// SetLayout records the most recently measured on-screen size of the asset's
// rendered image. Touches are mapped through it.
func (s *Session) SetLayout(assetID string, l types.Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.asset(assetID)
	st.layout = &l
}

// AddTouch maps a display-local touch into source pixels and adds the point.
// It returns ErrLayoutUnknown when no layout has been recorded for the asset.
func (s *Session) AddTouch(asset types.Asset, touch types.Touch) (Ticket, error) {
	s.mu.Lock()
	var layout *types.Layout
	if st, ok := s.assets[asset.ID]; ok && st.layout != nil {
		l := *st.layout
		layout = &l
	}
	s.mu.Unlock()

	p, ok := coords.Map(touch, layout, asset)
	if !ok {
		return Ticket{}, ErrLayoutUnknown
	}
	return s.AddPoint(asset, p)
}

// AddPoint appends p to the asset's point list and issues a segmentation call
// with the whole list. Any previous result is hidden immediately; the points
// are kept. The call completes in the background.
func (s *Session) AddPoint(asset types.Asset, p types.Point) (Ticket, error) {
	if asset.ID == "" {
		return Ticket{}, ErrInvalidAsset
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Ticket{}, ErrClosed
	}
	st := s.asset(asset.ID)
	if st.state == StateGenerating {
		return Ticket{}, ErrBusy
	}

	list := s.points.Append(asset.ID, p)
	token, ctx := s.issue(st)
	st.state = StateSegmenting
	st.result = sam3d.SegmentationResult{}
	st.hasResult = false
	st.err = ""
	st.model = nil
	s.focus = asset.ID

	s.publisher.Publish(Event{Name: EventSegmentStart, AssetID: asset.ID, Token: token, Fields: map[string]any{"points": len(list)}})
	s.log.Debug().Str("asset", asset.ID).Uint64("token", token).Int("points", len(list)).Msg("segment start")
	requestsInflight.WithLabelValues(kindSegment).Inc()

	s.wg.Add(1)
	go s.runSegment(ctx, asset, token, list, p)
	return Ticket{Token: token, Point: p, Points: list}, nil
}

func (s *Session) runSegment(ctx context.Context, asset types.Asset, token uint64, pts []types.Point, p types.Point) {
	defer s.wg.Done()
	start := time.Now()
	res, err := s.segment(ctx, asset, pts)
	s.applySegment(asset.ID, token, p, res, err, time.Since(start))
}

func (s *Session) segment(ctx context.Context, asset types.Asset, pts []types.Point) (sam3d.SegmentationResult, error) {
	img, err := s.images.Image(asset)
	if err != nil {
		return sam3d.SegmentationResult{}, fmt.Errorf("load image: %w", err)
	}
	res, err := s.seg.Segment(ctx, img, pts)
	if err != nil {
		return sam3d.SegmentationResult{}, err
	}
	if !res.Valid() {
		return sam3d.SegmentationResult{}, errInvalidResult
	}
	res.AssetID = asset.ID
	return res, nil
}

// applySegment commits a segmentation completion if its token is still the
// newest for the asset. Stale completions change nothing, not even the anchor.
func (s *Session) applySegment(assetID string, token uint64, p types.Point, res sam3d.SegmentationResult, err error, dur time.Duration) {
	requestsInflight.WithLabelValues(kindSegment).Dec()
	requestDuration.WithLabelValues(kindSegment).Observe(dur.Seconds())

	s.mu.Lock()
	st := s.assets[assetID]
	if st == nil || st.token != token {
		s.publisher.Publish(Event{Name: EventSegmentStale, AssetID: assetID, Token: token})
		s.mu.Unlock()
		requestsTotal.WithLabelValues(kindSegment, outcomeStale).Inc()
		s.log.Debug().Str("asset", assetID).Uint64("token", token).Msg("segment stale, discarded")
		return
	}
	st.settle()
	if err != nil {
		st.state = StateSegmentationFailed
		st.err = err.Error()
		s.publisher.Publish(Event{Name: EventSegmentFailed, AssetID: assetID, Token: token, Fields: map[string]any{"error": st.err}})
		s.mu.Unlock()
		requestsTotal.WithLabelValues(kindSegment, outcomeError).Inc()
		s.log.Warn().Str("asset", assetID).Uint64("token", token).Err(err).Msg("segment failed")
		return
	}
	st.state = StateSegmentedReady
	st.result = res
	st.hasResult = true
	st.lastPoint = p
	s.publisher.Publish(Event{Name: EventSegmentReady, AssetID: assetID, Token: token, Fields: map[string]any{"kind": res.Kind().String()}})
	s.mu.Unlock()

	requestsTotal.WithLabelValues(kindSegment, outcomeOK).Inc()
	s.log.Info().Str("asset", assetID).Uint64("token", token).Str("kind", res.Kind().String()).Dur("dur", dur).Msg("segment ready")
	s.haptics.Confirm(assetID)
}
