package session

import (
	"context"
	"fmt"
	"time"

	"spacelens/pkg/types"
)

// Generate requests a 3D model for the asset, using its retained segmentation
// and the point that produced it as the anchor hint. It is accepted only from
// SegmentedReady, or from GenerationFailed as a retry, for the asset that
// received the most recent point, with nothing in flight for the asset and no
// other generation running. Otherwise it does nothing and reports false.
func (s *Session) Generate(asset types.Asset) (uint64, bool) {
	s.mu.Lock()
	st, ok := s.assets[asset.ID]
	reason := ""
	switch {
	case s.closed:
		reason = "closed"
	case !ok:
		reason = "unknown_asset"
	case st.state != StateSegmentedReady && st.state != StateGenerationFailed:
		reason = "not_ready"
	case !st.hasResult:
		reason = "no_result"
	case st.inflight:
		reason = "busy"
	case s.focus != asset.ID:
		reason = "not_focused"
	case s.generating != "":
		reason = "generation_in_flight"
	}
	if reason != "" {
		s.publisher.Publish(Event{Name: EventGenerateRejected, AssetID: asset.ID, Fields: map[string]any{"reason": reason}})
		s.mu.Unlock()
		s.log.Debug().Str("asset", asset.ID).Str("reason", reason).Msg("generate ignored")
		return 0, false
	}

	token, ctx := s.issue(st)
	st.state = StateGenerating
	st.err = ""
	s.generating = asset.ID
	anchor := st.lastPoint
	s.publisher.Publish(Event{Name: EventGenerateStart, AssetID: asset.ID, Token: token, Fields: map[string]any{"x": anchor.X, "y": anchor.Y}})
	requestsInflight.WithLabelValues(kindGenerate).Inc()
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Info().Str("asset", asset.ID).Uint64("token", token).Int("x", anchor.X).Int("y", anchor.Y).Msg("generate start")
	s.notifier.GenerationStarted(asset.ID)
	go s.runGenerate(ctx, asset, token, anchor)
	return token, true
}

func (s *Session) runGenerate(ctx context.Context, asset types.Asset, token uint64, anchor types.Point) {
	defer s.wg.Done()
	start := time.Now()
	var ref types.ModelRef
	img, err := s.images.Image(asset)
	if err != nil {
		err = fmt.Errorf("load image: %w", err)
	} else {
		ref, err = s.gen.Generate3D(ctx, img, &anchor)
	}
	s.applyGenerate(asset.ID, token, ref, err, time.Since(start))
}

// applyGenerate commits the outcome and releases the generation slot if the
// token is still current. A stale outcome leaves the slot alone, since Reset
// already released it and a newer generation may hold it now. The gallery is
// told that the result was discarded.
func (s *Session) applyGenerate(assetID string, token uint64, ref types.ModelRef, err error, dur time.Duration) {
	requestsInflight.WithLabelValues(kindGenerate).Dec()
	requestDuration.WithLabelValues(kindGenerate).Observe(dur.Seconds())

	s.mu.Lock()
	st := s.assets[assetID]
	if st == nil || st.token != token {
		requestsTotal.WithLabelValues(kindGenerate, outcomeStale).Inc()
		s.publisher.Publish(Event{Name: EventGenerateStale, AssetID: assetID, Token: token})
		s.mu.Unlock()
		s.log.Debug().Str("asset", assetID).Uint64("token", token).Msg("generate stale, discarded")
		s.notifier.GenerationDiscarded(assetID)
		return
	}
	if s.generating == assetID {
		s.generating = ""
	}
	switch {
	case err != nil:
		st.settle()
		st.state = StateGenerationFailed
		st.err = err.Error()
		requestsTotal.WithLabelValues(kindGenerate, outcomeError).Inc()
		s.publisher.Publish(Event{Name: EventGenerateFailed, AssetID: assetID, Token: token, Fields: map[string]any{"error": st.err}})
		s.log.Warn().Str("asset", assetID).Uint64("token", token).Err(err).Msg("generate failed")
	default:
		st.settle()
		st.state = StateGenerationDone
		model := ref
		st.model = &model
		// Hand-off complete: the points have been consumed.
		s.points.Reset(assetID)
		st.hasResult = false
		if s.focus == assetID {
			s.focus = ""
		}
		requestsTotal.WithLabelValues(kindGenerate, outcomeOK).Inc()
		s.publisher.Publish(Event{Name: EventGenerateDone, AssetID: assetID, Token: token, Fields: map[string]any{"url": ref.URL}})
		s.log.Info().Str("asset", assetID).Uint64("token", token).Str("url", ref.URL).Dur("dur", dur).Msg("generate done")
	}
	s.mu.Unlock()

	if err != nil {
		s.notifier.GenerationFinished(assetID, false, nil)
		return
	}
	s.notifier.GenerationFinished(assetID, true, &ref)
}
