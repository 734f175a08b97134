package session

import (
	"time"

	"spacelens/internal/sam3d"
	"spacelens/pkg/types"
)

// Reset returns the asset to Idle from any state. It drops the point list and
// any result and invalidates the outstanding request token, so a response that
// arrives later is discarded. The in-flight call is cancelled as well, but
// correctness does not depend on that. A generation slot held by the asset is
// released at once. The measured layout is kept.
func (s *Session) Reset(assetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points.Reset(assetID)
	st := s.asset(assetID)
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	st.token++
	st.inflight = false
	st.state = StateIdle
	st.result = sam3d.SegmentationResult{}
	st.hasResult = false
	st.lastPoint = types.Point{}
	st.err = ""
	st.model = nil
	st.updated = time.Now()
	if s.focus == assetID {
		s.focus = ""
	}
	if s.generating == assetID {
		s.generating = ""
	}
	s.publisher.Publish(Event{Name: EventReset, AssetID: assetID, Token: st.token})
	s.log.Debug().Str("asset", assetID).Uint64("token", st.token).Msg("reset")
}
