package session

// CanGenerate reports whether Generate would be accepted for the asset right
// now from a fresh segmentation: the asset is SegmentedReady, nothing is in
// flight for it, it holds the focus and no other generation is running.
// It is computed on every call.
func (s *Session) CanGenerate(assetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.assets[assetID]
	return ok && s.canGenerate(assetID, st)
}

func (s *Session) canGenerate(assetID string, st *assetState) bool {
	return st.state == StateSegmentedReady && st.hasResult && !st.inflight &&
		s.focus == assetID && s.generating == ""
}

// Snapshot returns the current projection of the asset's session. Unknown
// assets are reported as Idle.
func (s *Session) Snapshot(assetID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{AssetID: assetID, State: StateIdle, Points: s.points.Get(assetID)}
	st, ok := s.assets[assetID]
	if !ok {
		return snap
	}
	snap.State = st.state
	snap.Token = st.token
	snap.Busy = st.inflight
	snap.CanGenerate = s.canGenerate(assetID, st)
	snap.CanRetry = st.state == StateGenerationFailed && st.hasResult && !st.inflight &&
		s.focus == assetID && s.generating == ""
	snap.Err = st.err
	snap.UpdatedAt = st.updated
	if st.hasResult {
		r := st.result
		snap.Result = &r
		lp := st.lastPoint
		snap.LastPoint = &lp
	}
	if st.model != nil {
		m := *st.model
		snap.Model = &m
	}
	if st.layout != nil {
		l := *st.layout
		snap.Layout = &l
	}
	return snap
}
