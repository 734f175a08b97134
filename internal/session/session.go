package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spacelens/internal/points"
)

// Session owns the point lists, layouts, request tokens and results of every
// asset it has seen. All exported methods are safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	points *points.Accumulator
	assets map[string]*assetState

	// focus is the asset that received the most recent point. Generation is
	// only accepted for it.
	focus string
	// generating is the asset with a generation in flight, if any.
	generating string

	seg       Segmenter
	gen       Generator
	images    ImageSource
	haptics   Haptics
	notifier  Notifier
	publisher EventPublisher
	log       zerolog.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// New constructs a Session from cfg.
func New(cfg Config) (*Session, error) {
	if cfg.Segmenter == nil || cfg.Generator == nil || cfg.Images == nil {
		return nil, errors.New("session: segmenter, generator and image source are required")
	}
	cfg.applyDefaults()
	ctx, stop := context.WithCancel(context.Background())
	return &Session{
		points:    points.New(cfg.MaxPoints),
		assets:    make(map[string]*assetState),
		seg:       cfg.Segmenter,
		gen:       cfg.Generator,
		images:    cfg.Images,
		haptics:   cfg.Haptics,
		notifier:  cfg.Notifier,
		publisher: cfg.Publisher,
		log:       cfg.Logger,
		baseCtx:   ctx,
		stop:      stop,
	}, nil
}

// SetEventPublisher replaces the event publisher.
func (s *Session) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	s.mu.Lock()
	s.publisher = p
	s.mu.Unlock()
}

// Wait blocks until every in-flight call has completed and been applied or discarded.
func (s *Session) Wait() { s.wg.Wait() }

// Close cancels outstanding calls and waits for them to finish. Further
// AddPoint calls return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()
	s.wg.Wait()
	return nil
}

// Ready reports whether the session accepts new work.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// asset returns the record for id, creating an idle one. Callers hold s.mu.
func (s *Session) asset(id string) *assetState {
	st, ok := s.assets[id]
	if !ok {
		st = &assetState{state: StateIdle, updated: time.Now()}
		s.assets[id] = st
	}
	return st
}

// issue bumps the asset's token, cancels the request it supersedes and returns
// the new token with a context for the call. Callers hold s.mu.
func (s *Session) issue(st *assetState) (uint64, context.Context) {
	if st.cancel != nil {
		st.cancel()
	}
	st.token++
	ctx, cancel := context.WithCancel(s.baseCtx)
	st.cancel = cancel
	st.inflight = true
	st.updated = time.Now()
	return st.token, ctx
}

// settle marks the current request as finished. Callers hold s.mu.
func (st *assetState) settle() {
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	st.inflight = false
	st.updated = time.Now()
}
