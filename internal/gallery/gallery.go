// Package gallery tracks the outcome of 3D generations per asset and keeps a
// cached copy of the remote model list. It is told about generations by the
// session and never writes session state.
package gallery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spacelens/pkg/types"
)

// Generation statuses.
const (
	StatusPending = "pending"
	StatusError   = "error"
	StatusDone    = "done"
	// StatusCanceled marks a generation whose asset was reset before the
	// outcome arrived. The session never saw the model.
	StatusCanceled = "canceled"
)

const defaultRefreshTimeout = 30 * time.Second

// Lister fetches the remote model list.
type Lister interface {
	ListModels(ctx context.Context) ([]types.ModelDescriptor, error)
}

// Config configures a Gallery. All fields are optional.
type Config struct {
	Lister Lister
	// Store persists generation statuses (default in-memory).
	Store  StatusStore
	Logger zerolog.Logger
	// RefreshTimeout bounds the list refresh that follows a finished generation.
	RefreshTimeout time.Duration
	Now            func() time.Time
}

// Gallery implements session.Notifier.
type Gallery struct {
	lister  Lister
	store   StatusStore
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	models    []types.ModelDescriptor
	refreshed time.Time

	wg sync.WaitGroup
}

// New constructs a Gallery from cfg.
func New(cfg Config) *Gallery {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = defaultRefreshTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gallery{
		lister:  cfg.Lister,
		store:   cfg.Store,
		log:     cfg.Logger,
		timeout: cfg.RefreshTimeout,
		now:     cfg.Now,
	}
}

// GenerationStarted marks the asset pending.
func (g *Gallery) GenerationStarted(assetID string) {
	g.put(assetID, StatusPending, nil)
}

// GenerationFinished records the outcome and refreshes the model list in the
// background. A failed refresh is logged only.
func (g *Gallery) GenerationFinished(assetID string, ok bool, model *types.ModelRef) {
	if ok {
		g.put(assetID, StatusDone, model)
	} else {
		g.put(assetID, StatusError, nil)
	}
	g.refreshAsync(assetID)
}

// GenerationDiscarded marks the asset canceled. The remote side may still have
// produced a model, so the list is refreshed as for a finished generation.
func (g *Gallery) GenerationDiscarded(assetID string) {
	g.put(assetID, StatusCanceled, nil)
	g.refreshAsync(assetID)
}

func (g *Gallery) refreshAsync(assetID string) {
	if g.lister == nil {
		return
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()
		if _, err := g.Refresh(ctx); err != nil {
			g.log.Warn().Err(err).Str("asset", assetID).Msg("model list refresh failed")
		}
	}()
}

func (g *Gallery) put(assetID, status string, model *types.ModelRef) {
	st := types.GenerationStatus{AssetID: assetID, Status: status, UpdatedUnix: g.now().Unix()}
	if model != nil {
		m := *model
		st.Model = &m
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.store.Put(ctx, st); err != nil {
		g.log.Error().Err(err).Str("asset", assetID).Str("status", status).Msg("store generation status")
		return
	}
	g.log.Debug().Str("asset", assetID).Str("status", status).Msg("generation status")
}

// Refresh fetches the remote model list and caches it.
func (g *Gallery) Refresh(ctx context.Context) ([]types.ModelDescriptor, error) {
	if g.lister == nil {
		return nil, nil
	}
	models, err := g.lister.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.models = models
	g.refreshed = g.now()
	g.mu.Unlock()
	g.log.Debug().Int("models", len(models)).Msg("model list refreshed")
	return cloneModels(models), nil
}

// Models returns the cached model list and when it was last refreshed.
func (g *Gallery) Models() ([]types.ModelDescriptor, time.Time) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneModels(g.models), g.refreshed
}

// Status returns the generation status of one asset.
func (g *Gallery) Status(ctx context.Context, assetID string) (types.GenerationStatus, bool, error) {
	return g.store.Get(ctx, assetID)
}

// Statuses returns every known status, most recently updated first.
func (g *Gallery) Statuses(ctx context.Context) ([]types.GenerationStatus, error) {
	out, err := g.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedUnix != out[j].UpdatedUnix {
			return out[i].UpdatedUnix > out[j].UpdatedUnix
		}
		return out[i].AssetID < out[j].AssetID
	})
	return out, nil
}

// Wait blocks until background refreshes have finished.
func (g *Gallery) Wait() { g.wg.Wait() }

func cloneModels(in []types.ModelDescriptor) []types.ModelDescriptor {
	if in == nil {
		return nil
	}
	out := make([]types.ModelDescriptor, len(in))
	copy(out, in)
	return out
}
