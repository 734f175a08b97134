package httpapi

import (
	"context"
	"net/http"
	"sync"
)

// baseCtx is canceled on process shutdown. Handlers that wait on the remote
// service join it with the request context.
var (
	baseMu  sync.RWMutex
	baseCtx = context.Background()
)

// SetBaseContext sets the process-level context; nil restores Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	baseMu.Lock()
	baseCtx = ctx
	baseMu.Unlock()
}

func serverBase() context.Context {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return baseCtx
}

// requestContext returns a context canceled when either the request or the
// server base context is done. The cancel func must be called when the
// handler returns.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(serverBase(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
