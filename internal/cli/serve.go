package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"spacelens/internal/assets"
	"spacelens/internal/config"
	"spacelens/internal/gallery"
	"spacelens/internal/httpapi"
	"spacelens/internal/session"
)

const shutdownTimeout = 5 * time.Second

// logPublisher writes session events to the debug log.
type logPublisher struct{ log zerolog.Logger }

func (p logPublisher) Publish(e session.Event) {
	ev := p.log.Debug().Str("event", e.Name).Str("asset", e.AssetID).Uint64("token", e.Token)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("session event")
}

// newStore picks the Redis status store when redis_addr is set.
func newStore(ctx context.Context, cfg config.Config) (gallery.StatusStore, error) {
	if cfg.RedisAddr == "" {
		return gallery.NewMemoryStore(), nil
	}
	ttl, err := cfg.StatusTTL()
	if err != nil {
		return nil, err
	}
	rs := gallery.NewRedisStore(gallery.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      ttl,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pctx); err != nil {
		rs.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	return rs, nil
}

// configureHTTP pushes config into the httpapi package settings.
func configureHTTP(cfg config.Config, log zerolog.Logger) {
	httpapi.SetLogger(log)
	refresh, _ := cfg.Timeout()
	httpapi.Configure(httpapi.Settings{
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RefreshTimeout: refresh,
		CORS: httpapi.CORS{
			Enabled:        cfg.CORSEnabled,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: cfg.CORSAllowedMethods,
			AllowedHeaders: cfg.CORSAllowedHeaders,
		},
	})
}

func runServe(parent context.Context, opts *Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := cfg.PhotosPath()
	if err != nil {
		return err
	}
	lib, err := assets.LoadDir(dir, log)
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	gal := gallery.New(gallery.Config{Lister: client, Store: store, Logger: log})
	sess, err := session.New(session.Config{
		Segmenter: client,
		Generator: client,
		Images:    lib,
		Notifier:  gal,
		Publisher: logPublisher{log},
		MaxPoints: cfg.MaxPoints,
		Logger:    log,
	})
	if err != nil {
		store.Close()
		return err
	}

	configureHTTP(cfg, log)
	httpapi.SetBaseContext(ctx)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(httpapi.Deps{Sessions: sess, Library: lib, Gallery: gal}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("photos", lib.Dir()).Int("assets", lib.Len()).Str("backend", client.BaseURL()).Msg("spacelens listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			sess.Close()
			gal.Wait()
			store.Close()
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	sess.Close()
	gal.Wait()
	return store.Close()
}
