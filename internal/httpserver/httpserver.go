// Package httpserver wires the storage backend, the dispatcher, and the
// stdlib HTTP server together into a process, the way the teacher's own
// internal/httpserver does for its auth-chain/router/directory set.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/kcaldavd/internal/config"
	"github.com/sonroyaalmerol/kcaldavd/internal/dav"
	"github.com/sonroyaalmerol/kcaldavd/internal/logging"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage/postgres"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage/sqlite"
)

type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, func(), error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	davh := dav.NewHandlers(cfg, store, logger)

	srv := &Server{
		http: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      davh,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
	cleanup := func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("storage close failed")
		}
	}
	logger.Info().Msgf("listening on %s (storage=%s)", cfg.HTTP.Addr, cfg.Storage.Type)
	return srv, cleanup, nil
}

func openStore(cfg *config.Config, logger zerolog.Logger) (storage.Store, error) {
	storeLog := logging.StoreLogger{Logger: logger}
	opts := struct {
		NonceCap   int
		NonceEvict int
	}{cfg.Digest.NonceCap, cfg.Digest.NonceEvict}

	switch cfg.Storage.Type {
	case "sqlite":
		return sqlite.New(cfg.Storage.DSN, storeLog, sqlite.Options{
			NonceCap:   opts.NonceCap,
			NonceEvict: opts.NonceEvict,
		})
	case "postgres":
		return postgres.New(context.Background(), cfg.Storage.DSN, storeLog, postgres.Options{
			NonceCap:   opts.NonceCap,
			NonceEvict: opts.NonceEvict,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

func (s *Server) Start() error {
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
