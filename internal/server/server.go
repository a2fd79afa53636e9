package server

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/handler"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
)

type server struct {
	httpServer *httpServer
	served     chan struct{}
	logger     *logger.Logger
}

func NewServer(handlers *handler.Handlers, cfg config.Server, logger *logger.Logger) (Server, error) {
	logger.Info().Msg("creating new server...")

	if handlers == nil || handlers.HTTP == nil || cfg.HTTPAddress == "" {
		return nil, errNoServersAreCreated
	}

	return &server{
		httpServer: newHTTPServer(handlers.HTTP.Init(), cfg, logger),
		logger:     logger,
	}, nil
}

func (s *server) RunServer() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	if err := s.start(); err != nil {
		return err
	}
	return s.wait(ctx)
}

func (s *server) Shutdown() {
	s.httpServer.Shutdown()
}

// start binds the listener and serves in the background.
func (s *server) start() error {
	if err := s.httpServer.listen(); err != nil {
		return err
	}

	s.served = make(chan struct{})
	go func() {
		defer close(s.served)
		s.httpServer.RunServer()
	}()

	s.logger.Info().Str("address", s.httpServer.addr()).Msg("Launching HTTP server")
	return nil
}

// wait blocks until ctx is done, then shuts the server down.
func (s *server) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-s.served:
		return errServerStopped
	}

	s.Shutdown()
	<-s.served

	s.logger.Info().Msg("server Shutdown gracefully")
	return nil
}
