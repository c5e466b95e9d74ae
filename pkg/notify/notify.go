// Package notify provides event publication over NATS with lifecycle coordination.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/legisbr/consolida/pkg/lifecycle"
)

// System manages the NATS connection and message publication.
type System interface {
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Publish marshals v as JSON and publishes it on the given subject.
	// Returns ErrNotConnected if the connection has not been established.
	Publish(subject string, v any) error
}

type system struct {
	cfg    *Config
	conn   *nats.Conn
	logger *slog.Logger
}

// New creates a notification system from the given configuration.
// The connection is not established until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	return &system{
		cfg:    cfg,
		logger: logger.With("system", "notify"),
	}, nil
}

func (s *system) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting notification system")

	lc.OnStartup(func() {
		conn, err := nats.Connect(
			s.cfg.URL,
			nats.Name(s.cfg.ClientName),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			s.logger.Error("nats connect failed", "url", s.cfg.URL, "error", err)
			return
		}

		s.conn = conn
		s.logger.Info("nats connection established", "url", s.cfg.URL)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		if s.conn == nil {
			return
		}

		s.logger.Info("draining nats connection")
		if err := s.conn.Drain(); err != nil {
			s.logger.Error("nats drain failed", "error", err)
		}
		s.conn.Close()
	})

	return nil
}

func (s *system) Publish(subject string, v any) error {
	if s.conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	return nil
}
