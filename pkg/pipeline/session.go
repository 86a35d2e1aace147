// Package pipeline runs the extraction and transform flows. A Session is the
// processing context shared by both; it is constructed explicitly, passed to
// each stage and closed by the caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"salesetl/pkg/config"
	"salesetl/pkg/store"
)

// Session holds the configuration, logger and sink handle of one run.
type Session struct {
	cfg   *config.Config
	log   *zap.Logger
	runID string
	sink  *store.Sink

	// extract is replaceable in tests.
	extract func(ctx context.Context, conn config.DatabaseConfig, query string, log *zap.Logger) store.Result
}

// NewSession validates cfg and prepares a session. The sink handle is opened
// lazily by database/sql, so no connection is made here.
func NewSession(cfg *config.Config, log *zap.Logger) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	sink, err := store.OpenSink(cfg.Sink, log.Named("sink"))
	if err != nil {
		return nil, fmt.Errorf("failed to open sink: %w", err)
	}

	return &Session{
		cfg:     cfg,
		log:     log,
		runID:   runID,
		sink:    sink,
		extract: store.Extract,
	}, nil
}

// RunID identifies the session in log output.
func (s *Session) RunID() string { return s.runID }

// Config returns the session's configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// Close releases the sink handle.
func (s *Session) Close() error {
	if s.sink == nil {
		return nil
	}
	err := s.sink.Close()
	s.sink = nil
	return err
}

// Run executes the extraction flow and then the transform flow. The
// transform flow is skipped when any extraction failed, since its inputs
// would be missing or stale.
func (s *Session) Run(ctx context.Context) error {
	if _, err := s.Extract(ctx); err != nil {
		s.log.Error("Skipping transform after failed extraction", zap.Error(err))
		return err
	}
	_, err := s.Transform(ctx)
	return err
}
