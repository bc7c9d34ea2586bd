package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/roach88/runview/internal/config"
	"github.com/roach88/runview/internal/engine"
	"github.com/roach88/runview/internal/producer"
	"github.com/roach88/runview/internal/store"
)

// session is one engine over a payload file, optionally journaling.
type session struct {
	engine *engine.Engine
	store  *store.Store
}

// openSession wires the producer, optional journal and engine for a command.
// An empty dbPath disables journaling.
func openSession(ctx context.Context, f *OutputFormatter, logger *slog.Logger, cfg config.Config, payloadPath, dbPath string, extra ...engine.Option) (*session, error) {
	p := producer.WithRetry(producer.NewFile(payloadPath), cfg.Retry, logger)

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithDebounce(cfg.Debounce),
		engine.WithPalette(cfg.Palette),
	}

	s := &session{}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		seq, err := st.LastSeq(ctx)
		if err != nil {
			st.Close()
			return nil, f.Fail(ExitCommandError, ErrCodeDatabase, "failed to read database", err)
		}
		s.store = st
		opts = append(opts, engine.WithStore(st), engine.WithSeqClock(engine.NewClockAt(seq)))
	}

	s.engine = engine.New(p, append(opts, extra...)...)
	return s, nil
}

// refresh runs one update pass. A missing payload is a command error, any
// other producer failure a runtime failure.
func (s *session) refresh(ctx context.Context, f *OutputFormatter) (*engine.Snapshot, error) {
	if err := s.engine.Refresh(ctx); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, f.Fail(ExitCommandError, ErrCodePayload, "payload not found", err)
		}
		return nil, f.Fail(ExitFailure, ErrCodePayload, "failed to read payload", err)
	}
	return s.engine.Snapshot(), nil
}

func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// payloadArg returns the positional payload path or the configured one.
func payloadArg(args []string, cfg config.Config) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Payload
}
