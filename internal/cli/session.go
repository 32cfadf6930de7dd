package cli

import (
	"context"

	"finflow/internal/advice"
	"finflow/internal/app"
	"finflow/internal/config"
	applog "finflow/internal/log"
	"finflow/internal/services"
)

// session is one started App plus the resources it holds open.
type session struct {
	app     *app.App
	cfg     *config.Config
	outcome services.CycleOutcome
	// confirmer answered the startup check. Later prompts must go through
	// it since it owns the buffered reader on stdin.
	confirmer services.Confirmer
	closers   []func()
}

type sessionOptions struct {
	// confirmer answers a due weekly reset; nil leaves it pending.
	confirmer services.Confirmer
	// advice builds the Gemini generator when an API key is configured.
	advice bool
}

func openSession(ctx context.Context, logger *applog.Logger, opts sessionOptions) (*session, error) {
	cfg, err := LoadAndValidateConfig(logger)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, confirmer: opts.confirmer}
	result, err := InitBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() { closeWith(logger, "storage backend", result.Cleanup) })

	var gen advice.Generator
	if opts.advice {
		gen = InitGenerator(ctx, logger, cfg)
	}

	var pub services.EventPublisher
	if client := InitPublisher(logger, cfg); client != nil {
		pub = client
		s.closers = append(s.closers, func() { closeWith(logger, "AMQP client", client.Close) })
	}

	s.app, err = app.New(app.Options{
		Config:    cfg,
		KV:        result.KV,
		Generator: gen,
		Publisher: pub,
		Ping:      result.Ping,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	s.outcome, err = s.app.Start(ctx, opts.confirmer)
	if err != nil {
		logger.Error("Failed to start application", applog.FieldError, err)
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
