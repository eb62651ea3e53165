package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/gosha22008/orders-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

// ServiceParams lists what the worker process supervises.
type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies map[string]pinger
	Consumers    map[string]consumer
}

// Service runs every subscription consumer until one fails or ctx ends.
type Service struct {
	logg      *logger.Logger
	deps      map[string]pinger
	consumers map[string]consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("%s consumer is nil", name)
		}
	}
	return &Service{
		logg:      params.Logger,
		deps:      params.Dependencies,
		consumers: params.Consumers,
	}, nil
}

// ensureReadiness pings every dependency and reports all failures at once.
func (s *Service) ensureReadiness(ctx context.Context) error {
	var errs error
	for name, dep := range s.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			errs = multierr.Append(errs, fmt.Errorf("%s ping failed: %w", name, err))
		}
	}
	if errs == nil {
		s.logg.Info(ctx, "all worker dependencies are ready")
	}
	return errs
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(s.consumers))
	for name, c := range s.consumers {
		go func(name string, c consumer) {
			results <- result{name: name, err: c.Run(runCtx)}
		}(name, c)
	}

	var errs error
	for remaining := len(s.consumers); remaining > 0; remaining-- {
		res := <-results
		if res.err != nil && !errors.Is(res.err, context.Canceled) && ctx.Err() == nil {
			s.logg.Error(s.logg.WithField(ctx, "consumer", res.name), "consumer stopped unexpectedly", res.err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", res.name, res.err))
		}
		// One consumer exiting takes the process down so the platform restarts it.
		cancel()
	}
	if errs != nil {
		return errs
	}
	return ctx.Err()
}
