// Package startup brings up external dependencies (postgres, migrations,
// redis, kafka) in declared order with retry, and tears them down in reverse.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

type StartupDependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type StartupStatus int

const (
	StartupStatusPending StartupStatus = iota
	StartupStatusStarted
	StartupStatusStopped
	StartupStatusFailed
)

// Startup starts dependencies in registration order, honoring DependsOn, and
// stops them in reverse registration order.
type Startup struct {
	order       []StartupDependency
	byName      map[string]StartupDependency
	statuses    map[string]StartupStatus
	logger      ectologger.Logger
	maxAttempts int
}

func NewStartup[T any](logger ectologger.Logger, maxAttempts int) *Startup {
	return &Startup{
		logger:      logger,
		byName:      make(map[string]StartupDependency),
		statuses:    make(map[string]StartupStatus),
		maxAttempts: maxAttempts,
	}
}

func (s *Startup) AddDependency(dependency StartupDependency) {
	s.order = append(s.order, dependency)
	s.byName[dependency.GetName()] = dependency
}

// Start attempts to bring up every dependency, retrying the whole set with
// fibonacci backoff. Dependencies already started are not restarted on retry.
func (s *Startup) Start(ctx context.Context) error {
	var lastErr error

	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithField("attempt", attempt).Infof("beginning startup attempt %d", attempt)

		lastErr = nil
		for _, dependency := range s.order {
			if err := s.startDependency(ctx, dependency); err != nil {
				s.logger.WithError(err).Errorf("startup dependency '%s' attempt %d failed", dependency.GetName(), attempt)
				lastErr = err
				break
			}
		}

		if lastErr == nil {
			return nil
		}

		if attempt >= s.maxAttempts {
			return fmt.Errorf("startup failed after %d attempts: %w", attempt, lastErr)
		}

		s.logger.Infof("retrying in %d seconds (attempt %d/%d)", a, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(a) * time.Second):
		}
		a, b = b, a+b
	}

	return lastErr
}

func (s *Startup) startDependency(ctx context.Context, dependency StartupDependency) error {
	name := dependency.GetName()
	if s.statuses[name] == StartupStatusStarted {
		return nil
	}

	for _, parent := range dependency.DependsOn() {
		if s.statuses[parent] != StartupStatusStarted {
			dep, ok := s.byName[parent]
			if !ok {
				return fmt.Errorf("dependency '%s' depends on unregistered '%s'", name, parent)
			}
			if err := s.startDependency(ctx, dep); err != nil {
				return err
			}
		}
	}

	s.logger.WithField("dependency", name).Infof("starting dependency '%s'", name)
	s.statuses[name] = StartupStatusPending
	if err := dependency.Start(ctx); err != nil {
		s.statuses[name] = StartupStatusFailed
		s.logger.WithError(err).WithField("dependency", name).Errorf("failed to start dependency '%s'", name)
		return err
	}
	s.statuses[name] = StartupStatusStarted
	return nil
}

// Stop tears down started dependencies in reverse registration order. It
// keeps going past individual failures so one stuck dependency does not leak
// the rest.
func (s *Startup) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(s.order) - 1; i >= 0; i-- {
		dependency := s.order[i]
		name := dependency.GetName()
		if s.statuses[name] != StartupStatusStarted {
			continue
		}

		s.logger.WithField("dependency", name).Infof("stopping dependency '%s'", name)
		if err := dependency.Stop(ctx); err != nil {
			s.logger.WithError(err).WithField("dependency", name).Errorf("failed to stop dependency '%s'", name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.statuses[name] = StartupStatusStopped
	}
	return firstErr
}
