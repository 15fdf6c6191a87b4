package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// closeFunc allows using a function as an io.Closer
type closeFunc func() error

func (f closeFunc) Close() error {
	return f()
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// shutdownHandler closes what a command opened, last opened first.
type shutdownHandler struct {
	mu      sync.Mutex
	closers []namedCloser
	timeout time.Duration
}

func newShutdownHandler(timeout time.Duration) *shutdownHandler {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &shutdownHandler{timeout: timeout}
}

// Add registers a resource for shutdown
func (sh *shutdownHandler) Add(name string, closer io.Closer) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.closers = append(sh.closers, namedCloser{name: name, closer: closer})
}

func (sh *shutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, closeFunc(fn))
}

// Shutdown closes every registered resource in reverse order. A closer that
// does not return within its timeout is abandoned and reported.
func (sh *shutdownHandler) Shutdown(logger *zap.Logger) error {
	sh.mu.Lock()
	closers := sh.closers
	sh.closers = nil
	sh.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := sh.close(closers[i], logger); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (sh *shutdownHandler) close(c namedCloser, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), sh.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.closer.Close() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Failed to close", zap.String("resource", c.name), zap.Error(err))
			return fmt.Errorf("%s: %w", c.name, err)
		}
		logger.Debug("Closed", zap.String("resource", c.name))
		return nil
	case <-ctx.Done():
		logger.Error("Shutdown timeout", zap.String("resource", c.name))
		return fmt.Errorf("%s: shutdown timeout", c.name)
	}
}
