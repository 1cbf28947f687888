// Package closer collects and guards io.Closer resources such as the
// journal and trace files held by diagnostics sinks.
package closer

import (
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"go.uber.org/atomic"
)

// ErrPanicRecovered wraps a panic raised by a Close method.
var ErrPanicRecovered = errors.New("recovered from panic during close")

type customCloser struct {
	closeFn func() error
}

// CustomCloser adapts a cleanup function to io.Closer. A nil function
// yields a nil closer.
func CustomCloser(closeFn func() error) io.Closer {
	if closeFn == nil {
		return nil
	}

	return &customCloser{closeFn: closeFn}
}

func (c *customCloser) Close() error {
	return c.closeFn()
}

// Closer closes a set of resources together. Every closer is attempted
// and the failures are joined. Add is not safe for concurrent use.
type Closer struct {
	closers []io.Closer
}

// NewCloser creates a Closer holding closers.
func NewCloser(closers ...io.Closer) *Closer {
	return &Closer{closers: closers}
}

// Add registers c. Nil values are skipped on Close.
func (c *Closer) Add(closer io.Closer) {
	c.closers = append(c.closers, closer)
}

// Len returns the number of registered closers.
func (c *Closer) Len() int {
	return len(c.closers)
}

// Close closes every registered closer in the order added.
func (c *Closer) Close() error {
	var errs []error

	for _, closer := range c.closers {
		if closer == nil {
			continue
		}

		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

type closeOnce struct {
	mut    sync.Mutex
	closed bool
	closer io.Closer
}

// CloseOnce makes closer safe to close from several cleanup paths. A
// failed Close is not remembered, so a later call retries.
func CloseOnce(closer io.Closer) io.Closer {
	if closer == nil {
		return nil
	}

	if once, ok := closer.(*closeOnce); ok {
		return once
	}

	return &closeOnce{closer: closer}
}

func (c *closeOnce) Close() error {
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.closed {
		return nil
	}

	if err := c.closer.Close(); err != nil {
		return err
	}

	c.closed = true

	return nil
}

type panicHandling struct {
	closer io.Closer
}

// HandlePanic turns a panic inside closer's Close into an error wrapping
// ErrPanicRecovered.
func HandlePanic(closer io.Closer) io.Closer {
	if closer == nil {
		return nil
	}

	if _, ok := closer.(*panicHandling); ok {
		return closer
	}

	return &panicHandling{closer: closer}
}

func (p *panicHandling) Close() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(err, fmt.Errorf("%w: %v\n%s", ErrPanicRecovered, r, debug.Stack()))
		}
	}()

	return p.closer.Close()
}

type cancelable struct {
	shouldClose *atomic.Bool
	closer      io.Closer
}

func (c *cancelable) Close() error {
	if c.shouldClose.Load() {
		return c.closer.Close()
	}

	return nil
}

// CancelableCloser returns a closer that closes c until cancel is called,
// after which Close does nothing. It is meant for cleanup that should run
// only when construction fails part way.
func CancelableCloser(c io.Closer) (closer io.Closer, cancel func()) {
	if c == nil {
		return nil, func() {}
	}

	if cc, ok := c.(*cancelable); ok {
		return cc, func() { cc.shouldClose.Store(false) }
	}

	cc := &cancelable{shouldClose: atomic.NewBool(true), closer: c}

	return cc, func() { cc.shouldClose.Store(false) }
}
