package config

import (
	"errors"
	"io"
)

// Closers collects resources acquired while wiring a binary so a failed
// startup can release everything it opened so far.
type Closers struct {
	items []io.Closer
}

// Add records c. Nil closers are ignored.
func (c *Closers) Add(closer io.Closer) {
	if closer != nil {
		c.items = append(c.items, closer)
	}
}

// Release forgets every recorded closer without closing it, once ownership
// has passed to something else.
func (c *Closers) Release() {
	c.items = nil
}

// Close closes the recorded resources in reverse order and joins their
// errors. It is a no-op after Release.
func (c *Closers) Close() error {
	var errs []error
	for i := len(c.items) - 1; i >= 0; i-- {
		if err := c.items[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.items = nil
	return errors.Join(errs...)
}
