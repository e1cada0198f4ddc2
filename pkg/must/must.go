// Package must wraps cleanup calls whose error return has nowhere useful to
// go - an operation already succeeding or failing on its own terms shouldn't
// be overridden by, say, a close failing on the way out - but that error is
// still worth a warning rather than silent loss.
package must

import (
	"io"

	"github.com/mutagen-io/librsync/pkg/logging"
)

// Close closes c, logging a warning if it fails.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("Unable to close: %s", err.Error())
	}
}
