// Package random generates cryptographically random byte slices, used by
// tests that need a reproducible-sized but unpredictable basis buffer.
package random

import (
	"crypto/rand"
	"fmt"
)

// CollisionResistantLength is a byte length long enough that two
// independently generated values are computationally infeasible to collide.
const CollisionResistantLength = 32

// New returns a byte slice of the specified length with cryptographically
// random contents.
func New(length int) ([]byte, error) {
	// Create the buffer.
	result := make([]byte, length)

	// Read random data.
	if _, err := rand.Read(result[:]); err != nil {
		return nil, fmt.Errorf("unable to read random data: %w", err)
	}

	// Success.
	return result, nil
}
