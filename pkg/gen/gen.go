// Package gen provides utility functions for generating values.
package gen

import "github.com/google/uuid"

// ID generates a fresh random identifier. Two concurrent calls never
// collide, which makes it suitable for job and session ids.
func ID() string {
	return uuid.NewString()
}

// ShortID generates a short random identifier suitable for temp-file
// prefixes where full UUID length is just noise.
func ShortID() string {
	return uuid.NewString()[:8]
}
