// Package ptr provides utility functions for working with pointers.
package ptr

// Of returns a pointer to the given value. Handy for building sparse
// patch structs.
func Of[T any](v T) *T { return &v }
