// internal/browser/jsbind/errors.go
package jsbind

import "fmt"

// InvalidNodeError is thrown into scripts (as a TypeError) when a DOM method
// receives a value that is not a node wrapper owned by this bridge.
type InvalidNodeError struct {
	Op string
}

// Error implements the error interface.
func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("%s: argument is not a DOM node", e.Op)
}

// NewInvalidNodeError creates a new InvalidNodeError.
func NewInvalidNodeError(op string) *InvalidNodeError {
	return &InvalidNodeError{Op: op}
}

// HierarchyError is thrown when a tree mutation names a node in the wrong place.
type HierarchyError struct {
	Op      string
	Message string
}

// Error implements the error interface.
func (e *HierarchyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
