package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGraph is returned when a graph declaration is malformed
	ErrInvalidGraph = errors.New("invalid workflow graph")

	// ErrUndeclaredField is returned when a node sets a field it does not own
	ErrUndeclaredField = errors.New("patch sets undeclared field")
)

// NodeError reports a node that returned an error or panicked
type NodeError struct {
	Node  string
	Err   error
	Panic bool
}

func (e *NodeError) Error() string {
	if e.Panic {
		return fmt.Sprintf("node %s panicked: %v", e.Node, e.Err)
	}
	return fmt.Sprintf("node %s failed: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
