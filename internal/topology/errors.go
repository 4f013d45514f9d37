package topology

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when a node id does not exist
	ErrNodeNotFound = errors.New("node not found")
	// ErrLinkNotFound is returned when a link id does not exist
	ErrLinkNotFound = errors.New("link not found")
	// ErrRejectedSelection is the cause of a port selection that cannot be used
	ErrRejectedSelection = errors.New("rejected selection")
	// ErrInvalidTarget is returned when the target port is the source port itself
	ErrInvalidTarget = errors.New("invalid target")
	// ErrNoSource is returned when a target is chosen before a source port
	ErrNoSource = errors.New("no source port selected")
	// ErrParentCycle is returned when a parent assignment would create a cycle
	ErrParentCycle = errors.New("parent assignment creates a cycle")
	// ErrInvalidTopology is returned when hydration data breaks an invariant
	ErrInvalidTopology = errors.New("invalid topology")
)

// Rejection reasons reported to the editor
const (
	ReasonPortConnected = "port is already connected"
	ReasonPortDisabled  = "port is disabled"
	ReasonUnknownPort   = "port does not exist on device"
	ReasonSamePort      = "target port is the source port"
	ReasonSourceLost    = "source port is no longer available"
)

// SelectionError reports a port selection that did not change state
type SelectionError struct {
	NodeID string
	Port   string
	Reason string
	Err    error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("%s/%s: %s", e.NodeID, e.Port, e.Reason)
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}

func rejected(nodeID, port, reason string) *SelectionError {
	return &SelectionError{NodeID: nodeID, Port: port, Reason: reason, Err: ErrRejectedSelection}
}

// RejectionReason extracts the human-readable reason from a selection error.
// It returns the error text for other errors and "" for nil.
func RejectionReason(err error) string {
	if err == nil {
		return ""
	}
	var se *SelectionError
	if errors.As(err, &se) {
		return se.Reason
	}
	return err.Error()
}
