// Package operation defines the descriptor types for schedulable work:
// priorities, resource requirements, capacity ceilings, and the Operation
// descriptor the scheduler and middleware act on.
package operation

import (
	"time"

	"github.com/fastmcp-me/mcp-image/id"
)

// Priority orders waiting operations. Higher values are admitted first.
type Priority int

const (
	// PriorityLow is for background or speculative work.
	PriorityLow Priority = 0
	// PriorityNormal is the default for pipeline operations.
	PriorityNormal Priority = 1
	// PriorityHigh is for interactive, user-blocking operations.
	PriorityHigh Priority = 2
)

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}

// Operation describes a unit of work submitted to the scheduler. The
// callable itself is passed separately to Run; the descriptor carries
// everything the scheduler, middleware, and hooks need to know about it.
type Operation struct {
	ID           id.OperationID `json:"id"`
	Name         string         `json:"name"`
	Priority     Priority       `json:"priority"`
	Requirements Requirements   `json:"requirements"`
	SessionID    id.SessionID   `json:"session_id,omitzero"`
	Timeout      time.Duration  `json:"timeout,omitempty"`
	EnqueuedAt   time.Time      `json:"enqueued_at,omitzero"`
}

// New creates an Operation descriptor with a fresh ID and the given name,
// requirements, and priority.
func New(name string, req Requirements, prio Priority) *Operation {
	return &Operation{
		ID:           id.NewOperationID(),
		Name:         name,
		Priority:     prio,
		Requirements: req,
	}
}
