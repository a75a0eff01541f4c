package operation

import (
	"fmt"

	mcpimage "github.com/fastmcp-me/mcp-image"
)

// Requirements declares the resources an operation consumes while running.
// The value is immutable once attached to a queued or running operation.
type Requirements struct {
	// MemoryBytes is the peak memory the operation needs.
	MemoryBytes int64 `json:"memory_bytes"`

	// CPUPercent is the CPU share the operation needs (0–100).
	CPUPercent float64 `json:"cpu_percent"`

	// NetworkBytesPerSec is the sustained bandwidth the operation needs.
	NetworkBytesPerSec int64 `json:"network_bytes_per_sec"`

	// Connections is the number of concurrent connections held open.
	Connections int `json:"connections"`
}

// Validate reports whether the requirements are well-formed: no dimension
// may be negative and CPU must not exceed 100.
func (r Requirements) Validate() error {
	if r.MemoryBytes < 0 || r.CPUPercent < 0 || r.NetworkBytesPerSec < 0 || r.Connections < 0 {
		return fmt.Errorf("%w: dimensions must not be negative", mcpimage.ErrInvalidRequirements)
	}
	if r.CPUPercent > 100 {
		return fmt.Errorf("%w: cpu percent %v exceeds 100", mcpimage.ErrInvalidRequirements, r.CPUPercent)
	}
	return nil
}

// Add returns the element-wise sum of two requirement sets.
func (r Requirements) Add(other Requirements) Requirements {
	return Requirements{
		MemoryBytes:        r.MemoryBytes + other.MemoryBytes,
		CPUPercent:         r.CPUPercent + other.CPUPercent,
		NetworkBytesPerSec: r.NetworkBytesPerSec + other.NetworkBytesPerSec,
		Connections:        r.Connections + other.Connections,
	}
}

// Capacity is the fixed process-wide resource ceiling the ledger enforces.
type Capacity struct {
	MemoryBytes        int64   `json:"memory_bytes"`
	CPUPercent         float64 `json:"cpu_percent"`
	NetworkBytesPerSec int64   `json:"network_bytes_per_sec"`
	MaxConnections     int     `json:"max_connections"`
}

// Validate reports whether every capacity dimension is positive.
func (c Capacity) Validate() error {
	if c.MemoryBytes <= 0 || c.CPUPercent <= 0 || c.NetworkBytesPerSec <= 0 || c.MaxConnections <= 0 {
		return fmt.Errorf("%w: every dimension must be positive", mcpimage.ErrInvalidCapacity)
	}
	return nil
}

// Fits reports whether total stays within the capacity in every dimension.
// Admission is all-or-nothing: one dimension over the ceiling fails the
// whole check.
func (c Capacity) Fits(total Requirements) bool {
	return total.MemoryBytes <= c.MemoryBytes &&
		total.CPUPercent <= c.CPUPercent &&
		total.NetworkBytesPerSec <= c.NetworkBytesPerSec &&
		total.Connections <= c.MaxConnections
}

// Scale returns requirements sized to the given fraction of capacity.
// Useful for tests and for callers that size work relative to the host.
func (c Capacity) Scale(fraction float64) Requirements {
	return Requirements{
		MemoryBytes:        int64(float64(c.MemoryBytes) * fraction),
		CPUPercent:         c.CPUPercent * fraction,
		NetworkBytesPerSec: int64(float64(c.NetworkBytesPerSec) * fraction),
		Connections:        int(float64(c.MaxConnections) * fraction),
	}
}
