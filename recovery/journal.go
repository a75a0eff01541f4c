package recovery

import (
	"sync"
	"time"

	"github.com/fastmcp-me/mcp-image/id"
)

// Entry records a failure that escalated or failed safe, kept for
// inspection. Entries live only in memory; the journal is a bounded ring,
// oldest entries are evicted first.
type Entry struct {
	ID         id.FailureID    `json:"id"`
	Operation  string          `json:"operation"`
	Stage      ProcessingStage `json:"stage"`
	SessionID  id.SessionID    `json:"session_id,omitzero"`
	Code       Code            `json:"code"`
	Action     Action          `json:"action"`
	Message    string          `json:"message"`
	RetryCount int             `json:"retry_count"`
	FailedAt   time.Time       `json:"failed_at"`
}

// Journal is a bounded in-memory record of unrecovered failures. It is
// safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

// NewJournal creates a Journal holding at most max entries. A max of
// zero or less disables recording.
func NewJournal(max int) *Journal {
	return &Journal{max: max}
}

// Record appends a failure entry, evicting the oldest when full.
func (j *Journal) Record(ectx ErrorContext, ce ClassifiedError, action Action) Entry {
	entry := Entry{
		ID:         id.NewFailureID(),
		Operation:  ectx.Operation,
		Stage:      ectx.Stage,
		SessionID:  ectx.SessionID,
		Code:       ce.Code,
		Action:     action,
		Message:    ce.Message,
		RetryCount: ectx.RetryCount,
		FailedAt:   time.Now().UTC(),
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.max <= 0 {
		return entry
	}
	if len(j.entries) >= j.max {
		j.entries = j.entries[1:]
	}
	j.entries = append(j.entries, entry)
	return entry
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n > len(j.entries) {
		n = len(j.entries)
	}
	out := make([]Entry, n)
	for i := range n {
		out[i] = j.entries[len(j.entries)-1-i]
	}
	return out
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}
