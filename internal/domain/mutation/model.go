package mutation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of write a queued mutation performs.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// DefaultMaxRetries bounds automatic retries per queued mutation.
const DefaultMaxRetries = 3

// TempIDPrefix marks entity ids generated on the client for records that do
// not exist in the remote store yet.
const TempIDPrefix = "tmp_"

// QueuedMutation is a single pending write against a remote table. It is the
// durable record of unsynced intent: if the queue is lost, the write is lost.
type QueuedMutation struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	Operation      Operation              `json:"operation"`
	Table          string                 `json:"table"`
	Payload        map[string]interface{} `json:"payload"`
	EntityID       string                 `json:"entity_id,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	RetryCount     int                    `json:"retry_count"`
	MaxRetries     int                    `json:"max_retries"`
}

// Exhausted reports whether the mutation has used up its automatic retries.
// Exhausted entries stay queued until the user discards them.
func (m *QueuedMutation) Exhausted() bool {
	return m.RetryCount >= m.MaxRetries
}

// Describe returns a short human-readable label for progress display.
func (m *QueuedMutation) Describe() string {
	if m.EntityID != "" {
		return fmt.Sprintf("%s %s %s", m.Operation, m.Type, m.EntityID)
	}
	return fmt.Sprintf("%s %s", m.Operation, m.Type)
}

// Age returns how long the mutation has been waiting.
func (m *QueuedMutation) Age(now time.Time) time.Duration {
	return now.Sub(m.Timestamp)
}

// NewTempID generates a client-side entity id for records created offline.
func NewTempID() string {
	return TempIDPrefix + uuid.New().String()
}

// IsTempID reports whether id was generated by NewTempID and therefore does
// not exist in the remote store.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// SyncProgress is emitted after every processed entry during a drain run.
// Total is fixed at run start; entries enqueued mid-run wait for the next run.
type SyncProgress struct {
	Current   string `json:"current"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// SyncResult aggregates a drain run. Partial failure is an expected outcome,
// not an error.
type SyncResult struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Validate checks the fields that must be set before an enqueue.
func (m *QueuedMutation) Validate() error {
	if m.Table == "" {
		return ErrMissingTable
	}
	switch m.Operation {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return ErrInvalidOperation
	}
	if m.Operation != OpCreate && m.EntityID == "" {
		return ErrMissingEntityID
	}
	return nil
}
