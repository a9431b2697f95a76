package todo

import (
	"strings"
	"time"
)

// Table is the remote collection todo mutations target.
const Table = "todos"

// Todo is a single task attached to a patient card.
type Todo struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Payload returns the open field map sent to the remote store.
func (t *Todo) Payload() map[string]interface{} {
	return map[string]interface{}{
		"patient_id": t.PatientID,
		"text":       t.Text,
		"done":       t.Done,
	}
}

// FromPayload builds a Todo from an open field map.
func FromPayload(id string, payload map[string]interface{}) *Todo {
	t := &Todo{ID: id}
	if v, ok := payload["patient_id"].(string); ok {
		t.PatientID = v
	}
	if v, ok := payload["text"].(string); ok {
		t.Text = v
	}
	if v, ok := payload["done"].(bool); ok {
		t.Done = v
	}
	return t
}

// ValidatePayload checks a create payload for the todos table.
func ValidatePayload(payload map[string]interface{}) error {
	text, ok := payload["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return ErrTextRequired
	}
	if v, ok := payload["patient_id"].(string); !ok || v == "" {
		return ErrPatientRequired
	}
	return nil
}
