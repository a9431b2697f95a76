package patient

import (
	"strings"
	"time"
)

// Table is the remote collection patient mutations target.
const Table = "patients"

// Patient is one rounding card: the census entry plus its working note.
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Room      string    `json:"room,omitempty"`
	MRN       string    `json:"mrn,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Note      string    `json:"note,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Payload returns the open field map sent to the remote store. Server-assigned
// fields (id, updated_at) are omitted.
func (p *Patient) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"name": p.Name,
	}
	if p.Room != "" {
		payload["room"] = p.Room
	}
	if p.MRN != "" {
		payload["mrn"] = p.MRN
	}
	if p.Summary != "" {
		payload["summary"] = p.Summary
	}
	if p.Note != "" {
		payload["note"] = p.Note
	}
	return payload
}

// FromPayload builds a Patient from an open field map.
func FromPayload(id string, payload map[string]interface{}) *Patient {
	p := &Patient{ID: id}
	if v, ok := payload["name"].(string); ok {
		p.Name = v
	}
	if v, ok := payload["room"].(string); ok {
		p.Room = v
	}
	if v, ok := payload["mrn"].(string); ok {
		p.MRN = v
	}
	if v, ok := payload["summary"].(string); ok {
		p.Summary = v
	}
	if v, ok := payload["note"].(string); ok {
		p.Note = v
	}
	return p
}

// ValidatePayload checks a create payload for the patients table. Updates are
// partial field sets and are not validated beyond field types.
func ValidatePayload(payload map[string]interface{}) error {
	name, ok := payload["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	return nil
}
