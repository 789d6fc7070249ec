package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/desertthunder/lbsync/internal/models"
)

// Fingerprint returns the hex SHA-256 of the event's canonical JSON form.
//
// Only what the user did goes in: kind, date, source reference and payload.
// The destination id and media type are excluded so resolving an event never changes its identity.
// encoding/json writes map keys in sorted order, which makes the serialization canonical.
func Fingerprint(ev *models.Event) string {
	var payload map[string]any
	if ev.Payload() != nil {
		payload = ev.Payload().Fields()
	}

	doc := map[string]any{
		"kind":             string(ev.Kind()),
		"source_reference": ev.Reference(),
		"date":             ev.Date(),
		"payload":          payload,
	}

	// Payload values are strings and finite floats, so Marshal cannot fail.
	data, _ := json.Marshal(doc)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
