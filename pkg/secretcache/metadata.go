package secretcache

import (
	"encoding/json"
	"time"
)

// RotationMetadata is the rotation schedule cached beside a payload. It holds
// no sensitive values and is stored unencrypted.
type RotationMetadata struct {
	RotationEnabled bool
	NextRotation    *time.Time
	LastRotated     *time.Time
	LastChecked     time.Time
}

// RotationStatus summarizes where a secret sits relative to its rotation date.
type RotationStatus string

const (
	StatusUntracked RotationStatus = "untracked"
	StatusScheduled RotationStatus = "scheduled"
	StatusInBuffer  RotationStatus = "in_buffer"
	StatusOverdue   RotationStatus = "overdue"
)

// Status reports the rotation status at now for the given buffer window.
func (m RotationMetadata) Status(now time.Time, buffer time.Duration) RotationStatus {
	if m.NextRotation == nil || m.NextRotation.IsZero() {
		return StatusUntracked
	}
	switch {
	case now.Before(m.NextRotation.Add(-buffer)):
		return StatusScheduled
	case now.Before(*m.NextRotation):
		return StatusInBuffer
	default:
		return StatusOverdue
	}
}

// metadataDocument is the stored form of RotationMetadata. Timestamps are
// RFC 3339 strings so that other readers of the cache can consume them.
type metadataDocument struct {
	RotationEnabled bool   `json:"rotation_enabled"`
	NextRotation    string `json:"next_rotation,omitempty"`
	LastRotated     string `json:"last_rotated,omitempty"`
	LastChecked     string `json:"last_checked,omitempty"`
}

func encodeMetadata(m RotationMetadata) ([]byte, error) {
	doc := metadataDocument{
		RotationEnabled: m.RotationEnabled,
		NextRotation:    formatTimestamp(m.NextRotation),
		LastRotated:     formatTimestamp(m.LastRotated),
	}
	if !m.LastChecked.IsZero() {
		doc.LastChecked = m.LastChecked.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(doc)
}

// decodeMetadata parses a stored metadata document. A timestamp that cannot
// be parsed decodes as absent; only a document that is not JSON is an error.
func decodeMetadata(data []byte) (RotationMetadata, error) {
	var doc metadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return RotationMetadata{}, err
	}
	m := RotationMetadata{
		RotationEnabled: doc.RotationEnabled,
		NextRotation:    parseTimestamp(doc.NextRotation),
		LastRotated:     parseTimestamp(doc.LastRotated),
	}
	if t := parseTimestamp(doc.LastChecked); t != nil {
		m.LastChecked = *t
	}
	return m, nil
}

func formatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

// metadataFromDescription stamps a remote description with the check time.
func metadataFromDescription(d RemoteDescription, now time.Time) RotationMetadata {
	return RotationMetadata{
		RotationEnabled: d.RotationEnabled,
		NextRotation:    d.NextRotation,
		LastRotated:     d.LastRotated,
		LastChecked:     now,
	}
}
