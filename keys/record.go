package keys

import "time"

// Status is the lifecycle state of a key record. The state machine per record
// is active -> deprecated; deprecated is terminal.
type Status string

const (
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
)

// KeyRecord is one persisted key version within a family.
type KeyRecord struct {
	KeyID      string `json:"key_id"`
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
	// Fingerprint is a short sha3-256 digest of the public key, for logs and
	// operator tooling.
	Fingerprint string `json:"fingerprint,omitempty"`
	Status      Status `json:"status"`
	// Version increases monotonically across rotations within a family.
	Version int `json:"version"`
	// PreviousKeyID backlinks to the record this one superseded.
	PreviousKeyID string            `json:"previous_key_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	DeprecatedAt  *time.Time        `json:"deprecated_at,omitempty"`
	LastUsedAt    *time.Time        `json:"last_used_at,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy so storage backends never share mutable state
// with callers.
func (r *KeyRecord) Clone() *KeyRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.DeprecatedAt != nil {
		ts := *r.DeprecatedAt
		out.DeprecatedAt = &ts
	}
	if r.LastUsedAt != nil {
		ts := *r.LastUsedAt
		out.LastUsedAt = &ts
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
