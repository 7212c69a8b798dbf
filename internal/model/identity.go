package model

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// IdentitySize is the length in bytes of a player identity.
const IdentitySize = 16

// Identity uniquely identifies a player principal. It is stable for a
// registered account and ephemeral for anonymous connections, where the
// store mints a fresh one per session.
type Identity [IdentitySize]byte

// NewIdentity mints a random identity.
func NewIdentity() Identity {
	return Identity(uuid.New())
}

// ParseIdentity decodes an identity from its hex form.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid identity: %w", err)
	}
	if len(b) != IdentitySize {
		return id, fmt.Errorf("invalid identity: expected %d bytes, got %d", IdentitySize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Hex returns the full hex encoding of the identity.
func (id Identity) Hex() string {
	return hex.EncodeToString(id[:])
}

// Short returns a truncated hex form suitable for display when a player
// has not set a name.
func (id Identity) Short() string {
	return id.Hex()[:8]
}

// IsZero reports whether the identity is the zero value.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) String() string {
	return id.Hex()
}

// MarshalJSON encodes the identity as a hex string.
func (id Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

// UnmarshalJSON decodes the identity from a hex string.
func (id *Identity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseIdentity(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
