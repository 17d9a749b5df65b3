package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// ComputeRunFingerprint produces a deterministic fingerprint over the run
// configuration and the ordered view names, so a persisted run can be tied
// back to the exact inputs that produced it.
func ComputeRunFingerprint(label string, seed int64, parts ...string) Hash {
	var data strings.Builder
	data.WriteString(label)
	fmt.Fprintf(&data, "|%d", seed)
	for _, p := range parts {
		data.WriteString("|")
		data.WriteString(p)
	}
	return NewHash([]byte(data.String()))
}

// DeriveSeed derives a deterministic per-unit seed from a base seed and the
// unit's identity, e.g. (base, target, view, fold). Units seeded this way
// produce identical results independent of scheduling order or parallelism.
func DeriveSeed(base int64, parts ...string) int64 {
	var data strings.Builder
	fmt.Fprintf(&data, "%d", base)
	for _, p := range parts {
		data.WriteString("|")
		data.WriteString(p)
	}
	sum := sha256.Sum256([]byte(data.String()))
	derived := int64(binary.BigEndian.Uint64(sum[:8]))
	if derived < 0 {
		derived = -derived
	}
	return derived
}
