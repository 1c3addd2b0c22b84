package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
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

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Short returns the first 12 hex characters for display
func (h Hash) Short() string {
	if len(h) < 12 {
		return string(h)
	}
	return string(h[:12])
}

// Domain-specific hash types
type (
	CohortHash     Hash
	RunFingerprint Hash
)

// Constructors
func NewCohortHash(data []byte) CohortHash         { return CohortHash(NewHash(data)) }
func NewRunFingerprint(data []byte) RunFingerprint { return RunFingerprint(NewHash(data)) }

// String conversions
func (h CohortHash) String() string     { return Hash(h).String() }
func (h RunFingerprint) String() string { return Hash(h).String() }

// Display forms
func (h CohortHash) Short() string     { return Hash(h).Short() }
func (h RunFingerprint) Short() string { return Hash(h).Short() }

// ComputeCohortHash fingerprints a cleaned cohort: its column keys (sorted),
// row count, and the resolved signal column. Identical inputs always hash
// identically regardless of column discovery order.
func ComputeCohortHash(columnKeys []ColumnKey, rowCount int, signalColumn ColumnKey) CohortHash {
	keys := make([]string, 0, len(columnKeys))
	for _, k := range columnKeys {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString("|")
	}
	data.WriteString(fmt.Sprintf("rows=%d", rowCount))
	data.WriteString("|signal=")
	data.WriteString(signalColumn.String())

	return NewCohortHash([]byte(data.String()))
}

// ComputeRunFingerprint fingerprints a study run: cohort hash, seed, and the
// ordered list of stage names.
func ComputeRunFingerprint(cohort CohortHash, seed int64, stageNames []string) RunFingerprint {
	var data strings.Builder
	data.WriteString(cohort.String())
	data.WriteString(fmt.Sprintf("|seed=%d", seed))
	for _, name := range stageNames {
		data.WriteString("|")
		data.WriteString(name)
	}
	return NewRunFingerprint([]byte(data.String()))
}
