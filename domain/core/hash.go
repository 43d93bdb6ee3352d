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

func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough to label a run
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// RunFingerprint identifies the inputs that determine a simulation's output.
// Two runs with the same fingerprint and the same fitted models produce
// identical trials.
type RunFingerprint Hash

func (f RunFingerprint) String() string { return Hash(f).String() }
func (f RunFingerprint) Short() string  { return Hash(f).Short() }

// ComputeRunFingerprint hashes seed, trial count and the claim set
func ComputeRunFingerprint(seed uint64, trials int, claimIDs []ClaimID) RunFingerprint {
	ids := make([]string, len(claimIDs))
	for i, id := range claimIDs {
		ids[i] = string(id)
	}
	sort.Strings(ids)

	var data strings.Builder
	data.WriteString(fmt.Sprintf("seed=%d;trials=%d;", seed, trials))
	for _, id := range ids {
		data.WriteString(id)
		data.WriteByte(';')
	}
	return RunFingerprint(NewHash([]byte(data.String())))
}
