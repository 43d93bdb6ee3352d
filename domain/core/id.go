package core

import (
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ClaimID ID
	RunID   ID
)

func (id ClaimID) String() string { return ID(id).String() }
func (id RunID) String() string   { return ID(id).String() }

// NewRunID creates a time-ordered simulation run identifier
func NewRunID() RunID {
	return RunID(NewID())
}

// ParseClaimID parses a string into ClaimID
func ParseClaimID(s string) (ClaimID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewValidationError("claim_id", "cannot be empty")
	}
	return ClaimID(s), nil
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewValidationError("run_id", "cannot be empty")
	}
	return RunID(s), nil
}
