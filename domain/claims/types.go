package claims

import (
	"fmt"
	"strings"

	"claimsim/domain/core"
)

// Status is the open/closed state of a claim at an evaluation age
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ParseStatus accepts the common spellings found in claim extracts
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "o", "open", "opened", "reopened", "1", "true":
		return StatusOpen, nil
	case "c", "closed", "close", "0", "false":
		return StatusClosed, nil
	}
	return "", fmt.Errorf("unrecognized claim status %q", s)
}

func (s Status) IsOpen() bool   { return s == StatusOpen }
func (s Status) IsClosed() bool { return s == StatusClosed }

// Indicator returns 1 for open and 0 for closed
func (s Status) Indicator() float64 {
	if s == StatusOpen {
		return 1
	}
	return 0
}

// Label returns the capitalized form used in reports
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusClosed:
		return "Closed"
	}
	return string(s)
}

// Claim is one row of the claims table: a claim observed at an evaluation
// date and development age. FutureStatus and FuturePaidIncremental are only
// meaningful when HasActuals is set.
type Claim struct {
	ClaimID         core.ClaimID  `json:"claim_id"`
	EvalDate        core.EvalDate `json:"eval_date"`
	DevelopmentAge  int           `json:"development_age"`
	Status          Status        `json:"status"`
	CaseReserve     float64       `json:"case_reserve"`
	PaidIncremental float64       `json:"paid_incremental"`

	HasActuals            bool    `json:"has_actuals"`
	FutureStatus          Status  `json:"future_status,omitempty"`
	FuturePaidIncremental float64 `json:"future_paid_incremental,omitempty"`
}

// ClosedClosed reports whether the claim is closed at both ends of the
// period. It is false when actuals are unknown.
func (c Claim) ClosedClosed() bool {
	return c.HasActuals && c.Status.IsClosed() && c.FutureStatus.IsClosed()
}

// HasPayment reports whether the actual next-period payment is nonzero
func (c Claim) HasPayment() bool {
	return c.HasActuals && c.FuturePaidIncremental != 0
}

// Validate checks the fields the models read
func (c Claim) Validate() error {
	if core.ID(c.ClaimID).IsEmpty() {
		return core.NewValidationError("claim_id", "cannot be empty")
	}
	if c.Status != StatusOpen && c.Status != StatusClosed {
		return core.NewValidationError("status", fmt.Sprintf("claim %s has status %q", c.ClaimID, c.Status))
	}
	if c.DevelopmentAge < 0 {
		return core.NewValidationError("development_age", fmt.Sprintf("claim %s has negative age", c.ClaimID))
	}
	if c.HasActuals && c.FutureStatus != StatusOpen && c.FutureStatus != StatusClosed {
		return core.NewValidationError("future_status", fmt.Sprintf("claim %s has status %q", c.ClaimID, c.FutureStatus))
	}
	return nil
}

// IDs returns the claim identifiers in input order
func IDs(cs []Claim) []core.ClaimID {
	ids := make([]core.ClaimID, len(cs))
	for i, c := range cs {
		ids[i] = c.ClaimID
	}
	return ids
}
