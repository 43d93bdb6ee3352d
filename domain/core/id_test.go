package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID_IsTimeOrderedUUID(t *testing.T) {
	seen := make(map[RunID]bool)
	for i := 0; i < 1000; i++ {
		id := NewRunID()
		require.False(t, ID(id).IsEmpty())
		require.False(t, seen[id], "duplicate run id %s", id)
		seen[id] = true

		parsed, err := uuid.Parse(id.String())
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
	}
}

func TestParseClaimID(t *testing.T) {
	tests := []struct {
		in      string
		want    ClaimID
		wantErr bool
	}{
		{"C-1001", "C-1001", false},
		{"  C-1002 ", "C-1002", false},
		{"", "", true},
		{"   ", "", true},
	}
	for _, tt := range tests {
		got, err := ParseClaimID(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrValidation, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseRunID(t *testing.T) {
	id := NewRunID()
	got, err := ParseRunID(" " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseRunID("")
	assert.Error(t, err)
}
