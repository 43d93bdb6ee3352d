package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSteps_CreateEveryTable(t *testing.T) {
	var all strings.Builder
	for _, s := range Steps() {
		require.NotEmpty(t, s.Name)
		all.WriteString(s.SQL)
	}
	for _, table := range []string{"claims", "simulation_runs", "simulation_claim_summaries", "simulation_trial_totals"} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestSteps_Idempotent(t *testing.T) {
	for _, s := range Steps() {
		for _, stmt := range strings.Split(s.SQL, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			assert.Contains(t, stmt, "IF NOT EXISTS", s.Name)
		}
	}
}

func TestSteps_RunTablesBeforeChildren(t *testing.T) {
	index := map[string]int{}
	for i, s := range Steps() {
		index[s.Name] = i
	}
	assert.Less(t, index["create simulation_runs table"], index["create simulation_claim_summaries table"])
	assert.Less(t, index["create simulation_runs table"], index["create simulation_trial_totals table"])
}

func TestNewRunner(t *testing.T) {
	r := NewRunner()
	assert.Equal(t, "1.0.0", r.Version())
	assert.Len(t, r.steps, len(Steps()))
}
