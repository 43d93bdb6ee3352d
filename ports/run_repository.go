package ports

import (
	"context"

	"claimsim/domain/core"
	"claimsim/domain/simulation"
)

// RunRepository persists simulation summaries
type RunRepository interface {
	SaveRun(ctx context.Context, summary *simulation.Summary) error
	GetRun(ctx context.Context, id core.RunID) (*simulation.Summary, error)
	ListRuns(ctx context.Context, limit int) ([]*simulation.Summary, error)
}
