package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// Aggregator runs one aggregation pass over a read-only state.
type Aggregator interface {
	Aggregate(ctx context.Context, state *entity.State) entity.PortfolioSnapshot
}

// SnapshotSource exposes the most recent snapshot, if any.
type SnapshotSource interface {
	LastSnapshot() (entity.PortfolioSnapshot, bool)
}
