package roasts

import "context"

// Repo persists roast records.
type Repo interface {
	Insert(ctx context.Context, roast NewRoast) (Record, error)
	Count(ctx context.Context) (int64, error)
	Sample(ctx context.Context, n int) ([]Record, error)
	IncrementReaction(ctx context.Context, id string, reaction Reaction) (Record, error)
}

func clampSample(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxSample {
		return MaxSample
	}
	return n
}
