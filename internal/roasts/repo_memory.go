package roasts

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo stores roasts in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]*Record
	order []string
	now   func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]*Record),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Insert stores a new record with zeroed counters.
func (r *MemoryRepo) Insert(ctx context.Context, roast NewRoast) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	rec := Record{
		ID:            uuid.NewString(),
		OriginalText:  roast.OriginalText,
		RoastFeedback: roast.RoastFeedback,
		RoastType:     roast.RoastType,
		CreatedAt:     r.now(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = &rec
	r.order = append(r.order, rec.ID)
	return rec, nil
}

// Count returns the number of stored records.
func (r *MemoryRepo) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.order)), nil
}

// Sample returns up to n distinct records in random order.
func (r *MemoryRepo) Sample(ctx context.Context, n int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n = clampSample(n)
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := rand.Perm(len(r.order))
	if len(idx) > n {
		idx = idx[:n]
	}
	out := make([]Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, *r.byID[r.order[i]])
	}
	return out, nil
}

// IncrementReaction bumps one counter under the write lock.
func (r *MemoryRepo) IncrementReaction(ctx context.Context, id string, reaction Reaction) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if _, err := reaction.column(); err != nil {
		return Record{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	switch reaction {
	case ReactionFire:
		rec.FireCount++
	case ReactionLaugh:
		rec.LaughCount++
	case ReactionThinking:
		rec.ThinkingCount++
	}
	return *rec, nil
}
