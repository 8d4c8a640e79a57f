package auth

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// HasherConfig tunes the bcrypt pool
type HasherConfig struct {
	// Cost is the bcrypt work factor. Values below MinPasswordHashCost are raised.
	Cost int
	// Concurrency caps simultaneous hash operations. Defaults to the CPU count.
	Concurrency int
}

// Hasher runs bcrypt through a bounded pool so a burst of signups or
// logins cannot take every core.
type Hasher struct {
	sem       *semaphore.Weighted
	cost      int
	dummyOnce sync.Once
	dummyHash string
}

var _ PasswordHasher = (*Hasher)(nil)

func NewHasher(cfg HasherConfig) *Hasher {
	cost := cfg.Cost
	if cost <= 0 {
		cost = passwordHashCost()
	}
	if cost < MinPasswordHashCost {
		cost = MinPasswordHashCost
	}

	workers := cfg.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Hasher{
		sem:  semaphore.NewWeighted(int64(workers)),
		cost: cost,
	}
}

func (h *Hasher) Cost() int {
	return h.cost
}

func (h *Hasher) HashPassword(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	return hashPasswordWithCost(password, h.cost)
}

func (h *Hasher) ComparePasswordAndHash(ctx context.Context, password, hash string) error {
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.sem.Release(1)

	return ComparePasswordAndHash(password, hash)
}

// CompareDummy spends one comparison on a throwaway hash so lookups for
// unknown accounts take as long as real ones.
func (h *Hasher) CompareDummy(ctx context.Context, password string) {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = hashPasswordWithCost("not-a-real-password", h.cost)
	})
	_ = h.ComparePasswordAndHash(ctx, password, h.dummyHash)
}

func (h *Hasher) acquire(ctx context.Context) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return ToTemporaryFailure(err)
	}
	return nil
}
