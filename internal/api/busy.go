package api

import "golang.org/x/sync/semaphore"

// contractGuards enforces the disable-while-pending model: at most one
// in-flight request per contract type. A second request while one is
// outstanding is rejected at the trigger, never queued or coalesced.
// Each contract type has an independent flag: extraction and audit may
// be in flight simultaneously.
type contractGuards struct {
	extract *semaphore.Weighted
	audit   *semaphore.Weighted
	draft   *semaphore.Weighted
}

func newContractGuards() *contractGuards {
	return &contractGuards{
		extract: semaphore.NewWeighted(1),
		audit:   semaphore.NewWeighted(1),
		draft:   semaphore.NewWeighted(1),
	}
}

// tryAcquire flips the busy flag, reporting false when a request is
// already in flight. The caller must release on every path.
func tryAcquire(g *semaphore.Weighted) bool { return g.TryAcquire(1) }

func release(g *semaphore.Weighted) { g.Release(1) }
