package store

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const (
	// Finished jobs are kept around long enough for the operator to read the
	// failure list and resubmit, then evicted so memory stays bounded.
	DefaultJobTTL = 24 * time.Hour
	DefaultJobMax = 500
)

// Janitor periodically evicts terminal jobs from a JobStore.
type Janitor struct {
	store    *JobStore
	ttl      time.Duration
	max      int
	interval time.Duration
	log      zerolog.Logger
}

func NewJanitor(store *JobStore, ttl time.Duration, max int, interval time.Duration, log zerolog.Logger) *Janitor {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	if max <= 0 {
		max = DefaultJobMax
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{store: store, ttl: ttl, max: max, interval: interval, log: log}
}

// Run sweeps until ctx is done.
func (jn *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(jn.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := jn.store.Prune(now, jn.ttl, jn.max); removed > 0 {
				jn.log.Debug().Int("removed", removed).Int("retained", jn.store.Len()).Msg("pruned finished jobs")
			}
		}
	}
}

// Prune removes terminal jobs older than ttl, then enforces max by dropping
// the oldest terminal jobs. Running jobs are never evicted.
func (s *JobStore) Prune(now time.Time, ttl time.Duration, max int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.jobs {
		e.mu.Lock()
		done := e.job.CompletedAt
		e.mu.Unlock()
		if done != nil && now.Sub(*done) > ttl {
			delete(s.jobs, id)
			removed++
		}
	}

	if len(s.jobs) <= max {
		return removed
	}

	type cand struct {
		id string
		t  time.Time
	}
	cands := make([]cand, 0, len(s.jobs))
	for id, e := range s.jobs {
		e.mu.Lock()
		done := e.job.CompletedAt
		e.mu.Unlock()
		if done != nil {
			cands = append(cands, cand{id: id, t: *done})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].t.Before(cands[j].t) })

	excess := len(s.jobs) - max
	for i := 0; i < excess && i < len(cands); i++ {
		delete(s.jobs, cands[i].id)
		removed++
	}
	return removed
}
