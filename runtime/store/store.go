package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sivanandareddychinta/PricingServiceDemo/pricing"
)

type snapshot map[string]pricing.Record

// Store holds the published last-value record per instrument. Reads load
// an immutable snapshot through an atomic pointer and therefore never
// block, regardless of batch activity. MergeBatch is the only mutator:
// it rebuilds the snapshot copy-on-write under a dedicated merge mutex
// and swaps it in atomically, so all keys touched by one batch become
// visible to readers together.
type Store struct {
	// mergeMu serializes MergeBatch calls against each other. It is scoped
	// to the merge routine only and is never shared with the batch
	// registry, keeping the two mutual-exclusion domains independent.
	mergeMu   sync.Mutex
	published atomic.Pointer[snapshot]
}

// New returns an empty store.
func New() *Store {
	s := &Store{}
	empty := make(snapshot)
	s.published.Store(&empty)
	return s
}

// Get returns the currently published record for the instrument, if any.
// It rejects an empty id and is otherwise error free; a read concurrent
// with a completion may observe the pre-merge or post-merge value but
// never a partially merged batch.
func (s *Store) Get(id string) (pricing.Record, bool, error) {
	if id == "" {
		return pricing.Record{}, false, fmt.Errorf("instrument id must not be empty: %w", pricing.ErrInvalidArgument)
	}
	current := *s.published.Load()
	record, ok := current[id]
	return record, ok, nil
}

// Count returns the number of distinct instruments currently published.
func (s *Store) Count() int {
	return len(*s.published.Load())
}

// MergeBatch folds a completed batch's records into the published map.
//
// The records are first reduced per instrument: only the record with the
// greatest as-of timestamp survives, and on an exact timestamp tie the
// record seen first in staging order wins. The reduced set is then merged
// against the published snapshot, replacing an entry only when the
// candidate's timestamp is strictly newer; ties favour the record that is
// already published. Published timestamps therefore never regress.
//
// An empty records slice is valid and leaves the store untouched.
func (s *Store) MergeBatch(records []pricing.Record) {
	if len(records) == 0 {
		return
	}

	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	reduced := reduce(records)

	current := *s.published.Load()
	next := make(snapshot, len(current)+len(reduced))
	for id, record := range current {
		next[id] = record
	}
	for id, candidate := range reduced {
		existing, ok := next[id]
		if !ok || candidate.AsOf().After(existing.AsOf()) {
			next[id] = candidate
		}
	}
	s.published.Store(&next)
}

// reduce collapses the staged sequence to one record per instrument,
// keeping the greatest as-of timestamp and breaking exact ties in favour
// of the earlier staged record.
func reduce(records []pricing.Record) map[string]pricing.Record {
	latest := make(map[string]pricing.Record, len(records))
	for _, record := range records {
		current, ok := latest[record.ID()]
		if !ok || record.AsOf().After(current.AsOf()) {
			latest[record.ID()] = record
		}
	}
	return latest
}
