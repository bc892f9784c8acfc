// Package memstore is an in-memory Store, analogous to the teacher
// repository's storage.Testkit in-memory benchmarking path: a fast,
// dependency-free reference implementation of store.Store that exercises
// exactly the same role/position/detail rules as the Postgres and Mongo
// backends, without needing a database. It is meant for unit tests of
// callers of store.Store, and for this module's own property tests (P1-P8)
// where spinning up a real backend would only add latency, not coverage.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/store"
	"github.com/scabbardhq/consensus-store/twopc"
)

type key struct {
	serviceID ids.ServiceId
	epoch     ids.Epoch
}

// Store is a single-process, mutex-guarded implementation of store.Store.
// It is safe for concurrent use; the compare-and-increment on position is
// done under the same lock that guards the whole map, which is a stronger
// (not weaker) guarantee than the spec requires of a real backend.
type Store struct {
	mu         sync.Mutex
	contexts   map[key]store.Context
	records    map[key][]*store.EventRecord
	nextEvent  int64
	closedOnce sync.Once
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		contexts: make(map[key]store.Context),
		records:  make(map[key][]*store.EventRecord),
	}
}

func k(serviceID ids.ServiceId, epoch ids.Epoch) key {
	return key{serviceID: serviceID, epoch: epoch}
}

// PutContext implements store.ContextStore.
func (s *Store) PutContext(_ context.Context, c store.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contexts[k(c.ServiceID, c.Epoch)]
	if ok {
		if existing.Role != c.Role {
			return store.InvalidState(
				"failed to put context, contexts found for participant and coordinator with service_id: %s epoch: %d",
				c.ServiceID, c.Epoch)
		}
		return nil // idempotent placement of the same role
	}
	s.contexts[k(c.ServiceID, c.Epoch)] = c
	return nil
}

// GetContext implements store.ContextStore.
func (s *Store) GetContext(_ context.Context, serviceID ids.ServiceId, epoch ids.Epoch) (*store.Context, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contexts[k(serviceID, epoch)]
	if !ok {
		return nil, false, nil
	}
	cp := c
	return &cp, true, nil
}

// AppendEvent implements store.EventStore.
func (s *Store) AppendEvent(_ context.Context, serviceID ids.ServiceId, epoch ids.Epoch, event twopc.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contexts[k(serviceID, epoch)]
	if !ok {
		return 0, store.InvalidState(
			"failed to add consensus event, a context with service_id: %s and epoch: %d does not exist",
			serviceID, epoch)
	}

	if _, err := store.BuildDetail(c.Role, event); err != nil {
		return 0, err
	}

	recs := s.records[k(serviceID, epoch)]
	position := int64(len(recs) + 1)
	s.nextEvent++
	rec := &store.EventRecord{
		EventID:   s.nextEvent,
		ServiceID: serviceID,
		Epoch:     epoch,
		Position:  position,
		Event:     event,
	}
	s.records[k(serviceID, epoch)] = append(recs, rec)
	return rec.EventID, nil
}

// ListEvents implements store.EventStore.
func (s *Store) ListEvents(_ context.Context, serviceID ids.ServiceId, epoch ids.Epoch, filter store.ListFilter) ([]store.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.EventRecord
	for _, r := range s.records[k(serviceID, epoch)] {
		if !matchesFilter(*r, filter) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

// ListAllEvents implements store.EventStore.
func (s *Store) ListAllEvents(_ context.Context, serviceID ids.ServiceId, filter store.ListFilter) ([]store.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.EventRecord
	for kk, recs := range s.records {
		if kk.serviceID != serviceID {
			continue
		}
		for _, r := range recs {
			if !matchesFilter(*r, filter) {
				continue
			}
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Epoch != out[j].Epoch {
			return out[i].Epoch < out[j].Epoch
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func matchesFilter(r store.EventRecord, filter store.ListFilter) bool {
	switch filter {
	case store.FilterPendingOnly:
		return r.Pending()
	case store.FilterExecutedOnly:
		return !r.Pending()
	default:
		return true
	}
}

// MarkExecuted implements store.EventStore.
func (s *Store) MarkExecuted(_ context.Context, eventID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, recs := range s.records {
		for _, r := range recs {
			if r.EventID != eventID {
				continue
			}
			if r.ExecutedAt != nil {
				return store.InvalidState("event %d has already been marked executed", eventID)
			}
			t := at
			r.ExecutedAt = &t
			return nil
		}
	}
	return store.InvalidState("event %d does not exist", eventID)
}
