package store

import (
	"time"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/twopc"
)

// EventRecord is the persisted form of an Event (spec §3, "EventRecord").
type EventRecord struct {
	EventID    int64
	ServiceID  ids.ServiceId
	Epoch      ids.Epoch
	Position   int64
	Event      twopc.Event
	ExecutedAt *time.Time
}

// Pending reports whether the record has not yet been consumed by the
// state machine (executed_at IS NULL).
func (r EventRecord) Pending() bool {
	return r.ExecutedAt == nil
}

// ListFilter selects which subset of a (service_id, epoch)'s events
// list_events should return (spec §4.4).
type ListFilter int

const (
	FilterAll ListFilter = iota
	FilterPendingOnly
	FilterExecutedOnly
)
