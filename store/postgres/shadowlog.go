package postgres

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/tidwall/wal"

	"github.com/scabbardhq/consensus-store/ids"
	"github.com/scabbardhq/consensus-store/twopc"
)

// shadowLog mirrors every committed event header to a local append-only
// log, independent of the Postgres connection. It exists purely for
// operator diagnostics (e.g. comparing a replica's shadow log against the
// database after a suspected split-brain) and is never read back by
// AppendEvent/ListEvents; the database remains the single source of truth.
// This is an additive enrichment over the spec, not a requirement of it.
type shadowLog struct {
	mu  sync.Mutex // serializes LastIndex+Write across (service_id, epoch) keys
	log *wal.Log
}

type shadowEntry struct {
	ServiceID ids.ServiceId  `json:"service_id"`
	Epoch     ids.Epoch      `json:"epoch"`
	Position  int64          `json:"position"`
	EventID   int64          `json:"event_id"`
	EventType twopc.EventType `json:"event_type"`
}

func openShadowLog(dir string) (*shadowLog, error) {
	l, err := wal.Open(dir, wal.DefaultOptions)
	if err != nil {
		return nil, err
	}
	return &shadowLog{log: l}, nil
}

// append writes one entry for a freshly committed event. It is best-effort:
// callers log and continue on failure rather than aborting the commit that
// already happened in Postgres.
func (s *shadowLog) append(serviceID ids.ServiceId, epoch ids.Epoch, position, eventID int64, eventType twopc.EventType) error {
	entry := shadowEntry{
		ServiceID: serviceID,
		Epoch:     epoch,
		Position:  position,
		EventID:   eventID,
		EventType: eventType,
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.log.LastIndex()
	if err != nil {
		return err
	}
	return s.log.Write(idx+1, b)
}

func (s *shadowLog) Close() error {
	return s.log.Close()
}
