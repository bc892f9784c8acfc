package postgres

import (
	"sync"

	lock "github.com/viney-shih/go-lock"

	"github.com/scabbardhq/consensus-store/ids"
)

// keyLocks stripes a CASMutex per (service_id, epoch) ahead of the database
// transaction in AppendEvent. Postgres' SERIALIZABLE isolation already
// guarantees correctness without this, but taking the in-process lock first
// avoids burning a transaction retry on every contended append, the same
// tradeoff the teacher's locks package makes for its write paths.
type keyLocks struct {
	mu    sync.Mutex
	byKey map[lockKey]*lock.CASMutex
}

type lockKey struct {
	serviceID ids.ServiceId
	epoch     ids.Epoch
}

func newKeyLocks() *keyLocks {
	return &keyLocks{byKey: make(map[lockKey]*lock.CASMutex)}
}

func (l *keyLocks) acquire(serviceID ids.ServiceId, epoch ids.Epoch) func() {
	k := lockKey{serviceID: serviceID, epoch: epoch}

	l.mu.Lock()
	m, ok := l.byKey[k]
	if !ok {
		m = lock.NewCASMutex()
		l.byKey[k] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
