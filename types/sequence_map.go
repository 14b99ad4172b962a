package types

import (
	"sync"
)

// SequenceMap holds a signer account's txn count per chain to avoid nonce mismatch errors
// when several pathways on the same chain are written concurrently.
type SequenceMap struct {
	mu sync.Mutex
	// map eid -> signer account nonce
	sequenceMap map[EID]uint64
}

func NewSequenceMap() *SequenceMap {
	return &SequenceMap{
		sequenceMap: map[EID]uint64{},
	}
}

func (m *SequenceMap) Put(eid EID, val uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequenceMap[eid] = val
}

func (m *SequenceMap) Next(eid EID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.sequenceMap[eid]
	m.sequenceMap[eid]++
	return result
}
