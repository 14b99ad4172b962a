package types

import (
	"sync"
)

// StateMap wraps sync.Map with type safety
// maps pathway key -> latest PathwayState
type StateMap struct {
	Mu       sync.Mutex
	internal sync.Map
}

// PathwayState is the last reported outcome of one pathway, served by the status API.
type PathwayState struct {
	Pathway string `json:"pathway"`
	From    EID    `json:"from"`
	To      EID    `json:"to"`
	Status  string `json:"status"`
	Writes  int    `json:"writes"`
	Error   string `json:"error,omitempty"`
	Updated int64  `json:"updated"`
}

func NewStateMap() *StateMap {
	return &StateMap{
		Mu:       sync.Mutex{},
		internal: sync.Map{},
	}
}

// Load loads the state of a pathway
func (sm *StateMap) Load(key string) (value *PathwayState, ok bool) {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()

	internalResult, ok := sm.internal.Load(key)
	if !ok {
		return nil, ok
	}
	return internalResult.(*PathwayState), ok
}

func (sm *StateMap) Delete(key string) {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()

	sm.internal.Delete(key)
}

// Store stores the state of a pathway
func (sm *StateMap) Store(key string, value *PathwayState) {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()

	sm.internal.Store(key, value)
}

// All returns a snapshot of every stored pathway state.
func (sm *StateMap) All() []*PathwayState {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()

	var out []*PathwayState
	sm.internal.Range(func(_, v any) bool {
		out = append(out, v.(*PathwayState))
		return true
	})
	return out
}
