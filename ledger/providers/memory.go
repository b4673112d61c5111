package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/provideplatform/bungee/state"
)

// MemoryProvider serves copies of states held in memory
type MemoryProvider struct {
	mutex  sync.RWMutex
	states map[string]*state.State
}

// InitMemoryProvider initializes a memory provider holding the given states
func InitMemoryProvider(states ...*state.State) (*MemoryProvider, error) {
	p := &MemoryProvider{
		states: map[string]*state.State{},
	}
	for _, st := range states {
		if err := p.Put(st); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Put stores a copy of the given state, replacing any state with the same id
func (p *MemoryProvider) Put(st *state.State) error {
	if st == nil {
		return fmt.Errorf("failed to store nil state")
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("failed to store state; %s", err.Error())
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.states[st.ID] = st.Copy()
	return nil
}

// FetchStates returns copies of the requested states; unknown ids are skipped
func (p *MemoryProvider) FetchStates(ctx context.Context, stateIDs []string, details *NetworkDetails) (map[string]*state.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mutex.RLock()
	defer p.mutex.RUnlock()

	states := map[string]*state.State{}
	if len(stateIDs) == 0 {
		for id, st := range p.states {
			states[id] = st.Copy()
		}
		return states, nil
	}

	for _, id := range stateIDs {
		if st, ok := p.states[id]; ok {
			states[id] = st.Copy()
		}
	}
	return states, nil
}
