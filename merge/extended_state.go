/*
 * Copyright 2017-2022 Provide Technologies Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package merge

import (
	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/state"
)

// ExtendedState collects the contributions of every merged view to a single state id,
// keyed by view key
type ExtendedState struct {
	States map[string]*state.State `json:"states"`
}

// NewExtendedState initializes an empty extended state
func NewExtendedState() *ExtendedState {
	return &ExtendedState{
		States: map[string]*state.State{},
	}
}

// Add stores a copy of the state contributed by the given view; an existing entry for
// the same view key is never overwritten. Returns false if the entry already existed.
func (e *ExtendedState) Add(viewKey string, st *state.State) bool {
	if _, ok := e.States[viewKey]; ok {
		return false
	}
	e.States[viewKey] = st.Copy()
	return true
}

// State returns the state contributed by the given view, or nil
func (e *ExtendedState) State(viewKey string) *state.State {
	return e.States[viewKey]
}

// Remove drops the contribution of the given view
func (e *ExtendedState) Remove(viewKey string) {
	delete(e.States, viewKey)
}

// ViewKeys returns the keys of every contributing view in ascending order
func (e *ExtendedState) ViewKeys() []string {
	return common.SortedKeys(e.States)
}

// Len returns the number of contributing views
func (e *ExtendedState) Len() int {
	return len(e.States)
}
