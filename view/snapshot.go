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

package view

import (
	"fmt"

	"github.com/provideplatform/bungee/state"
)

// Snapshot is a single participant's point-in-time capture of a set of states;
// TI and TF are always derived from the captured transactions
type Snapshot struct {
	ID          string         `json:"id"`
	Participant string         `json:"participant"`
	TI          int64          `json:"ti,string"`
	TF          int64          `json:"tf,string"`
	StateBins   []*state.State `json:"state_bins"`
}

// NewSnapshot initializes a snapshot over the given states and derives its time bounds
func NewSnapshot(id, participant string, states []*state.State) (*Snapshot, error) {
	if states == nil {
		states = make([]*state.State, 0)
	}
	snapshot := &Snapshot{
		ID:          id,
		Participant: participant,
		StateBins:   states,
	}
	if err := snapshot.UpdateTimeBounds(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// UpdateTimeBounds recomputes TI and TF as the min first and max last transaction
// timestamp over all states; both are zero when no state holds a transaction
func (s *Snapshot) UpdateTimeBounds() error {
	var tI, tF int64
	initialized := false

	for _, st := range s.StateBins {
		initial, ok, err := st.InitialTime()
		if err != nil {
			return fmt.Errorf("failed to derive time bounds of snapshot %s; %w", s.ID, err)
		}
		if !ok {
			continue
		}
		final, _, err := st.FinalTime()
		if err != nil {
			return fmt.Errorf("failed to derive time bounds of snapshot %s; %w", s.ID, err)
		}

		if !initialized {
			tI, tF = initial, final
			initialized = true
			continue
		}
		if initial < tI {
			tI = initial
		}
		if final > tF {
			tF = final
		}
	}

	s.TI = tI
	s.TF = tF
	return nil
}

// State returns the captured state with the given id, or nil
func (s *Snapshot) State(id string) *state.State {
	for _, st := range s.StateBins {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// RemoveState drops the state with the given id and recomputes the time bounds;
// removing an unknown id is a no-op
func (s *Snapshot) RemoveState(id string) error {
	states := make([]*state.State, 0, len(s.StateBins))
	for _, st := range s.StateBins {
		if st.ID != id {
			states = append(states, st)
		}
	}
	s.StateBins = states
	return s.UpdateTimeBounds()
}

// KeepState reduces the snapshot to the state with the given id and recomputes the
// time bounds; the snapshot is emptied when no such state exists
func (s *Snapshot) KeepState(id string) error {
	states := make([]*state.State, 0, 1)
	if st := s.State(id); st != nil {
		states = append(states, st)
	}
	s.StateBins = states
	return s.UpdateTimeBounds()
}

// PruneStates drops every transaction outside of [tI, tF] from every state
func (s *Snapshot) PruneStates(tI, tF int64) error {
	for _, st := range s.StateBins {
		if err := st.Prune(tI, tF); err != nil {
			return err
		}
	}
	return s.UpdateTimeBounds()
}

// StateProofLeaves returns the serialized state proofs of every captured state
func (s *Snapshot) StateProofLeaves() ([]string, error) {
	leaves := make([]string, 0)
	for _, st := range s.StateBins {
		stateLeaves, err := st.ProofLeaves()
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, stateLeaves...)
	}
	return leaves, nil
}

// TransactionLeaves returns the serialized transaction proofs of every captured state
func (s *Snapshot) TransactionLeaves() ([]string, error) {
	leaves := make([]string, 0)
	for _, st := range s.StateBins {
		txLeaves, err := st.TransactionLeaves()
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, txLeaves...)
	}
	return leaves, nil
}

// Copy returns a deep copy of the snapshot
func (s *Snapshot) Copy() *Snapshot {
	if s == nil {
		return nil
	}
	cp := &Snapshot{
		ID:          s.ID,
		Participant: s.Participant,
		TI:          s.TI,
		TF:          s.TF,
		StateBins:   make([]*state.State, 0, len(s.StateBins)),
	}
	for _, st := range s.StateBins {
		cp.StateBins = append(cp.StateBins, st.Copy())
	}
	return cp
}
