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
	"encoding/json"
	"fmt"

	uuid "github.com/kthomas/go.uuid"
	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/merkletree"
	"github.com/provideplatform/bungee/state"
	"github.com/provideplatform/bungee/view"
)

// TimeUnset is the aggregate time bound of an integrated view until the caller sets a window
const TimeUnset = "unset"

// IntegratedViewProof holds the merkle roots over every state proof, transaction proof and
// merged view metadata of an integrated view, plus the root of its sparse state index
type IntegratedViewProof struct {
	StatesMerkleRoot       string `json:"states_merkle_root"`
	TransactionsMerkleRoot string `json:"transactions_merkle_root"`
	ViewsMerkleRoot        string `json:"views_merkle_root"`
	StateIndexRoot         string `json:"state_index_root"`
}

// IntegratedView is the merge of several views, possibly captured by different participants
// on different ledgers
type IntegratedView struct {
	ID             string                    `json:"id"`
	ExtendedStates map[string]*ExtendedState `json:"extended_states"`
	TI             string                    `json:"ti"`
	TF             string                    `json:"tf"`
	Participants   []string                  `json:"participants"`
	ViewsMetadata  []*view.Metadata          `json:"views_metadata"`
	Proof          *IntegratedViewProof      `json:"integrated_view_proof"`
	Policy         *view.PolicyDescriptor    `json:"merge_policy"`

	index *merkletree.StateIndex
}

// NewIntegratedView initializes an empty integrated view with unset time bounds
func NewIntegratedView() (*IntegratedView, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate integrated view id; %s", err.Error())
	}

	return &IntegratedView{
		ID:             id.String(),
		ExtendedStates: map[string]*ExtendedState{},
		TI:             TimeUnset,
		TF:             TimeUnset,
		Participants:   make([]string, 0),
		ViewsMetadata:  make([]*view.Metadata, 0),
	}, nil
}

// SetTimeWindow sets the aggregate time bounds
func (iv *IntegratedView) SetTimeWindow(tI, tF int64) error {
	if tI > tF {
		return fmt.Errorf("failed to set time window of integrated view %s; ti %d is after tf %d", iv.ID, tI, tF)
	}
	iv.TI = state.FormatTime(tI)
	iv.TF = state.FormatTime(tF)
	return nil
}

// TimeWindow returns the aggregate time bounds; ok is false while they are unset
func (iv *IntegratedView) TimeWindow() (tI, tF int64, ok bool, err error) {
	if iv.TI == TimeUnset || iv.TF == TimeUnset {
		return 0, 0, false, nil
	}
	if tI, err = state.ParseTime(iv.TI); err != nil {
		return 0, 0, false, err
	}
	if tF, err = state.ParseTime(iv.TF); err != nil {
		return 0, 0, false, err
	}
	return tI, tF, true, nil
}

// AddParticipant appends a participant; the same participant may be appended more than once
func (iv *IntegratedView) AddParticipant(participant string) {
	iv.Participants = append(iv.Participants, participant)
}

// IsParticipant returns true if the given participant contributed a view
func (iv *IntegratedView) IsParticipant(participant string) bool {
	for _, p := range iv.Participants {
		if p == participant {
			return true
		}
	}
	return false
}

// AddViewMetadata records the metadata of a merged view
func (iv *IntegratedView) AddViewMetadata(md *view.Metadata) {
	iv.ViewsMetadata = append(iv.ViewsMetadata, md)
}

// ExtendedState returns the extended state for the given state id, or nil
func (iv *IntegratedView) ExtendedState(stateID string) *ExtendedState {
	return iv.ExtendedStates[stateID]
}

// AddState inserts the state contributed by the given view, creating the extended
// state when absent; returns false if the view already contributed the state
func (iv *IntegratedView) AddState(stateID, viewKey string, st *state.State) bool {
	ext, ok := iv.ExtendedStates[stateID]
	if !ok {
		ext = NewExtendedState()
		iv.ExtendedStates[stateID] = ext
	}
	return ext.Add(viewKey, st)
}

// RemoveExtendedState drops every contribution to the given state id
func (iv *IntegratedView) RemoveExtendedState(stateID string) {
	delete(iv.ExtendedStates, stateID)
}

// RemoveStateFromView drops the contribution of a single view to the given state id;
// the extended state itself is dropped once no contribution is left
func (iv *IntegratedView) RemoveStateFromView(stateID, viewKey string) {
	ext, ok := iv.ExtendedStates[stateID]
	if !ok {
		return
	}
	ext.Remove(viewKey)
	if ext.Len() == 0 {
		delete(iv.ExtendedStates, stateID)
	}
}

// StateIDs returns every state id in ascending order
func (iv *IntegratedView) StateIDs() []string {
	return common.SortedKeys(iv.ExtendedStates)
}

// AllStates returns every contributed state, ordered by state id and view key
func (iv *IntegratedView) AllStates() []*state.State {
	states := make([]*state.State, 0)
	for _, stateID := range iv.StateIDs() {
		ext := iv.ExtendedStates[stateID]
		for _, viewKey := range ext.ViewKeys() {
			states = append(states, ext.States[viewKey])
		}
	}
	return states
}

// AllTransactions returns the transactions of every contributed state
func (iv *IntegratedView) AllTransactions() []*state.Transaction {
	txs := make([]*state.Transaction, 0)
	for _, st := range iv.AllStates() {
		txs = append(txs, st.Transactions...)
	}
	return txs
}

// StateLeaves returns the serialized state proofs of every contributed state
func (iv *IntegratedView) StateLeaves() ([]string, error) {
	leaves := make([]string, 0)
	for _, st := range iv.AllStates() {
		stateLeaves, err := st.ProofLeaves()
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, stateLeaves...)
	}
	return leaves, nil
}

// TransactionLeaves returns the serialized transaction proofs of every contributed state
func (iv *IntegratedView) TransactionLeaves() ([]string, error) {
	leaves := make([]string, 0)
	for _, st := range iv.AllStates() {
		txLeaves, err := st.TransactionLeaves()
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, txLeaves...)
	}
	return leaves, nil
}

// ViewLeaves returns the serialized metadata of every merged view
func (iv *IntegratedView) ViewLeaves() ([]string, error) {
	leaves := make([]string, 0, len(iv.ViewsMetadata))
	for _, md := range iv.ViewsMetadata {
		raw, err := json.Marshal(md)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize metadata of view %s; %s", md.Key, err.Error())
		}
		leaves = append(leaves, string(raw))
	}
	return leaves, nil
}

// ComputeProof computes the proof of the current content and the sparse state index
// backing it
func (iv *IntegratedView) ComputeProof() (*IntegratedViewProof, *merkletree.StateIndex, error) {
	stateLeaves, err := iv.StateLeaves()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute states merkle root of integrated view %s; %s", iv.ID, err.Error())
	}
	txLeaves, err := iv.TransactionLeaves()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute transactions merkle root of integrated view %s; %s", iv.ID, err.Error())
	}
	viewLeaves, err := iv.ViewLeaves()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute views merkle root of integrated view %s; %s", iv.ID, err.Error())
	}

	index := merkletree.NewStateIndex()
	for _, stateID := range iv.StateIDs() {
		raw, err := json.Marshal(iv.ExtendedStates[stateID])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to serialize extended state %s; %s", stateID, err.Error())
		}
		if _, err := index.Put(stateID, common.SHA256(string(raw))); err != nil {
			return nil, nil, err
		}
	}

	return &IntegratedViewProof{
		StatesMerkleRoot:       merkletree.Root(stateLeaves),
		TransactionsMerkleRoot: merkletree.Root(txLeaves),
		ViewsMerkleRoot:        merkletree.Root(viewLeaves),
		StateIndexRoot:         index.Root(),
	}, index, nil
}

// UpdateProof recomputes the proof; it must be called after any structural mutation
func (iv *IntegratedView) UpdateProof() error {
	proof, index, err := iv.ComputeProof()
	if err != nil {
		return err
	}
	iv.Proof = proof
	iv.index = index
	return nil
}

// VerifyProof returns true if the embedded proof matches the current content
func (iv *IntegratedView) VerifyProof() (bool, error) {
	if iv.Proof == nil {
		return false, nil
	}
	proof, _, err := iv.ComputeProof()
	if err != nil {
		return false, err
	}
	return *proof == *iv.Proof, nil
}

// ProveState returns a sparse merkle proof of the inclusion, or exclusion, of the given
// state id against the state index root
func (iv *IntegratedView) ProveState(stateID string) (*merkletree.StateIndexProof, error) {
	if iv.index == nil {
		return nil, fmt.Errorf("failed to prove state %s; proof of integrated view %s not computed", stateID, iv.ID)
	}
	return iv.index.Prove(stateID)
}

// Serialize returns the canonical serialization of the integrated view
func (iv *IntegratedView) Serialize() (string, error) {
	raw, err := json.Marshal(iv)
	if err != nil {
		return "", fmt.Errorf("failed to serialize integrated view %s; %s", iv.ID, err.Error())
	}
	return string(raw), nil
}
