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

	uuid "github.com/kthomas/go.uuid"
	"github.com/provideplatform/bungee/merkletree"
)

// ViewProof holds the merkle roots over a view's state proofs and transaction proofs
type ViewProof struct {
	StatesMerkleRoot       string `json:"states_merkle_root"`
	TransactionsMerkleRoot string `json:"transactions_merkle_root"`
}

// Equal returns true if both roots match
func (p *ViewProof) Equal(other *ViewProof) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.StatesMerkleRoot == other.StatesMerkleRoot && p.TransactionsMerkleRoot == other.TransactionsMerkleRoot
}

// PolicyDescriptor identifies the policy applied to a view and the hash of its definition
type PolicyDescriptor struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

// Metadata describes one disclosed version of a view
type Metadata struct {
	Key       string            `json:"key"`
	ViewProof *ViewProof        `json:"view_proof"`
	Policy    *PolicyDescriptor `json:"policy"`
	Creator   string            `json:"creator"`
	Signature string            `json:"signature"`
}

// View is an exported, provable snapshot restricted to the [TI, TF] window
type View struct {
	Key                 string            `json:"key"`
	Creator             string            `json:"creator"`
	TI                  int64             `json:"ti,string"`
	TF                  int64             `json:"tf,string"`
	Snapshot            *Snapshot         `json:"snapshot"`
	ViewProof           *ViewProof        `json:"view_proof"`
	Policy              *PolicyDescriptor `json:"policy"`
	PrevVersionMetadata []*Metadata       `json:"prev_version_metadata"`
}

// New initializes a view over a deep copy of the given snapshot pruned to [tI, tF];
// a key is generated when none is given
func New(creator string, tI, tF int64, snapshot *Snapshot, key string) (*View, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("failed to initialize view; nil snapshot")
	}

	if key == "" {
		viewKey, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("failed to generate view key; %s", err.Error())
		}
		key = viewKey.String()
	}

	v := &View{
		Key:                 key,
		Creator:             creator,
		TI:                  tI,
		TF:                  tF,
		Snapshot:            snapshot.Copy(),
		PrevVersionMetadata: make([]*Metadata, 0),
	}

	if err := v.Snapshot.PruneStates(tI, tF); err != nil {
		return nil, err
	}
	if err := v.UpdateViewProof(); err != nil {
		return nil, err
	}

	return v, nil
}

// InWindow returns false when [tI, tF] is inverted or does not intersect the time
// bounds of the snapshot; no view is generated for such a window
func InWindow(snapshot *Snapshot, tI, tF int64) bool {
	return tI <= snapshot.TF && tF >= snapshot.TI && tI <= tF
}

// Participant returns the id of the participant which captured the snapshot
func (v *View) Participant() string {
	return v.Snapshot.Participant
}

// ComputeViewProof computes the view proof of the current snapshot content
func (v *View) ComputeViewProof() (*ViewProof, error) {
	stateLeaves, err := v.Snapshot.StateProofLeaves()
	if err != nil {
		return nil, fmt.Errorf("failed to compute states merkle root of view %s; %s", v.Key, err.Error())
	}
	txLeaves, err := v.Snapshot.TransactionLeaves()
	if err != nil {
		return nil, fmt.Errorf("failed to compute transactions merkle root of view %s; %s", v.Key, err.Error())
	}

	return &ViewProof{
		StatesMerkleRoot:       merkletree.Root(stateLeaves),
		TransactionsMerkleRoot: merkletree.Root(txLeaves),
	}, nil
}

// UpdateViewProof recomputes the view proof; it must be called after any snapshot mutation
func (v *View) UpdateViewProof() error {
	proof, err := v.ComputeViewProof()
	if err != nil {
		return err
	}
	v.ViewProof = proof
	return nil
}

// Metadata returns the metadata of this version of the view, signed with the given signature
func (v *View) Metadata(signature string) *Metadata {
	md := &Metadata{
		Key:       v.Key,
		Creator:   v.Creator,
		Signature: signature,
	}
	if v.ViewProof != nil {
		proof := *v.ViewProof
		md.ViewProof = &proof
	}
	if v.Policy != nil {
		policy := *v.Policy
		md.Policy = &policy
	}
	return md
}

// AddPrevVersionMetadata appends the metadata of a prior version of the view
func (v *View) AddPrevVersionMetadata(md *Metadata) {
	v.PrevVersionMetadata = append(v.PrevVersionMetadata, md)
}

// Copy returns a deep copy of the view
func (v *View) Copy() *View {
	if v == nil {
		return nil
	}
	cp := &View{
		Key:                 v.Key,
		Creator:             v.Creator,
		TI:                  v.TI,
		TF:                  v.TF,
		Snapshot:            v.Snapshot.Copy(),
		PrevVersionMetadata: make([]*Metadata, 0, len(v.PrevVersionMetadata)),
	}
	if v.ViewProof != nil {
		proof := *v.ViewProof
		cp.ViewProof = &proof
	}
	if v.Policy != nil {
		policy := *v.Policy
		cp.Policy = &policy
	}
	for _, md := range v.PrevVersionMetadata {
		mdCopy := *md
		cp.PrevVersionMetadata = append(cp.PrevVersionMetadata, &mdCopy)
	}
	return cp
}
