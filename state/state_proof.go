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

package state

import (
	"encoding/json"
	"fmt"
)

// Block is a ledger block observed while capturing a state
type Block struct {
	Hash    string   `json:"block_hash"`
	Creator string   `json:"block_creator"`
	Signers []string `json:"block_signers"`
}

// StateProof is the evidence bundle for a single state at capture time
type StateProof struct {
	Value   string   `json:"value"`
	Version int      `json:"version"`
	StateID string   `json:"state_id"`
	Blocks  []*Block `json:"blocks"`
}

// NewStateProof initializes a state proof with no blocks
func NewStateProof(value string, version int, stateID string) *StateProof {
	return &StateProof{
		Value:   value,
		Version: version,
		StateID: stateID,
		Blocks:  make([]*Block, 0),
	}
}

// AddBlock appends an observed block; de-duplication is the caller's responsibility
func (sp *StateProof) AddBlock(block *Block) {
	if block.Signers == nil {
		block.Signers = make([]string, 0)
	}
	sp.Blocks = append(sp.Blocks, block)
}

// Copy returns a deep copy of the state proof
func (sp *StateProof) Copy() *StateProof {
	if sp == nil {
		return nil
	}
	cp := NewStateProof(sp.Value, sp.Version, sp.StateID)
	for _, b := range sp.Blocks {
		if b == nil {
			continue
		}
		signers := make([]string, len(b.Signers))
		copy(signers, b.Signers)
		cp.Blocks = append(cp.Blocks, &Block{
			Hash:    b.Hash,
			Creator: b.Creator,
			Signers: signers,
		})
	}
	return cp
}

// Leaf returns the canonical serialization of the state proof
func (sp *StateProof) Leaf() (string, error) {
	raw, err := json.Marshal(sp)
	if err != nil {
		return "", fmt.Errorf("failed to serialize proof for state %s; %s", sp.StateID, err.Error())
	}
	return string(raw), nil
}
