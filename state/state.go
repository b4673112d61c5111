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
	"fmt"
)

// State holds every observed value and transaction of a single application key
type State struct {
	ID           string         `json:"id"`
	Version      int            `json:"version"`
	Values       []string       `json:"values"`
	Transactions []*Transaction `json:"transactions"`
	Proofs       []*StateProof  `json:"proofs"`
}

// NewState initializes a state; values[i] is the value written by transactions[i].
// The version is fixed to the transaction count at construction and is never
// decremented by pruning.
func NewState(id string, values []string, transactions []*Transaction) *State {
	if values == nil {
		values = make([]string, 0)
	}
	if transactions == nil {
		transactions = make([]*Transaction, 0)
	}
	return &State{
		ID:           id,
		Version:      len(transactions),
		Values:       values,
		Transactions: transactions,
		Proofs:       make([]*StateProof, 0),
	}
}

// Value returns the latest observed value, or an empty string when no value was observed
func (s *State) Value() string {
	if len(s.Values) == 0 {
		return ""
	}
	return s.Values[len(s.Values)-1]
}

// SetStateProofs replaces the state proofs
func (s *State) SetStateProofs(proofs []*StateProof) {
	s.Proofs = proofs
}

// AddStateProof appends a state proof
func (s *State) AddStateProof(proof *StateProof) {
	s.Proofs = append(s.Proofs, proof)
}

// InitialTime returns the timestamp of the first transaction; ok is false when the state has none
func (s *State) InitialTime() (t int64, ok bool, err error) {
	if len(s.Transactions) == 0 {
		return 0, false, nil
	}
	t, err = s.Transactions[0].Time()
	return t, err == nil, err
}

// FinalTime returns the timestamp of the last transaction; ok is false when the state has none
func (s *State) FinalTime() (t int64, ok bool, err error) {
	if len(s.Transactions) == 0 {
		return 0, false, nil
	}
	t, err = s.Transactions[len(s.Transactions)-1].Time()
	return t, err == nil, err
}

// Transaction returns the transaction with the given id, or nil
func (s *State) Transaction(id string) *Transaction {
	for _, tx := range s.Transactions {
		if tx.ID == id {
			return tx
		}
	}
	return nil
}

// Validate returns an error unless values[i] is the value written by transactions[i]
// for every transaction
func (s *State) Validate() error {
	if len(s.Values) != len(s.Transactions) {
		return fmt.Errorf("invalid state %s; %d values for %d transactions", s.ID, len(s.Values), len(s.Transactions))
	}
	for i, tx := range s.Transactions {
		if tx == nil {
			return fmt.Errorf("invalid state %s; nil transaction at index %d", s.ID, i)
		}
	}
	return nil
}

// Prune drops every transaction, and its value, with a timestamp outside of [tI, tF]
func (s *State) Prune(tI, tF int64) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("failed to prune state; %s", err.Error())
	}

	values := make([]string, 0, len(s.Values))
	transactions := make([]*Transaction, 0, len(s.Transactions))

	for i, tx := range s.Transactions {
		ts, err := tx.Time()
		if err != nil {
			return fmt.Errorf("failed to prune state %s; %w", s.ID, err)
		}
		if ts < tI || ts > tF {
			continue
		}
		transactions = append(transactions, tx)
		values = append(values, s.Values[i])
	}

	s.Values = values
	s.Transactions = transactions
	return nil
}

// KeepTransaction reduces the state to the single transaction with the given id;
// the state is emptied when no such transaction exists
func (s *State) KeepTransaction(id string) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("failed to reduce state to transaction %s; %s", id, err.Error())
	}

	values := make([]string, 0, 1)
	transactions := make([]*Transaction, 0, 1)

	for i, tx := range s.Transactions {
		if tx.ID != id {
			continue
		}
		transactions = append(transactions, tx)
		values = append(values, s.Values[i])
		break
	}

	s.Values = values
	s.Transactions = transactions
	return nil
}

// ProofLeaves returns the canonical serialization of every state proof
func (s *State) ProofLeaves() ([]string, error) {
	leaves := make([]string, 0, len(s.Proofs))
	for _, proof := range s.Proofs {
		leaf, err := proof.Leaf()
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

// TransactionLeaves returns the canonical serialization of every transaction record
// together with the value it wrote
func (s *State) TransactionLeaves() ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("failed to serialize transactions; %s", err.Error())
	}
	leaves := make([]string, 0, len(s.Transactions))
	for i, tx := range s.Transactions {
		leaf, err := tx.Leaf(s.Values[i])
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

// Copy returns a deep copy of the state
func (s *State) Copy() *State {
	if s == nil {
		return nil
	}
	cp := &State{
		ID:           s.ID,
		Version:      s.Version,
		Values:       make([]string, len(s.Values)),
		Transactions: make([]*Transaction, 0, len(s.Transactions)),
		Proofs:       make([]*StateProof, 0, len(s.Proofs)),
	}
	copy(cp.Values, s.Values)
	for _, tx := range s.Transactions {
		cp.Transactions = append(cp.Transactions, tx.Copy())
	}
	for _, p := range s.Proofs {
		cp.Proofs = append(cp.Proofs, p.Copy())
	}
	return cp
}

// Rebuild reconstructs a state bottom-up from deserialized data: proofs are
// normalized, transactions are rebuilt and the serialized version is preserved
func Rebuild(s *State) (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("failed to rebuild nil state")
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("failed to rebuild state; %s", err.Error())
	}

	transactions := make([]*Transaction, 0, len(s.Transactions))
	for _, tx := range s.Transactions {
		if _, err := tx.Time(); err != nil {
			return nil, fmt.Errorf("failed to rebuild transaction %s of state %s; %w", tx.ID, s.ID, err)
		}
		transactions = append(transactions, tx.rebuild())
	}

	values := make([]string, len(s.Values))
	copy(values, s.Values)

	rebuilt := NewState(s.ID, values, transactions)
	rebuilt.Version = s.Version
	for _, p := range s.Proofs {
		if p == nil {
			continue
		}
		rebuilt.AddStateProof(p.Copy())
	}
	return rebuilt, nil
}
