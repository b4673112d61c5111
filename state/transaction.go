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
	"math"
	"strconv"
	"strings"

	"github.com/provideplatform/bungee/common"
)

// MaxTime is the unbounded upper end of a time window
const MaxTime = int64(math.MaxInt64)

// ParseTime parses a string-encoded integer timestamp in ledger-native units
func ParseTime(ts string) (int64, error) {
	t, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse timestamp %q; %w", ts, common.ErrInvalidTimestamp)
	}
	return t, nil
}

// FormatTime returns the string encoding of the given timestamp
func FormatTime(t int64) string {
	return strconv.FormatInt(t, 10)
}

// Transaction is a single ledger operation on an asset
type Transaction struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Proof     *TransactionProof `json:"proof"`
	StateID   string            `json:"state_id"`
	Payload   string            `json:"payload"`
	Target    string            `json:"target"`
}

// NewTransaction initializes a transaction; optional fields start out as Undefined
func NewTransaction(id, timestamp string, proof *TransactionProof) *Transaction {
	if proof == nil {
		proof = NewTransactionProof(nil, id)
	}
	return &Transaction{
		ID:        id,
		Timestamp: timestamp,
		Proof:     proof,
		StateID:   Undefined,
		Payload:   Undefined,
		Target:    Undefined,
	}
}

// Time returns the parsed transaction timestamp
func (t *Transaction) Time() (int64, error) {
	return ParseTime(t.Timestamp)
}

// SetStateID sets the id of the state this transaction mutated
func (t *Transaction) SetStateID(id string) {
	t.StateID = id
}

// SetPayload sets the raw transaction input
func (t *Transaction) SetPayload(payload string) {
	t.Payload = payload
}

// SetTarget sets the contract or chaincode the transaction was addressed to
func (t *Transaction) SetTarget(target string) {
	t.Target = target
}

// AddEndorser appends an endorsement to the transaction proof
func (t *Transaction) AddEndorser(endorsement *Proof) {
	t.Proof.AddEndorsement(endorsement)
}

// Copy returns a deep copy of the transaction
func (t *Transaction) Copy() *Transaction {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Proof = t.Proof.Copy()
	return &cp
}

// transactionLeaf is the record hashed into a transactions merkle root; it binds the
// transaction proof to the transaction content and the value the transaction wrote
type transactionLeaf struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	StateID   string            `json:"state_id"`
	Payload   string            `json:"payload"`
	Target    string            `json:"target"`
	Value     string            `json:"value"`
	Proof     *TransactionProof `json:"proof"`
}

// Leaf returns the canonical serialization of the transaction record, including the
// value written by the transaction
func (t *Transaction) Leaf(value string) (string, error) {
	raw, err := json.Marshal(&transactionLeaf{
		ID:        t.ID,
		Timestamp: t.Timestamp,
		StateID:   t.StateID,
		Payload:   t.Payload,
		Target:    t.Target,
		Value:     value,
		Proof:     t.Proof,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize proof for transaction %s; %s", t.ID, err.Error())
	}
	return string(raw), nil
}

// rebuild returns a normalized copy suitable for a freshly deserialized graph
func (t *Transaction) rebuild() *Transaction {
	rebuilt := NewTransaction(t.ID, t.Timestamp, t.Proof.rebuild())
	if t.StateID != "" {
		rebuilt.StateID = t.StateID
	}
	if t.Payload != "" {
		rebuilt.Payload = t.Payload
	}
	if t.Target != "" {
		rebuilt.Target = t.Target
	}
	return rebuilt
}
