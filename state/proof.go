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

// Undefined is the sentinel held by proof fields that were not supplied by the ledger
const Undefined = "undefined"

// Proof is an attestation made by a single identity, i.e., a transaction creator or endorser
type Proof struct {
	Creator   string `json:"creator"`
	OrgID     string `json:"org_id"`
	Signature string `json:"signature"`
}

// NewProof initializes a proof for the given creator; nil org id or signature are stored as Undefined
func NewProof(creator string, orgID, signature *string) *Proof {
	p := &Proof{
		Creator:   creator,
		OrgID:     Undefined,
		Signature: Undefined,
	}
	if orgID != nil {
		p.OrgID = *orgID
	}
	if signature != nil {
		p.Signature = *signature
	}
	return p
}

// Copy returns a deep copy of the proof
func (p *Proof) Copy() *Proof {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// normalize replaces empty optional fields with the Undefined sentinel
func (p *Proof) normalize() {
	if p.OrgID == "" {
		p.OrgID = Undefined
	}
	if p.Signature == "" {
		p.Signature = Undefined
	}
}

// TransactionProof is the provenance of a single transaction
type TransactionProof struct {
	Creator      *Proof   `json:"creator"`
	Endorsements []*Proof `json:"endorsements"`
	Hash         string   `json:"hash"`
}

// NewTransactionProof initializes a transaction proof without endorsements
func NewTransactionProof(creator *Proof, hash string) *TransactionProof {
	if creator == nil {
		creator = NewProof(Undefined, nil, nil)
	}
	return &TransactionProof{
		Creator:      creator,
		Endorsements: make([]*Proof, 0),
		Hash:         hash,
	}
}

// SetCreator replaces the creator proof
func (tp *TransactionProof) SetCreator(creator *Proof) {
	tp.Creator = creator
}

// AddEndorsement appends an endorsement; endorsements keep their append order
func (tp *TransactionProof) AddEndorsement(endorsement *Proof) {
	tp.Endorsements = append(tp.Endorsements, endorsement)
}

// Copy returns a deep copy of the transaction proof
func (tp *TransactionProof) Copy() *TransactionProof {
	if tp == nil {
		return nil
	}
	cp := &TransactionProof{
		Creator:      tp.Creator.Copy(),
		Endorsements: make([]*Proof, 0, len(tp.Endorsements)),
		Hash:         tp.Hash,
	}
	for _, e := range tp.Endorsements {
		cp.Endorsements = append(cp.Endorsements, e.Copy())
	}
	return cp
}

// rebuild returns a normalized copy suitable for a freshly deserialized graph
func (tp *TransactionProof) rebuild() *TransactionProof {
	if tp == nil {
		return NewTransactionProof(nil, Undefined)
	}
	creator := tp.Creator.Copy()
	if creator == nil {
		creator = NewProof(Undefined, nil, nil)
	}
	creator.normalize()
	rebuilt := NewTransactionProof(creator, tp.Hash)
	for _, e := range tp.Endorsements {
		if e == nil {
			continue
		}
		endorsement := e.Copy()
		endorsement.normalize()
		rebuilt.AddEndorsement(endorsement)
	}
	return rebuilt
}
