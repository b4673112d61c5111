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
	"encoding/json"
	"fmt"

	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/state"
)

// Envelope wraps a serialized view with the signature of its creator
type Envelope struct {
	View      string `json:"view"`
	Signature string `json:"signature"`
}

// Serialize returns the canonical serialization of the view
func Serialize(v *View) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize view %s; %s", v.Key, err.Error())
	}
	return string(raw), nil
}

// Deserialize rebuilds a view from its serialization; the time bounds of the snapshot
// are recomputed and the view proof is recomputed and checked against the embedded one
func Deserialize(serialized string) (*View, error) {
	var raw View
	if err := json.Unmarshal([]byte(serialized), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view; %s", err.Error())
	}
	if raw.Snapshot == nil {
		return nil, fmt.Errorf("failed to deserialize view %s; missing snapshot", raw.Key)
	}

	states := make([]*state.State, 0, len(raw.Snapshot.StateBins))
	for _, st := range raw.Snapshot.StateBins {
		rebuilt, err := state.Rebuild(st)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize view %s; %w", raw.Key, err)
		}
		states = append(states, rebuilt)
	}

	snapshot, err := NewSnapshot(raw.Snapshot.ID, raw.Snapshot.Participant, states)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize view %s; %w", raw.Key, err)
	}

	v := &View{
		Key:                 raw.Key,
		Creator:             raw.Creator,
		TI:                  raw.TI,
		TF:                  raw.TF,
		Snapshot:            snapshot,
		Policy:              raw.Policy,
		PrevVersionMetadata: make([]*Metadata, 0, len(raw.PrevVersionMetadata)),
	}
	for _, md := range raw.PrevVersionMetadata {
		if md != nil {
			v.AddPrevVersionMetadata(md)
		}
	}

	if err := v.UpdateViewProof(); err != nil {
		return nil, err
	}
	if raw.ViewProof == nil {
		return nil, fmt.Errorf("failed to verify view %s; missing view proof; %w", v.Key, common.ErrIntegrityMismatch)
	}
	if v.ViewProof.StatesMerkleRoot != raw.ViewProof.StatesMerkleRoot {
		return nil, fmt.Errorf("failed to verify view %s; states merkle root %s does not match %s; %w", v.Key, v.ViewProof.StatesMerkleRoot, raw.ViewProof.StatesMerkleRoot, common.ErrIntegrityMismatch)
	}
	if v.ViewProof.TransactionsMerkleRoot != raw.ViewProof.TransactionsMerkleRoot {
		return nil, fmt.Errorf("failed to verify view %s; transactions merkle root %s does not match %s; %w", v.Key, v.ViewProof.TransactionsMerkleRoot, raw.ViewProof.TransactionsMerkleRoot, common.ErrIntegrityMismatch)
	}

	return v, nil
}

// SerializeEnvelope returns the serialized envelope of a view and its signature
func SerializeEnvelope(serializedView, signature string) (string, error) {
	raw, err := json.Marshal(&Envelope{
		View:      serializedView,
		Signature: signature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize view envelope; %s", err.Error())
	}
	return string(raw), nil
}

// ParseEnvelope parses a serialized envelope without deserializing the view
func ParseEnvelope(serialized string) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal([]byte(serialized), &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view envelope; %s", err.Error())
	}
	if envelope.View == "" {
		return nil, fmt.Errorf("failed to parse view envelope; missing view")
	}
	if envelope.Signature == "" {
		return nil, fmt.Errorf("failed to parse view envelope; missing signature; %w", common.ErrInvalidSignature)
	}
	return &envelope, nil
}

// DeserializeEnvelope parses a serialized envelope and deserializes the view it wraps
func DeserializeEnvelope(serialized string) (*View, *Envelope, error) {
	envelope, err := ParseEnvelope(serialized)
	if err != nil {
		return nil, nil, err
	}
	v, err := Deserialize(envelope.View)
	if err != nil {
		return nil, nil, err
	}
	return v, envelope, nil
}
