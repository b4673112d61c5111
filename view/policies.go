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

	"github.com/provideplatform/bungee/common"
)

// PolicyKind enumerates the privacy policies a view holder may apply before disclosure
type PolicyKind string

const (
	// PolicyPruneState removes a single state from the view
	PolicyPruneState PolicyKind = "PruneState"

	// PolicySingleTransaction reduces the view to a single transaction of a single state
	PolicySingleTransaction PolicyKind = "SingleTransaction"
)

const privacyPolicyRegistryVersion = "bungee/privacy-policy/v1"

// privacyPolicyDefinitions are the versioned definitions hashed into policy descriptors;
// a definition must never change without bumping the registry version
var privacyPolicyDefinitions = map[PolicyKind]string{
	PolicyPruneState:        "PruneState(stateId): remove the state with the given id from the snapshot and recompute tI/tF",
	PolicySingleTransaction: "SingleTransaction(stateId, transactionId): reduce the snapshot to the given state and the state to the given transaction",
}

var privacyPolicyHashes = func() map[PolicyKind]string {
	hashes := make(map[PolicyKind]string, len(privacyPolicyDefinitions))
	for kind, definition := range privacyPolicyDefinitions {
		hashes[kind] = common.SHA256(fmt.Sprintf("%s/%s", privacyPolicyRegistryVersion, definition))
	}
	return hashes
}()

// ParsePolicyKind resolves a privacy policy id
func ParsePolicyKind(id string) (PolicyKind, error) {
	kind := PolicyKind(id)
	switch kind {
	case PolicyPruneState, PolicySingleTransaction:
		return kind, nil
	default:
		return "", fmt.Errorf("failed to resolve privacy policy %s; %w", id, common.ErrUnknownPolicy)
	}
}

// AvailablePolicies returns the ids of every privacy policy
func AvailablePolicies() []string {
	return []string{string(PolicyPruneState), string(PolicySingleTransaction)}
}

// Descriptor returns the policy descriptor recorded on views the policy was applied to
func (k PolicyKind) Descriptor() *PolicyDescriptor {
	return &PolicyDescriptor{
		ID:   string(k),
		Hash: privacyPolicyHashes[k],
	}
}

// PruneState removes the state with the given id from the view snapshot;
// pruning an unknown state is a no-op
func PruneState(v *View, stateID string) error {
	return v.Snapshot.RemoveState(stateID)
}

// SingleTransaction collapses the view snapshot to exactly the given state and that state to
// exactly the given transaction; missing ids leave nothing behind
func SingleTransaction(v *View, stateID, transactionID string) error {
	if err := v.Snapshot.KeepState(stateID); err != nil {
		return err
	}
	if st := v.Snapshot.State(stateID); st != nil {
		if err := st.KeepTransaction(transactionID); err != nil {
			return err
		}
	}
	return v.Snapshot.UpdateTimeBounds()
}

// ApplyPrivacyPolicy returns a new version of the view with the given policy applied;
// the pre-policy version, signed with signature, is appended to the prior-version
// metadata and the view proof is recomputed. The returned view still carries the
// key and creator of the original and must be re-keyed and re-signed by the caller.
func ApplyPrivacyPolicy(v *View, signature string, kind PolicyKind, args ...string) (*View, error) {
	next := v.Copy()
	prev := v.Metadata(signature)

	var err error
	switch kind {
	case PolicyPruneState:
		if len(args) < 1 {
			return nil, fmt.Errorf("failed to apply %s to view %s; state id required; %w", kind, v.Key, common.ErrInvalidPolicyArguments)
		}
		err = PruneState(next, args[0])
	case PolicySingleTransaction:
		if len(args) < 2 {
			return nil, fmt.Errorf("failed to apply %s to view %s; state id and transaction id required; %w", kind, v.Key, common.ErrInvalidPolicyArguments)
		}
		err = SingleTransaction(next, args[0], args[1])
	default:
		return nil, fmt.Errorf("failed to apply privacy policy %s to view %s; %w", kind, v.Key, common.ErrUnknownPolicy)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s to view %s; %w", kind, v.Key, err)
	}

	next.AddPrevVersionMetadata(prev)
	next.Policy = kind.Descriptor()
	if err := next.UpdateViewProof(); err != nil {
		return nil, err
	}

	return next, nil
}
