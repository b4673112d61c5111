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
	"fmt"

	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/view"
)

// PolicyKind enumerates the policies applied to an integrated view after merging
type PolicyKind string

const (
	// PolicyNone keeps the union of every merged view
	PolicyNone PolicyKind = "NONE"

	// PolicyPruneState removes every contribution to a state id
	PolicyPruneState PolicyKind = "PruneState"

	// PolicyPruneStateFromView removes the contribution of a single view to a state id
	PolicyPruneStateFromView PolicyKind = "PruneStateFromView"
)

const mergePolicyRegistryVersion = "bungee/merge-policy/v1"

var mergePolicyDefinitions = map[PolicyKind]string{
	PolicyNone:               "NONE: keep the union of every merged view",
	PolicyPruneState:         "PruneState(stateId): remove the extended state with the given id",
	PolicyPruneStateFromView: "PruneStateFromView(stateId, viewId): remove the state with the given id contributed by the given view",
}

var mergePolicyHashes = func() map[PolicyKind]string {
	hashes := make(map[PolicyKind]string, len(mergePolicyDefinitions))
	for kind, definition := range mergePolicyDefinitions {
		hashes[kind] = common.SHA256(fmt.Sprintf("%s/%s", mergePolicyRegistryVersion, definition))
	}
	return hashes
}()

// ParsePolicyKind resolves a merge policy id; an empty id resolves to PolicyNone
func ParsePolicyKind(id string) (PolicyKind, error) {
	if id == "" {
		return PolicyNone, nil
	}
	kind := PolicyKind(id)
	switch kind {
	case PolicyNone, PolicyPruneState, PolicyPruneStateFromView:
		return kind, nil
	default:
		return "", fmt.Errorf("failed to resolve merge policy %s; %w", id, common.ErrUnknownPolicy)
	}
}

// AvailablePolicies returns the ids of every merge policy
func AvailablePolicies() []string {
	return []string{string(PolicyNone), string(PolicyPruneState), string(PolicyPruneStateFromView)}
}

// Descriptor returns the policy descriptor recorded on integrated views
func (k PolicyKind) Descriptor() *view.PolicyDescriptor {
	return &view.PolicyDescriptor{
		ID:   string(k),
		Hash: mergePolicyHashes[k],
	}
}

// PruneState removes the extended state with the given id
func PruneState(iv *IntegratedView, stateID string) {
	iv.RemoveExtendedState(stateID)
}

// PruneStateFromView removes the given view's contribution to the given state id,
// leaving the contributions of other views intact
func PruneStateFromView(iv *IntegratedView, stateID, viewKey string) {
	iv.RemoveStateFromView(stateID, viewKey)
}

// ApplyMergePolicy applies the policy, records its descriptor and recomputes the proof
func ApplyMergePolicy(iv *IntegratedView, kind PolicyKind, args ...string) error {
	switch kind {
	case PolicyNone:
	case PolicyPruneState:
		if len(args) < 1 {
			return fmt.Errorf("failed to apply %s to integrated view %s; state id required; %w", kind, iv.ID, common.ErrInvalidPolicyArguments)
		}
		PruneState(iv, args[0])
	case PolicyPruneStateFromView:
		if len(args) < 2 {
			return fmt.Errorf("failed to apply %s to integrated view %s; state id and view id required; %w", kind, iv.ID, common.ErrInvalidPolicyArguments)
		}
		PruneStateFromView(iv, args[0], args[1])
	default:
		return fmt.Errorf("failed to apply merge policy %s to integrated view %s; %w", kind, iv.ID, common.ErrUnknownPolicy)
	}

	iv.Policy = kind.Descriptor()
	return iv.UpdateProof()
}
