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

package bungee

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	uuid "github.com/kthomas/go.uuid"
	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/ledger/providers"
	"github.com/provideplatform/bungee/merge"
	"github.com/provideplatform/bungee/state"
	"github.com/provideplatform/bungee/view"
)

// CreateViewRequest requests a view over a freshly captured snapshot; TI defaults to 0 and
// TF to the unbounded end of time
type CreateViewRequest struct {
	StateIDs       []string                  `json:"state_ids"`
	StrategyID     string                    `json:"strategy_id"`
	NetworkDetails *providers.NetworkDetails `json:"network_details"`
	TI             *string                   `json:"ti,omitempty"`
	TF             *string                   `json:"tf,omitempty"`
	ViewID         *string                   `json:"view_id,omitempty"`
}

// ViewResponse holds a serialized view and its signature; both are empty when no view
// was generated
type ViewResponse struct {
	View      string `json:"view,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// Envelope returns the serialized envelope of the view
func (r *ViewResponse) Envelope() (string, error) {
	return view.SerializeEnvelope(r.View, r.Signature)
}

// ProcessViewRequest requests a privacy policy to be applied to a signed view
type ProcessViewRequest struct {
	SerializedView  string   `json:"serialized_view"`
	PolicyID        string   `json:"policy_id"`
	PolicyArguments []string `json:"policy_arguments"`
}

// MergeViewsRequest requests signed views to be merged into an integrated view
type MergeViewsRequest struct {
	SerializedViews []string `json:"serialized_views"`
	MergePolicy     string   `json:"merge_policy"`
	PolicyArguments []string `json:"policy_arguments"`
}

// MergeViewsResponse holds a serialized integrated view and its signature
type MergeViewsResponse struct {
	IntegratedView string `json:"integrated_view"`
	Signature      string `json:"signature"`
}

func (o *Orchestrator) serializeAndSign(v *view.View) (*ViewResponse, error) {
	serialized, err := view.Serialize(v)
	if err != nil {
		return nil, err
	}
	signature, err := o.sign(serialized)
	if err != nil {
		return nil, err
	}
	return &ViewResponse{
		View:      serialized,
		Signature: signature,
	}, nil
}

// CreateView captures a snapshot and generates a signed view of it
func (o *Orchestrator) CreateView(ctx context.Context, req *CreateViewRequest) (*ViewResponse, error) {
	tI := int64(0)
	tF := state.MaxTime
	var err error

	if req.TI != nil && *req.TI != "" {
		if tI, err = state.ParseTime(*req.TI); err != nil {
			return nil, err
		}
	}
	if req.TF != nil && *req.TF != "" {
		if tF, err = state.ParseTime(*req.TF); err != nil {
			return nil, err
		}
	}

	snapshot, err := o.GenerateSnapshot(ctx, req.StateIDs, req.StrategyID, req.NetworkDetails)
	if err != nil {
		return nil, err
	}

	v, signature, err := o.GenerateView(snapshot, tI, tF, common.StringOrDefault(req.ViewID, ""))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &ViewResponse{}, nil
	}

	serialized, err := view.Serialize(v)
	if err != nil {
		return nil, err
	}

	resp := &ViewResponse{
		View:      serialized,
		Signature: signature,
	}
	o.dispatchNotification(natsViewCreatedSubject, map[string]interface{}{
		"key":         v.Key,
		"participant": v.Participant(),
		"view_proof":  v.ViewProof,
	})

	o.log.Debugf("created view %s over snapshot %s", v.Key, snapshot.ID)
	return resp, nil
}

// ProcessView verifies a signed view envelope, applies the privacy policy and returns the
// new version of the view, created and signed by this orchestrator under a fresh key
func (o *Orchestrator) ProcessView(serializedEnvelope, policyID string, args []string) (*ViewResponse, error) {
	envelope, err := view.ParseEnvelope(serializedEnvelope)
	if err != nil {
		return nil, err
	}

	v, err := view.Deserialize(envelope.View)
	if err != nil {
		return nil, err
	}

	valid, err := o.VerifyViewSignature(envelope.Signature, envelope.View, v.Creator)
	if err != nil || !valid {
		o.log.Warningf("failed to verify signature of view %s", v.Key)
		return nil, fmt.Errorf("failed to verify signature of view %s; %w", v.Key, common.ErrInvalidSignature)
	}

	kind, err := view.ParsePolicyKind(policyID)
	if err != nil {
		return nil, err
	}

	next, err := view.ApplyPrivacyPolicy(v, envelope.Signature, kind, args...)
	if err != nil {
		return nil, err
	}

	key, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate view key; %s", err.Error())
	}
	next.Key = key.String()
	next.Creator = o.PublicKey()

	resp, err := o.serializeAndSign(next)
	if err != nil {
		return nil, err
	}

	o.dispatchNotification(natsViewProcessedSubject, map[string]interface{}{
		"key":      next.Key,
		"prev_key": v.Key,
		"policy":   next.Policy,
	})

	o.log.Debugf("applied privacy policy %s to view %s; new view key: %s", kind, v.Key, next.Key)
	return resp, nil
}

// MergeViews merges the given views, applies the merge policy and signs the integrated
// view; signatures[i] is the creator signature of views[i]
func (o *Orchestrator) MergeViews(views []*view.View, signatures []string, policy merge.PolicyKind, args []string) (*merge.IntegratedView, string, error) {
	iv, err := merge.Merge(views, signatures, policy, args...)
	if err != nil {
		return nil, "", err
	}

	serialized, err := iv.Serialize()
	if err != nil {
		return nil, "", err
	}

	signature, err := o.sign(serialized)
	if err != nil {
		return nil, "", err
	}

	o.log.Debugf("merged %d view(s) into integrated view %s using merge policy %s", len(views), iv.ID, policy)
	return iv, signature, nil
}

// MergeViewsSerialized verifies every signed view envelope and merges the views; every
// invalid envelope is reported
func (o *Orchestrator) MergeViewsSerialized(serializedViews []string, policyID string, args []string) (*MergeViewsResponse, error) {
	if len(serializedViews) < 2 {
		return nil, fmt.Errorf("failed to merge %d view(s); %w", len(serializedViews), common.ErrInsufficientViews)
	}

	policy, err := merge.ParsePolicyKind(policyID)
	if err != nil {
		return nil, err
	}

	views := make([]*view.View, 0, len(serializedViews))
	signatures := make([]string, 0, len(serializedViews))

	var result *multierror.Error
	for i, serialized := range serializedViews {
		envelope, err := view.ParseEnvelope(serialized)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("view %d: %w", i, err))
			continue
		}

		v, err := view.Deserialize(envelope.View)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("view %d: %w", i, err))
			continue
		}

		valid, err := o.VerifyViewSignature(envelope.Signature, envelope.View, v.Creator)
		if err != nil || !valid {
			result = multierror.Append(result, fmt.Errorf("view %d (%s): %w", i, v.Key, common.ErrInvalidSignature))
			continue
		}

		views = append(views, v)
		signatures = append(signatures, envelope.Signature)
	}
	if err := result.ErrorOrNil(); err != nil {
		o.log.Warningf("failed to merge views; %s", err.Error())
		return nil, err
	}

	iv, signature, err := o.MergeViews(views, signatures, policy, args)
	if err != nil {
		return nil, err
	}

	serialized, err := iv.Serialize()
	if err != nil {
		return nil, err
	}

	o.dispatchNotification(natsViewsMergedSubject, map[string]interface{}{
		"id":           iv.ID,
		"participants": iv.Participants,
		"proof":        iv.Proof,
	})

	return &MergeViewsResponse{
		IntegratedView: serialized,
		Signature:      signature,
	}, nil
}
