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
	"sort"
	"sync"

	logger "github.com/kthomas/go-logger"
	uuid "github.com/kthomas/go.uuid"
	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/ledger/providers"
	"github.com/provideplatform/bungee/merkletree"
	"github.com/provideplatform/bungee/signer"
	"github.com/provideplatform/bungee/state"
	"github.com/provideplatform/bungee/view"
	"golang.org/x/sync/errgroup"
)

// Orchestrator captures snapshots through registered ledger strategies and turns them
// into signed views and integrated views
type Orchestrator struct {
	log      *logger.Logger
	signer   signer.Signer
	notifier Notifier

	mutex      sync.RWMutex
	strategies map[string]providers.LedgerStateProvider
}

// NewOrchestrator initializes an orchestrator signing with the given signer; the
// configured logger is used when log is nil and notifications are skipped when
// notifier is nil
func NewOrchestrator(log *logger.Logger, s signer.Signer, notifier Notifier) (*Orchestrator, error) {
	if s == nil {
		return nil, fmt.Errorf("failed to initialize orchestrator; nil signer")
	}
	if log == nil {
		log = common.Log
	}
	return &Orchestrator{
		log:        log,
		signer:     s,
		notifier:   notifier,
		strategies: map[string]providers.LedgerStateProvider{},
	}, nil
}

// AddStrategy registers a ledger state provider under the given strategy id
func (o *Orchestrator) AddStrategy(strategyID string, provider providers.LedgerStateProvider) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, ok := o.strategies[strategyID]; ok {
		return fmt.Errorf("failed to add strategy %s; %w", strategyID, common.ErrStrategyExists)
	}
	o.strategies[strategyID] = provider
	o.log.Debugf("added ledger strategy: %s", strategyID)
	return nil
}

// Strategy returns the ledger state provider registered under the given id
func (o *Orchestrator) Strategy(strategyID string) (providers.LedgerStateProvider, error) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	provider, ok := o.strategies[strategyID]
	if !ok {
		return nil, fmt.Errorf("failed to resolve strategy %s; %w", strategyID, common.ErrUnknownStrategy)
	}
	return provider, nil
}

// AvailableStrategies returns the ids of every registered strategy in ascending order
func (o *Orchestrator) AvailableStrategies() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return common.SortedKeys(o.strategies)
}

// PublicKey returns the hex-encoded public key views are signed with
func (o *Orchestrator) PublicKey() string {
	return o.signer.PublicKey()
}

// SignatureScheme returns the scheme views are signed with
func (o *Orchestrator) SignatureScheme() string {
	return o.signer.Scheme()
}

func (o *Orchestrator) sign(serialized string) (string, error) {
	o.log.Tracef("signing %d-byte payload with digest %s", len(serialized), signer.Hash([]byte(serialized)))
	return o.signer.Sign([]byte(serialized))
}

// GenerateSnapshot captures the requested states, or every state known to the strategy
// when none are requested; states are ordered by id
func (o *Orchestrator) GenerateSnapshot(ctx context.Context, stateIDs []string, strategyID string, details *providers.NetworkDetails) (*view.Snapshot, error) {
	provider, err := o.Strategy(strategyID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		details = &providers.NetworkDetails{}
	}

	ledgerStates, err := provider.FetchStates(ctx, stateIDs, details)
	if err != nil {
		o.log.Warningf("failed to fetch states using strategy %s; %s", strategyID, err.Error())
		return nil, fmt.Errorf("failed to fetch states using strategy %s; %s; %w", strategyID, err.Error(), common.ErrSourceUnavailable)
	}

	requested := map[string]bool{}
	for _, id := range stateIDs {
		requested[id] = true
	}

	ids := make([]string, 0, len(ledgerStates))
	for id := range ledgerStates {
		if len(requested) == 0 || requested[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	states := make([]*state.State, 0, len(ids))
	for _, id := range ids {
		st := ledgerStates[id]
		if st == nil {
			o.log.Warningf("strategy %s returned nil state %s", strategyID, id)
			return nil, fmt.Errorf("failed to fetch state %s using strategy %s; nil state; %w", id, strategyID, common.ErrSourceUnavailable)
		}
		if err := st.Validate(); err != nil {
			o.log.Warningf("strategy %s returned invalid state %s; %s", strategyID, id, err.Error())
			return nil, fmt.Errorf("failed to fetch state %s using strategy %s; %s; %w", id, strategyID, err.Error(), common.ErrSourceUnavailable)
		}
		states = append(states, st)
	}

	snapshotID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate snapshot id; %s", err.Error())
	}

	snapshot, err := view.NewSnapshot(snapshotID.String(), details.Participant, states)
	if err != nil {
		return nil, err
	}

	o.log.Debugf("generated snapshot %s of %d state(s) using strategy %s", snapshot.ID, len(states), strategyID)
	return snapshot, nil
}

// SnapshotRequest describes a single snapshot to capture
type SnapshotRequest struct {
	StateIDs       []string                  `json:"state_ids"`
	StrategyID     string                    `json:"strategy_id"`
	NetworkDetails *providers.NetworkDetails `json:"network_details"`
}

// GenerateSnapshots captures the requested snapshots concurrently; snapshots are returned
// in request order and the first failure cancels the remaining captures
func (o *Orchestrator) GenerateSnapshots(ctx context.Context, requests []*SnapshotRequest) ([]*view.Snapshot, error) {
	snapshots := make([]*view.Snapshot, len(requests))
	g, gctx := errgroup.WithContext(ctx)

	for i := range requests {
		i := i
		req := requests[i]
		g.Go(func() error {
			snapshot, err := o.GenerateSnapshot(gctx, req.StateIDs, req.StrategyID, req.NetworkDetails)
			if err != nil {
				return err
			}
			snapshots[i] = snapshot
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// GenerateView generates and signs a view of the snapshot restricted to [tI, tF]; a nil
// view and empty signature are returned when the window does not intersect the snapshot
func (o *Orchestrator) GenerateView(snapshot *view.Snapshot, tI, tF int64, key string) (*view.View, string, error) {
	if !view.InWindow(snapshot, tI, tF) {
		o.log.Debugf("no view generated for snapshot %s; window [%d, %d] outside of [%d, %d]", snapshot.ID, tI, tF, snapshot.TI, snapshot.TF)
		return nil, "", nil
	}

	v, err := view.New(o.PublicKey(), tI, tF, snapshot, key)
	if err != nil {
		return nil, "", err
	}

	serialized, err := view.Serialize(v)
	if err != nil {
		return nil, "", err
	}

	signature, err := o.sign(serialized)
	if err != nil {
		return nil, "", err
	}

	return v, signature, nil
}

// VerifyMerkleRoot returns true if the given leaves produce the given root, regardless of
// their order
func (o *Orchestrator) VerifyMerkleRoot(leaves []string, root string) bool {
	return merkletree.Verify(leaves, root)
}

// VerifyViewSignature verifies the signature of a serialized view against the given public key
func (o *Orchestrator) VerifyViewSignature(signature, serializedView, publicKey string) (bool, error) {
	o.log.Tracef("verifying signature of %d-byte view with digest %s", len(serializedView), signer.Hash([]byte(serializedView)))
	return o.signer.Verify(publicKey, []byte(serializedView), signature)
}
