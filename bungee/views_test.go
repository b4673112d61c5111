package bungee

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/ledger/providers"
	"github.com/provideplatform/bungee/merge"
	"github.com/provideplatform/bungee/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateViewWindows(t *testing.T) {
	o, notifier := testOrchestrator(t, testState("asset1", "100"))

	tF := "50"
	resp, err := o.CreateView(context.Background(), &CreateViewRequest{
		StrategyID: providers.LedgerStateProviderMemory,
		TF:         &tF,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.View)
	assert.Empty(t, resp.Signature)
	assert.Empty(t, notifier.subjects)

	viewID := "view-asset1"
	resp, err = o.CreateView(context.Background(), &CreateViewRequest{
		StrategyID: providers.LedgerStateProviderMemory,
		ViewID:     &viewID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.View)

	valid, err := o.VerifyViewSignature(resp.Signature, resp.View, o.PublicKey())
	require.NoError(t, err)
	assert.True(t, valid)

	v, err := view.Deserialize(resp.View)
	require.NoError(t, err)
	assert.Equal(t, viewID, v.Key)
	require.Len(t, v.Snapshot.StateBins, 1)
	assert.Len(t, v.Snapshot.StateBins[0].Transactions, 1)
	assert.Equal(t, []string{natsViewCreatedSubject}, notifier.subjects)
}

func TestCreateViewInvalidTimestamp(t *testing.T) {
	o, _ := testOrchestrator(t, testState("asset1", "100"))

	tI := "yesterday"
	_, err := o.CreateView(context.Background(), &CreateViewRequest{
		StrategyID: providers.LedgerStateProviderMemory,
		TI:         &tI,
	})
	assert.True(t, errors.Is(err, common.ErrInvalidTimestamp))
}

func TestProcessView(t *testing.T) {
	creator, _ := testOrchestrator(t, testState("A", "100", "200"), testState("B", "150", "400"))
	holder, notifier := testOrchestrator(t)

	envelope := createView(t, creator, "besu")
	original, _, err := view.DeserializeEnvelope(envelope)
	require.NoError(t, err)

	resp, err := holder.ProcessView(envelope, string(view.PolicyPruneState), []string{"B"})
	require.NoError(t, err)

	valid, err := holder.VerifyViewSignature(resp.Signature, resp.View, holder.PublicKey())
	require.NoError(t, err)
	assert.True(t, valid)

	v, err := view.Deserialize(resp.View)
	require.NoError(t, err)
	assert.NotEqual(t, original.Key, v.Key)
	assert.Equal(t, holder.PublicKey(), v.Creator)
	require.Len(t, v.Snapshot.StateBins, 1)
	assert.Equal(t, "A", v.Snapshot.StateBins[0].ID)
	assert.Equal(t, int64(100), v.Snapshot.TI)
	assert.Equal(t, int64(200), v.Snapshot.TF)
	assert.Equal(t, string(view.PolicyPruneState), v.Policy.ID)

	require.Len(t, v.PrevVersionMetadata, 1)
	assert.Equal(t, original.Key, v.PrevVersionMetadata[0].Key)
	assert.Equal(t, creator.PublicKey(), v.PrevVersionMetadata[0].Creator)
	assert.True(t, original.ViewProof.Equal(v.PrevVersionMetadata[0].ViewProof))
	assert.Equal(t, []string{natsViewProcessedSubject}, notifier.subjects)

	next, err := resp.Envelope()
	require.NoError(t, err)
	again, err := creator.ProcessView(next, string(view.PolicySingleTransaction), []string{"A", "A-tx-200"})
	require.NoError(t, err)

	v, err = view.Deserialize(again.View)
	require.NoError(t, err)
	assert.Len(t, v.PrevVersionMetadata, 2)
	require.Len(t, v.Snapshot.StateBins[0].Transactions, 1)
	assert.Equal(t, "A-tx-200", v.Snapshot.StateBins[0].Transactions[0].ID)
}

func TestProcessViewErrors(t *testing.T) {
	creator, _ := testOrchestrator(t, testState("A", "100"))
	holder, _ := testOrchestrator(t)

	envelope := createView(t, creator, "besu")

	_, err := holder.ProcessView(envelope, "RedactEverything", nil)
	assert.True(t, errors.Is(err, common.ErrUnknownPolicy))

	_, err = holder.ProcessView(envelope, string(view.PolicySingleTransaction), []string{"A"})
	assert.True(t, errors.Is(err, common.ErrInvalidPolicyArguments))

	parsed, err := view.ParseEnvelope(envelope)
	require.NoError(t, err)
	forged, err := holder.sign(parsed.View)
	require.NoError(t, err)
	tampered, err := view.SerializeEnvelope(parsed.View, forged)
	require.NoError(t, err)

	_, err = holder.ProcessView(tampered, string(view.PolicyPruneState), []string{"A"})
	assert.True(t, errors.Is(err, common.ErrInvalidSignature))
}

func TestMergeViewsSerialized(t *testing.T) {
	besu, _ := testOrchestrator(t, testState("A", "100"))
	fabric, _ := testOrchestrator(t, testState("A", "110"), testState("B", "120", "130"))
	integrator, notifier := testOrchestrator(t)

	envelopes := []string{
		createView(t, besu, "besu"),
		createView(t, fabric, "fabric"),
	}

	resp, err := integrator.MergeViewsSerialized(envelopes, "", nil)
	require.NoError(t, err)

	valid, err := integrator.VerifyViewSignature(resp.Signature, resp.IntegratedView, integrator.PublicKey())
	require.NoError(t, err)
	assert.True(t, valid)

	var iv merge.IntegratedView
	require.NoError(t, json.Unmarshal([]byte(resp.IntegratedView), &iv))
	assert.Equal(t, []string{"besu", "fabric"}, iv.Participants)
	assert.Len(t, iv.ExtendedStates, 2)
	assert.Len(t, iv.ExtendedStates["A"].States, 2)
	assert.Len(t, iv.ViewsMetadata, 2)
	assert.Equal(t, string(merge.PolicyNone), iv.Policy.ID)
	assert.Equal(t, merge.TimeUnset, iv.TI)
	assert.Equal(t, []string{natsViewsMergedSubject}, notifier.subjects)

	resp, err = integrator.MergeViewsSerialized(envelopes, string(merge.PolicyPruneState), []string{"A"})
	require.NoError(t, err)

	iv = merge.IntegratedView{}
	require.NoError(t, json.Unmarshal([]byte(resp.IntegratedView), &iv))
	assert.Len(t, iv.ExtendedStates, 1)
	assert.NotNil(t, iv.ExtendedStates["B"])
}

func TestMergeViewsSerializedErrors(t *testing.T) {
	besu, _ := testOrchestrator(t, testState("A", "100"))
	integrator, _ := testOrchestrator(t)

	envelope := createView(t, besu, "besu")

	_, err := integrator.MergeViewsSerialized([]string{envelope}, "", nil)
	assert.True(t, errors.Is(err, common.ErrInsufficientViews))

	_, err = integrator.MergeViewsSerialized([]string{envelope, envelope}, "Redact", nil)
	assert.True(t, errors.Is(err, common.ErrUnknownPolicy))

	parsed, err := view.ParseEnvelope(envelope)
	require.NoError(t, err)
	forged, err := integrator.sign(parsed.View)
	require.NoError(t, err)
	tampered, err := view.SerializeEnvelope(parsed.View, forged)
	require.NoError(t, err)

	_, err = integrator.MergeViewsSerialized([]string{tampered, envelope, tampered}, "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidSignature))

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
}

func TestHandleMergeViewsMsg(t *testing.T) {
	besu, _ := testOrchestrator(t, testState("A", "100"))
	fabric, _ := testOrchestrator(t, testState("B", "120"))
	integrator, _ := testOrchestrator(t)

	data, err := json.Marshal(&MergeViewsRequest{
		SerializedViews: []string{createView(t, besu, "besu"), createView(t, fabric, "fabric")},
	})
	require.NoError(t, err)

	resp, err := integrator.handleMergeViewsMsg(data)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.IntegratedView)
	assert.NotEmpty(t, resp.Signature)

	_, err = integrator.handleMergeViewsMsg([]byte("{"))
	assert.Error(t, err)
}
