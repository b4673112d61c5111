package view

import (
	"errors"
	"testing"

	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testView(t *testing.T) *View {
	snapshot := testSnapshot(t, testState("A", "100", "200"), testState("B", "50", "300"), testState("C", "150"))
	v, err := New("pub", 0, state.MaxTime, snapshot, "view-1")
	require.NoError(t, err)
	return v
}

func TestPruneStateMonotonicity(t *testing.T) {
	v := testView(t)
	require.Equal(t, int64(50), v.Snapshot.TI)
	require.Equal(t, int64(300), v.Snapshot.TF)

	require.NoError(t, PruneState(v, "B"))
	assert.Nil(t, v.Snapshot.State("B"))
	assert.Len(t, v.Snapshot.StateBins, 2)
	assert.Equal(t, int64(100), v.Snapshot.TI)
	assert.Equal(t, int64(200), v.Snapshot.TF)

	require.NoError(t, PruneState(v, "B"))
	assert.Len(t, v.Snapshot.StateBins, 2)
}

func TestSingleTransaction(t *testing.T) {
	v := testView(t)
	require.NoError(t, SingleTransaction(v, "A", "A-tx-200"))

	require.Len(t, v.Snapshot.StateBins, 1)
	st := v.Snapshot.StateBins[0]
	assert.Equal(t, "A", st.ID)
	require.Len(t, st.Transactions, 1)
	assert.Equal(t, "A-tx-200", st.Transactions[0].ID)
	assert.Equal(t, []string{"A@200"}, st.Values)
	assert.Equal(t, int64(200), v.Snapshot.TI)
	assert.Equal(t, int64(200), v.Snapshot.TF)
}

func TestSingleTransactionMissingState(t *testing.T) {
	v := testView(t)
	require.NoError(t, SingleTransaction(v, "Z", "Z-tx-1"))
	assert.Empty(t, v.Snapshot.StateBins)
	assert.Equal(t, int64(0), v.Snapshot.TI)
}

func TestApplyPrivacyPolicy(t *testing.T) {
	v := testView(t)
	original := *v.ViewProof

	next, err := ApplyPrivacyPolicy(v, "sig-1", PolicyPruneState, "A")
	require.NoError(t, err)

	assert.NotNil(t, v.Snapshot.State("A"))
	assert.Nil(t, next.Snapshot.State("A"))

	require.Len(t, next.PrevVersionMetadata, 1)
	prev := next.PrevVersionMetadata[0]
	assert.Equal(t, "view-1", prev.Key)
	assert.Equal(t, "sig-1", prev.Signature)
	assert.Equal(t, "pub", prev.Creator)
	assert.Nil(t, prev.Policy)
	assert.Equal(t, original, *prev.ViewProof)

	require.NotNil(t, next.Policy)
	assert.Equal(t, string(PolicyPruneState), next.Policy.ID)
	assert.Equal(t, PolicyPruneState.Descriptor().Hash, next.Policy.Hash)
	assert.NotEqual(t, original.TransactionsMerkleRoot, next.ViewProof.TransactionsMerkleRoot)

	again, err := ApplyPrivacyPolicy(next, "sig-2", PolicySingleTransaction, "B", "B-tx-50")
	require.NoError(t, err)
	require.Len(t, again.PrevVersionMetadata, 2)
	assert.Equal(t, string(PolicyPruneState), again.PrevVersionMetadata[1].Policy.ID)
	assert.Equal(t, string(PolicySingleTransaction), again.Policy.ID)
}

func TestApplyPrivacyPolicyArguments(t *testing.T) {
	v := testView(t)

	_, err := ApplyPrivacyPolicy(v, "sig", PolicyPruneState)
	assert.True(t, errors.Is(err, common.ErrInvalidPolicyArguments))

	_, err = ApplyPrivacyPolicy(v, "sig", PolicySingleTransaction, "A")
	assert.True(t, errors.Is(err, common.ErrInvalidPolicyArguments))

	_, err = ApplyPrivacyPolicy(v, "sig", PolicyKind("Redact"))
	assert.True(t, errors.Is(err, common.ErrUnknownPolicy))
}

func TestPolicyRegistry(t *testing.T) {
	kind, err := ParsePolicyKind("SingleTransaction")
	require.NoError(t, err)
	assert.Equal(t, PolicySingleTransaction, kind)

	_, err = ParsePolicyKind("pruneState")
	assert.True(t, errors.Is(err, common.ErrUnknownPolicy))

	assert.Len(t, PolicyPruneState.Descriptor().Hash, 64)
	assert.NotEqual(t, PolicyPruneState.Descriptor().Hash, PolicySingleTransaction.Descriptor().Hash)
	assert.ElementsMatch(t, []string{"PruneState", "SingleTransaction"}, AvailablePolicies())
}

func TestPolicyRoundTrip(t *testing.T) {
	v := testView(t)
	next, err := ApplyPrivacyPolicy(v, "sig-1", PolicyPruneState, "C")
	require.NoError(t, err)

	serialized, err := Serialize(next)
	require.NoError(t, err)

	restored, err := Deserialize(serialized)
	require.NoError(t, err)
	require.Len(t, restored.PrevVersionMetadata, 1)
	assert.Equal(t, "sig-1", restored.PrevVersionMetadata[0].Signature)
	assert.Equal(t, next.Policy, restored.Policy)
}
