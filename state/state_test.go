package state

import (
	"errors"
	"testing"

	"github.com/provideplatform/bungee/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState(id string, timestamps ...string) *State {
	values := make([]string, 0, len(timestamps))
	txs := make([]*Transaction, 0, len(timestamps))
	for i, ts := range timestamps {
		tx := NewTransaction(id+"-tx-"+ts, ts, NewTransactionProof(NewProof("0xabc", nil, nil), common.SHA256(ts)))
		tx.SetStateID(id)
		txs = append(txs, tx)
		values = append(values, id+"-v"+string(rune('0'+i)))
	}
	s := NewState(id, values, txs)
	s.AddStateProof(NewStateProof(s.Value(), s.Version, id))
	return s
}

func TestNewProofDefaults(t *testing.T) {
	p := NewProof("creator", nil, nil)
	assert.Equal(t, "creator", p.Creator)
	assert.Equal(t, Undefined, p.OrgID)
	assert.Equal(t, Undefined, p.Signature)

	tp := NewTransactionProof(nil, "hash")
	assert.Equal(t, Undefined, tp.Creator.Creator)
	assert.Empty(t, tp.Endorsements)
}

func TestEndorsementOrder(t *testing.T) {
	tx := NewTransaction("tx", "1", nil)
	tx.AddEndorser(NewProof("e1", nil, nil))
	tx.AddEndorser(NewProof("e2", nil, nil))
	tx.AddEndorser(NewProof("e3", nil, nil))

	require.Len(t, tx.Proof.Endorsements, 3)
	assert.Equal(t, "e1", tx.Proof.Endorsements[0].Creator)
	assert.Equal(t, "e3", tx.Proof.Endorsements[2].Creator)
}

func TestParseTime(t *testing.T) {
	ts, err := ParseTime("100")
	require.NoError(t, err)
	assert.Equal(t, int64(100), ts)

	_, err = ParseTime("1.5")
	assert.True(t, errors.Is(err, common.ErrInvalidTimestamp))

	assert.Equal(t, "9223372036854775807", FormatTime(MaxTime))
}

func TestStateTimes(t *testing.T) {
	s := testState("A", "100", "200", "300")

	tI, ok, err := s.InitialTime()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(100), tI)

	tF, ok, err := s.FinalTime()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(300), tF)

	_, ok, err = NewState("empty", nil, nil).InitialTime()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPruneKeepsValuesAligned(t *testing.T) {
	s := testState("A", "100", "200", "300")
	require.NoError(t, s.Prune(150, 300))

	require.Len(t, s.Transactions, 2)
	require.Len(t, s.Values, 2)
	assert.Equal(t, "A-tx-200", s.Transactions[0].ID)
	assert.Equal(t, "A-v1", s.Values[0])
	assert.Equal(t, "A-v2", s.Values[1])
	assert.Equal(t, 3, s.Version)
}

func TestKeepTransaction(t *testing.T) {
	s := testState("A", "100", "200", "300")
	require.NoError(t, s.KeepTransaction("A-tx-200"))
	require.Len(t, s.Transactions, 1)
	assert.Equal(t, []string{"A-v1"}, s.Values)

	require.NoError(t, s.KeepTransaction("missing"))
	assert.Empty(t, s.Transactions)
	assert.Empty(t, s.Values)
}

func TestMisalignedValuesRejected(t *testing.T) {
	s := testState("A", "100", "200", "300")
	s.Values = s.Values[:2]

	assert.Error(t, s.Validate())
	assert.Error(t, s.Prune(0, MaxTime))
	assert.Error(t, s.KeepTransaction("A-tx-100"))
	_, err := s.TransactionLeaves()
	assert.Error(t, err)

	require.Len(t, s.Transactions, 3)
	assert.Len(t, s.Values, 2)

	s = testState("A", "100")
	s.Transactions[0] = nil
	assert.Error(t, s.Validate())
}

func TestCopyIsDeep(t *testing.T) {
	s := testState("A", "100", "200")
	cp := s.Copy()

	cp.Transactions[0].ID = "changed"
	cp.Transactions[0].Proof.Creator.Creator = "changed"
	cp.Values[0] = "changed"
	cp.Proofs[0].Value = "changed"

	assert.Equal(t, "A-tx-100", s.Transactions[0].ID)
	assert.Equal(t, "0xabc", s.Transactions[0].Proof.Creator.Creator)
	assert.Equal(t, "A-v0", s.Values[0])
	assert.Equal(t, "A-v1", s.Proofs[0].Value)
}

func TestTransactionLeafBindsContent(t *testing.T) {
	tx := NewTransaction("tx-1", "100", nil)
	leaf, err := tx.Leaf("v1")
	require.NoError(t, err)

	mutations := map[string]func(tx *Transaction) string{
		"id":       func(tx *Transaction) string { tx.ID = "tx-2"; return "v1" },
		"payload":  func(tx *Transaction) string { tx.SetPayload("0xff"); return "v1" },
		"target":   func(tx *Transaction) string { tx.SetTarget("0xcontract"); return "v1" },
		"state id": func(tx *Transaction) string { tx.SetStateID("B"); return "v1" },
		"value":    func(tx *Transaction) string { return "v2" },
	}
	for name, mutate := range mutations {
		cp := tx.Copy()
		value := mutate(cp)
		tampered, err := cp.Leaf(value)
		require.NoError(t, err)
		assert.NotEqual(t, leaf, tampered, name)
	}
}

func TestRebuild(t *testing.T) {
	s := testState("A", "100", "200")
	s.Version = 7

	rebuilt, err := Rebuild(s)
	require.NoError(t, err)
	assert.Equal(t, 7, rebuilt.Version)
	assert.Len(t, rebuilt.Transactions, 2)
	assert.Len(t, rebuilt.Proofs, 1)

	s.Values = s.Values[:1]
	_, err = Rebuild(s)
	assert.Error(t, err)

	bad := testState("B", "100")
	bad.Transactions[0].Timestamp = "yesterday"
	_, err = Rebuild(bad)
	assert.True(t, errors.Is(err, common.ErrInvalidTimestamp))
}
