package merkletree

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha256Hex(vals ...[]byte) string {
	digest := sha256.New()
	for _, val := range vals {
		digest.Write(val)
	}
	return hex.EncodeToString(digest.Sum(nil))
}

func TestRootEmpty(t *testing.T) {
	assert.Equal(t, "", Root(nil))
	assert.Equal(t, "", Root([]string{}))
	assert.True(t, Verify(nil, ""))
}

func TestRootSingleLeaf(t *testing.T) {
	assert.Equal(t, sha256Hex([]byte("a")), Root([]string{"a"}))
}

func TestRootSortsPairs(t *testing.T) {
	a, _ := hex.DecodeString(sha256Hex([]byte("a")))
	b, _ := hex.DecodeString(sha256Hex([]byte("b")))

	expected := sha256Hex(a, b)
	if sha256Hex([]byte("a")) > sha256Hex([]byte("b")) {
		expected = sha256Hex(b, a)
	}
	assert.Equal(t, expected, Root([]string{"a", "b"}))
	assert.Equal(t, expected, Root([]string{"b", "a"}))
}

func TestRootPromotesOddNode(t *testing.T) {
	leaves := []string{"x", "y", "z"}

	tree := NewMerkleTree(sha256.New())
	for _, leaf := range leaves {
		tree.RawAdd([]byte(leaf))
	}
	root := tree.Recalculate()
	require.Len(t, tree.Nodes, 3)
	assert.Len(t, tree.Nodes[1], 2)

	last := tree.Nodes[0][2]
	assert.Equal(t, last.Hash(), tree.Nodes[1][1].Hash())
	assert.Equal(t, root, Root(leaves))
}

func TestRootOrderIndependence(t *testing.T) {
	leaves := []string{"tx-1", "tx-2", "tx-3", "tx-4", "tx-5"}
	permutations := [][]string{
		{"tx-5", "tx-4", "tx-3", "tx-2", "tx-1"},
		{"tx-3", "tx-1", "tx-5", "tx-2", "tx-4"},
		{"tx-2", "tx-5", "tx-1", "tx-4", "tx-3"},
	}

	root := Root(leaves)
	for _, perm := range permutations {
		assert.Equal(t, root, Root(perm))
		assert.True(t, Verify(perm, root))
	}
	assert.False(t, Verify(leaves[:4], root))
}

func TestProveAndVerifyProof(t *testing.T) {
	leaves := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"}
	root := Root(leaves)

	for _, leaf := range leaves {
		proof, err := Prove(leaves, leaf)
		require.NoError(t, err)
		assert.True(t, VerifyProof(leaf, proof, root), leaf)
		assert.False(t, VerifyProof(leaf+"!", proof, root), leaf)
	}

	_, err := Prove(leaves, "theta")
	assert.Error(t, err)
}

func TestHashAtOutOfBounds(t *testing.T) {
	tree := NewMerkleTree(nil)
	tree.RawAdd([]byte("a"))
	tree.Recalculate()

	_, err := tree.HashAt(1)
	assert.Error(t, err)
	_, err = tree.IntermediaryHashesByIndex(-1)
	assert.Error(t, err)

	h, err := tree.HashAt(0)
	require.NoError(t, err)
	assert.Equal(t, sha256Hex([]byte("a")), h)
}

func TestRawInsertRejectsInvalidHex(t *testing.T) {
	tree := NewMerkleTree(nil)
	_, err := tree.RawInsert("not-hex")
	assert.Error(t, err)
	assert.Equal(t, 0, tree.Length())
}
