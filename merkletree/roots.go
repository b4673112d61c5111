package merkletree

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

func build(leaves []string) *MemoryMerkleTree {
	tree := NewMerkleTree(sha256.New())
	for _, leaf := range leaves {
		tree.RawAdd([]byte(leaf))
	}
	tree.Recalculate()
	return tree
}

// Root returns the hex root over the sha256-hashed leaves; the root of an empty
// leaf set is the empty string
func Root(leaves []string) string {
	if len(leaves) == 0 {
		return ""
	}
	root, _ := build(leaves).Root()
	return *root
}

// Verify returns true if the given leaves produce the given root
func Verify(leaves []string, root string) bool {
	return Root(leaves) == root
}

// Prove returns the sibling hashes needed to recompute the root of leaves from leaf
func Prove(leaves []string, leaf string) ([]string, error) {
	tree := build(leaves)
	index := tree.IndexOf(hex.EncodeToString(hashLeaf([]byte(leaf))))
	if index == -1 {
		return nil, fmt.Errorf("failed to prove leaf; leaf not present in %d leaves", len(leaves))
	}
	return tree.IntermediaryHashesByIndex(index)
}

// VerifyProof returns true if leaf and its sibling hashes recompute root
func VerifyProof(leaf string, proof []string, root string) bool {
	current := hashLeaf([]byte(leaf))
	for _, sibling := range proof {
		s, err := hex.DecodeString(sibling)
		if err != nil {
			return false
		}
		if bytes.Compare(current, s) > 0 {
			current, s = s, current
		}
		digest := sha256.New()
		digest.Write(current)
		digest.Write(s)
		current = digest.Sum(nil)
	}
	return hex.EncodeToString(current) == root
}

func hashLeaf(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}
