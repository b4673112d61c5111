package merkletree

import (
	"encoding/json"
	"fmt"
)

// MerkleTree defines and represents the methods a generic Merkle tree should have
type MerkleTree interface {
	fmt.Stringer
	RawAdd(data []byte) (index int, hash string)
	IntermediaryHashesByIndex(index int) (intermediaryHashes []string, err error)
	IndexOf(hash string) int
	HashAt(index int) (string, error)
	Root() (*string, error)
	Length() int
}

// MerkleTreeNode represents a single node in a merkle tree
type MerkleTreeNode interface {
	fmt.Stringer
	Hash() string
	Index() int
}

type internaler interface {
	RawInsert(hash string) (index int, err error)
	Recalculate() (root string)
}

// FullMerkleTree is both internal and external
type FullMerkleTree interface {
	MerkleTree
	internaler
	json.Marshaler
}

var _ FullMerkleTree = (*MemoryMerkleTree)(nil)
var _ MerkleTreeNode = (*Node)(nil)
