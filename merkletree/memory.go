package merkletree

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"sort"
	"strings"
)

const (
	outOfBounds = "Incorrect index - Index out of bounds"
)

// Node is a single node or leaf in the merkle tree
type Node struct {
	hash   []byte
	index  int
	Parent *Node
}

// Hash returns the string representation of the hash of the node
func (node *Node) Hash() string {
	return hex.EncodeToString(node.hash)
}

// Index returns the index of this node in its level
func (node *Node) Index() int {
	return node.index
}

// String returns the hash of this node. Alias to Hash()
func (node Node) String() string {
	return node.Hash()
}

// MemoryMerkleTree is an order-independent merkle tree: leaves are sorted before the
// tree is built and each pair is sorted before it is hashed, so the root depends only
// on the set of leaves. A trailing odd node is promoted to the next level unhashed.
type MemoryMerkleTree struct {
	Hash     func(data ...[]byte) []byte
	Nodes    [][]*Node
	RootNode *Node
	Digest   hash.Hash
}

func (tree *MemoryMerkleTree) init() {
	if tree.Hash == nil {
		tree.Hash = func(data ...[]byte) []byte {
			digest := tree.Digest
			digest.Reset()
			for i := range data {
				_, err := digest.Write(data[i])
				if err != nil {
					return nil
				}
			}

			return digest.Sum(nil)
		}
	}

	tree.Nodes = make([][]*Node, 1)
}

func (tree *MemoryMerkleTree) createParent(left, right *Node, index int) *Node {
	if bytes.Compare(left.hash, right.hash) > 0 {
		left, right = right, left
	}

	parentNode := &Node{
		hash:   tree.Hash(left.hash[:], right.hash[:]),
		Parent: nil,
		index:  index,
	}

	left.Parent = parentNode
	right.Parent = parentNode

	return parentNode
}

func (tree *MemoryMerkleTree) promote(node *Node, index int) *Node {
	parentNode := &Node{
		hash:   node.hash,
		Parent: nil,
		index:  index,
	}
	node.Parent = parentNode
	return parentNode
}

// RawAdd hashes the given data and adds it as a leaf without recalculating the tree
// Returns the index of the leaf and its hash
func (tree *MemoryMerkleTree) RawAdd(data []byte) (index int, hash string) {
	h := tree.Hash(data)
	val := hex.EncodeToString(h)
	index, _ = tree.RawInsert(val)
	return index, val
}

// RawInsert pushes the given leaf hash into the tree without recalculating the tree
func (tree *MemoryMerkleTree) RawInsert(hash string) (index int, err error) {
	dec, err := hex.DecodeString(hash)
	if err != nil {
		return -1, fmt.Errorf("failed to decode leaf hash %s; %s", hash, err.Error())
	}

	index = len(tree.Nodes[0])
	tree.Nodes[0] = append(tree.Nodes[0], &Node{
		hash:  dec,
		index: index,
	})

	return index, nil
}

// Recalculate sorts the leaves, recreates the whole tree bottom up and returns the hex
// string of the new root; leaf indexes refer to sorted order afterwards
func (tree *MemoryMerkleTree) Recalculate() (treeRoot string) {
	if tree.Length() == 0 {
		tree.RootNode = nil
		return ""
	}

	leaves := tree.Nodes[0]
	sort.SliceStable(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i].hash, leaves[j].hash) < 0
	})
	for i, leaf := range leaves {
		leaf.index = i
		leaf.Parent = nil
	}

	tree.Nodes = tree.Nodes[:1]
	level := leaves
	for len(level) > 1 {
		next := make([]*Node, 0, (len(level)/2)+(len(level)%2))
		for j := 0; j < len(level); j += 2 {
			if j+1 == len(level) {
				next = append(next, tree.promote(level[j], len(next)))
				continue
			}
			next = append(next, tree.createParent(level[j], level[j+1], len(next)))
		}
		tree.Nodes = append(tree.Nodes, next)
		level = next
	}

	tree.RootNode = level[0]
	return tree.RootNode.Hash()
}

// IntermediaryHashesByIndex returns all sibling hashes needed to produce the root from the
// leaf at the given (sorted) index; promoted levels contribute no sibling
func (tree *MemoryMerkleTree) IntermediaryHashesByIndex(index int) (intermediaryHashes []string, err error) {
	if index < 0 || index >= len(tree.Nodes[0]) {
		return nil, errors.New(outOfBounds)
	}

	intermediaryHashes = make([]string, 0, len(tree.Nodes))
	for level := 0; level < len(tree.Nodes)-1; level++ {
		sibling := index ^ 1
		if sibling < len(tree.Nodes[level]) {
			intermediaryHashes = append(intermediaryHashes, tree.Nodes[level][sibling].Hash())
		}
		index /= 2
	}

	return intermediaryHashes, nil
}

// IndexOf returns the sorted index of the given leaf hash, or -1
func (tree *MemoryMerkleTree) IndexOf(hash string) int {
	for i, leaf := range tree.Nodes[0] {
		if leaf.Hash() == hash {
			return i
		}
	}
	return -1
}

// Root returns the hash of the root of the tree
func (tree *MemoryMerkleTree) Root() (*string, error) {
	if tree.RootNode == nil {
		return nil, fmt.Errorf("nil root node")
	}
	root := tree.RootNode.Hash()
	return &root, nil
}

// Length returns the count of the tree leafs
func (tree *MemoryMerkleTree) Length() int {
	return len(tree.Nodes[0])
}

// String returns human readable version of the tree
func (tree *MemoryMerkleTree) String() string {
	b := strings.Builder{}

	l := len(tree.Nodes)

	for i := l - 1; i >= 0; i-- {
		ll := len(tree.Nodes[i])
		b.WriteString(fmt.Sprintf("Level: %v, Count: %v\n", i, ll))
		for k := 0; k < ll; k++ {
			b.WriteString(fmt.Sprintf("%v\t", tree.Nodes[i][k].Hash()))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// HashAt returns the hash at given index
func (tree *MemoryMerkleTree) HashAt(index int) (string, error) {
	if index < 0 || index >= len(tree.Nodes[0]) {
		return "", errors.New(outOfBounds)
	}
	return tree.Nodes[0][index].Hash(), nil
}

// MarshalJSON Creates JSON version of the needed fields of the tree
func (tree *MemoryMerkleTree) MarshalJSON() ([]byte, error) {
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	res := fmt.Sprintf("{\"root\":\"%v\", \"length\":%v}", *root, tree.Length())
	return []byte(res), nil
}

// NewMerkleTree returns a pointer to an initialized MemoryMerkleTree.
// If hash type not provided, sha256 will be used by default
func NewMerkleTree(h hash.Hash) *MemoryMerkleTree {
	var tree MemoryMerkleTree
	if h == nil {
		tree.Digest = sha256.New()
	} else {
		tree.Digest = h
	}
	tree.init()
	return &tree
}
