package merkletree

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sync"

	"github.com/providenetwork/smt"
)

// StateIndex is an in-memory sparse merkle tree keyed by the digest of a state id;
// it proves both inclusion and exclusion of a state in an aggregate
type StateIndex struct {
	hash  hash.Hash
	mutex sync.Mutex
	tree  *smt.SparseMerkleTree
}

// StateIndexProof is a sparse merkle proof for a single state id
type StateIndexProof struct {
	StateID string                `json:"state_id"`
	Value   string                `json:"value"`
	Proof   smt.SparseMerkleProof `json:"proof"`
}

// NewStateIndex initializes an empty sha256 state index
func NewStateIndex() *StateIndex {
	return &StateIndex{
		hash: sha256.New(),
		tree: smt.NewSparseMerkleTree(smt.NewSimpleMap(), smt.NewSimpleMap(), sha256.New()),
	}
}

func (i *StateIndex) digest(val []byte) []byte {
	i.hash.Reset()
	i.hash.Write(val)
	digest := i.hash.Sum(nil)
	i.hash.Reset()
	return digest
}

// Put maps the state id to the given value and returns the new root
func (i *StateIndex) Put(stateID, value string) (string, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	root, err := i.tree.Update(i.digest([]byte(stateID)), []byte(value))
	if err != nil {
		return "", fmt.Errorf("failed to index state %s; %s", stateID, err.Error())
	}
	return hex.EncodeToString(root), nil
}

// Root returns the hex root of the index
func (i *StateIndex) Root() string {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return hex.EncodeToString(i.tree.Root())
}

// Prove returns a proof for the state id; when the state is not indexed the proof
// carries an empty value and attests to its absence
func (i *StateIndex) Prove(stateID string) (*StateIndexProof, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	key := i.digest([]byte(stateID))
	value, err := i.tree.Get(key)
	if err != nil {
		// simple map stores report absent keys as an error
		value = nil
	}

	proof, err := i.tree.Prove(key)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state index proof for %s; %s", stateID, err.Error())
	}

	return &StateIndexProof{
		StateID: stateID,
		Value:   string(value),
		Proof:   proof,
	}, nil
}

// VerifyStateProof returns true if the proof is valid against the given hex root
func VerifyStateProof(proof *StateIndexProof, root string) bool {
	if proof == nil {
		return false
	}
	rootBytes, err := hex.DecodeString(root)
	if err != nil {
		return false
	}
	key := sha256.Sum256([]byte(proof.StateID))
	return smt.VerifyProof(proof.Proof, rootBytes, key[:], []byte(proof.Value), sha256.New())
}
