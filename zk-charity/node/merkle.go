package node

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/kysee/zkcharity/utils"
	"github.com/kysee/zkcharity/zk-charity/store"
	"github.com/kysee/zkcharity/zk-charity/types"
)

// InclusionProof shows that a commitment is a leaf of the tree with Root.
// ProofSet[0] is the leaf itself.
type InclusionProof struct {
	Root      []byte   `json:"root"`
	ProofSet  [][]byte `json:"proofSet"`
	Index     uint64   `json:"index"`
	NumLeaves uint64   `json:"numLeaves"`
}

// InclusionProof builds a Merkle proof for commitment against the current root.
func (l *Ledger) InclusionProof(commitment []byte) (*InclusionProof, error) {
	bzIdx, err := l.commitIdx.Get(commitment)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: commitment %x", types.ErrNotFound, commitment)
	} else if err != nil {
		return nil, err
	}
	idx := binary.BigEndian.Uint64(bzIdx)

	l.mtx.RLock()
	var buf bytes.Buffer
	for _, c := range l.leaves {
		buf.Write(c)
	}
	l.mtx.RUnlock()

	hasher := utils.MiMCHasher()
	root, proofSet, numLeaves, err := merkletree.BuildReaderProof(&buf, hasher, hasher.Size(), idx)
	if err != nil {
		return nil, err
	}
	return &InclusionProof{
		Root:      root,
		ProofSet:  proofSet,
		Index:     idx,
		NumLeaves: numLeaves,
	}, nil
}

// VerifyInclusion checks p and that it proves commitment.
func VerifyInclusion(p *InclusionProof, commitment []byte) bool {
	if p == nil || len(p.ProofSet) == 0 || !bytes.Equal(p.ProofSet[0], commitment) {
		return false
	}
	return merkletree.VerifyProof(utils.MiMCHasher(), p.Root, p.ProofSet, p.Index, p.NumLeaves)
}
