package node

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/fxamacker/cbor/v2"
	"github.com/kysee/zkcharity/utils"
	"github.com/kysee/zkcharity/zk-charity/crypto"
	"github.com/kysee/zkcharity/zk-charity/store"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/rs/zerolog"
)

const (
	bucketCommitments = "commitments"
	bucketCommitIdx   = "commitidx"
	bucketNullifiers  = "nullifiers"
	bucketTxs         = "txs"
	bucketNotes       = "notes/"
)

type ProofVerifier interface {
	Backend() types.Backend
	VerifyZKProof(proof []byte, signals types.PublicSignals) error
}

type CharityDirectory interface {
	Has(charityID string) bool
}

// NoteRecord is an encrypted donation note as stored for its charity.
type NoteRecord struct {
	TxID   string `cbor:"1,keyasint"`
	Index  uint64 `cbor:"2,keyasint"`
	Sealed []byte `cbor:"3,keyasint"`
}

var noteRecordEnc cbor.EncMode

func init() {
	var err error
	if noteRecordEnc, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
}

// Ledger is the in-process donation chain: it accepts signed donation txs,
// keeps the nullifier set and appends commitments to a MiMC Merkle tree.
type Ledger struct {
	mtx sync.RWMutex

	db          *store.DB
	commitments *store.Bucket
	commitIdx   *store.Bucket
	nullifiers  *store.Bucket
	txs         *store.Bucket

	tree   *merkletree.Tree
	leaves [][]byte
	root   []byte

	verifier  ProofVerifier
	charities CharityDirectory
	log       zerolog.Logger
}

// Open loads the ledger state kept in db and rebuilds the commitment tree.
func Open(db *store.DB, verifier ProofVerifier, charities CharityDirectory, log zerolog.Logger) (*Ledger, error) {
	l := &Ledger{
		db:          db,
		commitments: db.Bucket(bucketCommitments),
		commitIdx:   db.Bucket(bucketCommitIdx),
		nullifiers:  db.Bucket(bucketNullifiers),
		txs:         db.Bucket(bucketTxs),
		tree:        merkletree.New(utils.MiMCHasher()),
		verifier:    verifier,
		charities:   charities,
		log:         log.With().Str("module", "ledger").Logger(),
	}

	err := l.commitments.Iterate(func(k, v []byte) error {
		if binary.BigEndian.Uint64(k) != uint64(len(l.leaves)) {
			return fmt.Errorf("commitment index gap at %d", len(l.leaves))
		}
		l.appendLeaf(v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info().Int("commitments", len(l.leaves)).Hex("root", l.root).Msg("ledger opened")
	return l, nil
}

func (l *Ledger) appendLeaf(commitment []byte) uint64 {
	l.leaves = append(l.leaves, commitment)
	l.tree.Push(commitment)
	l.root = l.tree.Root()
	return uint64(len(l.leaves) - 1)
}

func idxKey(idx uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, idx)
}

// Submit validates a signed donation tx and applies it. It returns the tx id.
func (l *Ledger) Submit(ctx context.Context, signedTx []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tx, err := types.DecodeDonationTx(signedTx)
	if err != nil {
		return "", err
	}
	signals, err := l.validate(tx)
	if err != nil {
		return "", err
	}

	txID := types.TxID(signedTx)
	commitment := utils.ElementBytes(signals.Commitment)
	nullifier := utils.ElementBytes(signals.Nullifier)

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if ok, err := l.HasNullifier(nullifier); err != nil {
		return "", err
	} else if ok {
		return "", fmt.Errorf("%w: %x", types.ErrNullifierExists, nullifier)
	}

	// proof verification is the expensive check, it runs last
	if err := l.verifier.VerifyZKProof(tx.Proof, signals); err != nil {
		return "", err
	}

	idx := uint64(len(l.leaves))
	record, err := noteRecordEnc.Marshal(NoteRecord{TxID: txID, Index: idx, Sealed: tx.Note})
	if err != nil {
		return "", err
	}
	bt := l.db.NewBatch()
	bt.Put(l.nullifiers, nullifier, []byte(txID))
	bt.Put(l.commitments, idxKey(idx), commitment)
	bt.Put(l.commitIdx, commitment, idxKey(idx))
	bt.Put(l.db.Bucket(bucketNotes+tx.CharityID), idxKey(idx), record)
	bt.Put(l.txs, []byte(txID), signedTx)
	if err := bt.Write(); err != nil {
		return "", err
	}
	l.appendLeaf(commitment)

	l.log.Info().Str("txId", txID).Str("charity", tx.CharityID).
		Str("privacy", string(tx.Privacy)).Uint64("index", idx).Msg("donation accepted")
	return txID, nil
}

func (l *Ledger) validate(tx *types.DonationTx) (types.PublicSignals, error) {
	var signals types.PublicSignals

	if tx.Version != types.TxVersion {
		return signals, fmt.Errorf("%w: unsupported version %d", types.ErrInvalidTx, tx.Version)
	}
	if !tx.Privacy.Valid() {
		return signals, types.ErrUnknownPrivacyLevel
	}
	if tx.Backend != l.verifier.Backend() {
		return signals, fmt.Errorf("%w: proof backend %q, ledger expects %q", types.ErrInvalidProof, tx.Backend, l.verifier.Backend())
	}
	if len(tx.Note) == 0 {
		return signals, fmt.Errorf("%w: missing donation note", types.ErrInvalidTx)
	}

	if err := verifySignature(tx); err != nil {
		return signals, err
	}

	if tx.Privacy.RevealsDonor() != (tx.Donor != "") {
		return signals, fmt.Errorf("%w: donor address does not match privacy level %s", types.ErrInvalidTx, tx.Privacy)
	}

	if !l.charities.Has(tx.CharityID) {
		return signals, fmt.Errorf("%w: %s", types.ErrUnknownCharity, tx.CharityID)
	}
	signals, err := types.ParsePublicSignals(tx.PublicSignals)
	if err != nil {
		return signals, err
	}
	if charity := types.CharityElement(tx.CharityID); !signals.CharityID.Equal(&charity) {
		return signals, fmt.Errorf("%w: charity signal does not match %s", types.ErrInvalidTx, tx.CharityID)
	}

	if signals.RevealAmount != tx.Privacy.RevealsAmount() {
		return signals, fmt.Errorf("%w: reveal flag does not match privacy level %s", types.ErrInvalidTx, tx.Privacy)
	}
	if signals.DisclosedAmount != tx.Amount {
		return signals, fmt.Errorf("%w: disclosed amount %d, tx amount %d", types.ErrInvalidTx, signals.DisclosedAmount, tx.Amount)
	}

	if tx.DustFee < tx.Privacy.DustCost() {
		return signals, fmt.Errorf("%w: fee %d below %d", types.ErrInsufficientDust, tx.DustFee, tx.Privacy.DustCost())
	}
	return signals, nil
}

func verifySignature(tx *types.DonationTx) error {
	if len(tx.SignerPub) == 0 || len(tx.Signature) == 0 {
		return fmt.Errorf("%w: unsigned tx", types.ErrInvalidSignature)
	}
	pub, err := crypto.ParsePub(tx.SignerPub)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidSignature, err)
	}
	digest, err := tx.SigningDigest()
	if err != nil {
		return err
	}
	ok, err := pub.Verify(tx.Signature, digest, utils.MiMCHasher())
	if err != nil || !ok {
		return types.ErrInvalidSignature
	}
	if tx.Donor != "" && types.Pub2Addr(pub) != tx.Donor {
		return fmt.Errorf("%w: signer is not the donor %s", types.ErrInvalidSignature, tx.Donor)
	}
	return nil
}

//
// queries
//

func (l *Ledger) Root() []byte {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return bytes.Clone(l.root)
}

func (l *Ledger) Len() uint64 {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return uint64(len(l.leaves))
}

func (l *Ledger) Commitment(idx uint64) ([]byte, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	if idx >= uint64(len(l.leaves)) {
		return nil, types.ErrNotFound
	}
	return bytes.Clone(l.leaves[idx]), nil
}

func (l *Ledger) HasNullifier(nullifier []byte) (bool, error) {
	return l.nullifiers.Has(nullifier)
}

// Tx returns the signed tx stored under txID.
func (l *Ledger) Tx(txID string) (*types.DonationTx, error) {
	bz, err := l.txs.Get([]byte(txID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: tx %s", types.ErrNotFound, txID)
	} else if err != nil {
		return nil, err
	}
	return types.DecodeDonationTx(bz)
}

// Notes returns the encrypted notes addressed to a charity, in ledger order.
func (l *Ledger) Notes(charityID string) ([]NoteRecord, error) {
	var ret []NoteRecord
	err := l.db.Bucket(bucketNotes + charityID).Iterate(func(k, v []byte) error {
		var rec NoteRecord
		if err := cbor.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("corrupted note record %x: %w", k, err)
		}
		ret = append(ret, rec)
		return nil
	})
	return ret, err
}
