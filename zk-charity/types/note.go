package types

import (
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/kysee/zkcharity/utils"
	"github.com/kysee/zkcharity/zk-charity/crypto"
)

const NoteVersion = 1

// DonationNote is the plaintext a charity receives, encrypted, with every
// donation. It opens the on-ledger commitment so the charity learns the
// amount even when the proof keeps it private.
type DonationNote struct {
	Version   byte
	CharityID string
	Amount    *uint256.Int
	Salt      []byte
	Tag       []byte

	// Donor is empty for ANONYMOUS donations.
	Donor string
	Memo  []byte
}

func NewDonationNote(w *DonationWitness, charityID, donor string) *DonationNote {
	return &DonationNote{
		Version:   NoteVersion,
		CharityID: charityID,
		Amount:    uint256.NewInt(w.Amount),
		Salt:      utils.ElementBytes(w.Salt),
		Tag:       utils.ElementBytes(w.Tag),
		Donor:     donor,
	}
}

// Commitment recomputes the commitment the note opens.
func (n *DonationNote) Commitment() fr.Element {
	return ComputeCommitment(
		utils.ElementFromBytes(n.Tag),
		CharityElement(n.CharityID),
		n.Amount.Uint64(),
		utils.ElementFromBytes(n.Salt),
	)
}

// Bytes returns the RLP encoding. It panics if the encoding fails.
func (n *DonationNote) Bytes() []byte {
	b, err := rlp.EncodeToBytes(n)
	if err != nil {
		panic(fmt.Sprintf("failed to RLP encode DonationNote: %v", err))
	}
	return b
}

// EncodeRLP implements rlp.Encoder.
func (n *DonationNote) EncodeRLP(w io.Writer) error {
	amount := new(big.Int)
	if n.Amount != nil {
		amount = n.Amount.ToBig()
	}
	return rlp.Encode(w, []interface{}{
		n.Version,
		n.CharityID,
		amount,
		n.Salt,
		n.Tag,
		n.Donor,
		n.Memo,
	})
}

// DecodeRLP implements rlp.Decoder.
func (n *DonationNote) DecodeRLP(s *rlp.Stream) error {
	var temp struct {
		Version   byte
		CharityID string
		Amount    *big.Int
		Salt      []byte
		Tag       []byte
		Donor     string
		Memo      []byte
	}
	if err := s.Decode(&temp); err != nil {
		return err
	}

	amount, overflow := uint256.FromBig(temp.Amount)
	if overflow {
		return fmt.Errorf("amount value overflows uint256")
	}

	n.Version = temp.Version
	n.CharityID = temp.CharityID
	n.Amount = amount
	n.Salt = temp.Salt
	n.Tag = temp.Tag
	n.Donor = temp.Donor
	n.Memo = temp.Memo
	return nil
}

func DecodeDonationNote(bz []byte) (*DonationNote, error) {
	n := new(DonationNote)
	if err := rlp.DecodeBytes(bz, n); err != nil {
		return nil, err
	}
	return n, nil
}

// SealDonationNote encrypts the note to the charity's public key.
func SealDonationNote(n *DonationNote, charityPub *jubjub.PublicKey) ([]byte, error) {
	return crypto.SealTo(charityPub, n.Bytes())
}

func OpenDonationNote(charityPrv *jubjub.PrivateKey, sealed []byte) (*DonationNote, error) {
	bz, err := crypto.OpenWith(charityPrv, sealed)
	if err != nil {
		return nil, err
	}
	return DecodeDonationNote(bz)
}
