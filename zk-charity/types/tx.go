package types

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/kysee/zkcharity/utils"
	"github.com/zeebo/blake3"
)

const TxVersion = 1

// DonationTx is the wire form of a donation submitted to the ledger.
// Amounts never appear in clear except through the proof's disclosed amount.
type DonationTx struct {
	Version       uint8        `cbor:"1,keyasint"`
	CharityID     string       `cbor:"2,keyasint"`
	Privacy       PrivacyLevel `cbor:"3,keyasint"`
	Backend       Backend      `cbor:"4,keyasint"`
	Proof         []byte       `cbor:"5,keyasint"`
	PublicSignals []string     `cbor:"6,keyasint"`
	DustFee       int64        `cbor:"7,keyasint"`
	Donor         string       `cbor:"8,keyasint,omitempty"`
	Note          []byte       `cbor:"9,keyasint"`
	Nonce         []byte       `cbor:"10,keyasint"`
	SignerPub     []byte       `cbor:"11,keyasint,omitempty"`
	Signature     []byte       `cbor:"12,keyasint,omitempty"`

	// Amount is set only when the privacy level discloses it.
	Amount uint64 `cbor:"13,keyasint,omitempty"`
}

// UnsignedDonation is what the SDK hands to a wallet for signing. Spend is the
// NIGHT the wallet must balance the tx with; it is not part of the signed tx.
type UnsignedDonation struct {
	Tx    DonationTx `cbor:"1,keyasint"`
	Spend uint64     `cbor:"2,keyasint"`
}

var encMode cbor.EncMode

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
}

func (tx *DonationTx) Encode() ([]byte, error) {
	return encMode.Marshal(tx)
}

func DecodeDonationTx(bz []byte) (*DonationTx, error) {
	tx := new(DonationTx)
	if err := cbor.Unmarshal(bz, tx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	return tx, nil
}

func (u *UnsignedDonation) Encode() ([]byte, error) {
	return encMode.Marshal(u)
}

func DecodeUnsignedDonation(bz []byte) (*UnsignedDonation, error) {
	u := new(UnsignedDonation)
	if err := cbor.Unmarshal(bz, u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	return u, nil
}

// SigningDigest is the MiMC hash of the tx encoded without its signature.
// It is a canonical field element, as the eddsa MiMC signer requires.
func (tx *DonationTx) SigningDigest() ([]byte, error) {
	c := *tx
	c.Signature = nil
	bz, err := c.Encode()
	if err != nil {
		return nil, err
	}
	return utils.MiMCHash(bz), nil
}

// TxID is the hex BLAKE3-256 of the signed tx bytes.
func TxID(signedTx []byte) string {
	sum := blake3.Sum256(signedTx)
	return hex.EncodeToString(sum[:])
}
