package types

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"
	std_mimc "github.com/consensys/gnark/std/hash/mimc"
	"github.com/kysee/zkcharity/utils"
)

// AmountBits bounds a donation amount in base units.
const AmountBits = 64

// DonationCircuit proves knowledge of a donor secret behind a commitment to
// (donor tag, charity, amount, salt) and derives the nullifier that stops the
// same commitment from being spent twice. The amount is published only when
// RevealAmount is 1.
type DonationCircuit struct {
	Secret frontend.Variable
	Amount frontend.Variable
	Salt   frontend.Variable

	CharityID       frontend.Variable `gnark:",public"`
	Commitment      frontend.Variable `gnark:",public"`
	Nullifier       frontend.Variable `gnark:",public"`
	RevealAmount    frontend.Variable `gnark:",public"`
	DisclosedAmount frontend.Variable `gnark:",public"`
}

func (cc *DonationCircuit) Define(api frontend.API) error {
	hasher, err := std_mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// range check: 0 < Amount < 2^64
	_ = api.ToBinary(cc.Amount, AmountBits)
	api.AssertIsDifferent(cc.Amount, 0)

	api.AssertIsBoolean(cc.RevealAmount)
	api.AssertIsEqual(cc.DisclosedAmount, api.Mul(cc.RevealAmount, cc.Amount))

	// tag = H(secret)
	hasher.Reset()
	hasher.Write(cc.Secret)
	tag := hasher.Sum()

	// commitment = H(tag, charity, amount, salt)
	hasher.Reset()
	hasher.Write(tag, cc.CharityID, cc.Amount, cc.Salt)
	api.AssertIsEqual(cc.Commitment, hasher.Sum())

	// nullifier = H(secret, commitment)
	hasher.Reset()
	hasher.Write(cc.Secret, cc.Commitment)
	api.AssertIsEqual(cc.Nullifier, hasher.Sum())

	return nil
}

// DonationWitness is the native computation of every circuit value.
type DonationWitness struct {
	Secret     fr.Element
	Tag        fr.Element
	CharityID  fr.Element
	Amount     uint64
	Salt       fr.Element
	Commitment fr.Element
	Nullifier  fr.Element
	Reveal     bool
}

func CharityElement(charityID string) fr.Element {
	return utils.ToElement([]byte(charityID))
}

func SecretElement(donorSecret string) fr.Element {
	return utils.ToElement([]byte(donorSecret))
}

func ComputeCommitment(tag, charity fr.Element, amount uint64, salt fr.Element) fr.Element {
	return utils.HashElements(tag, charity, utils.ElementFromUint64(amount), salt)
}

func NewDonationWitness(donorSecret, charityID string, amount uint64, salt []byte, reveal bool) *DonationWitness {
	w := &DonationWitness{
		Secret:    SecretElement(donorSecret),
		CharityID: CharityElement(charityID),
		Amount:    amount,
		Salt:      utils.ElementFromBytes(salt),
		Reveal:    reveal,
	}
	w.Tag = utils.HashElements(w.Secret)
	w.Commitment = ComputeCommitment(w.Tag, w.CharityID, w.Amount, w.Salt)
	w.Nullifier = utils.HashElements(w.Secret, w.Commitment)
	return w
}

func (w *DonationWitness) Assignment() *DonationCircuit {
	a := w.PublicSignals().Assignment()
	a.Secret = utils.ElementBig(w.Secret)
	a.Amount = w.Amount
	a.Salt = utils.ElementBig(w.Salt)
	return a
}

func (w *DonationWitness) PublicSignals() PublicSignals {
	ps := PublicSignals{
		CharityID:  w.CharityID,
		Commitment: w.Commitment,
		Nullifier:  w.Nullifier,
	}
	if w.Reveal {
		ps.RevealAmount = true
		ps.DisclosedAmount = w.Amount
	}
	return ps
}

// PublicSignals are the public inputs of DonationCircuit in declaration order.
type PublicSignals struct {
	CharityID       fr.Element
	Commitment      fr.Element
	Nullifier       fr.Element
	RevealAmount    bool
	DisclosedAmount uint64
}

const NumPublicSignals = 5

// Assignment returns a circuit assignment holding only the public inputs.
func (ps PublicSignals) Assignment() *DonationCircuit {
	reveal := 0
	if ps.RevealAmount {
		reveal = 1
	}
	return &DonationCircuit{
		CharityID:       utils.ElementBig(ps.CharityID),
		Commitment:      utils.ElementBig(ps.Commitment),
		Nullifier:       utils.ElementBig(ps.Nullifier),
		RevealAmount:    reveal,
		DisclosedAmount: ps.DisclosedAmount,
	}
}

// Strings renders the signals as decimal strings, the snarkjs convention.
func (ps PublicSignals) Strings() []string {
	reveal := "0"
	if ps.RevealAmount {
		reveal = "1"
	}
	return []string{
		utils.ElementBig(ps.CharityID).String(),
		utils.ElementBig(ps.Commitment).String(),
		utils.ElementBig(ps.Nullifier).String(),
		reveal,
		new(big.Int).SetUint64(ps.DisclosedAmount).String(),
	}
}

func ParsePublicSignals(signals []string) (PublicSignals, error) {
	var ps PublicSignals
	if len(signals) != NumPublicSignals {
		return ps, fmt.Errorf("%w: expected %d public signals, got %d", ErrInvalidProof, NumPublicSignals, len(signals))
	}
	elems := make([]fr.Element, NumPublicSignals)
	for i, s := range signals {
		bi, ok := new(big.Int).SetString(s, 10)
		if !ok || bi.Sign() < 0 || bi.Cmp(fr.Modulus()) >= 0 {
			return ps, fmt.Errorf("%w: public signal %d is not a field element", ErrInvalidProof, i)
		}
		elems[i].SetBigInt(bi)
	}
	ps.CharityID = elems[0]
	ps.Commitment = elems[1]
	ps.Nullifier = elems[2]

	switch {
	case elems[3].IsZero():
		ps.RevealAmount = false
	case elems[3].IsOne():
		ps.RevealAmount = true
	default:
		return ps, fmt.Errorf("%w: reveal flag must be 0 or 1", ErrInvalidProof)
	}
	disclosed := utils.ElementBig(elems[4])
	if !disclosed.IsUint64() {
		return ps, fmt.Errorf("%w: disclosed amount out of range", ErrInvalidProof)
	}
	ps.DisclosedAmount = disclosed.Uint64()
	return ps, nil
}
