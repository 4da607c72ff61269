package sdk

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kysee/zkcharity/utils"
	"github.com/kysee/zkcharity/zk-charity/node"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/shopspring/decimal"
)

// TaxReceipt opens a donation commitment for a tax authority and proves the
// commitment is on the ledger. The donor secret stays hidden: only the tag
// derived from it is disclosed.
type TaxReceipt struct {
	DonationID   string               `json:"donationId"`
	CharityID    string               `json:"charityId"`
	Amount       decimal.Decimal      `json:"amount"`
	Tag          string               `json:"tag"`
	Salt         string               `json:"salt"`
	Commitment   string               `json:"commitment"`
	Inclusion    *node.InclusionProof `json:"inclusion"`
	DustConsumed int64                `json:"dustConsumed"`
	IssuedAt     time.Time            `json:"issuedAt"`
}

// TaxReceipt charges the tax_proof cost of the donation's privacy level and
// issues a receipt for it.
func (c *Client) TaxReceipt(ctx context.Context, donationID string) (*TaxReceipt, error) {
	d, err := c.Donation(donationID)
	if err != nil {
		return nil, err
	}
	est, err := c.EstimateDustCost(ctx, OpTaxProof, d.PrivacyLevel)
	if err != nil {
		return nil, err
	}
	inclusion, err := c.ledger.InclusionProof(d.Commitment)
	if err != nil {
		return nil, err
	}
	if err := c.wallet.SpendDust(ctx, est.EstimatedCost); err != nil {
		return nil, err
	}

	c.log.Info().Str("donationId", donationID).Int64("dust", est.EstimatedCost).Msg("tax receipt issued")
	return &TaxReceipt{
		DonationID:   d.DonationID,
		CharityID:    d.CharityID,
		Amount:       d.Amount(),
		Tag:          hex.EncodeToString(d.Tag),
		Salt:         hex.EncodeToString(d.Salt),
		Commitment:   hex.EncodeToString(d.Commitment),
		Inclusion:    inclusion,
		DustConsumed: est.EstimatedCost,
		IssuedAt:     c.now(),
	}, nil
}

// VerifyTaxReceipt checks that the receipt opens its commitment, that the
// commitment is a leaf of the receipt's Merkle root and that it is the
// commitment of the ledger tx the receipt names.
func (c *Client) VerifyTaxReceipt(r *TaxReceipt) error {
	if r == nil || r.Inclusion == nil {
		return types.ErrMissingFields
	}
	tag, err := hex.DecodeString(r.Tag)
	if err != nil {
		return fmt.Errorf("%w: tag: %v", types.ErrInvalidProof, err)
	}
	salt, err := hex.DecodeString(r.Salt)
	if err != nil {
		return fmt.Errorf("%w: salt: %v", types.ErrInvalidProof, err)
	}
	commitment, err := hex.DecodeString(r.Commitment)
	if err != nil {
		return fmt.Errorf("%w: commitment: %v", types.ErrInvalidProof, err)
	}
	units, err := types.ToBaseUnits(r.Amount)
	if err != nil {
		return err
	}

	opened := types.ComputeCommitment(
		utils.ElementFromBytes(tag),
		types.CharityElement(r.CharityID),
		units.Uint64(),
		utils.ElementFromBytes(salt),
	)
	if !bytes.Equal(utils.ElementBytes(opened), commitment) {
		return fmt.Errorf("%w: opening does not match commitment", types.ErrInvalidProof)
	}
	if !node.VerifyInclusion(r.Inclusion, commitment) {
		return fmt.Errorf("%w: commitment not included in root", types.ErrInvalidProof)
	}

	tx, err := c.ledger.Tx(r.DonationID)
	if err != nil {
		return err
	}
	signals, err := types.ParsePublicSignals(tx.PublicSignals)
	if err != nil {
		return err
	}
	if !bytes.Equal(utils.ElementBytes(signals.Commitment), commitment) {
		return fmt.Errorf("%w: donation %s has another commitment", types.ErrInvalidProof, r.DonationID)
	}
	return nil
}
