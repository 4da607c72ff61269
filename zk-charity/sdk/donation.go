package sdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/kysee/zkcharity/utils"
	"github.com/kysee/zkcharity/zk-charity/prover"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/shopspring/decimal"
)

const (
	OpDonation = "donation"
	OpTaxProof = "tax_proof"
)

const (
	MsgBuilding   = "1/3: Building transaction..."
	MsgSigning    = "2/3: Awaiting signature in wallet..."
	MsgSubmitting = "3/3: Submitting to Midnight network..."
	MsgSuccess    = "Donation sent successfully!"
	MsgFailed     = "Donation failed."
)

// Progress receives user facing status messages of a donation.
type Progress func(msg string)

type request struct {
	charityID   string
	amount      decimal.Decimal
	units       uint64
	donorSecret string
	level       types.PrivacyLevel
}

func newRequest(charityID string, amount decimal.Decimal, donorSecret string, lvl types.PrivacyLevel) (*request, error) {
	if charityID == "" || strings.TrimSpace(donorSecret) == "" || amount.IsZero() {
		return nil, types.ErrMissingFields
	}
	if !lvl.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownPrivacyLevel, lvl)
	}
	units, err := types.ToBaseUnits(amount)
	if err != nil {
		return nil, err
	}
	return &request{
		charityID:   charityID,
		amount:      amount,
		units:       units.Uint64(),
		donorSecret: donorSecret,
		level:       lvl,
	}, nil
}

// built is an unsigned donation plus what the donor keeps to open it later.
type built struct {
	unsigned []byte
	proof    *prover.Proof
	fee      int64
}

// build proves the donation and assembles the unsigned tx for the wallet.
func (c *Client) build(ctx context.Context, req *request) (*built, error) {
	ch, err := c.charities.Lookup(req.charityID)
	if err != nil {
		return nil, err
	}

	proof, err := c.prover.Prove(ctx, prover.Request{
		DonorSecret: req.donorSecret,
		CharityID:   req.charityID,
		Amount:      req.units,
		Reveal:      req.level.RevealsAmount(),
	})
	if err != nil {
		return nil, err
	}

	var noteDonor, txDonor string
	if req.level.DonorInNote() {
		noteDonor = c.wallet.Address()
	}
	if req.level.RevealsDonor() {
		txDonor = c.wallet.Address()
	}
	sealed, err := types.SealDonationNote(types.NewDonationNote(proof.Witness, req.charityID, noteDonor), ch.PublicKey())
	if err != nil {
		return nil, err
	}

	fee := types.EstimateDust(OpDonation, req.level).EstimatedCost
	u := &types.UnsignedDonation{
		Tx: types.DonationTx{
			Version:       types.TxVersion,
			CharityID:     req.charityID,
			Privacy:       req.level,
			Backend:       proof.Backend,
			Proof:         proof.Bytes,
			PublicSignals: proof.Signals().Strings(),
			DustFee:       fee,
			Donor:         txDonor,
			Note:          sealed,
			Nonce:         types.RandBytes(16),
		},
		Spend: req.units,
	}
	if req.level.RevealsAmount() {
		u.Tx.Amount = req.units
	}
	bz, err := u.Encode()
	if err != nil {
		return nil, err
	}
	return &built{unsigned: bz, proof: proof, fee: fee}, nil
}

func (c *Client) record(req *request, b *built, txID string) error {
	w := b.proof.Witness
	return c.putHistory(&Donation{
		DonationID:   txID,
		CharityID:    req.charityID,
		Units:        req.units,
		PrivacyLevel: req.level,
		DustConsumed: b.fee,
		Timestamp:    c.now(),
		Commitment:   utils.ElementBytes(w.Commitment),
		Tag:          utils.ElementBytes(w.Tag),
		Salt:         utils.ElementBytes(w.Salt),
	})
}

// MakeDustAwareDonation donates after checking the wallet holds enough DUST
// for the privacy level.
func (c *Client) MakeDustAwareDonation(ctx context.Context, charityID string, amount decimal.Decimal, donorSecret string, lvl types.PrivacyLevel) (*types.DonationResult, error) {
	req, err := newRequest(charityID, amount, donorSecret, lvl)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("charity", charityID).Str("privacy", string(lvl)).Msg("making donation")

	if err := wait(ctx, c.latency.Donation); err != nil {
		return nil, err
	}
	est, err := c.EstimateDustCost(ctx, OpDonation, lvl)
	if err != nil {
		return nil, err
	}
	balances, err := c.wallet.Balances(ctx)
	if err != nil {
		return nil, err
	}
	if !balances.CanAfford(est.EstimatedCost) {
		return nil, fmt.Errorf("%w: need %d, have %s", types.ErrInsufficientDust, est.EstimatedCost, balances.Dust)
	}

	b, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	signed, err := c.wallet.SignTx(ctx, b.unsigned)
	if err != nil {
		return nil, err
	}
	txID, err := c.wallet.SubmitTx(ctx, signed)
	if err != nil {
		return nil, err
	}
	if err := c.record(req, b, txID); err != nil {
		c.log.Error().Err(err).Str("txId", txID).Msg("failed to record donation")
	}

	return &types.DonationResult{
		DonationID:   txID,
		DustConsumed: est.EstimatedCost,
		PrivacyLevel: lvl,
	}, nil
}

// MakeDonation runs the build, sign and submit steps at the PRIVATE level and
// reports each one through progress, which may be nil. A failure is reported
// and then returned.
func (c *Client) MakeDonation(ctx context.Context, details types.DonationDetails, progress Progress) (result *types.DonationResult, err error) {
	if progress == nil {
		progress = func(string) {}
	}
	defer func() {
		if err != nil {
			msg := err.Error()
			if msg == "" {
				msg = MsgFailed
			}
			c.log.Error().Err(err).Msg("donation failed")
			progress(msg)
		}
	}()

	progress(MsgBuilding)
	req, err := newRequest(details.CharityID, details.Amount, details.DonorSecret, types.PRIVATE)
	if err != nil {
		return nil, err
	}
	if err := wait(ctx, c.latency.Donation); err != nil {
		return nil, err
	}
	b, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	progress(MsgSigning)
	signed, err := c.wallet.SignTx(ctx, b.unsigned)
	if err != nil {
		return nil, err
	}

	progress(MsgSubmitting)
	txID, err := c.wallet.SubmitTx(ctx, signed)
	if err != nil {
		return nil, err
	}
	if err := c.record(req, b, txID); err != nil {
		c.log.Error().Err(err).Str("txId", txID).Msg("failed to record donation")
	}

	progress(MsgSuccess)
	return &types.DonationResult{
		DonationID:   txID,
		DustConsumed: b.fee,
		PrivacyLevel: types.PRIVATE,
	}, nil
}
