package sdk

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/kysee/zkcharity/zk-charity/charity"
	"github.com/kysee/zkcharity/zk-charity/crypto"
	"github.com/kysee/zkcharity/zk-charity/node"
	"github.com/kysee/zkcharity/zk-charity/prover"
	"github.com/kysee/zkcharity/zk-charity/store"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/kysee/zkcharity/zk-charity/wallet"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	proverOnce sync.Once
	zkProver   *prover.Prover
	proverErr  error
)

func testProver(t *testing.T) *prover.Prover {
	proverOnce.Do(func() {
		var keys *prover.Keys
		if keys, proverErr = prover.Setup(types.Groth16); proverErr == nil {
			zkProver = prover.New(keys, zerolog.Nop())
		}
	})
	require.NoError(t, proverErr)
	return zkProver
}

type env struct {
	client    *Client
	wallet    *wallet.LocalWallet
	ledger    *node.Ledger
	charities *charity.Registry
}

func newEnv(t *testing.T, night, dust string) *env {
	db, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p := testProver(t)
	reg, err := charity.NewRegistry(db, charity.DefaultCharities, zerolog.Nop())
	require.NoError(t, err)
	l, err := node.Open(db, p.Verifier(), reg, zerolog.Nop())
	require.NoError(t, err)

	frozen := time.Unix(1_700_000_000, 0)
	w, err := wallet.New(rand.New(rand.NewPCG(1, 1)), l,
		wallet.WithBalances(decimal.RequireFromString(night), decimal.RequireFromString(dust)),
		wallet.WithClock(func() time.Time { return frozen }),
	)
	require.NoError(t, err)

	return &env{
		client:    NewClient(w, p, l, reg, db),
		wallet:    w,
		ledger:    l,
		charities: reg,
	}
}

func mustPub(t *testing.T, bz []byte) *jubjub.PublicKey {
	pub, err := crypto.ParsePub(bz)
	require.NoError(t, err)
	return pub
}

func TestEstimateDustCost(t *testing.T) {
	e := newEnv(t, "100", "100")
	ctx := context.Background()

	for lvl, cost := range map[types.PrivacyLevel]int64{
		types.PUBLIC: 200, types.PRIVATE: 500, types.ANONYMOUS: 1000, types.SELECTIVE: 1500, "SECRET": 100,
	} {
		est, err := e.client.EstimateDustCost(ctx, OpTaxProof, lvl)
		require.NoError(t, err)
		require.Equal(t, OpTaxProof, est.Operation)
		require.Equal(t, cost, est.EstimatedCost)
		require.Equal(t, []string{"Privacy Level", "ZK Proof Complexity"}, est.Factors)
	}

	_, err := e.client.EstimateDustCost(ctx, "", types.PUBLIC)
	require.ErrorIs(t, err, types.ErrMissingFields)
}

func TestLatencyHonoursContext(t *testing.T) {
	e := newEnv(t, "100", "100")
	e.client.latency = Latency{Balances: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := e.client.GetWalletBalances(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMakeDustAwareDonation(t *testing.T) {
	e := newEnv(t, "100", "3000")
	ctx := context.Background()

	res, err := e.client.MakeDustAwareDonation(ctx, "charity_1", decimal.RequireFromString("12.5"), "alice-secret", types.ANONYMOUS)
	require.NoError(t, err)
	require.Len(t, res.DonationID, 64)
	require.EqualValues(t, 1000, res.DustConsumed)
	require.Equal(t, types.ANONYMOUS, res.PrivacyLevel)

	b, err := e.client.GetWalletBalances(ctx)
	require.NoError(t, err)
	require.Equal(t, "87.5", b.Night.String())
	require.Equal(t, "2000", b.Dust.String())

	// the anonymous tx carries neither the donor nor the amount
	tx, err := e.ledger.Tx(res.DonationID)
	require.NoError(t, err)
	require.Empty(t, tx.Donor)
	require.Zero(t, tx.Amount)
	require.NotEqual(t, e.wallet.Address(), types.Pub2Addr(mustPub(t, tx.SignerPub)))

	got, err := e.charities.Received(e.ledger, "charity_1")
	require.NoError(t, err)
	require.Equal(t, "12.5", got.Total.String())
	require.Empty(t, got.Donations[0].Donor)

	// a PUBLIC donation names the donor and the amount
	res, err = e.client.MakeDustAwareDonation(ctx, "charity_2", decimal.NewFromInt(3), "alice-secret", types.PUBLIC)
	require.NoError(t, err)
	tx, err = e.ledger.Tx(res.DonationID)
	require.NoError(t, err)
	require.Equal(t, e.wallet.Address(), tx.Donor)
	require.EqualValues(t, 3_000_000, tx.Amount)

	history, err := e.client.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "charity_1", history[0].CharityID)
	require.Equal(t, "charity_2", history[1].CharityID)
}

func TestMakeDustAwareDonationRejects(t *testing.T) {
	e := newEnv(t, "100", "600")
	ctx := context.Background()
	amount := decimal.NewFromInt(1)

	_, err := e.client.MakeDustAwareDonation(ctx, "", amount, "s", types.PRIVATE)
	require.ErrorIs(t, err, types.ErrMissingFields)
	_, err = e.client.MakeDustAwareDonation(ctx, "charity_1", decimal.Zero, "s", types.PRIVATE)
	require.ErrorIs(t, err, types.ErrMissingFields)
	_, err = e.client.MakeDustAwareDonation(ctx, "charity_1", amount, "", types.PRIVATE)
	require.ErrorIs(t, err, types.ErrMissingFields)
	_, err = e.client.MakeDustAwareDonation(ctx, "charity_1", decimal.NewFromInt(-1), "s", types.PRIVATE)
	require.ErrorIs(t, err, types.ErrInvalidAmount)
	_, err = e.client.MakeDustAwareDonation(ctx, "charity_1", decimal.RequireFromString("0.0000001"), "s", types.PRIVATE)
	require.ErrorIs(t, err, types.ErrInvalidAmount)
	_, err = e.client.MakeDustAwareDonation(ctx, "charity_1", amount, "s", "SECRET")
	require.ErrorIs(t, err, types.ErrUnknownPrivacyLevel)
	_, err = e.client.MakeDustAwareDonation(ctx, "charity_1", amount, "s", types.ANONYMOUS)
	require.ErrorIs(t, err, types.ErrInsufficientDust)
	_, err = e.client.MakeDustAwareDonation(ctx, "charity_7", amount, "s", types.PRIVATE)
	require.ErrorIs(t, err, types.ErrUnknownCharity)
	_, err = e.client.MakeDustAwareDonation(ctx, "charity_1", decimal.NewFromInt(1000), "s", types.PRIVATE)
	require.ErrorIs(t, err, types.ErrInsufficientNight)

	history, err := e.client.History()
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestMakeDonationProgress(t *testing.T) {
	e := newEnv(t, "100", "1000")
	ctx := context.Background()

	var msgs []string
	progress := func(m string) { msgs = append(msgs, m) }

	res, err := e.client.MakeDonation(ctx, types.DonationDetails{
		CharityID:   "charity_2",
		Amount:      decimal.NewFromInt(5),
		DonorSecret: "bob-secret",
	}, progress)
	require.NoError(t, err)
	require.Equal(t, types.PRIVATE, res.PrivacyLevel)
	require.EqualValues(t, 500, res.DustConsumed)
	require.Equal(t, []string{MsgBuilding, MsgSigning, MsgSubmitting, MsgSuccess}, msgs)

	// DUST is now 500, enough for one more; the third donation fails in the wallet
	_, err = e.client.MakeDonation(ctx, types.DonationDetails{CharityID: "charity_2", Amount: decimal.NewFromInt(5), DonorSecret: "bob-secret"}, nil)
	require.NoError(t, err)

	msgs = nil
	_, err = e.client.MakeDonation(ctx, types.DonationDetails{CharityID: "charity_2", Amount: decimal.NewFromInt(5), DonorSecret: "bob-secret"}, progress)
	require.ErrorIs(t, err, types.ErrInsufficientDust)
	require.Equal(t, []string{MsgBuilding, MsgSigning, err.Error()}, msgs)

	msgs = nil
	_, err = e.client.MakeDonation(ctx, types.DonationDetails{CharityID: "charity_2"}, progress)
	require.ErrorIs(t, err, types.ErrMissingFields)
	require.Equal(t, []string{MsgBuilding, err.Error()}, msgs)
}

func TestTaxReceipt(t *testing.T) {
	e := newEnv(t, "100", "2000")
	ctx := context.Background()

	res, err := e.client.MakeDustAwareDonation(ctx, "charity_1", decimal.RequireFromString("7.25"), "carol-secret", types.PRIVATE)
	require.NoError(t, err)

	// another donation grows the tree after the first one
	_, err = e.client.MakeDustAwareDonation(ctx, "charity_2", decimal.NewFromInt(1), "carol-secret", types.PRIVATE)
	require.NoError(t, err)

	receipt, err := e.client.TaxReceipt(ctx, res.DonationID)
	require.NoError(t, err)
	require.Equal(t, "7.25", receipt.Amount.String())
	require.EqualValues(t, 500, receipt.DustConsumed)
	require.EqualValues(t, 2, receipt.Inclusion.NumLeaves)
	require.NoError(t, e.client.VerifyTaxReceipt(receipt))

	b, err := e.client.GetWalletBalances(ctx)
	require.NoError(t, err)
	require.Equal(t, "500", b.Dust.String())

	forged := *receipt
	forged.Amount = decimal.NewFromInt(700)
	require.ErrorIs(t, e.client.VerifyTaxReceipt(&forged), types.ErrInvalidProof)

	_, err = e.client.TaxReceipt(ctx, "unknown")
	require.ErrorIs(t, err, types.ErrNotFound)

	// the remaining 500 DUST pays for exactly one more receipt
	_, err = e.client.TaxReceipt(ctx, res.DonationID)
	require.NoError(t, err)
	_, err = e.client.TaxReceipt(ctx, res.DonationID)
	require.ErrorIs(t, err, types.ErrInsufficientDust)
}

func TestDashboard(t *testing.T) {
	e := newEnv(t, "100", "600")
	d := NewDashboard(e.client, time.Hour)

	_, ok := d.Snapshot()
	require.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := d.Snapshot()
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	snap, _ := d.Snapshot()
	require.Equal(t, types.PRIVATE, snap.PrivacyLevel)
	require.EqualValues(t, 500, snap.Donation.EstimatedCost)
	require.True(t, snap.Donation.CanAfford)
	require.Equal(t, OpTaxProof, snap.TaxProof.Operation)

	d.SetPrivacyLevel(types.SELECTIVE)
	require.Eventually(t, func() bool {
		snap, _ := d.Snapshot()
		return snap.PrivacyLevel == types.SELECTIVE
	}, 5*time.Second, 10*time.Millisecond)

	snap, _ = d.Snapshot()
	require.EqualValues(t, 1500, snap.Donation.EstimatedCost)
	require.False(t, snap.Donation.CanAfford)
	require.False(t, snap.TaxProof.CanAfford)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
