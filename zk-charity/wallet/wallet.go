package wallet

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/holiman/uint256"
	"github.com/kysee/zkcharity/utils"
	"github.com/kysee/zkcharity/zk-charity/crypto"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Network accepts signed txs, e.g. the ledger.
type Network interface {
	Submit(ctx context.Context, signedTx []byte) (string, error)
}

// Wallet is what the SDK needs from a connected wallet.
type Wallet interface {
	Address() string
	Balances(ctx context.Context) (types.WalletBalances, error)
	SignTx(ctx context.Context, unsigned []byte) ([]byte, error)
	SubmitTx(ctx context.Context, signed []byte) (string, error)
	SpendDust(ctx context.Context, amount int64) error
}

const DefaultDustCapRatio = 5

const (
	// PendingTTL is how long a signed tx waits for SubmitTx before the
	// wallet forgets it.
	PendingTTL = 10 * time.Minute
	maxPending = 64
)

type spend struct {
	night    uint64
	dust     int64
	signedAt time.Time
}

// LocalWallet holds NIGHT and DUST in memory. DUST accrues from the NIGHT
// balance over time up to night * capRatio.
type LocalWallet struct {
	mtx sync.Mutex

	key     *jubjub.PrivateKey
	address string

	night     decimal.Decimal
	dust      decimal.Decimal
	updatedAt time.Time
	capRatio  decimal.Decimal

	pending map[string]spend
	network Network
	now     func() time.Time
	log     zerolog.Logger
}

type Option func(*LocalWallet)

func WithDustCapRatio(ratio float64) Option {
	return func(w *LocalWallet) {
		w.capRatio = decimal.NewFromFloat(ratio)
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *LocalWallet) {
		w.now = now
	}
}

func WithBalances(night, dust decimal.Decimal) Option {
	return func(w *LocalWallet) {
		w.night, w.dust = night, dust
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(w *LocalWallet) {
		w.log = log
	}
}

// New creates a wallet with a fresh key and an initial allocation of
// 100..1100 NIGHT and 500..2500 DUST drawn from rng.
func New(rng *rand.Rand, network Network, opts ...Option) (*LocalWallet, error) {
	key, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}
	w := &LocalWallet{
		key:      key,
		address:  types.Pub2Addr(key.Public()),
		night:    decimal.NewFromFloat(rng.Float64()*1000 + 100).Round(types.AmountDecimals),
		dust:     decimal.NewFromFloat(rng.Float64()*2000 + 500).Round(types.AmountDecimals),
		capRatio: decimal.NewFromInt(DefaultDustCapRatio),
		pending:  make(map[string]spend),
		network:  network,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.updatedAt = w.now()
	w.log = w.log.With().Str("module", "wallet").Str("address", w.address).Logger()
	return w, nil
}

func (w *LocalWallet) Address() string {
	return w.address
}

// accrue adds the DUST generated since the last update. Caller holds mtx.
func (w *LocalWallet) accrue() {
	now := w.now()
	elapsed := now.Sub(w.updatedAt)
	w.updatedAt = now
	if elapsed <= 0 {
		return
	}

	limit := w.night.Mul(w.capRatio)
	if w.dust.GreaterThanOrEqual(limit) {
		return
	}
	hours := decimal.NewFromFloat(elapsed.Hours())
	generated := w.night.Mul(types.DustGenerationRatio).Mul(hours)
	w.dust = decimal.Min(w.dust.Add(generated), limit).Round(types.AmountDecimals)
}

func (w *LocalWallet) Balances(ctx context.Context) (types.WalletBalances, error) {
	if err := ctx.Err(); err != nil {
		return types.WalletBalances{}, err
	}
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.accrue()
	return types.NewWalletBalances(w.night, w.dust), nil
}

// canSpend is called with mtx held.
func (w *LocalWallet) canSpend(sp spend) error {
	if w.night.LessThan(types.FromBaseUnits(uint256.NewInt(sp.night))) {
		return fmt.Errorf("%w: have %s", types.ErrInsufficientNight, w.night)
	}
	if w.dust.LessThan(decimal.NewFromInt(sp.dust)) {
		return fmt.Errorf("%w: have %s, need %d", types.ErrInsufficientDust, w.dust, sp.dust)
	}
	return nil
}

// SignTx balances and signs an encoded UnsignedDonation. A tx naming a donor
// must name this wallet and is signed with the wallet key; any other tx is
// signed with a one-time key so it cannot be linked to the wallet.
func (w *LocalWallet) SignTx(ctx context.Context, unsigned []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := types.DecodeUnsignedDonation(unsigned)
	if err != nil {
		return nil, err
	}
	tx := u.Tx
	sp := spend{night: u.Spend, dust: tx.DustFee}

	w.mtx.Lock()
	w.accrue()
	err = w.canSpend(sp)
	w.mtx.Unlock()
	if err != nil {
		return nil, err
	}

	signer := w.key
	if tx.Donor == "" {
		if signer, err = crypto.NewKey(); err != nil {
			return nil, err
		}
	} else if tx.Donor != w.address {
		return nil, fmt.Errorf("%w: donor %s is not this wallet", types.ErrInvalidTx, tx.Donor)
	}

	tx.SignerPub = signer.PublicKey.Bytes()
	tx.Signature = nil
	digest, err := tx.SigningDigest()
	if err != nil {
		return nil, err
	}
	if tx.Signature, err = signer.Sign(digest, utils.MiMCHasher()); err != nil {
		return nil, err
	}
	signed, err := tx.Encode()
	if err != nil {
		return nil, err
	}

	w.mtx.Lock()
	w.prunePending()
	sp.signedAt = w.now()
	w.pending[types.TxID(signed)] = sp
	w.mtx.Unlock()
	return signed, nil
}

// prunePending drops expired entries and, past maxPending, the oldest ones.
// It is called with mtx held.
func (w *LocalWallet) prunePending() {
	now := w.now()
	for id, sp := range w.pending {
		if now.Sub(sp.signedAt) > PendingTTL {
			delete(w.pending, id)
		}
	}
	for len(w.pending) >= maxPending {
		var oldest string
		for id, sp := range w.pending {
			if oldest == "" || sp.signedAt.Before(w.pending[oldest].signedAt) {
				oldest = id
			}
		}
		delete(w.pending, oldest)
	}
}

// SubmitTx forwards a signed tx to the network and debits the wallet once it
// is accepted. A tx hiding its amount must have been signed by this wallet
// within PendingTTL. A failed submission forgets the tx; sign it again to retry.
func (w *LocalWallet) SubmitTx(ctx context.Context, signed []byte) (string, error) {
	tx, err := types.DecodeDonationTx(signed)
	if err != nil {
		return "", err
	}

	w.mtx.Lock()
	defer w.mtx.Unlock()

	id := types.TxID(signed)
	sp, ok := w.pending[id]
	if ok && w.now().Sub(sp.signedAt) > PendingTTL {
		delete(w.pending, id)
		ok = false
	}
	if !ok {
		if !tx.Privacy.RevealsAmount() {
			return "", fmt.Errorf("%w: tx %s is not pending in this wallet", types.ErrInvalidTx, id)
		}
		sp = spend{night: tx.Amount, dust: tx.DustFee}
	}
	delete(w.pending, id)

	w.accrue()
	if err := w.canSpend(sp); err != nil {
		return "", err
	}

	txID, err := w.network.Submit(ctx, signed)
	if err != nil {
		return "", err
	}
	w.night = w.night.Sub(types.FromBaseUnits(uint256.NewInt(sp.night)))
	w.dust = w.dust.Sub(decimal.NewFromInt(sp.dust))

	w.log.Debug().Str("txId", txID).Int64("dust", sp.dust).Msg("tx submitted")
	return txID, nil
}

// SpendDust burns DUST for an operation that produces no tx, such as a tax
// receipt proof.
func (w *LocalWallet) SpendDust(ctx context.Context, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.accrue()
	if err := w.canSpend(spend{dust: amount}); err != nil {
		return err
	}
	w.dust = w.dust.Sub(decimal.NewFromInt(amount))
	return nil
}
