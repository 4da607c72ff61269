package sdk

import (
	"context"
	"time"

	"github.com/kysee/zkcharity/zk-charity/charity"
	"github.com/kysee/zkcharity/zk-charity/node"
	"github.com/kysee/zkcharity/zk-charity/prover"
	"github.com/kysee/zkcharity/zk-charity/store"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/kysee/zkcharity/zk-charity/wallet"
	"github.com/rs/zerolog"
)

type Prover interface {
	Prove(ctx context.Context, req prover.Request) (*prover.Proof, error)
}

type Ledger interface {
	Tx(txID string) (*types.DonationTx, error)
	InclusionProof(commitment []byte) (*node.InclusionProof, error)
}

type Charities interface {
	Lookup(id string) (*charity.Charity, error)
}

// Latency delays each operation the way a remote wallet and network would.
// The zero value adds no delay.
type Latency struct {
	Balances time.Duration
	Estimate time.Duration
	Donation time.Duration
}

var SimulatedLatency = Latency{
	Balances: 300 * time.Millisecond,
	Estimate: 200 * time.Millisecond,
	Donation: 1000 * time.Millisecond,
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client is the donor-side SDK. It drives a connected wallet, the prover and
// the ledger, and keeps the donor's donation history.
type Client struct {
	wallet    wallet.Wallet
	prover    Prover
	ledger    Ledger
	charities Charities
	history   *store.Bucket

	latency Latency
	now     func() time.Time
	log     zerolog.Logger
}

type Option func(*Client)

func WithLatency(l Latency) Option {
	return func(c *Client) {
		c.latency = l
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(w wallet.Wallet, p Prover, l Ledger, cs Charities, db *store.DB, opts ...Option) *Client {
	c := &Client{
		wallet:    w,
		prover:    p,
		ledger:    l,
		charities: cs,
		history:   db.Bucket(bucketHistory + w.Address()),
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("module", "sdk").Logger()
	return c
}

func (c *Client) GetWalletBalances(ctx context.Context) (types.WalletBalances, error) {
	if err := wait(ctx, c.latency.Balances); err != nil {
		return types.WalletBalances{}, err
	}
	return c.wallet.Balances(ctx)
}

// EstimateDustCost prices an operation at a privacy level. Levels missing
// from the cost table get types.DefaultDustCost rather than an error.
func (c *Client) EstimateDustCost(ctx context.Context, operation string, lvl types.PrivacyLevel) (types.DustEstimate, error) {
	if operation == "" {
		return types.DustEstimate{}, types.ErrMissingFields
	}
	if err := wait(ctx, c.latency.Estimate); err != nil {
		return types.DustEstimate{}, err
	}
	return types.EstimateDust(operation, lvl), nil
}
