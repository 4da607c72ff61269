package sdk

import (
	"context"
	"sync"
	"time"

	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultRefreshInterval = 30 * time.Second

type EstimateStatus struct {
	types.DustEstimate
	CanAfford bool `json:"canAfford"`
}

type Snapshot struct {
	Balances     types.WalletBalances `json:"balances"`
	PrivacyLevel types.PrivacyLevel   `json:"privacyLevel"`
	Donation     EstimateStatus       `json:"donation"`
	TaxProof     EstimateStatus       `json:"taxProof"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// Dashboard keeps wallet balances and the cost of the next donation and tax
// proof up to date for the selected privacy level.
type Dashboard struct {
	client   *Client
	interval time.Duration
	trigger  chan struct{}

	mtx      sync.RWMutex
	level    types.PrivacyLevel
	snapshot *Snapshot

	log zerolog.Logger
}

func NewDashboard(c *Client, interval time.Duration) *Dashboard {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Dashboard{
		client:   c,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		level:    types.PRIVATE,
		log:      c.log.With().Str("component", "dashboard").Logger(),
	}
}

// Run refreshes once immediately, then on every tick and after every privacy
// level change, until ctx is done.
func (d *Dashboard) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.refreshAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-d.trigger:
		}
		d.refreshAndLog(ctx)
	}
}

func (d *Dashboard) refreshAndLog(ctx context.Context) {
	if err := d.Refresh(ctx); err != nil && ctx.Err() == nil {
		d.log.Warn().Err(err).Msg("failed to update dashboard")
	}
}

func (d *Dashboard) SetPrivacyLevel(lvl types.PrivacyLevel) {
	d.mtx.Lock()
	changed := d.level != lvl
	d.level = lvl
	d.mtx.Unlock()

	if changed {
		select {
		case d.trigger <- struct{}{}:
		default:
		}
	}
}

func (d *Dashboard) PrivacyLevel() types.PrivacyLevel {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	return d.level
}

// Refresh reads balances, then both estimates concurrently.
func (d *Dashboard) Refresh(ctx context.Context) error {
	lvl := d.PrivacyLevel()

	balances, err := d.client.GetWalletBalances(ctx)
	if err != nil {
		return err
	}

	var donation, taxProof types.DustEstimate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		donation, err = d.client.EstimateDustCost(gctx, OpDonation, lvl)
		return err
	})
	g.Go(func() (err error) {
		taxProof, err = d.client.EstimateDustCost(gctx, OpTaxProof, lvl)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	snap := &Snapshot{
		Balances:     balances,
		PrivacyLevel: lvl,
		Donation:     EstimateStatus{DustEstimate: donation, CanAfford: balances.CanAfford(donation.EstimatedCost)},
		TaxProof:     EstimateStatus{DustEstimate: taxProof, CanAfford: balances.CanAfford(taxProof.EstimatedCost)},
		UpdatedAt:    d.client.now(),
	}
	d.mtx.Lock()
	d.snapshot = snap
	d.mtx.Unlock()
	return nil
}

// Snapshot returns the latest refresh, or false before the first one.
func (d *Dashboard) Snapshot() (Snapshot, bool) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.snapshot == nil {
		return Snapshot{}, false
	}
	return *d.snapshot, true
}
