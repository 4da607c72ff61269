package types

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// AmountDecimals is the number of fractional digits of NIGHT and DUST.
const AmountDecimals = 6

// DustGenerationRatio is DUST generated per hour for each NIGHT held.
var DustGenerationRatio = decimal.RequireFromString("0.01")

func init() {
	// balances are JSON numbers on the wire
	decimal.MarshalJSONWithoutQuotes = true
}

type WalletBalances struct {
	Night              decimal.Decimal `json:"night"`
	Dust               decimal.Decimal `json:"dust"`
	DustGenerationRate decimal.Decimal `json:"dustGenerationRate"`
}

func NewWalletBalances(night, dust decimal.Decimal) WalletBalances {
	return WalletBalances{
		Night:              night,
		Dust:               dust,
		DustGenerationRate: night.Mul(DustGenerationRatio),
	}
}

func (b WalletBalances) CanAfford(cost int64) bool {
	return b.Dust.GreaterThanOrEqual(decimal.NewFromInt(cost))
}

type DustEstimate struct {
	Operation     string   `json:"operation"`
	EstimatedCost int64    `json:"estimatedCost"`
	Factors       []string `json:"factors"`
}

// EstimateDust looks the cost up by privacy level; the operation is only echoed.
func EstimateDust(operation string, lvl PrivacyLevel) DustEstimate {
	factors := make([]string, len(DustCostFactors))
	copy(factors, DustCostFactors)
	return DustEstimate{
		Operation:     operation,
		EstimatedCost: lvl.DustCost(),
		Factors:       factors,
	}
}

type DonationResult struct {
	DonationID   string       `json:"donationId"`
	DustConsumed int64        `json:"dustConsumed"`
	PrivacyLevel PrivacyLevel `json:"privacyLevel"`
}

type DonationDetails struct {
	CharityID   string          `json:"charityId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	DonorSecret string          `json:"donorSecret" validate:"required"`
}

// ToBaseUnits converts a decimal amount to integer base units.
// The result is positive and fits in 64 bits.
func ToBaseUnits(amount decimal.Decimal) (*uint256.Int, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	scaled := amount.Shift(AmountDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: at most %d decimals", ErrInvalidAmount, AmountDecimals)
	}
	u, overflow := uint256.FromBig(scaled.BigInt())
	if overflow || !u.IsUint64() {
		return nil, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	return u, nil
}

func FromBaseUnits(u *uint256.Int) decimal.Decimal {
	return decimal.NewFromBigInt(u.ToBig(), -AmountDecimals)
}
