package types

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/kysee/zkcharity/zk-charity/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDustCosts(t *testing.T) {
	require.EqualValues(t, 200, PUBLIC.DustCost())
	require.EqualValues(t, 500, PRIVATE.DustCost())
	require.EqualValues(t, 1000, ANONYMOUS.DustCost())
	require.EqualValues(t, 1500, SELECTIVE.DustCost())
	require.EqualValues(t, 100, PrivacyLevel("WHATEVER").DustCost())

	est := EstimateDust("tax_proof", ANONYMOUS)
	require.Equal(t, "tax_proof", est.Operation)
	require.EqualValues(t, 1000, est.EstimatedCost)
	require.Equal(t, []string{"Privacy Level", "ZK Proof Complexity"}, est.Factors)

	// the returned factors are a copy
	est.Factors[0] = "x"
	require.Equal(t, "Privacy Level", DustCostFactors[0])
}

func TestParsePrivacyLevel(t *testing.T) {
	lvl, err := ParsePrivacyLevel(" selective ")
	require.NoError(t, err)
	require.Equal(t, SELECTIVE, lvl)

	_, err = ParsePrivacyLevel("SECRET")
	require.ErrorIs(t, err, ErrUnknownPrivacyLevel)
	for _, lvl := range PrivacyLevels() {
		require.Contains(t, err.Error(), string(lvl))
		got, err := ParsePrivacyLevel(string(lvl))
		require.NoError(t, err)
		require.Equal(t, lvl, got)
	}

	var v struct {
		Level PrivacyLevel `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"public"}`), &v))
	require.Equal(t, PUBLIC, v.Level)
	require.Error(t, json.Unmarshal([]byte(`{"level":"nope"}`), &v))

	require.True(t, PUBLIC.RevealsAmount())
	require.False(t, SELECTIVE.RevealsAmount())
	require.True(t, PRIVATE.RevealsDonor())
	require.False(t, ANONYMOUS.DonorInNote())
	require.True(t, SELECTIVE.DonorInNote())
}

func TestBaseUnits(t *testing.T) {
	u, err := ToBaseUnits(decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	require.Equal(t, uint64(12_500_000), u.Uint64())
	require.Equal(t, "12.5", FromBaseUnits(u).String())

	_, err = ToBaseUnits(decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ToBaseUnits(decimal.RequireFromString("-1"))
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ToBaseUnits(decimal.RequireFromString("0.0000001"))
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ToBaseUnits(decimal.RequireFromString("1e20"))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWalletBalancesJSON(t *testing.T) {
	b := NewWalletBalances(decimal.RequireFromString("150"), decimal.RequireFromString("900"))
	require.Equal(t, "1.5", b.DustGenerationRate.String())
	require.True(t, b.CanAfford(900))
	require.False(t, b.CanAfford(901))

	bz, err := json.Marshal(b)
	require.NoError(t, err)
	require.JSONEq(t, `{"night":150,"dust":900,"dustGenerationRate":1.5}`, string(bz))
}

func TestDonationNote_Seal(t *testing.T) {
	charity, err := crypto.NewKey()
	require.NoError(t, err)

	w := NewDonationWitness("secret", "charity_1", 3_000_000, RandBytes(32), false)
	note := NewDonationNote(w, "charity_1", "")
	note.Memo = []byte("for the flood relief")

	sealed, err := SealDonationNote(note, &charity.PublicKey)
	require.NoError(t, err)

	opened, err := OpenDonationNote(charity, sealed)
	require.NoError(t, err)
	require.Equal(t, note.CharityID, opened.CharityID)
	require.Equal(t, uint256.NewInt(3_000_000), opened.Amount)
	require.Equal(t, note.Memo, opened.Memo)
	require.Empty(t, opened.Donor)
	require.Equal(t, w.Commitment, opened.Commitment())
}

func TestDonationTx_Codec(t *testing.T) {
	tx := &DonationTx{
		Version:       TxVersion,
		CharityID:     "charity_2",
		Privacy:       ANONYMOUS,
		Backend:       "groth16",
		Proof:         []byte{1, 2, 3},
		PublicSignals: []string{"1", "2", "3", "0", "0"},
		DustFee:       1000,
		Note:          []byte{9},
		Nonce:         RandBytes(16),
	}
	bz, err := tx.Encode()
	require.NoError(t, err)

	decoded, err := DecodeDonationTx(bz)
	require.NoError(t, err)
	require.Equal(t, tx, decoded)

	d0, err := tx.SigningDigest()
	require.NoError(t, err)

	// the signature is not covered by the digest
	tx.Signature = []byte{7, 7}
	d1, err := tx.SigningDigest()
	require.NoError(t, err)
	require.Equal(t, d0, d1)

	tx.DustFee = 999
	d2, err := tx.SigningDigest()
	require.NoError(t, err)
	require.NotEqual(t, d0, d2)

	require.Len(t, TxID(bz), 64)
	require.NotEqual(t, TxID(bz), TxID(append(bz, 0)))

	_, err = DecodeDonationTx([]byte{0xff, 0x00})
	require.ErrorIs(t, err, ErrInvalidTx)
}

func TestUnsignedDonation_Codec(t *testing.T) {
	u := &UnsignedDonation{
		Tx:    DonationTx{Version: TxVersion, CharityID: "charity_1", Privacy: PUBLIC, PublicSignals: []string{}},
		Spend: 10,
	}
	bz, err := u.Encode()
	require.NoError(t, err)
	decoded, err := DecodeUnsignedDonation(bz)
	require.NoError(t, err)
	require.Equal(t, u.Spend, decoded.Spend)
	require.Equal(t, u.Tx.CharityID, decoded.Tx.CharityID)
}
