package prover

import (
	"context"
	"sync"
	"testing"

	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	g16Once   sync.Once
	g16Prover *Prover
	g16Err    error
)

func groth16Prover(t *testing.T) *Prover {
	g16Once.Do(func() {
		var keys *Keys
		keys, g16Err = Setup(types.Groth16)
		if g16Err == nil {
			g16Prover = New(keys, zerolog.Nop())
		}
	})
	require.NoError(t, g16Err)
	return g16Prover
}

func TestProveAndVerify(t *testing.T) {
	p := groth16Prover(t)

	proof, err := p.Prove(context.Background(), Request{
		DonorSecret: "my-secret",
		CharityID:   "charity_1",
		Amount:      1_500_000,
	})
	require.NoError(t, err)
	require.Len(t, proof.Salt, SaltSize)
	require.Equal(t, types.Groth16, proof.Backend)

	signals := proof.Signals()
	require.False(t, signals.RevealAmount)
	require.Zero(t, signals.DisclosedAmount)
	require.Equal(t, types.CharityElement("charity_1"), signals.CharityID)

	v := p.Verifier()
	require.NoError(t, v.VerifyZKProof(proof.Bytes, signals))
	require.NoError(t, v.VerifySignals(proof.Bytes, signals.Strings()))

	// the same proof must not verify for another charity
	wrong := signals
	wrong.CharityID = types.CharityElement("charity_2")
	require.ErrorIs(t, v.VerifyZKProof(proof.Bytes, wrong), types.ErrInvalidProof)

	// nor claim a disclosed amount it did not prove
	wrong = signals
	wrong.RevealAmount = true
	wrong.DisclosedAmount = 1_500_000
	require.ErrorIs(t, v.VerifyZKProof(proof.Bytes, wrong), types.ErrInvalidProof)

	require.ErrorIs(t, v.VerifyZKProof([]byte{0x1, 0x2}, signals), types.ErrInvalidProof)
}

func TestProveRevealed(t *testing.T) {
	p := groth16Prover(t)

	proof, err := p.Prove(context.Background(), Request{
		DonorSecret: "my-secret",
		CharityID:   "charity_2",
		Amount:      42,
		Salt:        []byte("fixed-salt"),
		Reveal:      true,
	})
	require.NoError(t, err)
	require.Equal(t, []byte("fixed-salt"), proof.Salt)

	signals := proof.Signals()
	require.True(t, signals.RevealAmount)
	require.EqualValues(t, 42, signals.DisclosedAmount)
	require.NoError(t, p.Verifier().VerifyZKProof(proof.Bytes, signals))
}

func TestProveMissingFields(t *testing.T) {
	p := groth16Prover(t)
	ctx := context.Background()

	for _, req := range []Request{
		{CharityID: "charity_1", Amount: 1},
		{DonorSecret: "  ", CharityID: "charity_1", Amount: 1},
		{DonorSecret: "s", Amount: 1},
		{DonorSecret: "s", CharityID: "charity_1"},
	} {
		_, err := p.Prove(ctx, req)
		require.ErrorIs(t, err, types.ErrMissingFields)
	}
}

func TestProveCanceled(t *testing.T) {
	p := groth16Prover(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Prove(ctx, Request{DonorSecret: "s", CharityID: "charity_1", Amount: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSnarkJS(t *testing.T) {
	p := groth16Prover(t)

	proof, err := p.Prove(context.Background(), Request{DonorSecret: "s", CharityID: "charity_1", Amount: 7})
	require.NoError(t, err)

	sj := proof.SnarkJS()
	require.Equal(t, "groth16", sj.Protocol)
	require.Equal(t, "bn128", sj.Curve)
	require.Len(t, sj.PiA, 3)
	require.Equal(t, "1", sj.PiA[2])
	require.Len(t, sj.PiB, 3)
	require.Equal(t, []string{"1", "0"}, sj.PiB[2])
	require.Len(t, sj.PiC, 3)
	require.Equal(t, "1", sj.PiC[2])
	for _, s := range append(sj.PiA, sj.PiC...) {
		require.Regexp(t, `^[0-9]+$`, s)
	}
}

func TestLoadOrSetupPersists(t *testing.T) {
	dir := t.TempDir()

	keys, err := LoadOrSetup(types.Groth16, dir, zerolog.Nop())
	require.NoError(t, err)
	require.True(t, keysExist(dir+"/groth16"))

	loaded, err := LoadOrSetup(types.Groth16, dir, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, keys.CCS.GetNbConstraints(), loaded.CCS.GetNbConstraints())

	// a proof from the loaded proving key verifies under the first verifying key
	proof, err := New(loaded, zerolog.Nop()).Prove(context.Background(), Request{
		DonorSecret: "s", CharityID: "charity_1", Amount: 9,
	})
	require.NoError(t, err)
	require.NoError(t, New(keys, zerolog.Nop()).Verifier().VerifyZKProof(proof.Bytes, proof.Signals()))
}

func TestPlonk(t *testing.T) {
	if testing.Short() {
		t.Skip("plonk setup is slow")
	}

	keys, err := Setup(types.Plonk)
	require.NoError(t, err)
	p := New(keys, zerolog.Nop())

	proof, err := p.Prove(context.Background(), Request{DonorSecret: "s", CharityID: "charity_1", Amount: 3})
	require.NoError(t, err)
	require.NoError(t, p.Verifier().VerifyZKProof(proof.Bytes, proof.Signals()))

	sj := proof.SnarkJS()
	require.Equal(t, "plonk", sj.Protocol)
	require.Empty(t, sj.PiA)
}

func TestSetupUnknownBackend(t *testing.T) {
	_, err := Setup(types.Backend("stark"))
	require.Error(t, err)
}
