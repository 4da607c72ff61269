package prover

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/kysee/zkcharity/zk-charity/verifier"
	"github.com/rs/zerolog"
)

const SaltSize = 31

// Request carries the private and public inputs of one donation proof.
// An empty Salt is replaced with a random one.
type Request struct {
	DonorSecret string
	CharityID   string
	Amount      uint64
	Salt        []byte
	Reveal      bool
}

// Proof is a serialized proof together with the witness it was built from.
type Proof struct {
	Backend types.Backend
	Bytes   []byte
	Witness *types.DonationWitness
	Salt    []byte

	raw any
}

func (p *Proof) Signals() types.PublicSignals {
	return p.Witness.PublicSignals()
}

type Prover struct {
	keys *Keys
	log  zerolog.Logger
}

func New(keys *Keys, log zerolog.Logger) *Prover {
	return &Prover{
		keys: keys,
		log:  log.With().Str("module", "prover").Logger(),
	}
}

func (p *Prover) Backend() types.Backend {
	return p.keys.Backend
}

// Verifier returns a verifier bound to this prover's verifying key.
func (p *Prover) Verifier() *verifier.Verifier {
	if p.keys.Backend == types.Plonk {
		return verifier.NewPlonk(p.keys.PlonkVK)
	}
	return verifier.NewGroth16(p.keys.G16VK)
}

// Prove builds the donation witness and proves it. Proving itself cannot be
// interrupted; ctx is only checked before and after.
func (p *Prover) Prove(ctx context.Context, req Request) (*Proof, error) {
	if strings.TrimSpace(req.DonorSecret) == "" || req.CharityID == "" || req.Amount == 0 {
		return nil, types.ErrMissingFields
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	salt := req.Salt
	if len(salt) == 0 {
		salt = types.RandBytes(SaltSize)
	}

	w := types.NewDonationWitness(req.DonorSecret, req.CharityID, req.Amount, salt, req.Reveal)
	wtn, err := frontend.NewWitness(w.Assignment(), ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	opt := backend.WithSolverOptions(solver.WithLogger(p.log))

	var (
		raw any
		buf bytes.Buffer
	)
	switch p.keys.Backend {
	case types.Groth16:
		proof, err := groth16.Prove(p.keys.CCS, p.keys.G16PK, wtn, opt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidProof, err)
		}
		if _, err := proof.WriteTo(&buf); err != nil {
			return nil, err
		}
		raw = proof
	case types.Plonk:
		proof, err := plonk.Prove(p.keys.CCS, p.keys.PlonkPK, wtn, opt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidProof, err)
		}
		if _, err := proof.WriteTo(&buf); err != nil {
			return nil, err
		}
		raw = proof
	default:
		return nil, fmt.Errorf("unsupported backend %q", p.keys.Backend)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.log.Debug().Str("charity", req.CharityID).Bool("reveal", req.Reveal).
		Int("proofSize", buf.Len()).Msg("donation proof generated")

	return &Proof{
		Backend: p.keys.Backend,
		Bytes:   buf.Bytes(),
		Witness: w,
		Salt:    salt,
		raw:     raw,
	}, nil
}
