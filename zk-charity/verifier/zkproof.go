package verifier

import (
	"bytes"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/zkcharity/zk-charity/types"
)

// Verifier checks donation proofs against one verifying key.
type Verifier struct {
	backend types.Backend
	g16VK   groth16.VerifyingKey
	plonkVK plonk.VerifyingKey
}

func NewGroth16(vk groth16.VerifyingKey) *Verifier {
	return &Verifier{backend: types.Groth16, g16VK: vk}
}

func NewPlonk(vk plonk.VerifyingKey) *Verifier {
	return &Verifier{backend: types.Plonk, plonkVK: vk}
}

func (v *Verifier) Backend() types.Backend {
	return v.backend
}

// VerifyZKProof verifies a serialized proof against the given public signals.
// Every failure, including malformed bytes, wraps types.ErrInvalidProof.
func (v *Verifier) VerifyZKProof(bzProof []byte, signals types.PublicSignals) error {
	pubWtn, err := frontend.NewWitness(signals.Assignment(), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidProof, err)
	}

	switch v.backend {
	case types.Groth16:
		proof := groth16.NewProof(ecc.BN254)
		if _, err := proof.ReadFrom(bytes.NewReader(bzProof)); err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidProof, err)
		}
		if err := groth16.Verify(proof, v.g16VK, pubWtn); err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidProof, err)
		}
	case types.Plonk:
		proof := plonk.NewProof(ecc.BN254)
		if _, err := proof.ReadFrom(bytes.NewReader(bzProof)); err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidProof, err)
		}
		if err := plonk.Verify(proof, v.plonkVK, pubWtn); err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidProof, err)
		}
	default:
		return fmt.Errorf("%w: unsupported backend %q", types.ErrInvalidProof, v.backend)
	}
	return nil
}

// VerifySignals parses snarkjs-style decimal signals and verifies.
func (v *Verifier) VerifySignals(bzProof []byte, signals []string) error {
	ps, err := types.ParsePublicSignals(signals)
	if err != nil {
		return err
	}
	return v.VerifyZKProof(bzProof, ps)
}

// ExportSolidity writes an on-chain verifier contract for the verifying key.
func (v *Verifier) ExportSolidity(w io.Writer) error {
	switch v.backend {
	case types.Groth16:
		return v.g16VK.ExportSolidity(w)
	case types.Plonk:
		return v.plonkVK.ExportSolidity(w)
	}
	return fmt.Errorf("unsupported backend %q", v.backend)
}
