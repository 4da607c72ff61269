package prover

import (
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/kysee/zkcharity/zk-charity/types"
)

// SnarkJSProof mirrors the proof.json layout produced by snarkjs, so web
// verifiers written against snarkjs can consume our proofs.
type SnarkJSProof struct {
	PiA      []string   `json:"pi_a,omitempty"`
	PiB      [][]string `json:"pi_b,omitempty"`
	PiC      []string   `json:"pi_c,omitempty"`
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`
}

// SnarkJS renders the proof in snarkjs shape. Only Groth16 proofs carry
// points; PLONK proofs only name the protocol.
func (p *Proof) SnarkJS() SnarkJSProof {
	ret := SnarkJSProof{Protocol: string(p.Backend), Curve: "bn128"}
	if p.Backend != types.Groth16 {
		return ret
	}

	proof, ok := p.raw.(*groth16_bn254.Proof)
	if !ok {
		return ret
	}

	ret.PiA = []string{proof.Ar.X.String(), proof.Ar.Y.String(), "1"}
	ret.PiB = [][]string{
		{proof.Bs.X.A0.String(), proof.Bs.X.A1.String()},
		{proof.Bs.Y.A0.String(), proof.Bs.Y.A1.String()},
		{"1", "0"},
	}
	ret.PiC = []string{proof.Krs.X.String(), proof.Krs.Y.String(), "1"}
	return ret
}
