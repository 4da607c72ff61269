package types

import (
	"fmt"
	"strings"
)

// Backend names the proof system a donation proof was produced with.
type Backend string

const (
	Groth16 Backend = "groth16"
	Plonk   Backend = "plonk"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case Groth16, Plonk:
		return b, nil
	case "":
		return Groth16, nil
	default:
		return "", fmt.Errorf("unknown proof backend %q", s)
	}
}
