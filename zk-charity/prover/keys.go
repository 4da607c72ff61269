package prover

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/rs/zerolog"
)

const (
	ccsFile = "donation.ccs"
	pkFile  = "donation.pk"
	vkFile  = "donation.vk"
)

// Keys holds the compiled donation circuit and the key pair of one backend.
type Keys struct {
	Backend types.Backend
	CCS     constraint.ConstraintSystem

	G16PK groth16.ProvingKey
	G16VK groth16.VerifyingKey

	PlonkPK plonk.ProvingKey
	PlonkVK plonk.VerifyingKey
}

// LoadOrSetup loads keys from keysDir/<backend> when all files are present.
// Otherwise it compiles the circuit, runs the setup and, if keysDir is not
// empty, writes the result there.
func LoadOrSetup(backend types.Backend, keysDir string, log zerolog.Logger) (*Keys, error) {
	if keysDir == "" {
		return Setup(backend)
	}

	dir := filepath.Join(keysDir, string(backend))
	if keysExist(dir) {
		keys, err := loadKeys(backend, dir)
		if err == nil {
			log.Info().Str("dir", dir).Str("backend", string(backend)).Msg("loaded proving keys")
			return keys, nil
		}
		log.Warn().Err(err).Str("dir", dir).Msg("failed to load proving keys, running setup again")
	}

	keys, err := Setup(backend)
	if err != nil {
		return nil, err
	}
	if err := keys.Save(dir); err != nil {
		return nil, err
	}
	log.Info().Str("dir", dir).Str("backend", string(backend)).
		Int("constraints", keys.CCS.GetNbConstraints()).Msg("generated proving keys")
	return keys, nil
}

// Setup compiles the donation circuit and runs a single-party setup.
func Setup(backend types.Backend) (*Keys, error) {
	var cc types.DonationCircuit
	keys := &Keys{Backend: backend}

	switch backend {
	case types.Groth16:
		ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &cc)
		if err != nil {
			return nil, fmt.Errorf("compile circuit: %w", err)
		}
		keys.CCS = ccs
		if keys.G16PK, keys.G16VK, err = groth16.Setup(ccs); err != nil {
			return nil, fmt.Errorf("groth16 setup: %w", err)
		}
	case types.Plonk:
		ccs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, &cc)
		if err != nil {
			return nil, fmt.Errorf("compile circuit: %w", err)
		}
		keys.CCS = ccs
		// TODO: load the SRS from a KZG ceremony file instead of generating it.
		srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
		if err != nil {
			return nil, fmt.Errorf("kzg srs: %w", err)
		}
		if keys.PlonkPK, keys.PlonkVK, err = plonk.Setup(ccs, srs, srsLagrange); err != nil {
			return nil, fmt.Errorf("plonk setup: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported backend %q", backend)
	}
	return keys, nil
}

func (k *Keys) provingKey() io.WriterTo {
	if k.Backend == types.Plonk {
		return k.PlonkPK
	}
	return k.G16PK
}

func (k *Keys) verifyingKey() io.WriterTo {
	if k.Backend == types.Plonk {
		return k.PlonkVK
	}
	return k.G16VK
}

// Save writes the constraint system and both keys into dir.
func (k *Keys) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := map[string]io.WriterTo{
		ccsFile: k.CCS,
		pkFile:  k.provingKey(),
		vkFile:  k.verifyingKey(),
	}
	for name, obj := range files {
		if err := writeFile(filepath.Join(dir, name), obj); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func keysExist(dir string) bool {
	for _, name := range []string{ccsFile, pkFile, vkFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

func loadKeys(backend types.Backend, dir string) (*Keys, error) {
	keys := &Keys{Backend: backend}
	var ccs, pk, vk io.ReaderFrom

	switch backend {
	case types.Groth16:
		keys.CCS = groth16.NewCS(ecc.BN254)
		keys.G16PK = groth16.NewProvingKey(ecc.BN254)
		keys.G16VK = groth16.NewVerifyingKey(ecc.BN254)
		ccs, pk, vk = keys.CCS, keys.G16PK, keys.G16VK
	case types.Plonk:
		keys.CCS = plonk.NewCS(ecc.BN254)
		keys.PlonkPK = plonk.NewProvingKey(ecc.BN254)
		keys.PlonkVK = plonk.NewVerifyingKey(ecc.BN254)
		ccs, pk, vk = keys.CCS, keys.PlonkPK, keys.PlonkVK
	default:
		return nil, fmt.Errorf("unsupported backend %q", backend)
	}

	if err := readFile(filepath.Join(dir, ccsFile), ccs); err != nil {
		return nil, err
	}
	if err := readFile(filepath.Join(dir, pkFile), pk); err != nil {
		return nil, err
	}
	if err := readFile(filepath.Join(dir, vkFile), vk); err != nil {
		return nil, err
	}
	return keys, nil
}

func writeFile(path string, obj io.WriterTo) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	_, err = obj.WriteTo(f)
	return err
}

func readFile(path string, obj io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := obj.ReadFrom(f); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nil
}
