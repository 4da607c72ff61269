package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kysee/zkcharity/config"
	"github.com/kysee/zkcharity/zk-charity/prover"
	"github.com/kysee/zkcharity/zk-charity/types"
)

// export-verifier writes a Solidity verifier contract for the donation
// circuit's verifying key.
func main() {
	backendFlag := flag.String("backend", "groth16", "proof backend: groth16 or plonk")
	keysDir := flag.String("keys", "", "directory with persisted proving keys; empty runs a fresh setup")
	outDir := flag.String("out", "contracts", "output directory")
	flag.Parse()

	log := config.NewLogger(&config.Config{AppEnv: "development"})

	backend, err := types.ParseBackend(*backendFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("bad backend")
	}
	keys, err := prover.LoadOrSetup(backend, *keysDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load proving keys")
	}

	var buf bytes.Buffer
	if err := prover.New(keys, log).Verifier().ExportSolidity(&buf); err != nil {
		log.Fatal().Err(err).Msg("failed to export verifier")
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create output directory")
	}
	name := map[types.Backend]string{types.Groth16: "Groth16Verifier.sol", types.Plonk: "PlonkVerifier.sol"}[backend]
	path := filepath.Join(*outDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		log.Fatal().Err(err).Msg("failed to write verifier")
	}
	fmt.Println("Solidity verifier generated:", path)
}
