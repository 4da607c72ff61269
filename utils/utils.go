package utils

import (
	"hash"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	_ "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	gnark_hash "github.com/consensys/gnark-crypto/hash"
)

func MiMCHasher() hash.Hash {
	return gnark_hash.MIMC_BN254.New()
}

// MiMCHash hashes arbitrary bytes. Every input is cut into 32 byte blocks and
// each block is reduced into a canonical field element before it is absorbed,
// so the result matches a circuit that writes the same elements one by one.
func MiMCHash(ins ...[]byte) []byte {
	hasher := MiMCHasher()

	blockSize := hasher.Size()

	hasher.Reset()
	for _, in := range ins {
		for i := 0; i < len(in); i += blockSize {
			end := i + blockSize
			if end > len(in) {
				end = len(in)
			}
			var elem fr.Element
			elem.SetBytes(in[i:end])
			bz := elem.Marshal()
			if _, err := hasher.Write(bz); err != nil {
				panic(err)
			}
		}
	}
	return hasher.Sum(nil)
}

// HashElements is MiMC over already reduced field elements.
func HashElements(elems ...fr.Element) fr.Element {
	hasher := MiMCHasher()
	hasher.Reset()
	for i := range elems {
		bz := elems[i].Marshal()
		if _, err := hasher.Write(bz); err != nil {
			panic(err)
		}
	}
	var ret fr.Element
	ret.SetBytes(hasher.Sum(nil))
	return ret
}

// ToElement maps arbitrary bytes (ids, secrets) to a field element.
func ToElement(bz []byte) fr.Element {
	var ret fr.Element
	ret.SetBytes(MiMCHash(bz))
	return ret
}

func ElementFromUint64(v uint64) fr.Element {
	var ret fr.Element
	ret.SetUint64(v)
	return ret
}

func ElementFromBytes(bz []byte) fr.Element {
	var ret fr.Element
	ret.SetBytes(bz)
	return ret
}

func ElementBig(e fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}

func ElementBytes(e fr.Element) []byte {
	bz := e.Bytes()
	return bz[:]
}
