package types

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/consensys/gnark-crypto/signature"
	"github.com/kysee/zkcharity/zk-charity/crypto"
)

const (
	ver        = 0x01
	addrPrefix = "zc"
)

func EncodeAddress(payload []byte) string {
	return addrPrefix + base58.CheckEncode(payload, ver)
}

func DecodeAddress(addr string) ([]byte, error) {
	if !strings.HasPrefix(addr, addrPrefix) {
		got := addr
		if len(got) > 2 {
			got = got[:2]
		}
		return nil, fmt.Errorf("wrong prefix: got(%s)", got)
	}
	bz, _ver, err := base58.CheckDecode(addr[len(addrPrefix):])
	if err != nil {
		return nil, err
	}
	if _ver != ver {
		return nil, fmt.Errorf("wrong version: expected(%d), got(%d)", ver, _ver)
	}
	return bz, nil
}

func Pub2Addr(pubKey signature.PublicKey) string {
	return EncodeAddress(pubKey.Bytes())
}

func Addr2Pub(addr string) (*jubjub.PublicKey, error) {
	pubKeyBytes, err := DecodeAddress(addr)
	if err != nil {
		return nil, err
	}
	return crypto.ParsePub(pubKeyBytes)
}
