package treasury

import (
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// ss58Prelude is hashed into every SS58 checksum per the address spec.
var ss58Prelude = []byte("SS58PRE")

// EncodeSS58 renders a 32-byte account id as an SS58 address under the
// given network prefix.
func EncodeSS58(prefix uint16, accountID []byte) (string, error) {
	if len(accountID) != 32 {
		return "", errors.Errorf("account id must be 32 bytes, got %d", len(accountID))
	}

	var data []byte
	switch {
	case prefix < 64:
		data = append(data, byte(prefix))
	case prefix < 16384:
		// two-byte prefix form
		data = append(data,
			byte((prefix&0b0000_0000_1111_1100)>>2)|0b0100_0000,
			byte(prefix>>8)|byte((prefix&0b0000_0000_0000_0011)<<6),
		)
	default:
		return "", errors.Errorf("ss58 prefix out of range: %d", prefix)
	}
	data = append(data, accountID...)

	hasher, err := blake2b.New512(nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create blake2b hasher")
	}
	hasher.Write(ss58Prelude)
	hasher.Write(data)
	checksum := hasher.Sum(nil)

	return base58.Encode(append(data, checksum[:2]...)), nil
}
