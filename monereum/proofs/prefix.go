package proofs

import (
	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/types"
)

// OutputPrefixHash binds a proof to an output and a free-form message
func OutputPrefixHash(outputID types.Hash, message string) types.Hash {
	return crypto.Keccak256Var(outputID[:], []byte(message))
}

func parseVersion(str, prefix string) (version uint8, offset int, ok bool) {
	offset = len(prefix)
	if len(str) <= offset+2 || str[:offset] != prefix || str[offset] != 'V' {
		return 0, 0, false
	}
	switch str[offset+1] {
	case '1':
		version = 1
	default:
		return 0, 0, false
	}
	return version, offset + 2, true
}
