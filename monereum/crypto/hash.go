package crypto

import (
	"hash"
	"io"

	"github.com/monereum/engine/types"
	"golang.org/x/crypto/sha3"
)

type HashReader interface {
	hash.Hash
	io.Reader
}

// NewKeccak256 legacy Keccak-256, as used by the ledger, not the finalized SHA3-256
func NewKeccak256() HashReader {
	//nolint:forcetypeassert
	return sha3.NewLegacyKeccak256().(HashReader)
}

func Keccak256Var[T ~string | ~[]byte](data ...T) (result types.Hash) {
	h := NewKeccak256()
	for _, b := range data {
		_, _ = h.Write([]byte(b))
	}
	_, _ = h.Read(result[:])

	return
}

func Keccak256[T ~string | ~[]byte](data T) (result types.Hash) {
	h := NewKeccak256()
	_, _ = h.Write([]byte(data))
	_, _ = h.Read(result[:])

	return
}

// HashFastSum reads the digest without cloning the state. b must be at least types.HashSize long
func HashFastSum(hasher HashReader, b []byte) []byte {
	_ = b[types.HashSize-1] // bounds check hint to compiler; see golang.org/issue/14808
	_, _ = hasher.Read(b[:types.HashSize])
	return b
}
