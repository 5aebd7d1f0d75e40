package bn254

import (
	"io"

	"github.com/holiman/uint256"
	"github.com/monereum/engine/types"
)

// Scalar element of Z_q, kept reduced
type Scalar = uint256.Int

func ScalarFromUint64(v uint64) *Scalar {
	return uint256.NewInt(v)
}

// ScalarFromHash interprets h as a big-endian integer reduced mod q
func ScalarFromHash(h types.Hash) *Scalar {
	var s Scalar
	s.SetBytes32(h[:])
	return Order.Reduce(&s, &s)
}

// ScalarFromBytes strict decoding of a 32-byte big-endian word, nil if not reduced
func ScalarFromBytes(buf []byte) *Scalar {
	if len(buf) != 32 {
		return nil
	}
	var s Scalar
	s.SetBytes32(buf)
	if !Order.IsReduced(&s) {
		return nil
	}
	return &s
}

func ScalarBytes(s *Scalar) types.Hash {
	return s.Bytes32()
}

// RandomScalar draws a uniform non-zero scalar by rejection sampling. Returns nil if the reader fails.
func RandomScalar(r io.Reader) *Scalar {
	var buf [32]byte
	var s Scalar
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil
		}
		// q < 2^254
		buf[0] &= 0x3f
		s.SetBytes32(buf[:])
		if Order.IsReduced(&s) && !s.IsZero() {
			return &s
		}
	}
}
