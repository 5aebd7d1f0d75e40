package bn254

import (
	"github.com/holiman/uint256"
)

// CompressedSize x as a big-endian word, parity of y in the top bit (x < p < 2^254 leaves it free)
const CompressedSize = 32

// Compress returns the affine x and the parity of y. The identity compresses to (0, 0).
func (v *Point) Compress() (x uint256.Int, parity uint) {
	if v.IsIdentity() {
		return x, 0
	}
	var p Point
	p.Affine(v)
	return p.X, uint(p.Y[0] & 1)
}

func (v *Point) CompressedBytes() (buf [CompressedSize]byte) {
	x, parity := v.Compress()
	buf = x.Bytes32()
	buf[0] |= byte(parity << 7)
	return buf
}

// Decompress recovers the point with the given x and y parity.
// Returns nil for x ≥ p or when x³ + 3 is not a quadratic residue, as input here is untrusted.
func Decompress(x *uint256.Int, parity uint) *Point {
	if !Field.IsReduced(x) || parity > 1 {
		return nil
	}
	var goal, y uint256.Int
	curveRHS(&goal, x)
	if !Field.Sqrt(&y, &goal) {
		return nil
	}
	if uint(y[0]&1) != parity {
		if y.IsZero() {
			return nil
		}
		Field.NegMod(&y, &y)
	}
	return new(Point).SetAffine(x, &y)
}

func DecompressBytes(buf [CompressedSize]byte) *Point {
	parity := uint(buf[0] >> 7)
	buf[0] &= 0x7f
	var x uint256.Int
	x.SetBytes32(buf[:])
	return Decompress(&x, parity)
}
