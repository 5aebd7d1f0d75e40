package bn254

import (
	"github.com/holiman/uint256"
	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/types"
)

// HashToCurve try-and-increment: x = seed mod p, then x+1, x+2, ... until x³ + 3 is a quadratic residue.
// y is the root given by goal^((p+1)/4), without sign normalization.
func HashToCurve(seed types.Hash) *Point {
	var x, goal, y uint256.Int
	x.SetBytes32(seed[:])
	Field.Reduce(&x, &x)

	one := uint256.NewInt(1)
	for {
		curveRHS(&goal, &x)
		if Field.Sqrt(&y, &goal) {
			return new(Point).SetAffine(&x, &y)
		}
		Field.AddMod(&x, &x, one)
	}
}

// HashPoint Hp(P) = HashToCurve(keccak(x ‖ y))
func HashPoint(p *Point) *Point {
	buf := p.AffineBytes()
	return HashToCurve(crypto.Keccak256(buf[:]))
}

// GeneratorFromSeed maps 64 bits of entropy to a generator as Σ HashSet[2i + bit_i(seed)]
func GeneratorFromSeed(seed uint64) *Point {
	params := Params()
	var r Point
	r.SetIdentity()
	for i := range 64 {
		r.Add(&r, &params.HashSet[2*i+int((seed>>i)&1)])
	}
	return r.Affine(&r)
}

// curveRHS z = x³ + 3
func curveRHS(z, x *uint256.Int) *uint256.Int {
	var t uint256.Int
	Field.SquareMod(&t, x)
	Field.MulMod(&t, &t, x)
	return Field.AddMod(z, &t, curveB)
}
