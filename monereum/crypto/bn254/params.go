package bn254

import (
	"sync"

	"github.com/holiman/uint256"
)

// HashSetSize number of independent generators derived after H
const HashSetSize = 128

var (
	// Field base field of the curve, p
	Field = NewModulus(uint256.MustFromHex("0x30644e72e131a029b85045b68181585d97816a916871ca8d3c208c16d87cfd47"))
	// Order prime order of the group, q
	Order = NewModulus(uint256.MustFromHex("0x30644e72e131a029b85045b68181585d2833e84879b9709143e1f593f0000001"))

	// beta primitive cube root of unity in Fp, φ(x, y) = (βx, y)
	beta = uint256.MustFromHex("0x30644e72e131a0295e6dd9e7e0acccb0c28f069fbb966e3de4bd44e5607cfd48")
	// lambda cube root of unity mod q with φ(P) = P·λ for the beta above
	lambda = uint256.MustFromHex("0x30644e72e131a029048b6e193fd84104cc37a73fec2bc5e9b8ca0b2d36636f23")

	curveB = uint256.NewInt(3)

	generatorG = Point{X: *uint256.NewInt(1), Y: *uint256.NewInt(2), Z: *uint256.NewInt(1)}
)

// Parameters immutable curve parameters and derived generators. Obtain via Params, never modify.
type Parameters struct {
	// P base field modulus
	P *Modulus
	// Q group order
	Q *Modulus

	G Point
	// H second generator, HashPoint(G). Nobody knows log_G(H)
	H Point
	// HashSet HashSet[0] = HashPoint(H), HashSet[i] = HashPoint(HashSet[i-1])
	HashSet [HashSetSize]Point

	Beta   uint256.Int
	Lambda uint256.Int

	g, h *FixedBase
}

// Params derives the parameters once per process
var Params = sync.OnceValue(func() *Parameters {
	params := &Parameters{
		P:      Field,
		Q:      Order,
		G:      generatorG,
		Beta:   *beta,
		Lambda: *lambda,
	}

	params.H.Set(HashPoint(&params.G))
	prev := &params.H
	for i := range params.HashSet {
		params.HashSet[i].Set(HashPoint(prev))
		prev = &params.HashSet[i]
	}

	params.g = NewFixedBase(&params.G, DefaultCombWidth)
	params.h = NewFixedBase(&params.H, DefaultCombWidth)

	return params
})

// BaseTable comb table for G, built on first use
func (p *Parameters) BaseTable() *FixedBase {
	return p.g
}

// HTable comb table for H, built on first use
func (p *Parameters) HTable() *FixedBase {
	return p.h
}

// Generator returns a copy of G
func Generator() *Point {
	return new(Point).Set(&generatorG)
}
