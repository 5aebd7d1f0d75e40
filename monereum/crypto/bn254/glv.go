package bn254

import (
	"math/big"

	"github.com/holiman/uint256"
)

// glvLattice short basis (a1, b1), (a2, b2) of the lattice {(x, y) : x + y·λ ≡ 0 mod q}
type glvLattice struct {
	q              *big.Int
	a1, b1, a2, b2 *big.Int
}

var lattice = newGLVLattice(Order.Int().ToBig(), lambda.ToBig())

// newGLVLattice runs the extended Euclidean algorithm on (q, λ) and stops around √q,
// Guide to Elliptic Curve Cryptography, algorithm 3.74
func newGLVLattice(q, lambda *big.Int) *glvLattice {
	sqrtQ := new(big.Int).Sqrt(q)

	// invariant: s·q + t·λ = r
	rPrev, r := new(big.Int).Set(q), new(big.Int).Set(lambda)
	tPrev, t := big.NewInt(0), big.NewInt(1)

	quo, tmp := new(big.Int), new(big.Int)
	step := func() {
		quo.Div(rPrev, r)
		tmp.Mul(quo, r)
		rPrev, r = r, new(big.Int).Sub(rPrev, tmp)
		tmp.Mul(quo, t)
		tPrev, t = t, new(big.Int).Sub(tPrev, tmp)
	}

	// find the largest l with r_l >= √q, (rPrev, tPrev) = (r_l, t_l)
	for r.Cmp(sqrtQ) >= 0 {
		step()
	}
	rl, tl := rPrev, tPrev
	rl1, tl1 := r, t
	step()
	rl2, tl2 := r, t

	l := &glvLattice{
		q:  q,
		a1: new(big.Int).Set(rl1),
		b1: new(big.Int).Neg(tl1),
	}

	normL := new(big.Int).Add(new(big.Int).Mul(rl, rl), new(big.Int).Mul(tl, tl))
	normL2 := new(big.Int).Add(new(big.Int).Mul(rl2, rl2), new(big.Int).Mul(tl2, tl2))
	if normL.Cmp(normL2) <= 0 {
		l.a2, l.b2 = new(big.Int).Set(rl), new(big.Int).Neg(tl)
	} else {
		l.a2, l.b2 = new(big.Int).Set(rl2), new(big.Int).Neg(tl2)
	}
	return l
}

// roundDiv round(n / d) for d > 0
func roundDiv(n, d *big.Int) *big.Int {
	num := new(big.Int).Lsh(n, 1)
	num.Add(num, d)
	den := new(big.Int).Lsh(d, 1)
	// Euclidean division equals floor for a positive divisor
	return num.Div(num, den)
}

// decompose splits k into k1 + k2·λ ≡ k mod q with |k1|, |k2| around √q
func (l *glvLattice) decompose(k *big.Int) (k1, k2 *big.Int) {
	c1 := roundDiv(new(big.Int).Mul(l.b2, k), l.q)
	c2 := roundDiv(new(big.Int).Neg(new(big.Int).Mul(l.b1, k)), l.q)

	k1 = new(big.Int).Set(k)
	k1.Sub(k1, new(big.Int).Mul(c1, l.a1))
	k1.Sub(k1, new(big.Int).Mul(c2, l.a2))

	k2 = new(big.Int).Mul(c1, l.b1)
	k2.Neg(k2)
	k2.Sub(k2, new(big.Int).Mul(c2, l.b2))
	return k1, k2
}

// Endomorphism φ(X, Y, Z) = (βX, Y, Z), equal to p·λ
func (v *Point) Endomorphism(p *Point) *Point {
	Field.MulMod(&v.X, &p.X, beta)
	v.Y.Set(&p.Y)
	v.Z.Set(&p.Z)
	return v
}

// ScalarMult sets v = p·k for an arbitrary point using the GLV decomposition, the result is affine.
// Variable time.
func (v *Point) ScalarMult(k *uint256.Int, p *Point) *Point {
	var kr uint256.Int
	Order.Reduce(&kr, k)
	if kr.IsZero() || p.IsIdentity() {
		return v.SetIdentity()
	}

	k1, k2 := lattice.decompose(kr.ToBig())

	// table[d] for digit d = bit(k1) + 2·bit(k2)
	var table [4]Point
	table[0].SetIdentity()
	table[1].Affine(p)
	table[2].Endomorphism(&table[1])

	if k1.Sign() < 0 {
		k1.Neg(k1)
		table[1].Negate(&table[1])
	}
	if k2.Sign() < 0 {
		k2.Neg(k2)
		table[2].Negate(&table[2])
	}
	table[3].Add(&table[1], &table[2])

	var u1, u2 uint256.Int
	u1.SetFromBig(k1)
	u2.SetFromBig(k2)

	var r Point
	r.SetIdentity()
	for i := max(u1.BitLen(), u2.BitLen()) - 1; i >= 0; i-- {
		r.Double(&r)
		if d := bit(&u1, i) | bit(&u2, i)<<1; d != 0 {
			r.Add(&r, &table[d])
		}
	}

	return v.Affine(&r)
}

// DoubleScalarMult v = a·A + b·B, affine
func (v *Point) DoubleScalarMult(a *uint256.Int, A *Point, b *uint256.Int, B *Point) *Point {
	var l, r Point
	l.ScalarMult(a, A)
	r.ScalarMult(b, B)
	return v.Affine(l.Add(&l, &r))
}
