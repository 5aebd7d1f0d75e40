package bn254

import (
	"github.com/holiman/uint256"
)

// Modulus modular arithmetic over a fixed odd prime m < 2^256.
// Operands are expected to be reduced, results are always reduced.
type Modulus struct {
	m  uint256.Int
	mu [5]uint64

	// invExp m - 2, Fermat inversion exponent
	invExp uint256.Int
	// sqrtExp (m + 1) / 4, square root exponent when m ≡ 3 mod 4
	sqrtExp uint256.Int
}

func NewModulus(m *uint256.Int) *Modulus {
	mod := &Modulus{}
	mod.m.Set(m)
	mod.mu = uint256.Reciprocal(m)
	mod.invExp.SubUint64(m, 2)
	mod.sqrtExp.AddUint64(m, 1)
	mod.sqrtExp.Rsh(&mod.sqrtExp, 2)
	return mod
}

// Int The modulus value. Must not be modified
func (mod *Modulus) Int() *uint256.Int {
	return &mod.m
}

func (mod *Modulus) IsReduced(x *uint256.Int) bool {
	return x.Lt(&mod.m)
}

func (mod *Modulus) Reduce(z, x *uint256.Int) *uint256.Int {
	return z.Mod(x, &mod.m)
}

func (mod *Modulus) AddMod(z, x, y *uint256.Int) *uint256.Int {
	return z.AddMod(x, y, &mod.m)
}

func (mod *Modulus) SubMod(z, x, y *uint256.Int) *uint256.Int {
	borrow := x.Lt(y)
	z.Sub(x, y)
	if borrow {
		z.Add(z, &mod.m)
	}
	return z
}

func (mod *Modulus) NegMod(z, x *uint256.Int) *uint256.Int {
	if x.IsZero() {
		return z.Clear()
	}
	return z.Sub(&mod.m, x)
}

func (mod *Modulus) MulMod(z, x, y *uint256.Int) *uint256.Int {
	return z.MulModWithReciprocal(x, y, &mod.m, &mod.mu)
}

func (mod *Modulus) SquareMod(z, x *uint256.Int) *uint256.Int {
	return z.MulModWithReciprocal(x, x, &mod.m, &mod.mu)
}

// DoubleMod z = 2x
func (mod *Modulus) DoubleMod(z, x *uint256.Int) *uint256.Int {
	return z.AddMod(x, x, &mod.m)
}

// ExpMod left-to-right square and multiply, variable time
func (mod *Modulus) ExpMod(z, base, exp *uint256.Int) *uint256.Int {
	var b, res uint256.Int
	b.Set(base)
	res.SetOne()
	for i := exp.BitLen() - 1; i >= 0; i-- {
		mod.SquareMod(&res, &res)
		if bit(exp, i) == 1 {
			mod.MulMod(&res, &res, &b)
		}
	}
	return z.Set(&res)
}

// InvMod z = x^-1. The inverse of zero is zero.
func (mod *Modulus) InvMod(z, x *uint256.Int) *uint256.Int {
	return mod.ExpMod(z, x, &mod.invExp)
}

// Sqrt sets z to a square root of x and reports whether x is a quadratic residue.
// Only valid for m ≡ 3 mod 4. z is left undefined when false is returned.
func (mod *Modulus) Sqrt(z, x *uint256.Int) bool {
	var root, check uint256.Int
	mod.ExpMod(&root, x, &mod.sqrtExp)
	mod.SquareMod(&check, &root)
	if !check.Eq(x) {
		return false
	}
	z.Set(&root)
	return true
}

// BatchInvMod inverts every non-zero element in place with a single inversion (Montgomery's trick)
func (mod *Modulus) BatchInvMod(values []*uint256.Int) {
	if len(values) == 0 {
		return
	}

	prefix := make([]uint256.Int, len(values))
	var acc uint256.Int
	acc.SetOne()
	for i, v := range values {
		prefix[i].Set(&acc)
		if !v.IsZero() {
			mod.MulMod(&acc, &acc, v)
		}
	}

	mod.InvMod(&acc, &acc)

	var tmp uint256.Int
	for i := len(values) - 1; i >= 0; i-- {
		v := values[i]
		if v.IsZero() {
			continue
		}
		mod.MulMod(&tmp, &acc, &prefix[i])
		mod.MulMod(&acc, &acc, v)
		v.Set(&tmp)
	}
}

func bit(x *uint256.Int, i int) uint {
	return uint(x[i/64]>>(uint(i)%64)) & 1
}
