package bn254

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

// PointSize affine encoding size, two 32-byte big-endian words (x, y)
const PointSize = 64

var ErrInvalidPoint = errors.New("invalid point")

// Point on y² = x³ + 3 in Jacobian coordinates (x = X/Z², y = Y/Z³).
// The identity has Z = 0. Affine points have Z = 1.
// Operations follow the receiver-result convention, v.Add(a, b) sets v = a + b and returns v. Aliasing is allowed.
type Point struct {
	X, Y, Z uint256.Int
}

func NewIdentity() *Point {
	return new(Point).SetIdentity()
}

// NewPointFromAffine builds a point from untrusted affine coordinates. (0, 0) decodes as the identity.
func NewPointFromAffine(x, y *uint256.Int) (*Point, error) {
	if x.IsZero() && y.IsZero() {
		return NewIdentity(), nil
	}
	p := new(Point).SetAffine(x, y)
	if !p.IsInField() || !p.IsOnCurve() {
		return nil, ErrInvalidPoint
	}
	return p, nil
}

// NewPointFromBytes decodes the 64-byte affine encoding, see NewPointFromAffine
func NewPointFromBytes(buf []byte) (*Point, error) {
	if len(buf) != PointSize {
		return nil, ErrInvalidPoint
	}
	var x, y uint256.Int
	x.SetBytes32(buf[:32])
	y.SetBytes32(buf[32:])
	return NewPointFromAffine(&x, &y)
}

func (v *Point) SetIdentity() *Point {
	v.X.Clear()
	v.Y.SetOne()
	v.Z.Clear()
	return v
}

func (v *Point) SetAffine(x, y *uint256.Int) *Point {
	v.X.Set(x)
	v.Y.Set(y)
	v.Z.SetOne()
	return v
}

func (v *Point) Set(p *Point) *Point {
	*v = *p
	return v
}

func (v *Point) IsIdentity() bool {
	return v.Z.IsZero()
}

// IsAffine reports whether the point is normalized, the identity counts as normalized
func (v *Point) IsAffine() bool {
	return v.Z.IsZero() || (v.Z[0] == 1 && v.Z[1] == 0 && v.Z[2] == 0 && v.Z[3] == 0)
}

// IsInField reports whether all coordinates are canonical field elements
func (v *Point) IsInField() bool {
	return Field.IsReduced(&v.X) && Field.IsReduced(&v.Y) && Field.IsReduced(&v.Z)
}

// IsOnCurve checks Y² = X³ + 3·Z⁶. The identity is on the curve.
func (v *Point) IsOnCurve() bool {
	if v.IsIdentity() {
		return true
	}
	var lhs, rhs, z2, z6 uint256.Int
	Field.SquareMod(&lhs, &v.Y)

	Field.SquareMod(&rhs, &v.X)
	Field.MulMod(&rhs, &rhs, &v.X)

	Field.SquareMod(&z2, &v.Z)
	Field.SquareMod(&z6, &z2)
	Field.MulMod(&z6, &z6, &z2)
	Field.MulMod(&z6, &z6, curveB)
	Field.AddMod(&rhs, &rhs, &z6)

	return lhs.Eq(&rhs)
}

// IsValid in-field, on-curve and not the identity. Every point received from outside must pass this before use in a proof.
func (v *Point) IsValid() bool {
	return !v.IsIdentity() && v.IsInField() && v.IsOnCurve()
}

func (v *Point) Negate(p *Point) *Point {
	v.X.Set(&p.X)
	Field.NegMod(&v.Y, &p.Y)
	v.Z.Set(&p.Z)
	return v
}

// Double dbl-2009-l
func (v *Point) Double(p *Point) *Point {
	if p.IsIdentity() {
		return v.SetIdentity()
	}

	var a, b, c, d, e, f, t, x3, y3, z3 uint256.Int

	Field.SquareMod(&a, &p.X)
	Field.SquareMod(&b, &p.Y)
	Field.SquareMod(&c, &b)

	Field.AddMod(&t, &p.X, &b)
	Field.SquareMod(&t, &t)
	Field.SubMod(&t, &t, &a)
	Field.SubMod(&t, &t, &c)
	Field.DoubleMod(&d, &t)

	Field.DoubleMod(&e, &a)
	Field.AddMod(&e, &e, &a)
	Field.SquareMod(&f, &e)

	Field.DoubleMod(&t, &d)
	Field.SubMod(&x3, &f, &t)

	Field.DoubleMod(&t, &c)
	Field.DoubleMod(&t, &t)
	Field.DoubleMod(&t, &t)
	Field.SubMod(&y3, &d, &x3)
	Field.MulMod(&y3, &y3, &e)
	Field.SubMod(&y3, &y3, &t)

	Field.MulMod(&z3, &p.Y, &p.Z)
	Field.DoubleMod(&z3, &z3)

	v.X, v.Y, v.Z = x3, y3, z3
	return v
}

// Add add-2007-bl, with a cheaper path when b is affine
func (v *Point) Add(a, b *Point) *Point {
	if a.IsIdentity() {
		return v.Set(b)
	}
	if b.IsIdentity() {
		return v.Set(a)
	}

	var z1z1, z2z2, u1, u2, s1, s2, h, i, j, r, vv, t, x3, y3, z3 uint256.Int

	bAffine := b.IsAffine()

	Field.SquareMod(&z1z1, &a.Z)
	if bAffine {
		z2z2.SetOne()
		u1.Set(&a.X)
		s1.Set(&a.Y)
	} else {
		Field.SquareMod(&z2z2, &b.Z)
		Field.MulMod(&u1, &a.X, &z2z2)
		Field.MulMod(&s1, &a.Y, &b.Z)
		Field.MulMod(&s1, &s1, &z2z2)
	}
	Field.MulMod(&u2, &b.X, &z1z1)
	Field.MulMod(&s2, &b.Y, &a.Z)
	Field.MulMod(&s2, &s2, &z1z1)

	Field.SubMod(&h, &u2, &u1)
	Field.SubMod(&r, &s2, &s1)

	if h.IsZero() {
		if r.IsZero() {
			return v.Double(a)
		}
		// a = -b
		return v.SetIdentity()
	}

	Field.DoubleMod(&i, &h)
	Field.SquareMod(&i, &i)
	Field.MulMod(&j, &h, &i)
	Field.DoubleMod(&r, &r)
	Field.MulMod(&vv, &u1, &i)

	Field.SquareMod(&x3, &r)
	Field.SubMod(&x3, &x3, &j)
	Field.DoubleMod(&t, &vv)
	Field.SubMod(&x3, &x3, &t)

	Field.SubMod(&y3, &vv, &x3)
	Field.MulMod(&y3, &y3, &r)
	Field.MulMod(&t, &s1, &j)
	Field.DoubleMod(&t, &t)
	Field.SubMod(&y3, &y3, &t)

	if bAffine {
		Field.MulMod(&z3, &a.Z, &h)
		Field.DoubleMod(&z3, &z3)
	} else {
		Field.AddMod(&z3, &a.Z, &b.Z)
		Field.SquareMod(&z3, &z3)
		Field.SubMod(&z3, &z3, &z1z1)
		Field.SubMod(&z3, &z3, &z2z2)
		Field.MulMod(&z3, &z3, &h)
	}

	v.X, v.Y, v.Z = x3, y3, z3
	return v
}

func (v *Point) Subtract(a, b *Point) *Point {
	var nb Point
	nb.Negate(b)
	return v.Add(a, &nb)
}

// Affine normalizes p to Z = 1. The identity stays the identity.
func (v *Point) Affine(p *Point) *Point {
	if p.IsIdentity() {
		return v.SetIdentity()
	}
	if p.IsAffine() {
		return v.Set(p)
	}
	var zInv, zInv2, zInv3 uint256.Int
	Field.InvMod(&zInv, &p.Z)
	Field.SquareMod(&zInv2, &zInv)
	Field.MulMod(&zInv3, &zInv2, &zInv)

	Field.MulMod(&v.X, &p.X, &zInv2)
	Field.MulMod(&v.Y, &p.Y, &zInv3)
	v.Z.SetOne()
	return v
}

// BatchAffine normalizes all points with a single field inversion
func BatchAffine(points []Point) {
	zs := make([]*uint256.Int, 0, len(points))
	for i := range points {
		if !points[i].IsAffine() {
			zs = append(zs, &points[i].Z)
		}
	}
	// inverts Z in place
	Field.BatchInvMod(zs)

	var zInv2, zInv3 uint256.Int
	for i := range points {
		p := &points[i]
		if p.IsAffine() {
			continue
		}
		Field.SquareMod(&zInv2, &p.Z)
		Field.MulMod(&zInv3, &zInv2, &p.Z)
		Field.MulMod(&p.X, &p.X, &zInv2)
		Field.MulMod(&p.Y, &p.Y, &zInv3)
		p.Z.SetOne()
	}
}

// Equal compares points independently of their Z coordinate
func (v *Point) Equal(p *Point) bool {
	if v.IsIdentity() || p.IsIdentity() {
		return v.IsIdentity() == p.IsIdentity()
	}
	var z1z1, z2z2, a, b uint256.Int
	Field.SquareMod(&z1z1, &v.Z)
	Field.SquareMod(&z2z2, &p.Z)

	Field.MulMod(&a, &v.X, &z2z2)
	Field.MulMod(&b, &p.X, &z1z1)
	if !a.Eq(&b) {
		return false
	}

	Field.MulMod(&z1z1, &z1z1, &v.Z)
	Field.MulMod(&z2z2, &z2z2, &p.Z)
	Field.MulMod(&a, &v.Y, &z2z2)
	Field.MulMod(&b, &p.Y, &z1z1)
	return a.Eq(&b)
}

// Bytes affine encoding x ‖ y, identity is all zero. Encoding a non-normalized point is a programming error.
func (v *Point) Bytes() (buf [PointSize]byte) {
	if v.IsIdentity() {
		return buf
	}
	if !v.IsAffine() {
		utils.Panicf("bn254: encoding non-affine point")
	}
	x := v.X.Bytes32()
	y := v.Y.Bytes32()
	copy(buf[:32], x[:])
	copy(buf[32:], y[:])
	return buf
}

// AffineBytes normalizes a copy and encodes it
func (v *Point) AffineBytes() [PointSize]byte {
	var p Point
	return p.Affine(v).Bytes()
}

// Words affine coordinates as 32-byte words
func (v *Point) Words() (x, y types.Hash) {
	buf := v.Bytes()
	copy(x[:], buf[:32])
	copy(y[:], buf[32:])
	return x, y
}

func (v *Point) MarshalJSON() ([]byte, error) {
	var p Point
	p.Affine(v)
	x, y := p.Words()
	return utils.MarshalJSON([2]types.Hash{x, y})
}

func (v *Point) UnmarshalJSON(buf []byte) error {
	var words [2]types.Hash
	if err := utils.UnmarshalJSON(buf, &words); err != nil {
		return err
	}
	p, err := NewPointFromBytes(append(words[0][:], words[1][:]...))
	if err != nil {
		return err
	}
	v.Set(p)
	return nil
}

func (v *Point) String() string {
	if v.IsIdentity() {
		return "identity"
	}
	x, y := new(Point).Affine(v).Words()
	return "(" + x.String() + ", " + y.String() + ")"
}
