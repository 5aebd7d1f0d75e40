package bn254

import (
	"crypto/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

// naiveMult reference double-and-add over the unreduced scalar
func naiveMult(k *uint256.Int, p *Point) *Point {
	var r Point
	r.SetIdentity()
	for i := k.BitLen() - 1; i >= 0; i-- {
		r.Double(&r)
		if bit(k, i) == 1 {
			r.Add(&r, p)
		}
	}
	return r.Affine(&r)
}

func testScalars(t *testing.T, n int) []*uint256.Int {
	t.Helper()
	q := Order.Int()
	edge := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(1),
		uint256.NewInt(2),
		uint256.NewInt(3),
		new(uint256.Int).SubUint64(q, 1),
		new(uint256.Int).SubUint64(q, 2),
		new(uint256.Int).Set(lambda),
		new(uint256.Int).Lsh(uint256.NewInt(1), 128),
		new(uint256.Int).Lsh(uint256.NewInt(1), 253),
		new(uint256.Int).Rsh(q, 1),
	}

	stream := crypto.NewHashStream(crypto.Keccak256("bn254 test scalars"), 0)
	for range n {
		edge = append(edge, RandomScalar(stream))
	}
	return edge
}

func TestParameters(t *testing.T) {
	params := Params()

	if !params.G.IsValid() {
		t.Fatal("G is not a valid point")
	}
	if !params.H.IsValid() {
		t.Fatal("H is not a valid point")
	}
	if params.H.Equal(&params.G) {
		t.Fatal("H equals G")
	}

	seen := make(map[[PointSize]byte]struct{}, HashSetSize)
	for i := range params.HashSet {
		p := &params.HashSet[i]
		if !p.IsValid() || !p.IsAffine() {
			t.Fatalf("hashSet[%d] is not a valid affine point", i)
		}
		if _, ok := seen[p.Bytes()]; ok {
			t.Fatalf("hashSet[%d] repeats", i)
		}
		seen[p.Bytes()] = struct{}{}
	}

	if !params.HashSet[0].Equal(HashPoint(&params.H)) {
		t.Fatal("hashSet[0] is not Hp(H)")
	}
	if !params.HashSet[5].Equal(HashPoint(&params.HashSet[4])) {
		t.Fatal("hashSet chain broken")
	}
}

func TestEndomorphism(t *testing.T) {
	var one, cube uint256.Int
	one.SetOne()

	Field.MulMod(&cube, beta, beta)
	Field.MulMod(&cube, &cube, beta)
	if !cube.Eq(&one) {
		t.Fatal("beta is not a cube root of unity")
	}

	Order.MulMod(&cube, lambda, lambda)
	Order.MulMod(&cube, &cube, lambda)
	if !cube.Eq(&one) {
		t.Fatal("lambda is not a cube root of unity")
	}

	g := Generator()
	var phi, lambdaG Point
	phi.Endomorphism(g)
	lambdaG.ScalarBaseMult(lambda)
	if !phi.Equal(&lambdaG) {
		t.Fatal("φ(G) != G·λ")
	}

	p := naiveMult(uint256.NewInt(0xdeadbeef), g)
	phi.Endomorphism(p)
	if !phi.Equal(naiveMult(lambda, p)) {
		t.Fatal("φ(P) != P·λ")
	}
}

func TestLatticeDecomposition(t *testing.T) {
	q := Order.Int().ToBig()
	for _, k := range testScalars(t, 64) {
		kb := k.ToBig()
		k1, k2 := lattice.decompose(kb)
		if k1.BitLen() > 128 || k2.BitLen() > 128 {
			t.Fatalf("decomposition of %s too large: %d, %d bits", k.Hex(), k1.BitLen(), k2.BitLen())
		}

		sum := k2.Mul(k2, lambda.ToBig())
		sum.Add(sum, k1)
		sum.Sub(sum, kb)
		sum.Mod(sum, q)
		if sum.Sign() != 0 {
			t.Fatalf("k1 + k2·λ != k for %s", k.Hex())
		}
	}
}

func TestIdentities(t *testing.T) {
	g := Generator()
	var r Point

	if !r.ScalarBaseMult(uint256.NewInt(0)).IsIdentity() {
		t.Fatal("G·0 is not the identity")
	}
	if !r.ScalarMult(uint256.NewInt(0), g).IsIdentity() {
		t.Fatal("G·0 is not the identity (GLV)")
	}
	if !r.ScalarBaseMult(uint256.NewInt(1)).Equal(g) {
		t.Fatal("G·1 != G")
	}
	if !r.ScalarMult(uint256.NewInt(1), g).Equal(g) {
		t.Fatal("G·1 != G (GLV)")
	}
	if !r.ScalarBaseMult(Order.Int()).IsIdentity() {
		t.Fatal("G·q is not the identity")
	}
	if !naiveMult(Order.Int(), g).IsIdentity() {
		t.Fatal("G·q is not the identity (unreduced)")
	}

	var negG Point
	negG.Negate(g)
	if !r.ScalarMult(new(uint256.Int).SubUint64(Order.Int(), 1), g).Equal(&negG) {
		t.Fatal("G·(q-1) != -G")
	}
}

func TestAddition(t *testing.T) {
	g := Generator()
	p := naiveMult(uint256.NewInt(12345), g)

	var sum, dbl, neg Point
	if !sum.Add(p, p).Equal(dbl.Double(p)) {
		t.Fatal("P + P != 2P")
	}

	neg.Negate(p)
	if !sum.Add(p, &neg).IsIdentity() {
		t.Fatal("P + -P is not the identity")
	}

	if !sum.Add(NewIdentity(), p).Equal(p) || !sum.Add(p, NewIdentity()).Equal(p) {
		t.Fatal("identity is not neutral")
	}

	// jacobian + jacobian, against affine inputs
	var a, b Point
	a.Double(p)
	b.Double(&a)
	var expected Point
	expected.Add(new(Point).Affine(&a), new(Point).Affine(&b))
	if !sum.Add(&a, &b).Equal(&expected) {
		t.Fatal("jacobian addition differs from affine addition")
	}
	if !sum.Affine(&sum).IsOnCurve() {
		t.Fatal("sum not on curve")
	}
	if !sum.Equal(naiveMult(uint256.NewInt(12345*6), g)) {
		t.Fatal("2P + 4P != 6P")
	}
}

func TestCombMatchesEndomorphism(t *testing.T) {
	g := Generator()
	p := HashToCurve(crypto.Keccak256("comb base point"))
	pTable := NewCombTable(p, 5)

	for _, k := range testScalars(t, 48) {
		var comb, glv Point
		comb.ScalarBaseMult(k)
		glv.ScalarMult(k, g)
		if !comb.Equal(&glv) {
			t.Fatalf("comb and GLV differ on G for k = %s", k.Hex())
		}
		if !comb.IsAffine() || !glv.IsAffine() {
			t.Fatal("results not affine")
		}

		pTable.Mult(&comb, k)
		glv.ScalarMult(k, p)
		if !comb.Equal(&glv) {
			t.Fatalf("comb and GLV differ on P for k = %s", k.Hex())
		}
	}

	for _, k := range testScalars(t, 4) {
		if !new(Point).ScalarMult(k, p).Equal(naiveMult(k, p)) {
			t.Fatalf("GLV differs from double-and-add for k = %s", k.Hex())
		}
	}
}

func TestCombWidths(t *testing.T) {
	p := HashToCurve(crypto.Keccak256("comb widths"))
	k := RandomScalar(rand.Reader)
	expected := new(Point).ScalarMult(k, p)

	for _, width := range []int{1, 2, 3, 4, 7, 8} {
		if !NewCombTable(p, width).Mult(new(Point), k).Equal(expected) {
			t.Fatalf("comb width %d differs", width)
		}
	}
}

func TestCombWidthBounds(t *testing.T) {
	p := HashToCurve(crypto.Keccak256("comb bounds"))
	for _, width := range []int{0, -1, MaxCombWidth + 1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("comb width %d accepted", width)
				}
			}()
			NewCombTable(p, width)
		}()
	}
	if NewCombTable(p, MaxCombWidth).Width() != MaxCombWidth {
		t.Fatal("maximum comb width rejected")
	}
}

func TestTableCache(t *testing.T) {
	cache := NewTableCache(4, 6)
	p := HashToCurve(crypto.Keccak256("table cache"))
	k := RandomScalar(rand.Reader)

	a := cache.Get(p)
	if b := cache.Get(new(Point).Set(p)); a != b {
		t.Fatal("cache miss for same point")
	}
	if !cache.Mult(new(Point), k, p).Equal(new(Point).ScalarMult(k, p)) {
		t.Fatal("cached table result differs")
	}

	nilCache := NewTableNilCache()
	if nilCache.Get(p) == nilCache.Get(p) {
		t.Fatal("nil cache returned the same table")
	}
}

func TestHashToCurve(t *testing.T) {
	seed := crypto.Keccak256("hash to curve")
	a := HashToCurve(seed)
	b := HashToCurve(seed)
	if !a.IsValid() || !a.Equal(b) {
		t.Fatal("hash to curve is not deterministic or off curve")
	}

	// seed above p is reduced first
	var over types.Hash
	for i := range over {
		over[i] = 0xff
	}
	if !HashToCurve(over).IsValid() {
		t.Fatal("reduced seed yields invalid point")
	}
}

func TestGeneratorFromSeed(t *testing.T) {
	a := GeneratorFromSeed(0)
	b := GeneratorFromSeed(1)
	c := GeneratorFromSeed(1 << 63)
	if !a.IsValid() || !b.IsValid() || !c.IsValid() {
		t.Fatal("invalid generator")
	}
	if a.Equal(b) || a.Equal(c) || b.Equal(c) {
		t.Fatal("generators collide")
	}
	if !GeneratorFromSeed(1).Equal(b) {
		t.Fatal("generator not deterministic")
	}
}

func TestCompress(t *testing.T) {
	stream := crypto.NewHashStream(crypto.Keccak256("compress"), 0)
	for range 16 {
		p := new(Point).ScalarBaseMult(RandomScalar(stream))

		x, parity := p.Compress()
		d := Decompress(&x, parity)
		if d == nil || !d.Equal(p) {
			t.Fatal("decompress(compress(P)) != P")
		}

		d = DecompressBytes(p.CompressedBytes())
		if d == nil || !d.Equal(p) {
			t.Fatal("byte round trip failed")
		}

		var neg Point
		neg.Negate(p)
		if d = Decompress(&x, parity^1); d == nil || !d.Equal(&neg) {
			t.Fatal("opposite parity is not -P")
		}
	}
}

func TestDecompressRejects(t *testing.T) {
	p := Field.Int()
	if Decompress(p, 0) != nil {
		t.Fatal("x = p accepted")
	}
	if Decompress(new(uint256.Int).AddUint64(p, 5), 1) != nil {
		t.Fatal("x > p accepted")
	}

	var goal, root uint256.Int
	x := uint256.NewInt(1)
	for {
		curveRHS(&goal, x)
		if !Field.Sqrt(&root, &goal) {
			break
		}
		x.AddUint64(x, 1)
	}
	if Decompress(x, 0) != nil || Decompress(x, 1) != nil {
		t.Fatal("non-residue accepted")
	}
}

func TestModulus(t *testing.T) {
	stream := crypto.NewHashStream(crypto.Keccak256("modulus"), 0)
	var inv, prod, sq, root uint256.Int
	for _, mod := range []*Modulus{Field, Order} {
		for range 8 {
			x := RandomScalar(stream)
			mod.InvMod(&inv, x)
			mod.MulMod(&prod, &inv, x)
			if !prod.Eq(uint256.NewInt(1)) {
				t.Fatal("x·x⁻¹ != 1")
			}

			var diff uint256.Int
			mod.SubMod(&diff, uint256.NewInt(0), x)
			mod.AddMod(&diff, &diff, x)
			if !diff.IsZero() {
				t.Fatal("0 - x + x != 0")
			}
		}
	}

	x := RandomScalar(stream)
	Field.SquareMod(&sq, x)
	if !Field.Sqrt(&root, &sq) {
		t.Fatal("square is not a residue")
	}
	Field.SquareMod(&root, &root)
	if !root.Eq(&sq) {
		t.Fatal("sqrt(x²)² != x²")
	}
}

func TestBatchAffine(t *testing.T) {
	g := Generator()
	points := make([]Point, 6)
	points[0].SetIdentity()
	points[1].Set(g)
	for i := 2; i < len(points); i++ {
		points[i].Add(&points[i-1], g)
	}
	expected := make([]Point, len(points))
	for i := range points {
		expected[i].Affine(&points[i])
	}

	BatchAffine(points)
	for i := range points {
		if !points[i].IsAffine() || points[i].X != expected[i].X || points[i].Y != expected[i].Y {
			t.Fatalf("batch affine mismatch at %d", i)
		}
	}
}

func TestPointJSON(t *testing.T) {
	p := new(Point).ScalarBaseMult(uint256.NewInt(42))
	buf, err := utils.MarshalJSON(p)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Point
	if err = utils.UnmarshalJSON(buf, &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(p) {
		t.Fatal("json round trip mismatch")
	}

	buf[5] ^= 0x01
	if err = utils.UnmarshalJSON(buf, &decoded); err == nil {
		t.Fatal("corrupted point accepted")
	}
}

func TestNewPointFromBytes(t *testing.T) {
	p := new(Point).ScalarBaseMult(uint256.NewInt(7))
	buf := p.Bytes()
	decoded, err := NewPointFromBytes(buf[:])
	if err != nil || !decoded.Equal(p) {
		t.Fatal("decode failed")
	}

	var zero [PointSize]byte
	if decoded, err = NewPointFromBytes(zero[:]); err != nil || !decoded.IsIdentity() {
		t.Fatal("zero encoding is not the identity")
	}

	buf[63] ^= 0x01
	if _, err = NewPointFromBytes(buf[:]); err == nil {
		t.Fatal("off-curve point accepted")
	}
}
