package borromean

import (
	"io"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto/bn254"
)

// bitChallenge hash(L, C_i)
func bitChallenge(l, commitment *bn254.Point) *bn254.Scalar {
	return abi.HashToScalar(abi.Point(l), abi.Point(commitment))
}

// link G·s + P·c
func link(s *bn254.Scalar, p *bn254.Point, c *bn254.Scalar) *bn254.Point {
	var l, t bn254.Point
	l.ScalarBaseMult(s)
	t.ScalarMult(c, p)
	return l.Affine(l.Add(&l, &t))
}

// signBit 2-member ring over P0 = C_i and P1 = C_i - H·2^idx where P_bit = G·key.
// The other member is simulated.
func signBit(commitment, p1 *bn254.Point, bit uint, key *bn254.Scalar, rand io.Reader) (e *bn254.Scalar, s [2]bn254.Scalar, ok bool) {
	k := bn254.RandomScalar(rand)
	fake := bn254.RandomScalar(rand)
	if k == nil || fake == nil {
		return nil, s, false
	}

	var l bn254.Point
	l.ScalarBaseMult(k)

	var c bn254.Scalar
	if bit == 0 {
		c1 := bitChallenge(&l, commitment)
		s[1].Set(fake)
		e = bitChallenge(link(&s[1], p1, c1), commitment)
		c.Set(e)
	} else {
		e = bitChallenge(&l, commitment)
		s[0].Set(fake)
		c1 := bitChallenge(link(&s[0], commitment, e), commitment)
		c.Set(c1)
	}

	// close the honest member, s = k - c·key
	var t bn254.Scalar
	bn254.Order.MulMod(&t, &c, key)
	bn254.Order.SubMod(&s[bit], k, &t)
	return e, s, true
}

// verifyBit c1 = hash(G·s0 + P0·e, C_i), e' = hash(G·s1 + P1·c1, C_i), accepts iff e' = e
func verifyBit(commitment, p1 *bn254.Point, e *bn254.Scalar, s *[2]bn254.Scalar) bool {
	c1 := bitChallenge(link(&s[0], commitment, e), commitment)
	return bitChallenge(link(&s[1], p1, c1), commitment).Eq(e)
}
