package abi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/types"
	fasthex "github.com/tmthrgd/go-hex"
)

func word(n uint64) []byte {
	w := uint256.NewInt(n).Bytes32()
	return w[:]
}

func TestEncodeLayout(t *testing.T) {
	data := Encode(
		Uint(1),
		DynamicArray(Uint(2), Uint(3)),
		Bytes([]byte("abc")),
		FixedArray(Uint(4), Uint(5)),
	)

	// head: 1 + offset + offset + 2 words
	const headSize = 5 * WordSize
	var expected []byte
	expected = append(expected, word(1)...)
	expected = append(expected, word(headSize)...)
	expected = append(expected, word(headSize+3*WordSize)...)
	expected = append(expected, word(4)...)
	expected = append(expected, word(5)...)
	// heap
	expected = append(expected, word(2)...)
	expected = append(expected, word(2)...)
	expected = append(expected, word(3)...)
	expected = append(expected, word(3)...)
	padded := make([]byte, WordSize)
	copy(padded, "abc")
	expected = append(expected, padded...)

	if !bytes.Equal(data, expected) {
		t.Fatalf("layout mismatch:\n%s\n%s", fasthex.EncodeToString(data), fasthex.EncodeToString(expected))
	}
}

func TestEncodePoints(t *testing.T) {
	g := bn254.Generator()
	data := Encode(Point(g), Point(bn254.NewIdentity()))
	if len(data) != 2*bn254.PointSize {
		t.Fatalf("unexpected size %d", len(data))
	}
	if !bytes.Equal(data[:WordSize], word(1)) || !bytes.Equal(data[WordSize:2*WordSize], word(2)) {
		t.Fatal("G is not encoded as (1, 2)")
	}
	if !bytes.Equal(data[bn254.PointSize:], make([]byte, bn254.PointSize)) {
		t.Fatal("identity is not encoded as (0, 0)")
	}
}

func TestEncodeNonAffinePanics(t *testing.T) {
	var p bn254.Point
	p.Double(bn254.Generator())
	if p.IsAffine() {
		t.Skip("doubling produced an affine point")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("encoding a non-affine point did not panic")
		}
	}()
	Encode(Point(&p))
}

func TestNestedDynamicPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("nested dynamic array did not panic")
		}
	}()
	DynamicArray(DynamicArray(Uint(1)))
}

func TestHash(t *testing.T) {
	if Hash(Uint(7)) != crypto.Keccak256(word(7)) {
		t.Fatal("hash of a single word differs from keccak of the word")
	}
	if Hash(Uint(7), Uint(8)) == Hash(Uint(8), Uint(7)) {
		t.Fatal("hash ignores order")
	}
	if Hash(FixedArray(Uint(1), Uint(2))) == Hash(DynamicArray(Uint(1), Uint(2))) {
		t.Fatal("fixed and dynamic arrays hash the same")
	}

	s := HashToScalar(Uint(1))
	if !bn254.Order.IsReduced(s) {
		t.Fatal("hash scalar not reduced")
	}
}

func TestSelector(t *testing.T) {
	// well known ERC-20 selector
	if s := Selector("transfer(address,uint256)"); s != [4]byte{0xa9, 0x05, 0x9c, 0xbb} {
		t.Fatalf("unexpected selector %x", s)
	}
	topic := Topic("Transfer(address,address,uint256)")
	if topic != types.MustHashFromString("ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef") {
		t.Fatalf("unexpected topic %s", topic)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	g := bn254.Generator()
	h := &bn254.Params().H
	msg := []byte("a message longer than a single word of data")

	data := Encode(
		Word(crypto.Keccak256("id")),
		Point(g),
		DynamicArray(Points(g, h)...),
		DynamicArray(Uints(10, 20, 30)...),
		DynamicArray(FixedArray(Uint(1), Uint(2)), FixedArray(Uint(3), Uint(4))),
		Bytes(msg),
		FixedArray(Uint(5), Uint(6)),
	)

	d := NewDecoder(data)
	id, err := d.Word()
	if err != nil || id != crypto.Keccak256("id") {
		t.Fatal("word mismatch")
	}
	p, err := d.Point()
	if err != nil || !p.Equal(g) {
		t.Fatal("point mismatch")
	}
	points, err := d.DynamicPoints()
	if err != nil || len(points) != 2 || !points[1].Equal(h) {
		t.Fatal("dynamic points mismatch")
	}
	values, err := d.DynamicUint64s()
	if err != nil || len(values) != 3 || values[2] != 30 {
		t.Fatal("dynamic values mismatch")
	}
	pairs, err := d.DynamicPairs()
	if err != nil || len(pairs) != 2 || pairs[1][0].Uint64() != 3 || pairs[1][1].Uint64() != 4 {
		t.Fatal("pairs mismatch")
	}
	buf, err := d.Bytes()
	if err != nil || !bytes.Equal(buf, msg) {
		t.Fatal("bytes mismatch")
	}
	fixed, err := d.FixedScalars(2)
	if err != nil || fixed[0].Uint64() != 5 || fixed[1].Uint64() != 6 {
		t.Fatal("fixed scalars mismatch")
	}
	if d.Remaining() != len(data)-d.Position() {
		t.Fatal("cursor inconsistent")
	}

	w, err := d.At(0)
	if err != nil || w != id {
		t.Fatal("random access mismatch")
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Run("Truncated", func(t *testing.T) {
		d := NewDecoder(make([]byte, WordSize-1))
		if _, err := d.Word(); !errors.Is(err, ErrTruncated) {
			t.Fatalf("expected truncation, got %v", err)
		}
	})

	t.Run("Offset", func(t *testing.T) {
		d := NewDecoder(Encode(Uint(1 << 20)))
		if _, err := d.DynamicWords(); !errors.Is(err, ErrOffset) {
			t.Fatalf("expected offset error, got %v", err)
		}
	})

	t.Run("Length", func(t *testing.T) {
		// offset 32 then a huge length
		d := NewDecoder(Encode(Uint(WordSize), Uint(1<<40)))
		if _, err := d.DynamicWords(); !errors.Is(err, ErrTruncated) {
			t.Fatalf("expected truncation, got %v", err)
		}
	})

	t.Run("Scalar", func(t *testing.T) {
		d := NewDecoder(Encode(Scalar(bn254.Order.Int())))
		if _, err := d.Scalar(); !errors.Is(err, ErrScalar) {
			t.Fatalf("expected scalar range error, got %v", err)
		}
	})

	t.Run("Point", func(t *testing.T) {
		d := NewDecoder(Encode(Uint(1), Uint(3)))
		if _, err := d.Point(); !errors.Is(err, bn254.ErrInvalidPoint) {
			t.Fatalf("expected invalid point, got %v", err)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		d := NewDecoder(Encode(Scalar(new(uint256.Int).Lsh(uint256.NewInt(1), 64))))
		if _, err := d.Uint64(); !errors.Is(err, ErrOverflow) {
			t.Fatalf("expected overflow, got %v", err)
		}
	})
}
