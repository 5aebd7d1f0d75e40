package abi

import (
	"github.com/holiman/uint256"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

type Kind uint8

const (
	KindScalar = Kind(iota)
	KindPoint
	KindFixedArray
	KindDynamicArray
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindPoint:
		return "point"
	case KindFixedArray:
		return "fixed"
	case KindDynamicArray:
		return "dynamic"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Value a single encodable argument. Only build through the constructors below.
type Value struct {
	kind   Kind
	scalar uint256.Int
	point  bn254.Point
	items  []Value
	bytes  []byte
}

func (v Value) Kind() Kind {
	return v.kind
}

// IsStatic static values live in the head, everything else is referenced through an offset
func (v Value) IsStatic() bool {
	return v.kind == KindScalar || v.kind == KindPoint || v.kind == KindFixedArray
}

// staticSize head size in bytes of a static value
func (v Value) staticSize() int {
	switch v.kind {
	case KindScalar:
		return WordSize
	case KindPoint:
		return bn254.PointSize
	case KindFixedArray:
		var n int
		for _, item := range v.items {
			n += item.staticSize()
		}
		return n
	default:
		return WordSize
	}
}

func Scalar(s *uint256.Int) Value {
	v := Value{kind: KindScalar}
	v.scalar.Set(s)
	return v
}

func Uint(n uint64) Value {
	v := Value{kind: KindScalar}
	v.scalar.SetUint64(n)
	return v
}

// Word a raw 32-byte word, such as a hash
func Word(h types.Hash) Value {
	v := Value{kind: KindScalar}
	v.scalar.SetBytes32(h[:])
	return v
}

// Point must be affine when encoded
func Point(p *bn254.Point) Value {
	v := Value{kind: KindPoint}
	v.point.Set(p)
	return v
}

// FixedArray items are packed inline in the head, all items must be static
func FixedArray(items ...Value) Value {
	for _, item := range items {
		if !item.IsStatic() {
			utils.Panicf("abi: fixed array of %s", item.kind)
		}
	}
	return Value{kind: KindFixedArray, items: items}
}

// DynamicArray length-prefixed sequence of static items, written to the heap
func DynamicArray(items ...Value) Value {
	for _, item := range items {
		if !item.IsStatic() {
			utils.Panicf("abi: dynamic array of %s", item.kind)
		}
	}
	return Value{kind: KindDynamicArray, items: items}
}

// Bytes length-prefixed bytes, right-padded to a word boundary on the heap
func Bytes(buf []byte) Value {
	return Value{kind: KindBytes, bytes: buf}
}

func Words(hashes ...types.Hash) []Value {
	values := make([]Value, len(hashes))
	for i := range hashes {
		values[i] = Word(hashes[i])
	}
	return values
}

func Scalars(scalars ...*uint256.Int) []Value {
	values := make([]Value, len(scalars))
	for i := range scalars {
		values[i] = Scalar(scalars[i])
	}
	return values
}

func Uints(n ...uint64) []Value {
	values := make([]Value, len(n))
	for i := range n {
		values[i] = Uint(n[i])
	}
	return values
}

func Points(points ...*bn254.Point) []Value {
	values := make([]Value, len(points))
	for i := range points {
		values[i] = Point(points[i])
	}
	return values
}
