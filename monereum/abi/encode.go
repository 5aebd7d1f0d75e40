package abi

import (
	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

const WordSize = 32

// Encode lays out values as head ‖ heap. Static values are written inline in the head,
// dynamic values write a word holding headSize + heap offset and append length ‖ items to the heap.
// Encoding a non-affine point panics.
func Encode(values ...Value) []byte {
	var headSize int
	for _, v := range values {
		if v.IsStatic() {
			headSize += v.staticSize()
		} else {
			headSize += WordSize
		}
	}

	head := make([]byte, 0, headSize)
	var heap []byte
	for _, v := range values {
		switch v.kind {
		case KindScalar, KindPoint, KindFixedArray:
			head = appendStatic(head, v)
		case KindDynamicArray:
			head = appendUint(head, uint64(headSize+len(heap)))
			heap = appendUint(heap, uint64(len(v.items)))
			for _, item := range v.items {
				heap = appendStatic(heap, item)
			}
		case KindBytes:
			head = appendUint(head, uint64(headSize+len(heap)))
			heap = appendUint(heap, uint64(len(v.bytes)))
			heap = appendPadded(heap, v.bytes)
		default:
			utils.Panicf("abi: unknown kind %d", v.kind)
		}
	}

	return append(head, heap...)
}

// Hash Keccak-256 of the encoded values
func Hash(values ...Value) types.Hash {
	return crypto.Keccak256(Encode(values...))
}

// HashToScalar Hash reduced mod q
func HashToScalar(values ...Value) *bn254.Scalar {
	return bn254.ScalarFromHash(Hash(values...))
}

// Selector first four bytes of the Keccak-256 of a function signature
func Selector(signature string) (s [4]byte) {
	h := crypto.Keccak256(signature)
	copy(s[:], h[:4])
	return s
}

// Topic Keccak-256 of an event signature
func Topic(signature string) types.Hash {
	return crypto.Keccak256(signature)
}

func appendStatic(buf []byte, v Value) []byte {
	switch v.kind {
	case KindScalar:
		w := v.scalar.Bytes32()
		return append(buf, w[:]...)
	case KindPoint:
		p := v.point.Bytes()
		return append(buf, p[:]...)
	case KindFixedArray:
		for _, item := range v.items {
			buf = appendStatic(buf, item)
		}
		return buf
	default:
		utils.Panicf("abi: %s is not static", v.kind)
		return nil
	}
}

func appendUint(buf []byte, n uint64) []byte {
	var w [WordSize]byte
	for i := 0; i < 8; i++ {
		w[WordSize-1-i] = byte(n >> (8 * i))
	}
	return append(buf, w[:]...)
}

func appendPadded(buf, data []byte) []byte {
	buf = append(buf, data...)
	if rem := len(data) % WordSize; rem != 0 {
		buf = append(buf, make([]byte, WordSize-rem)...)
	}
	return buf
}
