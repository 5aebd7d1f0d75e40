package abi

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/types"
)

var (
	ErrTruncated = errors.New("abi: truncated data")
	ErrOffset    = errors.New("abi: offset out of range")
	ErrOverflow  = errors.New("abi: value out of range")
	ErrScalar    = errors.New("abi: scalar not reduced")
)

// Decoder reads words sequentially from an encoded blob. Offsets of dynamic values are relative
// to the start of the blob, matching Encode.
type Decoder struct {
	data []byte
	pos  int
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Remaining bytes after the cursor
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

func (d *Decoder) Position() int {
	return d.pos
}

// At random access to the i-th word of the blob, the cursor is not moved
func (d *Decoder) At(i int) (w types.Hash, err error) {
	if i < 0 || (i+1)*WordSize > len(d.data) {
		return w, ErrTruncated
	}
	copy(w[:], d.data[i*WordSize:])
	return w, nil
}

func (d *Decoder) Word() (w types.Hash, err error) {
	if d.Remaining() < WordSize {
		return w, ErrTruncated
	}
	copy(w[:], d.data[d.pos:])
	d.pos += WordSize
	return w, nil
}

// Uint256 any 256-bit value
func (d *Decoder) Uint256() (*uint256.Int, error) {
	w, err := d.Word()
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes32(w[:]), nil
}

func (d *Decoder) Uint64() (uint64, error) {
	v, err := d.Uint256()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, ErrOverflow
	}
	return v.Uint64(), nil
}

// Scalar a value strictly below the group order
func (d *Decoder) Scalar() (*bn254.Scalar, error) {
	w, err := d.Word()
	if err != nil {
		return nil, err
	}
	s := bn254.ScalarFromBytes(w[:])
	if s == nil {
		return nil, ErrScalar
	}
	return s, nil
}

// Point reads (x, y) and validates it. (0, 0) decodes as the identity.
func (d *Decoder) Point() (*bn254.Point, error) {
	if d.Remaining() < bn254.PointSize {
		return nil, ErrTruncated
	}
	p, err := bn254.NewPointFromBytes(d.data[d.pos : d.pos+bn254.PointSize])
	if err != nil {
		return nil, err
	}
	d.pos += bn254.PointSize
	return p, nil
}

// Dynamic reads an offset word and returns a decoder positioned at the referenced length word,
// along with the length
func (d *Decoder) Dynamic(itemSize int) (*Decoder, int, error) {
	offset, err := d.Uint64()
	if err != nil {
		return nil, 0, err
	}
	if offset%WordSize != 0 || offset > uint64(len(d.data)) {
		return nil, 0, ErrOffset
	}
	sub := &Decoder{data: d.data, pos: int(offset)}
	n, err := sub.Uint64()
	if err != nil {
		return nil, 0, err
	}
	if itemSize > 0 && n > uint64(sub.Remaining()/itemSize) {
		return nil, 0, ErrTruncated
	}
	return sub, int(n), nil
}

func (d *Decoder) Bytes() ([]byte, error) {
	sub, n, err := d.Dynamic(1)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	copy(buf, sub.data[sub.pos:sub.pos+n])
	return buf, nil
}

func (d *Decoder) DynamicWords() ([]types.Hash, error) {
	sub, n, err := d.Dynamic(WordSize)
	if err != nil {
		return nil, err
	}
	return sub.FixedWords(n)
}

func (d *Decoder) DynamicScalars() ([]*bn254.Scalar, error) {
	sub, n, err := d.Dynamic(WordSize)
	if err != nil {
		return nil, err
	}
	return sub.FixedScalars(n)
}

func (d *Decoder) DynamicUint64s() ([]uint64, error) {
	sub, n, err := d.Dynamic(WordSize)
	if err != nil {
		return nil, err
	}
	values := make([]uint64, n)
	for i := range values {
		if values[i], err = sub.Uint64(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return values, nil
}

func (d *Decoder) DynamicPoints() ([]*bn254.Point, error) {
	sub, n, err := d.Dynamic(bn254.PointSize)
	if err != nil {
		return nil, err
	}
	return sub.FixedPoints(n)
}

// DynamicPairs dynamic array of fixed scalar pairs
func (d *Decoder) DynamicPairs() ([][2]*bn254.Scalar, error) {
	sub, n, err := d.Dynamic(2 * WordSize)
	if err != nil {
		return nil, err
	}
	pairs := make([][2]*bn254.Scalar, n)
	for i := range pairs {
		for j := range pairs[i] {
			if pairs[i][j], err = sub.Scalar(); err != nil {
				return nil, fmt.Errorf("pair %d: %w", i, err)
			}
		}
	}
	return pairs, nil
}

func (d *Decoder) FixedWords(n int) ([]types.Hash, error) {
	if d.Remaining()/WordSize < n {
		return nil, ErrTruncated
	}
	words := make([]types.Hash, n)
	for i := range words {
		words[i], _ = d.Word()
	}
	return words, nil
}

func (d *Decoder) FixedScalars(n int) (scalars []*bn254.Scalar, err error) {
	if d.Remaining()/WordSize < n {
		return nil, ErrTruncated
	}
	scalars = make([]*bn254.Scalar, n)
	for i := range scalars {
		if scalars[i], err = d.Scalar(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return scalars, nil
}

func (d *Decoder) FixedPoints(n int) (points []*bn254.Point, err error) {
	if d.Remaining()/bn254.PointSize < n {
		return nil, ErrTruncated
	}
	points = make([]*bn254.Point, n)
	for i := range points {
		if points[i], err = d.Point(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return points, nil
}
