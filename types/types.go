package types

import (
	"bytes"
	"encoding/binary"
	"errors"

	fasthex "github.com/tmthrgd/go-hex"
)

// HashSize one ledger word
const HashSize = 32

var (
	errHashSize  = errors.New("wrong hash size")
	errHexString = errors.New("expected a hex string")
)

// Hash a Keccak-256 digest or any other 32-byte ledger word. Text form is 0x-prefixed hex.
//
//nolint:recvcheck
type Hash [HashSize]byte

var ZeroHash Hash

// HashFromString accepts hex with or without the 0x prefix
func HashFromString(s string) (h Hash, err error) {
	buf := trimHexPrefix([]byte(s))
	if len(buf) != HashSize*2 {
		return h, errHashSize
	}
	_, err = fasthex.Decode(h[:], buf)
	return h, err
}

func MustHashFromString(s string) Hash {
	h, err := HashFromString(s)
	if err != nil {
		panic(err)
	}
	return h
}

// HashFromBytes zero when buf is not exactly one word
func HashFromBytes(buf []byte) (h Hash) {
	if len(buf) == HashSize {
		copy(h[:], buf)
	}
	return h
}

// Compare orders hashes as big-endian 256-bit words
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// Uint64 leading 8 bytes, big-endian
func (h Hash) Uint64() uint64 {
	return binary.BigEndian.Uint64(h[:])
}

func (h Hash) String() string {
	return "0x" + fasthex.EncodeToString(h[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return appendQuotedHex(make([]byte, 0, HashSize*2+4), h[:]), nil
}

func (h *Hash) UnmarshalJSON(b []byte) error {
	buf, err := unquote(b)
	if err != nil {
		return err
	}
	if len(buf) != HashSize*2 {
		return errHashSize
	}
	_, err = fasthex.Decode(h[:], buf)
	return err
}

// Bytes variable length data, such as packed output messages. Text form is 0x-prefixed hex.
//
//nolint:recvcheck
type Bytes []byte

func (b Bytes) String() string {
	return "0x" + fasthex.EncodeToString(b)
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return appendQuotedHex(make([]byte, 0, len(b)*2+4), b), nil
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	buf, err := unquote(data)
	if err != nil {
		return err
	}
	if len(buf)%2 != 0 {
		return errHexString
	}
	*b = make(Bytes, len(buf)/2)
	_, err = fasthex.Decode(*b, buf)
	return err
}

func appendQuotedHex(dst, src []byte) []byte {
	dst = append(dst, '"', '0', 'x')
	n := len(dst)
	dst = append(dst, make([]byte, len(src)*2)...)
	fasthex.Encode(dst[n:], src)
	return append(dst, '"')
}

func unquote(b []byte) ([]byte, error) {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return nil, errHexString
	}
	return trimHexPrefix(b[1 : len(b)-1]), nil
}

func trimHexPrefix(b []byte) []byte {
	if len(b) >= 2 && b[0] == '0' && (b[1] == 'x' || b[1] == 'X') {
		return b[2:]
	}
	return b
}
