package wallet

import (
	"bytes"
	"encoding/binary"
	"errors"

	base58 "git.gammaspectra.live/P2Pool/monero-base58"
	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/monereum/crypto/bn254"
)

const (
	ChecksumLength = 4
	// addressLength compressed spend ‖ compressed view ‖ generator ‖ checksum
	addressLength = 2*bn254.CompressedSize + 8 + ChecksumLength
)

var ErrInvalidAddress = errors.New("invalid address")

// PublicKey shareable address of a single key. Generator selects the per-key generator point
// used for the view derivation, see GeneratorFromSeed.
type PublicKey struct {
	SpendPub  bn254.Point `json:"spend_pub"`
	ViewPub   bn254.Point `json:"view_pub"`
	Generator uint64      `json:"generator"`
}

// GeneratorSeed first 8 bytes of keccak(spendPub)
func GeneratorSeed(spendPub *bn254.Point) uint64 {
	buf := spendPub.AffineBytes()
	return crypto.Keccak256(buf[:]).Uint64()
}

func (k *PublicKey) Valid() bool {
	return k.SpendPub.IsValid() && k.ViewPub.IsValid() && k.Generator == GeneratorSeed(&k.SpendPub)
}

func (k *PublicKey) Equal(other *PublicKey) bool {
	return k.Generator == other.Generator && k.SpendPub.Equal(&other.SpendPub) && k.ViewPub.Equal(&other.ViewPub)
}

func (k *PublicKey) raw() []byte {
	buf := make([]byte, 0, addressLength)
	spend := k.SpendPub.CompressedBytes()
	view := k.ViewPub.CompressedBytes()
	buf = append(buf, spend[:]...)
	buf = append(buf, view[:]...)
	buf = binary.BigEndian.AppendUint64(buf, k.Generator)
	sum := checksumHash(buf)
	return append(buf, sum[:]...)
}

// String base58 address form
func (k *PublicKey) String() string {
	return string(base58.EncodeMoneroBase58(k.raw()))
}

// FromBase58 parses and validates an address, nil on any failure
func FromBase58(address string) *PublicKey {
	raw := base58.DecodeMoneroBase58([]byte(address))
	if len(raw) != addressLength {
		return nil
	}

	if sum := checksumHash(raw[:addressLength-ChecksumLength]); !bytes.Equal(sum[:], raw[addressLength-ChecksumLength:]) {
		return nil
	}

	var spendBuf, viewBuf [bn254.CompressedSize]byte
	copy(spendBuf[:], raw[:bn254.CompressedSize])
	copy(viewBuf[:], raw[bn254.CompressedSize:])

	spend := bn254.DecompressBytes(spendBuf)
	view := bn254.DecompressBytes(viewBuf)
	if spend == nil || view == nil {
		return nil
	}

	k := &PublicKey{
		Generator: binary.BigEndian.Uint64(raw[2*bn254.CompressedSize:]),
	}
	k.SpendPub.Set(spend)
	k.ViewPub.Set(view)
	if !k.Valid() {
		return nil
	}
	return k
}

func checksumHash(data []byte) (sum [ChecksumLength]byte) {
	h := crypto.Keccak256(data)
	copy(sum[:], h[:])
	return sum
}

// KeyPair private spend key with its public key. The view key is shared by every key of a wallet.
type KeyPair struct {
	SpendKey  bn254.Scalar
	ViewKey   bn254.Scalar
	PublicKey PublicKey
}

// SpendID lookup key of a spend public point
func SpendID(spendPub *bn254.Point) [bn254.PointSize]byte {
	return spendPub.AffineBytes()
}
