package proofs

import (
	"encoding/binary"
	"errors"
	"io"

	base58 "git.gammaspectra.live/P2Pool/monero-base58"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

const CreationProofPrefix = "Creation"

// id ‖ challenge ‖ response ‖ generator
const creationProofSize = types.HashSize*3 + 8

var encodedB58CreationSize = len(base58.EncodeMoneroBase58(make([]byte, creationProofSize)))

// CreationProof shows authorship of an output through its one-time key
type CreationProof struct {
	Version   uint8
	OutputID  types.Hash
	Signature wallet.Signature
}

func (p CreationProof) String() string {
	buf := make([]byte, 0, creationProofSize)
	c := bn254.ScalarBytes(&p.Signature.Challenge)
	s := bn254.ScalarBytes(&p.Signature.Response)
	buf = append(buf, p.OutputID[:]...)
	buf = append(buf, c[:]...)
	buf = append(buf, s[:]...)
	buf = binary.BigEndian.AppendUint64(buf, p.Signature.Generator)
	return utils.SprintfNoEscape("%sV%d", CreationProofPrefix, p.Version) + string(base58.EncodeMoneroBase58(buf))
}

func (p CreationProof) Verify(out *wallet.Output, message string) bool {
	if p.Version != 1 || out.ID != p.OutputID {
		return false
	}
	prefixHash := OutputPrefixHash(p.OutputID, message)
	return wallet.VerifyCreation(out, prefixHash[:], &p.Signature)
}

func NewCreationProofFromString(str string) (CreationProof, error) {
	version, offset, ok := parseVersion(str, CreationProofPrefix)
	if !ok {
		return CreationProof{}, errors.New("invalid creation proof: unknown prefix or version")
	}
	if len(str)-offset != encodedB58CreationSize {
		return CreationProof{}, errors.New("invalid creation proof: wrong length")
	}
	buf := base58.DecodeMoneroBase58([]byte(str[offset:]))
	if len(buf) != creationProofSize {
		return CreationProof{}, errors.New("invalid creation proof: invalid encoding")
	}

	c := bn254.ScalarFromBytes(buf[types.HashSize : types.HashSize*2])
	s := bn254.ScalarFromBytes(buf[types.HashSize*2 : types.HashSize*3])
	if c == nil || s == nil {
		return CreationProof{}, errors.New("invalid creation proof: invalid signature")
	}

	proof := CreationProof{
		Version:  version,
		OutputID: types.HashFromBytes(buf[:types.HashSize]),
	}
	proof.Signature.Challenge.Set(c)
	proof.Signature.Response.Set(s)
	proof.Signature.Generator = binary.BigEndian.Uint64(buf[types.HashSize*3:])
	return proof, nil
}

func GetCreationProof(out *wallet.Output, message string, randomReader io.Reader) (CreationProof, error) {
	prefixHash := OutputPrefixHash(out.ID, message)
	sig, err := wallet.SignCreation(out, prefixHash[:], randomReader)
	if err != nil {
		return CreationProof{}, err
	}
	return CreationProof{
		Version:   1,
		OutputID:  out.ID,
		Signature: *sig,
	}, nil
}
