package proofs

import (
	"errors"

	base58 "git.gammaspectra.live/P2Pool/monero-base58"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

const ReceiptProofPrefix = "Receipt"

var encodedB58ReceiptSize = len(base58.EncodeMoneroBase58(make([]byte, types.HashSize*2)))

// ReceiptProof shows a payment was made to the owner of an output.
// Only the creator knows the receipt, only the owner can check it.
type ReceiptProof struct {
	Version  uint8
	OutputID types.Hash
	Receipt  types.Hash
}

func (p ReceiptProof) String() string {
	buf := make([]byte, 0, types.HashSize*2)
	buf = append(buf, p.OutputID[:]...)
	buf = append(buf, p.Receipt[:]...)
	return utils.SprintfNoEscape("%sV%d", ReceiptProofPrefix, p.Version) + string(base58.EncodeMoneroBase58(buf))
}

func (p ReceiptProof) Verify(out *wallet.Output) bool {
	if p.Version != 1 || out.ID != p.OutputID {
		return false
	}
	return wallet.IsValidReceipt(out, p.Receipt)
}

func NewReceiptProofFromString(str string) (ReceiptProof, error) {
	version, offset, ok := parseVersion(str, ReceiptProofPrefix)
	if !ok {
		return ReceiptProof{}, errors.New("invalid receipt proof: unknown prefix or version")
	}
	if len(str)-offset != encodedB58ReceiptSize {
		return ReceiptProof{}, errors.New("invalid receipt proof: wrong length")
	}
	buf := base58.DecodeMoneroBase58([]byte(str[offset:]))
	if len(buf) != types.HashSize*2 {
		return ReceiptProof{}, errors.New("invalid receipt proof: invalid encoding")
	}
	return ReceiptProof{
		Version:  version,
		OutputID: types.HashFromBytes(buf[:types.HashSize]),
		Receipt:  types.HashFromBytes(buf[types.HashSize:]),
	}, nil
}

// GetReceiptProof for an output created by this wallet
func GetReceiptProof(out *wallet.Output) (ReceiptProof, error) {
	r, ok := wallet.Receipt(out)
	if !ok {
		return ReceiptProof{}, wallet.ErrNotCreator
	}
	return ReceiptProof{
		Version:  1,
		OutputID: out.ID,
		Receipt:  r,
	}, nil
}
