package wallet

import (
	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/types"
)

// Output a stealth transaction record as stored on the ledger.
// SenderData is only known to the creator, ReceiverData only to the owner once decrypted.
type Output struct {
	ID               types.Hash   `json:"id"`
	Src              bn254.Point  `json:"src"`
	Dest             bn254.Point  `json:"dest"`
	Commitment       bn254.Point  `json:"commitment"`
	CommitmentAmount bn254.Scalar `json:"commitment_amount"`
	// Message encrypted under the shared secret, may be empty
	Message types.Bytes `json:"message,omitempty"`

	SenderData   *SenderData   `json:"-"`
	ReceiverData *ReceiverData `json:"-"`
}

type SenderData struct {
	Recipient PublicKey
	Amount    uint64
	Secret    bn254.Scalar
	// OneTimeKey r, with Src = generator·r
	OneTimeKey  bn254.Scalar
	BlindingKey bn254.Scalar
	Message     []byte
	Public      bool
}

type ReceiverData struct {
	Amount      uint64
	Secret      bn254.Scalar
	BlindingKey bn254.Scalar
	// SpendKey one-time private key, Dest = G·SpendKey
	SpendKey bn254.Scalar
	Message  []byte
	Public   bool
}

// OutputID keccak(dest)
func OutputID(dest *bn254.Point) types.Hash {
	return abi.Hash(abi.Point(dest))
}

// Public strips private data, as published to the ledger
func (o *Output) Public() *Output {
	return &Output{
		ID:               o.ID,
		Src:              o.Src,
		Dest:             o.Dest,
		Commitment:       o.Commitment,
		CommitmentAmount: o.CommitmentAmount,
		Message:          o.Message,
	}
}

// Verify structural validity of untrusted output data
func (o *Output) Verify() bool {
	return o.Src.IsValid() && o.Src.IsAffine() &&
		o.Dest.IsValid() && o.Dest.IsAffine() &&
		o.Commitment.IsValid() && o.Commitment.IsAffine() &&
		bn254.Order.IsReduced(&o.CommitmentAmount) &&
		o.ID == OutputID(&o.Dest)
}

// Amount known amount of the output, from either side
func (o *Output) Amount() (uint64, bool) {
	if o.ReceiverData != nil {
		return o.ReceiverData.Amount, true
	}
	if o.SenderData != nil {
		return o.SenderData.Amount, true
	}
	return 0, false
}

// BlindingKey known blinding key of the commitment, from either side
func (o *Output) BlindingKey() (*bn254.Scalar, bool) {
	if o.ReceiverData != nil {
		return &o.ReceiverData.BlindingKey, true
	}
	if o.SenderData != nil {
		return &o.SenderData.BlindingKey, true
	}
	return nil, false
}

// Commit Pedersen commitment G·blinding + H·amount, affine
func Commit(blinding *bn254.Scalar, amount uint64) *bn254.Point {
	var g, h bn254.Point
	g.ScalarBaseMult(blinding)
	h.ScalarMultH(bn254.ScalarFromUint64(amount))
	return g.Affine(g.Add(&g, &h))
}

// PublicCommitmentAmount the masked amount hash(b) + amount mod q
func PublicCommitmentAmount(blinding *bn254.Scalar, amount uint64) *bn254.Scalar {
	mask := abi.HashToScalar(abi.Scalar(blinding))
	return bn254.Order.AddMod(mask, mask, bn254.ScalarFromUint64(amount))
}
