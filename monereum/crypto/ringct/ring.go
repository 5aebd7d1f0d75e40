package ringct

import (
	"context"
	"encoding/binary"
	"errors"
	"io"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

var (
	ErrNotOwned        = errors.New("ring member is not owned")
	ErrDuplicateMember = errors.New("duplicate ring member")
	ErrRandom          = errors.New("could not read randomness")
)

// RingProof linkable ring signature over a set of outputs. It proves ownership of one member,
// binds it to KeyImage, and proves the member commitment and Commitment hide the same amount.
type RingProof struct {
	Ring       []*wallet.Output `json:"ring"`
	KeyImage   bn254.Point      `json:"key_image"`
	Commitment bn254.Point      `json:"commitment"`
	Borromean  bn254.Scalar     `json:"borromean"`
	// ImageFundProofs responses for the destination and key image checks
	ImageFundProofs []bn254.Scalar `json:"image_fund_proofs"`
	// CommitmentProofs responses for the commitment difference check
	CommitmentProofs []bn254.Scalar `json:"commitment_proofs"`
	OutputHash       types.Hash     `json:"output_hash"`
}

// ringMember precomputed per-member data for the challenge chain
type ringMember struct {
	dest       *bn254.Point
	hashedDest *bn254.Point
	// diff C - C_i
	diff bn254.Point
}

func (p *RingProof) members() []ringMember {
	members := make([]ringMember, len(p.Ring))
	for i, out := range p.Ring {
		members[i].dest = &out.Dest
		members[i].hashedDest = bn254.HashPoint(&out.Dest)
		members[i].diff.Affine(members[i].diff.Subtract(&p.Commitment, &out.Commitment))
	}
	return members
}

// challenge c' = hash(dest·c + G·s1, I·c + Hp(dest)·s1, (C - C_i)·c + G·s2, m)
func (p *RingProof) challenge(m *ringMember, c, s1, s2 *bn254.Scalar) *bn254.Scalar {
	var l1, l2, l3, t bn254.Point
	l1.ScalarMult(c, m.dest)
	l1.Affine(l1.Add(&l1, t.ScalarBaseMult(s1)))

	l2.DoubleScalarMult(c, &p.KeyImage, s1, m.hashedDest)

	l3.ScalarMult(c, &m.diff)
	l3.Affine(l3.Add(&l3, t.ScalarBaseMult(s2)))

	return abi.HashToScalar(abi.Point(&l1), abi.Point(&l2), abi.Point(&l3), abi.Word(p.OutputHash))
}

// NewRingProof spends from, hidden among decoys, towards the output batch identified by outputHash.
// blinding is the blinding key of the new pseudo commitment.
func NewRingProof(from *wallet.Output, decoys []*wallet.Output, outputHash types.Hash, blinding *bn254.Scalar, rand io.Reader) (*RingProof, error) {
	if from.ReceiverData == nil {
		return nil, ErrNotOwned
	}
	for _, d := range decoys {
		if d.ID == from.ID {
			return nil, ErrDuplicateMember
		}
	}

	var indexBuf [8]byte
	if _, err := io.ReadFull(rand, indexBuf[:]); err != nil {
		return nil, ErrRandom
	}
	index := int(binary.LittleEndian.Uint64(indexBuf[:]) % uint64(len(decoys)+1))

	return newRingProofAt(from, decoys, index, outputHash, blinding, rand)
}

// newRingProofAt places from at ring position index, 0 <= index <= len(decoys)
func newRingProofAt(from *wallet.Output, decoys []*wallet.Output, index int, outputHash types.Hash, blinding *bn254.Scalar, rand io.Reader) (*RingProof, error) {
	n := len(decoys) + 1
	p := &RingProof{
		Ring:             make([]*wallet.Output, 0, n),
		OutputHash:       outputHash,
		ImageFundProofs:  make([]bn254.Scalar, n),
		CommitmentProofs: make([]bn254.Scalar, n),
	}
	p.Ring = append(p.Ring, decoys[:index]...)
	p.Ring = append(p.Ring, from)
	p.Ring = append(p.Ring, decoys[index:]...)
	for i := range p.Ring {
		p.Ring[i] = p.Ring[i].Public()
	}

	key := &from.ReceiverData.SpendKey
	p.KeyImage.Set(wallet.KeyImageOf(&from.Dest, key))
	p.Commitment.Set(wallet.Commit(blinding, from.ReceiverData.Amount))

	// z = b' - b_from, opens C - C_from over G
	var z bn254.Scalar
	bn254.Order.SubMod(&z, blinding, &from.ReceiverData.BlindingKey)

	members := p.members()

	a := bn254.RandomScalar(rand)
	b := bn254.RandomScalar(rand)
	if a == nil || b == nil {
		return nil, ErrRandom
	}

	var l1, l2, l3 bn254.Point
	l1.ScalarBaseMult(a)
	l2.ScalarMult(a, members[index].hashedDest)
	l3.ScalarBaseMult(b)
	c := abi.HashToScalar(abi.Point(&l1), abi.Point(&l2), abi.Point(&l3), abi.Word(p.OutputHash))

	for step := 1; step < n; step++ {
		i := (index + step) % n
		if i == 0 {
			p.Borromean.Set(c)
		}
		s1 := bn254.RandomScalar(rand)
		s2 := bn254.RandomScalar(rand)
		if s1 == nil || s2 == nil {
			return nil, ErrRandom
		}
		p.ImageFundProofs[i].Set(s1)
		p.CommitmentProofs[i].Set(s2)
		c = p.challenge(&members[i], c, s1, s2)
	}
	if index == 0 {
		// the chain wrapped back to the owner
		p.Borromean.Set(c)
	}

	// close the ring at the owner, c is the challenge entering it
	var t bn254.Scalar
	bn254.Order.MulMod(&t, c, key)
	bn254.Order.SubMod(&p.ImageFundProofs[index], a, &t)
	bn254.Order.MulMod(&t, c, &z)
	bn254.Order.SubMod(&p.CommitmentProofs[index], b, &t)

	return p, nil
}

// Verify replays the challenge chain from the published borromean value.
// Never panics on malformed input.
func (p *RingProof) Verify() bool {
	n := len(p.Ring)
	if n == 0 || len(p.ImageFundProofs) != n || len(p.CommitmentProofs) != n {
		return false
	}
	if !p.KeyImage.IsValid() || !p.Commitment.IsValid() || !bn254.Order.IsReduced(&p.Borromean) {
		return false
	}
	for i, out := range p.Ring {
		if out == nil || !out.Dest.IsValid() || !out.Commitment.IsValid() {
			return false
		}
		if !bn254.Order.IsReduced(&p.ImageFundProofs[i]) || !bn254.Order.IsReduced(&p.CommitmentProofs[i]) {
			return false
		}
	}

	members := p.members()
	c := new(bn254.Scalar).Set(&p.Borromean)
	for i := range members {
		c = p.challenge(&members[i], c, &p.ImageFundProofs[i], &p.CommitmentProofs[i])
	}
	return c.Eq(&p.Borromean)
}

// Hash ledger identifier of the proof: hash(dests fixed, I, C, borromean, s1 fixed, s2 fixed, m)
func (p *RingProof) Hash() types.Hash {
	dests := make([]abi.Value, len(p.Ring))
	for i, out := range p.Ring {
		dests[i] = abi.Point(&out.Dest)
	}
	return abi.Hash(
		abi.FixedArray(dests...),
		abi.Point(&p.KeyImage),
		abi.Point(&p.Commitment),
		abi.Scalar(&p.Borromean),
		abi.FixedArray(scalarValues(p.ImageFundProofs)...),
		abi.FixedArray(scalarValues(p.CommitmentProofs)...),
		abi.Word(p.OutputHash),
	)
}

func (p *RingProof) KeyImageHash() types.Hash {
	return wallet.KeyImageHash(&p.KeyImage)
}

// MemberIDs output ids of the ring, in ring order
func (p *RingProof) MemberIDs() []types.Hash {
	ids := make([]types.Hash, len(p.Ring))
	for i, out := range p.Ring {
		ids[i] = out.ID
	}
	return ids
}

// VerifyBatch verifies proofs concurrently, result i corresponds to proofs[i]
func VerifyBatch(ctx context.Context, proofs []*RingProof, routines int) ([]bool, error) {
	results := make([]bool, len(proofs))
	err := utils.SplitWork(ctx, routines, uint64(len(proofs)), func(workIndex uint64, routineIndex int) error {
		results[workIndex] = proofs[workIndex].Verify()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func scalarValues(scalars []bn254.Scalar) []abi.Value {
	values := make([]abi.Value, len(scalars))
	for i := range scalars {
		values[i] = abi.Scalar(&scalars[i])
	}
	return values
}
