package borromean

import (
	"context"
	"errors"
	"io"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

// Elements bits covered by a range proof
const Elements = 64

var ErrRandom = errors.New("could not read randomness")

// Range a range proof premised on Borromean ring signatures, one 2-member ring per bit.
// Proves Commitment hides an amount in [0, 2^64).
type Range struct {
	Commitment bn254.Point `json:"commitment"`
	// BitCommitments G·b_i + H·bit_i·2^idx, summing to Commitment
	BitCommitments []bn254.Point     `json:"bit_commitments"`
	Challenges     []bn254.Scalar    `json:"challenges"`
	Responses      [][2]bn254.Scalar `json:"responses"`
	Indices        []uint8           `json:"indices"`
}

// NewRange proves amount is committed in G·blinding + H·amount. Blinding shares are random,
// except the last that closes the sum to blinding.
func NewRange(amount uint64, blinding *bn254.Scalar, rand io.Reader) (*Range, error) {
	r := &Range{
		BitCommitments: make([]bn254.Point, Elements),
		Challenges:     make([]bn254.Scalar, Elements),
		Responses:      make([][2]bn254.Scalar, Elements),
		Indices:        make([]uint8, Elements),
	}
	hPow2 := generatorHPow2()

	remaining := new(bn254.Scalar).Set(blinding)
	var share bn254.Scalar
	var p1 bn254.Point
	for i := range Elements {
		if i == Elements-1 {
			share.Set(remaining)
		} else {
			s := bn254.RandomScalar(rand)
			if s == nil {
				return nil, ErrRandom
			}
			share.Set(s)
			bn254.Order.SubMod(remaining, remaining, &share)
		}

		bit := uint(amount>>i) & 1
		c := &r.BitCommitments[i]
		c.ScalarBaseMult(&share)
		if bit == 1 {
			c.Affine(c.Add(c, &hPow2[i]))
		}
		p1.Affine(p1.Subtract(c, &hPow2[i]))

		e, s, ok := signBit(c, &p1, bit, &share, rand)
		if !ok {
			return nil, ErrRandom
		}
		r.Challenges[i].Set(e)
		r.Responses[i] = s
		r.Indices[i] = uint8(i)
	}

	var sum bn254.Point
	sum.SetIdentity()
	for i := range r.BitCommitments {
		sum.Add(&sum, &r.BitCommitments[i])
	}
	r.Commitment.Affine(&sum)
	return r, nil
}

// Verify structural checks, then the bit commitments sum, then every bit ring.
// Never panics on malformed input.
func (r *Range) Verify() bool {
	n := len(r.BitCommitments)
	if n == 0 || n > Elements || len(r.Challenges) != n || len(r.Responses) != n || len(r.Indices) != n {
		return false
	}
	if !r.Commitment.IsValid() {
		return false
	}
	for i := range n {
		if r.Indices[i] >= Elements || (i > 0 && r.Indices[i] <= r.Indices[i-1]) {
			return false
		}
		if !r.BitCommitments[i].IsValid() || !bn254.Order.IsReduced(&r.Challenges[i]) ||
			!bn254.Order.IsReduced(&r.Responses[i][0]) || !bn254.Order.IsReduced(&r.Responses[i][1]) {
			return false
		}
	}

	var sum bn254.Point
	sum.SetIdentity()
	for i := range r.BitCommitments {
		sum.Add(&sum, &r.BitCommitments[i])
	}
	if !sum.Equal(&r.Commitment) {
		return false
	}

	hPow2 := generatorHPow2()
	var p1 bn254.Point
	for i := range n {
		p1.Affine(p1.Subtract(&r.BitCommitments[i], &hPow2[r.Indices[i]]))
		if !verifyBit(&r.BitCommitments[i], &p1, &r.Challenges[i], &r.Responses[i]) {
			return false
		}
	}
	return true
}

// Values ABI layout of the proof body, as submitted to the ledger
func (r *Range) Values() []abi.Value {
	commitments := make([]abi.Value, len(r.BitCommitments))
	challenges := make([]abi.Value, len(r.Challenges))
	responses := make([]abi.Value, len(r.Responses))
	indices := make([]abi.Value, len(r.Indices))
	for i := range r.BitCommitments {
		commitments[i] = abi.Point(&r.BitCommitments[i])
	}
	for i := range r.Challenges {
		challenges[i] = abi.Scalar(&r.Challenges[i])
	}
	for i := range r.Responses {
		responses[i] = abi.FixedArray(abi.Scalar(&r.Responses[i][0]), abi.Scalar(&r.Responses[i][1]))
	}
	for i := range r.Indices {
		indices[i] = abi.Uint(uint64(r.Indices[i]))
	}
	return []abi.Value{
		abi.Point(&r.Commitment),
		abi.DynamicArray(commitments...),
		abi.DynamicArray(challenges...),
		abi.DynamicArray(responses...),
		abi.DynamicArray(indices...),
	}
}

// Hash identifier of the proof within its ring group
func (r *Range) Hash() types.Hash {
	return abi.Hash(r.Values()...)
}

// LedgerHash identifier of the proof as emitted by the ledger, bound to its ring group
func (r *Range) LedgerHash(ringGroupHash types.Hash, outputIDs []types.Hash) types.Hash {
	values := append([]abi.Value{abi.Word(ringGroupHash), abi.DynamicArray(abi.Words(outputIDs...)...)}, r.Values()...)
	return abi.Hash(values...)
}

// VerifyBatch verifies proofs concurrently, result i corresponds to proofs[i]
func VerifyBatch(ctx context.Context, proofs []*Range, routines int) ([]bool, error) {
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
