package ringct

import (
	"io"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
)

// OutputBatchHash binds ring proofs to the outputs they pay:
// hash(dests, srcs, commitments, amounts ‖ minerFee, messages)
func OutputBatchHash(outputs []*wallet.Output, minerFee uint64, messages []byte) types.Hash {
	dests := make([]abi.Value, len(outputs))
	srcs := make([]abi.Value, len(outputs))
	commitments := make([]abi.Value, len(outputs))
	amounts := make([]abi.Value, len(outputs), len(outputs)+1)
	for i, out := range outputs {
		dests[i] = abi.Point(&out.Dest)
		srcs[i] = abi.Point(&out.Src)
		commitments[i] = abi.Point(&out.Commitment)
		amounts[i] = abi.Scalar(&out.CommitmentAmount)
	}
	amounts = append(amounts, abi.Uint(minerFee))

	return abi.Hash(
		abi.DynamicArray(dests...),
		abi.DynamicArray(srcs...),
		abi.DynamicArray(commitments...),
		abi.DynamicArray(amounts...),
		abi.Bytes(messages),
	)
}

// FeeCommitment public commitment H·fee of the miner fee output
func FeeCommitment(fee uint64) *bn254.Point {
	return new(bn254.Point).ScalarMultH(bn254.ScalarFromUint64(fee))
}

// Balanced checks Σ inputs == Σ outputs, the homomorphic amount conservation
func Balanced(inputs, outputs []*bn254.Point) bool {
	var in, out bn254.Point
	in.SetIdentity()
	out.SetIdentity()
	for _, p := range inputs {
		in.Add(&in, p)
	}
	for _, p := range outputs {
		out.Add(&out, p)
	}
	return in.Equal(&out)
}

// SplitBlinding draws n pseudo commitment blinding keys summing to total mod q.
// The last key closes the sum.
func SplitBlinding(total *bn254.Scalar, n int, rand io.Reader) ([]*bn254.Scalar, error) {
	if n <= 0 {
		return nil, nil
	}
	keys := make([]*bn254.Scalar, n)
	remaining := new(bn254.Scalar).Set(total)
	for i := 0; i < n-1; i++ {
		if keys[i] = bn254.RandomScalar(rand); keys[i] == nil {
			return nil, ErrRandom
		}
		bn254.Order.SubMod(remaining, remaining, keys[i])
	}
	keys[n-1] = remaining
	return keys, nil
}
