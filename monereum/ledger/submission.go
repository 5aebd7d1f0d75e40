package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/monereum/crypto/ringct"
	"github.com/monereum/engine/monereum/crypto/ringct/borromean"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
)

var (
	ErrOutputHashMismatch = errors.New("output hashes do not agree")
	ErrRingSize           = errors.New("ring proofs must share a non-zero ring size")
	ErrRangeProofCount    = errors.New("expected one range proof per output")
	ErrNoRingProofs       = errors.New("no ring proofs")
	ErrInvalidRingProof   = errors.New("invalid ring proof")
	ErrInvalidRangeProof  = errors.New("invalid range proof")
	ErrUnbalanced         = errors.New("inputs and outputs do not balance")
)

// FullTransaction a complete spend as built by a wallet: ring proofs over the spent funds,
// new outputs with one range proof each, and the miner fee paid in clear.
type FullTransaction struct {
	Outputs     []*wallet.Output    `json:"outputs"`
	RingProofs  []*ringct.RingProof `json:"ring_proofs"`
	RangeProofs []*borromean.Range  `json:"range_proofs"`
	MinerFee    uint64              `json:"miner_fee"`
	Messages    types.Bytes         `json:"messages"`
}

func (tx *FullTransaction) OutputHash() types.Hash {
	return ringct.OutputBatchHash(tx.Outputs, tx.MinerFee, tx.Messages)
}

// Verify checks every proof, the output hash binding and amount conservation
func (tx *FullTransaction) Verify(ctx context.Context, routines int) error {
	if len(tx.RingProofs) == 0 {
		return ErrNoRingProofs
	}
	if len(tx.RangeProofs) != len(tx.Outputs) {
		return ErrRangeProofCount
	}

	outputHash := tx.OutputHash()
	for _, p := range tx.RingProofs {
		if p.OutputHash != outputHash {
			return ErrOutputHashMismatch
		}
	}

	ringResults, err := ringct.VerifyBatch(ctx, tx.RingProofs, routines)
	if err != nil {
		return err
	}
	for i, ok := range ringResults {
		if !ok {
			return fmt.Errorf("ring proof %d: %w", i, ErrInvalidRingProof)
		}
	}

	rangeResults, err := borromean.VerifyBatch(ctx, tx.RangeProofs, routines)
	if err != nil {
		return err
	}
	for i, ok := range rangeResults {
		if !ok || !tx.RangeProofs[i].Commitment.Equal(&tx.Outputs[i].Commitment) {
			return fmt.Errorf("range proof %d: %w", i, ErrInvalidRangeProof)
		}
	}

	inputs := make([]*bn254.Point, 0, len(tx.RingProofs))
	for _, p := range tx.RingProofs {
		inputs = append(inputs, &p.Commitment)
	}
	outputs := make([]*bn254.Point, 0, len(tx.Outputs)+1)
	for _, out := range tx.Outputs {
		outputs = append(outputs, &out.Commitment)
	}
	outputs = append(outputs, ringct.FeeCommitment(tx.MinerFee))
	if !ringct.Balanced(inputs, outputs) {
		return ErrUnbalanced
	}
	return nil
}

// Submission a formatted full transaction, ready to be sent. The ring group call goes first,
// range proofs follow once the ring group is on the ledger.
type Submission struct {
	GroupRef

	RingGroupHash types.Hash     `json:"ring_group_hash"`
	MinerOutput   *wallet.Output `json:"miner_output"`
	RingGroup     Calldata       `json:"ring_group"`
	RangeProofs   []Calldata     `json:"range_proofs"`
}

// Commit call to finalize the ring group once its dispute window passed
func (s *Submission) Commit() Calldata {
	return CommitRingGroup(&s.GroupRef)
}

// FormatSubmission lays out a full transaction for the ledger. The miner wallet receives the fee
// as a public output to its master key.
func FormatSubmission(full *FullTransaction, miner *wallet.Wallet) (*Submission, error) {
	if len(full.RingProofs) == 0 {
		return nil, ErrNoRingProofs
	}
	if len(full.RangeProofs) != len(full.Outputs) {
		return nil, ErrRangeProofCount
	}

	minerOutput, err := miner.CreateMint(miner.MasterKey(), full.MinerFee)
	if err != nil {
		return nil, err
	}

	outputHash := full.OutputHash()
	ringSize := len(full.RingProofs[0].Ring)
	if ringSize == 0 {
		return nil, ErrRingSize
	}

	n := len(full.RingProofs)
	rings := make([]abi.Value, 0, n*ringSize)
	keyImages := make([]abi.Value, 0, n)
	commitments := make([]abi.Value, 0, n)
	borromeans := make([]abi.Value, 0, n)
	imageFundProofs := make([]abi.Value, 0, n*ringSize)
	commitmentProofs := make([]abi.Value, 0, n*ringSize)

	s := &Submission{MinerOutput: minerOutput}
	for _, p := range full.RingProofs {
		if p.OutputHash != outputHash {
			return nil, ErrOutputHashMismatch
		}
		if len(p.Ring) != ringSize || len(p.ImageFundProofs) != ringSize || len(p.CommitmentProofs) != ringSize {
			return nil, ErrRingSize
		}
		for _, out := range p.Ring {
			rings = append(rings, abi.Point(&out.Dest))
		}
		keyImages = append(keyImages, abi.Point(&p.KeyImage))
		commitments = append(commitments, abi.Point(&p.Commitment))
		borromeans = append(borromeans, abi.Scalar(&p.Borromean))
		imageFundProofs = append(imageFundProofs, scalarValues(p.ImageFundProofs)...)
		commitmentProofs = append(commitmentProofs, scalarValues(p.CommitmentProofs)...)
		s.RingHashes = append(s.RingHashes, p.Hash())
	}

	for _, r := range full.RangeProofs {
		s.RangeHashes = append(s.RangeHashes, r.Hash())
	}

	dests := make([]abi.Value, len(full.Outputs))
	srcs := make([]abi.Value, len(full.Outputs))
	outputCommitments := make([]abi.Value, len(full.Outputs))
	amounts := make([]abi.Value, len(full.Outputs), len(full.Outputs)+1)
	for i, out := range full.Outputs {
		dests[i] = abi.Point(&out.Dest)
		srcs[i] = abi.Point(&out.Src)
		outputCommitments[i] = abi.Point(&out.Commitment)
		amounts[i] = abi.Scalar(&out.CommitmentAmount)
		s.OutputIDs = append(s.OutputIDs, out.ID)
	}
	amounts = append(amounts, abi.Uint(full.MinerFee))
	s.OutputIDs = append(s.OutputIDs, minerOutput.ID)
	s.RingGroupHash = s.GroupRef.Hash()

	s.RingGroup = NewCalldata(MethodSubmitRingGroup,
		abi.Uint(uint64(ringSize)),
		abi.DynamicArray(rings...),
		abi.DynamicArray(keyImages...),
		abi.DynamicArray(commitments...),
		abi.DynamicArray(borromeans...),
		abi.DynamicArray(imageFundProofs...),
		abi.DynamicArray(commitmentProofs...),
		abi.DynamicArray(abi.Words(s.RangeHashes...)...),
		abi.DynamicArray(dests...),
		abi.DynamicArray(srcs...),
		abi.DynamicArray(outputCommitments...),
		abi.DynamicArray(amounts...),
		abi.Bytes(full.Messages),
		abi.Point(&minerOutput.Dest),
		abi.Point(&minerOutput.Src),
	)

	for _, r := range full.RangeProofs {
		s.RangeProofs = append(s.RangeProofs, SubmitRangeProof(&s.GroupRef, r))
	}
	return s, nil
}
