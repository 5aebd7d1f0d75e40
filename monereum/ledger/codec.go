package ledger

import (
	"errors"
	"fmt"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/monereum/crypto/ringct"
	"github.com/monereum/engine/monereum/crypto/ringct/borromean"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
)

var ErrMalformedCall = errors.New("malformed call")

func scalarValues(scalars []bn254.Scalar) []abi.Value {
	values := make([]abi.Value, len(scalars))
	for i := range scalars {
		values[i] = abi.Scalar(&scalars[i])
	}
	return values
}

func derefPoints(points []*bn254.Point) []bn254.Point {
	result := make([]bn254.Point, len(points))
	for i, p := range points {
		result[i].Set(p)
	}
	return result
}

func derefScalars(scalars []*bn254.Scalar) []bn254.Scalar {
	result := make([]bn254.Scalar, len(scalars))
	for i, s := range scalars {
		result[i].Set(s)
	}
	return result
}

func decodeRange(d *abi.Decoder) (*borromean.Range, error) {
	r := &borromean.Range{}
	commitment, err := d.Point()
	if err != nil {
		return nil, err
	}
	r.Commitment.Set(commitment)

	bitCommitments, err := d.DynamicPoints()
	if err != nil {
		return nil, err
	}
	r.BitCommitments = derefPoints(bitCommitments)

	challenges, err := d.DynamicScalars()
	if err != nil {
		return nil, err
	}
	r.Challenges = derefScalars(challenges)

	responses, err := d.DynamicPairs()
	if err != nil {
		return nil, err
	}
	r.Responses = make([][2]bn254.Scalar, len(responses))
	for i := range responses {
		r.Responses[i][0].Set(responses[i][0])
		r.Responses[i][1].Set(responses[i][1])
	}

	indices, err := d.DynamicUint64s()
	if err != nil {
		return nil, err
	}
	r.Indices = make([]uint8, len(indices))
	for i, index := range indices {
		if index >= borromean.Elements {
			return nil, fmt.Errorf("index %d: %w", i, abi.ErrOverflow)
		}
		r.Indices[i] = uint8(index)
	}
	return r, nil
}

// ringHash identifier of a ring proof from its published body, the ring only contributes destinations
func ringHash(e *RingProofEvent) types.Hash {
	ring := make([]*wallet.Output, len(e.Ring))
	for i := range e.Ring {
		ring[i] = &wallet.Output{Dest: e.Ring[i]}
	}
	return e.RingProof(ring).Hash()
}

// MintCall decoded arguments of mint
type MintCall struct {
	Output *wallet.Output
	Amount uint64
}

func DecodeMint(args []byte) (*MintCall, error) {
	d := abi.NewDecoder(args)
	src, err := d.Point()
	if err != nil {
		return nil, err
	}
	dest, err := d.Point()
	if err != nil {
		return nil, err
	}
	amount, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	return &MintCall{Output: publicOutput(src, dest, amount), Amount: amount}, nil
}

// publicOutput output with amount in clear, C = H·amount
func publicOutput(src, dest *bn254.Point, amount uint64) *wallet.Output {
	out := &wallet.Output{}
	out.Src.Set(src)
	out.Dest.Set(dest)
	out.ID = wallet.OutputID(dest)
	out.Commitment.Set(wallet.Commit(new(bn254.Scalar), amount))
	out.CommitmentAmount.SetUint64(amount)
	return out
}

// RingGroupCall decoded arguments of submitRingGroup
type RingGroupCall struct {
	RingProofs  []*RingProofEvent
	RangeHashes []types.Hash
	Outputs     []*wallet.Output
	MinerFee    uint64
	Messages    []byte
	MinerOutput *wallet.Output
}

// OutputHash output batch hash over the submitted outputs, excluding the miner output
func (c *RingGroupCall) OutputHash() types.Hash {
	return ringct.OutputBatchHash(c.Outputs, c.MinerFee, c.Messages)
}

// Ref every output id with the miner output last, ring hashes recomputed from the bodies
func (c *RingGroupCall) Ref() *GroupRef {
	g := &GroupRef{RangeHashes: c.RangeHashes}
	for _, out := range c.Outputs {
		g.OutputIDs = append(g.OutputIDs, out.ID)
	}
	g.OutputIDs = append(g.OutputIDs, c.MinerOutput.ID)
	for _, p := range c.RingProofs {
		g.RingHashes = append(g.RingHashes, p.RingHash)
	}
	return g
}

func DecodeRingGroup(args []byte) (*RingGroupCall, error) {
	d := abi.NewDecoder(args)
	ringSize, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	rings, err := d.DynamicPoints()
	if err != nil {
		return nil, err
	}
	keyImages, err := d.DynamicPoints()
	if err != nil {
		return nil, err
	}
	commitments, err := d.DynamicPoints()
	if err != nil {
		return nil, err
	}
	borromeans, err := d.DynamicScalars()
	if err != nil {
		return nil, err
	}
	imageFundProofs, err := d.DynamicScalars()
	if err != nil {
		return nil, err
	}
	commitmentProofs, err := d.DynamicScalars()
	if err != nil {
		return nil, err
	}

	n := len(keyImages)
	if n == 0 || ringSize == 0 || uint64(len(rings)) != uint64(n)*ringSize ||
		len(commitments) != n || len(borromeans) != n ||
		len(imageFundProofs) != len(rings) || len(commitmentProofs) != len(rings) {
		return nil, fmt.Errorf("ring proofs: %w", ErrMalformedCall)
	}

	c := &RingGroupCall{}
	m := int(ringSize)
	for i := range n {
		e := &RingProofEvent{
			Ring:             derefPoints(rings[i*m : (i+1)*m]),
			ImageFundProofs:  derefScalars(imageFundProofs[i*m : (i+1)*m]),
			CommitmentProofs: derefScalars(commitmentProofs[i*m : (i+1)*m]),
		}
		e.KeyImage.Set(keyImages[i])
		e.Commitment.Set(commitments[i])
		e.Borromean.Set(borromeans[i])
		c.RingProofs = append(c.RingProofs, e)
	}

	if c.RangeHashes, err = d.DynamicWords(); err != nil {
		return nil, err
	}

	dests, err := d.DynamicPoints()
	if err != nil {
		return nil, err
	}
	srcs, err := d.DynamicPoints()
	if err != nil {
		return nil, err
	}
	outputCommitments, err := d.DynamicPoints()
	if err != nil {
		return nil, err
	}
	amounts, err := d.DynamicScalars()
	if err != nil {
		return nil, err
	}
	if len(srcs) != len(dests) || len(outputCommitments) != len(dests) || len(amounts) != len(dests)+1 {
		return nil, fmt.Errorf("outputs: %w", ErrMalformedCall)
	}
	fee := amounts[len(dests)]
	if !fee.IsUint64() {
		return nil, fmt.Errorf("miner fee: %w", abi.ErrOverflow)
	}
	c.MinerFee = fee.Uint64()

	for i := range dests {
		out := &wallet.Output{ID: wallet.OutputID(dests[i])}
		out.Src.Set(srcs[i])
		out.Dest.Set(dests[i])
		out.Commitment.Set(outputCommitments[i])
		out.CommitmentAmount.Set(amounts[i])
		c.Outputs = append(c.Outputs, out)
	}

	if c.Messages, err = d.Bytes(); err != nil {
		return nil, err
	}
	minerDest, err := d.Point()
	if err != nil {
		return nil, err
	}
	minerSrc, err := d.Point()
	if err != nil {
		return nil, err
	}
	c.MinerOutput = publicOutput(minerSrc, minerDest, c.MinerFee)

	outputHash := c.OutputHash()
	for _, e := range c.RingProofs {
		e.OutputHash = outputHash
		e.RingHash = ringHash(e)
	}
	return c, nil
}

// RangeProofCall decoded arguments of submitRangeProof
type RangeProofCall struct {
	Group *GroupRef
	Proof *borromean.Range
}

func DecodeRangeProof(args []byte) (*RangeProofCall, error) {
	d := abi.NewDecoder(args)
	g, err := decodeGroupRef(d)
	if err != nil {
		return nil, err
	}
	r, err := decodeRange(d)
	if err != nil {
		return nil, err
	}
	return &RangeProofCall{Group: g, Proof: r}, nil
}

func DecodeCommitRingGroup(args []byte) (*GroupRef, error) {
	return decodeGroupRef(abi.NewDecoder(args))
}

// DisputeCall decoded arguments of the dispute entry points. ProofHash is set for ring and range
// proof disputes, KeyImageHashes for late range proofs.
type DisputeCall struct {
	Group          *GroupRef
	ProofHash      types.Hash
	KeyImageHashes []types.Hash
}

func DecodeDispute(m Method, args []byte) (*DisputeCall, error) {
	d := abi.NewDecoder(args)
	g, err := decodeGroupRef(d)
	if err != nil {
		return nil, err
	}
	c := &DisputeCall{Group: g}
	switch m {
	case MethodDisputeLateRangeProof:
		c.KeyImageHashes, err = d.DynamicWords()
	case MethodDisputeRingProof, MethodDisputeRangeProof:
		c.ProofHash, err = d.Word()
	default:
		return nil, ErrMalformedCall
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func DecodeResolve(args []byte) (ringGroupHash, proofHash types.Hash, err error) {
	d := abi.NewDecoder(args)
	if ringGroupHash, err = d.Word(); err != nil {
		return
	}
	proofHash, err = d.Word()
	return
}
