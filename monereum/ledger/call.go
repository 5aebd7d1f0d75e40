package ledger

import (
	"slices"
	"strings"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto/ringct/borromean"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

// Method ledger entry point
type Method uint8

const (
	MethodMint Method = iota
	MethodSubmitRingGroup
	MethodSubmitRangeProof
	MethodCommitRingGroup
	MethodDisputeLateRangeProof
	MethodDisputeRingProof
	MethodDisputeRangeProof
	MethodResolve

	MethodCount = iota
)

var methodSignatures = [MethodCount]string{
	MethodMint: "mint(uint256[2],uint256[2],uint256)",
	// ring size, flattened ring proof fields, range hashes, outputs, amounts with the miner fee last, messages, miner output
	MethodSubmitRingGroup:       "submitRingGroup(uint256,uint256[2][],uint256[2][],uint256[2][],uint256[],uint256[],uint256[],uint256[],uint256[2][],uint256[2][],uint256[2][],uint256[],bytes,uint256[2],uint256[2])",
	MethodSubmitRangeProof:      "submitRangeProof(uint256[],uint256[],uint256[],uint256[2],uint256[2][],uint256[],uint256[2][],uint256[])",
	MethodCommitRingGroup:       "commitRingGroup(uint256[],uint256[],uint256[])",
	MethodDisputeLateRangeProof: "disputeLateRangeProof(uint256[],uint256[],uint256[],uint256[])",
	MethodDisputeRingProof:      "disputeRingProof(uint256[],uint256[],uint256[],uint256)",
	MethodDisputeRangeProof:     "disputeRangeProof(uint256[],uint256[],uint256[],uint256)",
	MethodResolve:               "resolve(uint256,uint256)",
}

func (m Method) String() string {
	if m >= MethodCount {
		return utils.SprintfNoEscape("Method(%d)", uint8(m))
	}
	sig := methodSignatures[m]
	return sig[:strings.IndexByte(sig, '(')]
}

func (m Method) Selector() [4]byte {
	return abi.Selector(methodSignatures[m])
}

// Calldata 4-byte method selector ‖ ABI encoded arguments
type Calldata []byte

func NewCalldata(m Method, values ...abi.Value) Calldata {
	selector := m.Selector()
	return append(Calldata(selector[:]), abi.Encode(values...)...)
}

func (c Calldata) Method() (Method, bool) {
	if len(c) < 4 {
		return 0, false
	}
	for m := range Method(MethodCount) {
		if selector := m.Selector(); string(selector[:]) == string(c[:4]) {
			return m, true
		}
	}
	return 0, false
}

// Arguments ABI encoded arguments, offsets are relative to this slice
func (c Calldata) Arguments() []byte {
	if len(c) < 4 {
		return nil
	}
	return c[4:]
}

// GroupRef content a ring group hash commits to. Entry points after submission identify
// the group by its content, the ledger recomputes the hash.
type GroupRef struct {
	OutputIDs   []types.Hash `json:"output_ids"`
	RingHashes  []types.Hash `json:"ring_hashes"`
	RangeHashes []types.Hash `json:"range_hashes"`
}

func (g *GroupRef) Values() []abi.Value {
	return []abi.Value{
		abi.DynamicArray(abi.Words(g.OutputIDs...)...),
		abi.DynamicArray(abi.Words(g.RingHashes...)...),
		abi.DynamicArray(abi.Words(g.RangeHashes...)...),
	}
}

// Hash ring group hash, hash(outputIDs, ringHashes, rangeHashes)
func (g *GroupRef) Hash() types.Hash {
	return abi.Hash(g.Values()...)
}

func decodeGroupRef(d *abi.Decoder) (g *GroupRef, err error) {
	g = &GroupRef{}
	if g.OutputIDs, err = d.DynamicWords(); err != nil {
		return nil, err
	}
	if g.RingHashes, err = d.DynamicWords(); err != nil {
		return nil, err
	}
	if g.RangeHashes, err = d.DynamicWords(); err != nil {
		return nil, err
	}
	return g, nil
}

// Mint creates a public output of amount to the owner of out, which must be a mint output
func Mint(out *wallet.Output, amount uint64) Calldata {
	return NewCalldata(MethodMint, abi.Point(&out.Src), abi.Point(&out.Dest), abi.Uint(amount))
}

func SubmitRangeProof(g *GroupRef, r *borromean.Range) Calldata {
	return NewCalldata(MethodSubmitRangeProof, append(g.Values(), r.Values()...)...)
}

func CommitRingGroup(g *GroupRef) Calldata {
	return NewCalldata(MethodCommitRingGroup, g.Values()...)
}

// DisputeLateRangeProof rejects a group whose range proofs did not arrive in time.
// Key image hashes are sent in ascending order.
func DisputeLateRangeProof(g *GroupRef, keyImageHashes []types.Hash) Calldata {
	sorted := slices.Clone(keyImageHashes)
	slices.SortFunc(sorted, types.Hash.Compare)
	return NewCalldata(MethodDisputeLateRangeProof, append(g.Values(), abi.DynamicArray(abi.Words(sorted...)...))...)
}

func DisputeRingProof(g *GroupRef, ringHash types.Hash) Calldata {
	return NewCalldata(MethodDisputeRingProof, append(g.Values(), abi.Word(ringHash))...)
}

func DisputeRangeProof(g *GroupRef, rangeHash types.Hash) Calldata {
	return NewCalldata(MethodDisputeRangeProof, append(g.Values(), abi.Word(rangeHash))...)
}

// Resolve settles an open dispute on proofHash by having the ledger verify it
func Resolve(ringGroupHash, proofHash types.Hash) Calldata {
	return NewCalldata(MethodResolve, abi.Word(ringGroupHash), abi.Word(proofHash))
}
