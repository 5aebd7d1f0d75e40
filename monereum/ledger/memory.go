package ledger

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dolthub/swiss"
	"github.com/monereum/engine/monereum/crypto/ringct"
	"github.com/monereum/engine/monereum/crypto/ringct/borromean"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

var (
	ErrUnknownMethod      = errors.New("unknown method")
	ErrDuplicateOutput    = errors.New("output already exists")
	ErrUnknownOutput      = errors.New("unknown output")
	ErrKeyImageUsed       = errors.New("key image already used")
	ErrDuplicateRingGroup = errors.New("ring group already exists")
	ErrUnknownRingGroup   = errors.New("unknown ring group")
	ErrRingGroupClosed    = errors.New("ring group already committed or rejected")
	ErrUnknownProof       = errors.New("proof is not part of the ring group")
	ErrDuplicateProof     = errors.New("proof already submitted")
	ErrIncomplete         = errors.New("ring group is waiting on range proofs")
	ErrComplete           = errors.New("ring group has all range proofs")
	ErrDisputed           = errors.New("ring group has open disputes")
	ErrNoDispute          = errors.New("no open dispute on proof")
	ErrDisputeWindow      = errors.New("dispute window has not passed")
)

type memoryGroup struct {
	ref  *GroupRef
	hash types.Hash
	// outputs in ref.OutputIDs order, miner output last
	outputs        []*wallet.Output
	ringProofs     map[types.Hash]*ringct.RingProof
	rangeProofs    map[types.Hash]*borromean.Range
	keyImageHashes []types.Hash

	created, completed uint64
	committed, rejected bool
	disputes           map[types.Hash]struct{}
}

func (g *memoryGroup) closed() bool {
	return g.committed || g.rejected
}

func (g *memoryGroup) complete() bool {
	return len(g.rangeProofs) == len(g.ref.RangeHashes)
}

// MemoryLedger in-process settlement ledger. Calls land in the open block, Mine seals it.
// Proofs are not verified on submission, only when a dispute on them is resolved.
type MemoryLedger struct {
	lock sync.Mutex

	disputeTime    uint64
	lateMultiplier uint64

	// height open block, Height reports height - 1
	height uint64
	index  uint32
	events []RawEvent

	outputs   *swiss.Map[types.Hash, *wallet.Output]
	groups    *swiss.Map[types.Hash, *memoryGroup]
	keyImages *swiss.Map[types.Hash, types.Hash]
}

func NewMemoryLedger(disputeTime, lateMultiplier uint64) *MemoryLedger {
	return &MemoryLedger{
		disputeTime:    disputeTime,
		lateMultiplier: lateMultiplier,
		height:         1,
		outputs:        swiss.NewMap[types.Hash, *wallet.Output](64),
		groups:         swiss.NewMap[types.Hash, *memoryGroup](16),
		keyImages:      swiss.NewMap[types.Hash, types.Hash](16),
	}
}

func (l *MemoryLedger) Height(ctx context.Context) (uint64, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.height - 1, nil
}

func (l *MemoryLedger) Events(ctx context.Context, kind Kind, from, to uint64) ([]RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.lock.Lock()
	defer l.lock.Unlock()

	topic := kind.Topic()
	var result []RawEvent
	for _, e := range l.events {
		if e.Topic == topic && e.Block >= from && e.Block <= to && e.Block < l.height {
			result = append(result, e)
		}
	}
	return result, nil
}

// Mine seals the open block and the next n-1 empty ones
func (l *MemoryLedger) Mine(n uint64) uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.height += n
	l.index = 0
	return l.height - 1
}

func (l *MemoryLedger) emit(events ...Event) {
	for _, e := range events {
		raw := EncodeEvent(e)
		raw.Block = l.height
		raw.Index = l.index
		l.index++
		l.events = append(l.events, raw)
	}
}

// Call executes calldata in the open block. Failed calls have no effect.
func (l *MemoryLedger) Call(data Calldata) error {
	m, ok := data.Method()
	if !ok {
		return ErrUnknownMethod
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	args := data.Arguments()
	switch m {
	case MethodMint:
		return l.mint(args)
	case MethodSubmitRingGroup:
		return l.submitRingGroup(args)
	case MethodSubmitRangeProof:
		return l.submitRangeProof(args)
	case MethodCommitRingGroup:
		return l.commitRingGroup(args)
	case MethodDisputeLateRangeProof, MethodDisputeRingProof, MethodDisputeRangeProof:
		return l.dispute(m, args)
	case MethodResolve:
		return l.resolve(args)
	default:
		return ErrUnknownMethod
	}
}

func (l *MemoryLedger) mint(args []byte) error {
	c, err := DecodeMint(args)
	if err != nil {
		return err
	}
	if l.outputs.Has(c.Output.ID) {
		return ErrDuplicateOutput
	}
	l.outputs.Put(c.Output.ID, c.Output)
	l.emit(&TransactionEvent{Output: *c.Output}, &MintEvent{ID: c.Output.ID, Amount: c.Amount})
	utils.Logf("Ledger", "Minted %s to output %s at block %d", utils.EtherUnits(c.Amount), c.Output.ID, l.height)
	return nil
}

func (l *MemoryLedger) submitRingGroup(args []byte) error {
	c, err := DecodeRingGroup(args)
	if err != nil {
		return err
	}
	if len(c.RangeHashes) != len(c.Outputs) {
		return ErrRangeProofCount
	}

	for _, out := range c.Outputs {
		if !out.Verify() {
			return ErrMalformedCall
		}
	}
	// the fee output commitment is the identity for a zero fee
	if !c.MinerOutput.Src.IsValid() || !c.MinerOutput.Dest.IsValid() {
		return ErrMalformedCall
	}
	outputs := append(slices.Clone(c.Outputs), c.MinerOutput)
	for i, out := range outputs {
		if l.outputs.Has(out.ID) || slices.ContainsFunc(outputs[:i], func(o *wallet.Output) bool { return o.ID == out.ID }) {
			return ErrDuplicateOutput
		}
	}

	ref := c.Ref()
	hash := ref.Hash()
	if l.groups.Has(hash) {
		return ErrDuplicateRingGroup
	}

	g := &memoryGroup{
		ref:         ref,
		hash:        hash,
		outputs:     outputs,
		ringProofs:  make(map[types.Hash]*ringct.RingProof, len(c.RingProofs)),
		rangeProofs: make(map[types.Hash]*borromean.Range, len(c.RangeHashes)),
		created:     l.height,
		disputes:    make(map[types.Hash]struct{}),
	}

	for _, e := range c.RingProofs {
		ring := make([]*wallet.Output, 0, len(e.Ring))
		for _, id := range e.MemberIDs() {
			out, ok := l.outputs.Get(id)
			if !ok {
				return ErrUnknownOutput
			}
			ring = append(ring, out)
		}
		keyImageHash := wallet.KeyImageHash(&e.KeyImage)
		if l.keyImages.Has(keyImageHash) || slices.Contains(g.keyImageHashes, keyImageHash) {
			return ErrKeyImageUsed
		}
		g.keyImageHashes = append(g.keyImageHashes, keyImageHash)
		g.ringProofs[e.RingHash] = e.RingProof(ring)
	}

	for _, out := range outputs {
		l.outputs.Put(out.ID, out)
	}
	for _, h := range g.keyImageHashes {
		l.keyImages.Put(h, hash)
	}
	l.groups.Put(hash, g)

	for _, out := range outputs {
		l.emit(&TransactionEvent{Output: *out.Public()})
	}
	l.emit(&RingGroupEvent{
		Hash:        hash,
		OutputIDs:   ref.OutputIDs,
		RingHashes:  ref.RingHashes,
		RangeHashes: ref.RangeHashes,
		Messages:    c.Messages,
	})
	for _, e := range c.RingProofs {
		l.emit(e)
	}
	utils.Logf("Ledger", "Ring group %s submitted at block %d: %d outputs, %d ring proofs, miner fee %s", hash, l.height, len(outputs), len(c.RingProofs), utils.EtherUnits(c.MinerFee))
	return nil
}

func (l *MemoryLedger) openGroup(ref *GroupRef) (*memoryGroup, error) {
	g, ok := l.groups.Get(ref.Hash())
	if !ok {
		return nil, ErrUnknownRingGroup
	}
	if g.closed() {
		return nil, ErrRingGroupClosed
	}
	return g, nil
}

func (l *MemoryLedger) submitRangeProof(args []byte) error {
	c, err := DecodeRangeProof(args)
	if err != nil {
		return err
	}
	g, err := l.openGroup(c.Group)
	if err != nil {
		return err
	}
	rangeHash := c.Proof.Hash()
	if !slices.Contains(g.ref.RangeHashes, rangeHash) {
		return ErrUnknownProof
	}
	if _, ok := g.rangeProofs[rangeHash]; ok {
		return ErrDuplicateProof
	}
	g.rangeProofs[rangeHash] = c.Proof
	l.emit(&RangeProofEvent{RingGroupHash: g.hash, Proof: *c.Proof})

	if g.complete() {
		g.completed = l.height
		utils.Logf("Ledger", "Ring group %s complete at block %d", g.hash, l.height)
	}
	return nil
}

func (l *MemoryLedger) commitRingGroup(args []byte) error {
	ref, err := DecodeCommitRingGroup(args)
	if err != nil {
		return err
	}
	g, err := l.openGroup(ref)
	if err != nil {
		return err
	}
	if !g.complete() {
		return ErrIncomplete
	}
	if len(g.disputes) > 0 {
		return ErrDisputed
	}
	if l.height < g.completed+l.disputeTime {
		return ErrDisputeWindow
	}
	g.committed = true
	l.emit(&RingGroupCommittedEvent{Hash: g.hash})
	utils.Logf("Ledger", "Ring group %s committed at block %d", g.hash, l.height)
	return nil
}

func (l *MemoryLedger) dispute(m Method, args []byte) error {
	c, err := DecodeDispute(m, args)
	if err != nil {
		return err
	}
	g, err := l.openGroup(c.Group)
	if err != nil {
		return err
	}

	switch m {
	case MethodDisputeLateRangeProof:
		if g.complete() {
			return ErrComplete
		}
		if l.height < g.created+l.lateMultiplier*l.disputeTime {
			return ErrDisputeWindow
		}
		expected := slices.Clone(g.keyImageHashes)
		slices.SortFunc(expected, types.Hash.Compare)
		if !slices.Equal(expected, c.KeyImageHashes) {
			return ErrMalformedCall
		}
		l.reject(g)
		return nil
	case MethodDisputeRingProof:
		if _, ok := g.ringProofs[c.ProofHash]; !ok {
			return ErrUnknownProof
		}
	case MethodDisputeRangeProof:
		if _, ok := g.rangeProofs[c.ProofHash]; !ok {
			return ErrUnknownProof
		}
	}

	if _, ok := g.disputes[c.ProofHash]; ok {
		return ErrDisputed
	}
	g.disputes[c.ProofHash] = struct{}{}
	l.emit(&RingGroupDisputedEvent{Hash: g.hash, ProofHash: c.ProofHash})
	utils.Logf("Ledger", "Ring group %s disputed on proof %s at block %d", g.hash, c.ProofHash, l.height)
	return nil
}

func (l *MemoryLedger) resolve(args []byte) error {
	hash, proofHash, err := DecodeResolve(args)
	if err != nil {
		return err
	}
	g, ok := l.groups.Get(hash)
	if !ok {
		return ErrUnknownRingGroup
	}
	if _, ok := g.disputes[proofHash]; !ok || g.closed() {
		return ErrNoDispute
	}
	delete(g.disputes, proofHash)

	var valid bool
	if p, ok := g.ringProofs[proofHash]; ok {
		valid = p.Verify()
	} else if r, ok := g.rangeProofs[proofHash]; ok {
		i := slices.Index(g.ref.RangeHashes, proofHash)
		valid = r.Verify() && r.Commitment.Equal(&g.outputs[i].Commitment)
	}

	l.emit(&DisputeResolvedEvent{Hash: g.hash, ProofHash: proofHash, Valid: valid})
	if !valid {
		l.reject(g)
	}
	return nil
}

func (l *MemoryLedger) reject(g *memoryGroup) {
	g.rejected = true
	for _, h := range g.keyImageHashes {
		l.keyImages.Delete(h)
	}
	freed := slices.Clone(g.keyImageHashes)
	slices.SortFunc(freed, types.Hash.Compare)
	l.emit(&RingGroupRejectedEvent{Hash: g.hash}, &FreedKeyImageHashesEvent{KeyImageHashes: freed})
	utils.Logf("Ledger", "Ring group %s rejected at block %d", g.hash, l.height)
}
