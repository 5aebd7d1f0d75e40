package tracker

import (
	"context"
	"slices"

	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/monereum/crypto/ringct"
	"github.com/monereum/engine/monereum/crypto/ringct/borromean"
	"github.com/monereum/engine/monereum/ledger"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

func (t *Tracker) handle(e ledger.Event) {
	switch e := e.(type) {
	case *ledger.TransactionEvent:
		t.handleTransaction(e)
	case *ledger.MintEvent:
		t.handleMint(e)
	case *ledger.RingGroupEvent:
		t.handleRingGroup(e)
	case *ledger.RingProofEvent:
		t.handleRingProof(e)
	case *ledger.RangeProofEvent:
		t.handleRangeProof(e)
	case *ledger.RingGroupDisputedEvent:
		t.handleDisputed(e)
	case *ledger.DisputeResolvedEvent:
		t.handleDisputeResolved(e)
	case *ledger.RingGroupRejectedEvent:
		t.handleRejected(e)
	case *ledger.FreedKeyImageHashesEvent:
		t.handleFreedKeyImageHashes(e)
	case *ledger.RingGroupCommittedEvent:
		t.handleCommitted(e)
	}
}

// verifying proofs of a ring group are checked when the wallet has a stake in it, or always in full audit mode
func (t *Tracker) verifying(g *RingGroupRecord) bool {
	return g.Stake || t.config.FullAudit
}

func (t *Tracker) keyImage(hash types.Hash) *KeyImageRecord {
	ki, ok := t.keyImages.Get(hash)
	if !ok {
		ki = &KeyImageRecord{}
		t.keyImages.Put(hash, ki)
	}
	return ki
}

func (t *Tracker) groupOutputs(g *RingGroupRecord) []*OutputRecord {
	outputs := make([]*OutputRecord, 0, len(g.OutputIDs))
	for _, id := range g.OutputIDs {
		r, _ := t.outputs.Get(id)
		outputs = append(outputs, r)
	}
	return outputs
}

// outputHash recomputes the output batch hash ring proofs of g must be bound to.
// The miner output is last, its public amount is the fee.
func (t *Tracker) outputHash(g *RingGroupRecord) (types.Hash, bool) {
	records := t.groupOutputs(g)
	miner := records[len(records)-1].Output
	if !miner.CommitmentAmount.IsUint64() {
		return types.ZeroHash, false
	}
	outputs := make([]*wallet.Output, 0, len(records)-1)
	for _, r := range records[:len(records)-1] {
		outputs = append(outputs, r.Output)
	}
	return ringct.OutputBatchHash(outputs, miner.CommitmentAmount.Uint64(), g.Messages), true
}

func (t *Tracker) handleTransaction(e *ledger.TransactionEvent) {
	if t.outputs.Has(e.Output.ID) {
		return
	}
	if !e.Output.Verify() {
		utils.Errorf("Tracker", "Invalid output %s at block %d", e.Output.ID, e.Block)
		return
	}
	out := e.Output
	out.SenderData, out.ReceiverData = nil, nil

	r := &OutputRecord{Output: &out, Block: e.Block}
	if rd, ok := t.wallet.TryDecryptTransaction(&out); ok {
		r.Owned = true
		image, _ := wallet.KeyImage(&out)
		r.KeyImageHash = wallet.KeyImageHash(image)
		t.keyImage(r.KeyImageHash).Owner = out.ID
		t.owned = append(t.owned, out.ID)
		utils.Logf("Tracker", "Received output %s of %s at block %d", out.ID, utils.EtherUnits(rd.Amount), e.Block)
	}
	t.outputs.Put(out.ID, r)
}

func (t *Tracker) handleMint(e *ledger.MintEvent) {
	r, ok := t.outputs.Get(e.ID)
	if !ok {
		utils.Errorf("Tracker", "Mint of unknown output %s at block %d", e.ID, e.Block)
		return
	}
	if r.Minted {
		return
	}
	if !r.Output.CommitmentAmount.IsUint64() || r.Output.CommitmentAmount.Uint64() != e.Amount {
		utils.Errorf("Tracker", "Mint of output %s does not match its public amount", e.ID)
		return
	}
	// minted outputs need no proofs
	r.Minted = true
	r.Valid = true
	r.Confirmed = e.Block
}

func (t *Tracker) handleRingGroup(e *ledger.RingGroupEvent) {
	if t.ringGroups.Has(e.Hash) {
		return
	}
	if e.Ref().Hash() != e.Hash {
		utils.Errorf("Tracker", "Ring group %s does not match its contents", e.Hash)
		return
	}
	if len(e.OutputIDs) < 2 || len(e.RangeHashes) != len(e.OutputIDs)-1 || len(e.RingHashes) == 0 {
		utils.Errorf("Tracker", "Ring group %s is malformed", e.Hash)
		return
	}
	outputs := make([]*OutputRecord, 0, len(e.OutputIDs))
	for _, id := range e.OutputIDs {
		r, ok := t.outputs.Get(id)
		if !ok {
			utils.Errorf("Tracker", "Ring group %s without output %s", e.Hash, id)
			return
		}
		outputs = append(outputs, r)
	}

	g := &RingGroupRecord{
		Hash:        e.Hash,
		OutputIDs:   slices.Clone(e.OutputIDs),
		RingHashes:  slices.Clone(e.RingHashes),
		RangeHashes: slices.Clone(e.RangeHashes),
		Messages:    slices.Clone(e.Messages),
		Status:      StatusPending,
		Created:     e.Block,
	}

	messages, err := wallet.UnpackMessages(e.Messages, len(outputs)-1)
	if err != nil {
		utils.Errorf("Tracker", "Ring group %s messages: %s", e.Hash, err)
	}
	for i, r := range outputs {
		r.RingGroup = e.Hash
		if !r.Owned {
			continue
		}
		g.Stake = true
		if i < len(messages) && len(messages[i]) > 0 {
			r.Output.OpenMessage(messages[i])
		}
	}

	for _, h := range e.RingHashes {
		t.ringToGroup.Put(h, e.Hash)
	}
	t.ringGroups.Put(e.Hash, g)
	utils.Logf("Tracker", "Ring group %s at block %d: %d outputs, %d ring proofs, stake %t", e.Hash, e.Block, len(outputs), len(e.RingHashes), g.Stake)
}

func (t *Tracker) handleRingProof(e *ledger.RingProofEvent) {
	hash, ok := t.ringToGroup.Get(e.RingHash)
	if !ok {
		utils.Errorf("Tracker", "Ring proof %s without ring group", e.RingHash)
		return
	}
	g, _ := t.ringGroups.Get(hash)
	if slices.ContainsFunc(g.RingProofs, func(r *RingProofRecord) bool { return r.Hash == e.RingHash }) {
		return
	}

	ring := make([]*wallet.Output, 0, len(e.Ring))
	for _, id := range e.MemberIDs() {
		r, ok := t.outputs.Get(id)
		if !ok {
			utils.Errorf("Tracker", "Ring proof %s with unknown member %s", e.RingHash, id)
			return
		}
		ring = append(ring, r.Output)
	}

	record := &RingProofRecord{Proof: e.RingProof(ring), Hash: e.RingHash, Valid: true}
	if record.Proof.Hash() != e.RingHash {
		utils.Errorf("Tracker", "Ring proof %s does not match its contents", e.RingHash)
		return
	}
	if outputHash, ok := t.outputHash(g); !ok || outputHash != e.OutputHash {
		utils.Errorf("Tracker", "Ring proof %s is not bound to the outputs of ring group %s", e.RingHash, g.Hash)
		record.Valid = false
	}
	g.RingProofs = append(g.RingProofs, record)
	if t.verifying(g) {
		t.pendingRing = append(t.pendingRing, record)
	}

	keyImageHash := record.Proof.KeyImageHash()
	ki := t.keyImage(keyImageHash)
	for _, other := range ki.RingGroups {
		if other == g.Hash {
			continue
		}
		if og, ok := t.ringGroups.Get(other); ok && og.Status != StatusRejected {
			g.DoubleSpend = true
			og.DoubleSpend = true
			utils.Noticef("Tracker", "Key image %s double spent by ring groups %s and %s", keyImageHash, other, g.Hash)
		}
	}
	if !slices.Contains(ki.RingGroups, g.Hash) {
		ki.RingGroups = append(ki.RingGroups, g.Hash)
	}
	if ki.Owner != types.ZeroHash {
		if owner, ok := t.outputs.Get(ki.Owner); ok && !owner.Spent {
			owner.Spent, owner.Reserved = true, false
			utils.Logf("Tracker", "Output %s spent by ring group %s", ki.Owner, g.Hash)
		}
	}
}

func (t *Tracker) verifyRingProofs() {
	if len(t.pendingRing) == 0 {
		return
	}
	proofs := make([]*ringct.RingProof, len(t.pendingRing))
	for i, r := range t.pendingRing {
		proofs[i] = r.Proof
	}
	results, err := ringct.VerifyBatch(context.Background(), proofs, t.config.VerifyRoutines)
	if err != nil {
		utils.Panicf("tracker: ring proof verification: %s", err)
	}
	for i, r := range t.pendingRing {
		r.Verified = true
		r.Valid = r.Valid && results[i]
		if !r.Valid {
			utils.Noticef("Tracker", "Ring proof %s failed verification", r.Hash)
		}
	}
	t.pendingRing = t.pendingRing[:0]
}

func (t *Tracker) handleRangeProof(e *ledger.RangeProofEvent) {
	g, ok := t.ringGroups.Get(e.RingGroupHash)
	if !ok {
		utils.Errorf("Tracker", "Range proof without ring group %s", e.RingGroupHash)
		return
	}
	hash := e.Proof.Hash()
	index := slices.Index(g.RangeHashes, hash)
	if index < 0 {
		utils.Errorf("Tracker", "Range proof %s is not part of ring group %s", hash, g.Hash)
		return
	}
	if slices.ContainsFunc(g.RangeProofs, func(r *RangeProofRecord) bool { return r.Index == index }) {
		return
	}

	proof := e.Proof
	record := &RangeProofRecord{
		Proof:      &proof,
		Hash:       hash,
		LedgerHash: proof.LedgerHash(g.Hash, g.OutputIDs),
		Index:      index,
		Block:      e.Block,
		Valid:      true,
	}
	g.RangeProofs = append(g.RangeProofs, record)
	if t.verifying(g) {
		t.pendingRange = append(t.pendingRange, pendingRange{group: g, record: record})
	}
	if !slices.Contains(t.touched, g) {
		t.touched = append(t.touched, g)
	}
}

func (t *Tracker) verifyRangeProofs() {
	if len(t.pendingRange) > 0 {
		proofs := make([]*borromean.Range, len(t.pendingRange))
		for i, p := range t.pendingRange {
			proofs[i] = p.record.Proof
		}
		results, err := borromean.VerifyBatch(context.Background(), proofs, t.config.VerifyRoutines)
		if err != nil {
			utils.Panicf("tracker: range proof verification: %s", err)
		}
		for i, p := range t.pendingRange {
			out, _ := t.outputs.Get(p.group.OutputIDs[p.record.Index])
			p.record.Verified = true
			p.record.Valid = results[i] && p.record.Proof.Commitment.Equal(&out.Output.Commitment)
			if !p.record.Valid {
				utils.Noticef("Tracker", "Range proof %s of ring group %s failed verification", p.record.Hash, p.group.Hash)
			}
		}
		t.pendingRange = t.pendingRange[:0]
	}

	for _, g := range t.touched {
		t.tryComplete(g)
	}
	t.touched = t.touched[:0]
}

// tryComplete computes the aggregate validity once all range proofs are in
func (t *Tracker) tryComplete(g *RingGroupRecord) {
	if g.Completed != 0 || !g.complete() {
		return
	}
	for _, r := range g.RangeProofs {
		g.Completed = max(g.Completed, r.Block)
	}

	valid := true
	for _, r := range g.RingProofs {
		valid = valid && r.Valid
	}
	for _, r := range g.RangeProofs {
		valid = valid && r.Valid
	}
	outputs := t.groupOutputs(g)
	if t.verifying(g) && valid {
		inputs := make([]*bn254.Point, 0, len(g.RingProofs))
		for _, r := range g.RingProofs {
			inputs = append(inputs, &r.Proof.Commitment)
		}
		commitments := make([]*bn254.Point, 0, len(outputs))
		for _, r := range outputs {
			commitments = append(commitments, &r.Output.Commitment)
		}
		if !ringct.Balanced(inputs, commitments) {
			utils.Noticef("Tracker", "Ring group %s does not balance", g.Hash)
			valid = false
		}
	}

	g.Valid = valid
	if g.Status == StatusPending {
		g.Status = StatusProofsComplete
	}
	if valid {
		for _, r := range outputs {
			r.Valid = true
		}
	}
	utils.Logf("Tracker", "Ring group %s complete at block %d, valid %t", g.Hash, g.Completed, valid)
}

func (t *Tracker) handleDisputed(e *ledger.RingGroupDisputedEvent) {
	g, ok := t.ringGroups.Get(e.Hash)
	if !ok || g.Status.Terminal() {
		return
	}
	if !slices.Contains(g.Disputes, e.ProofHash) {
		g.Disputes = append(g.Disputes, e.ProofHash)
	}
	g.Status = StatusDisputed
	utils.Logf("Tracker", "Ring group %s disputed on proof %s at block %d", g.Hash, e.ProofHash, e.Block)
}

func (t *Tracker) handleDisputeResolved(e *ledger.DisputeResolvedEvent) {
	g, ok := t.ringGroups.Get(e.Hash)
	if !ok || g.Status.Terminal() {
		return
	}
	g.Disputes = slices.DeleteFunc(g.Disputes, func(h types.Hash) bool { return h == e.ProofHash })
	if !e.Valid {
		// rejection follows in the same block
		g.Valid = false
		return
	}
	if len(g.Disputes) == 0 && g.Status == StatusDisputed {
		if g.Completed != 0 {
			g.Status = StatusProofsComplete
		} else {
			g.Status = StatusPending
		}
	}
	utils.Logf("Tracker", "Dispute on proof %s of ring group %s resolved, valid %t", e.ProofHash, g.Hash, e.Valid)
}

func (t *Tracker) handleRejected(e *ledger.RingGroupRejectedEvent) {
	g, ok := t.ringGroups.Get(e.Hash)
	if !ok || g.Status == StatusRejected {
		return
	}
	if g.Status == StatusConfirmed {
		utils.Errorf("Tracker", "Confirmed ring group %s rejected", g.Hash)
		return
	}
	g.Status = StatusRejected
	g.Valid = false
	g.Disputes = nil
	for _, r := range t.groupOutputs(g) {
		r.Valid = false
	}
	t.release(g)
	utils.Logf("Tracker", "Ring group %s rejected at block %d", g.Hash, e.Block)
}

// release drops the key image usages of a rejected ring group, and unspends outputs no other group spends
func (t *Tracker) release(g *RingGroupRecord) {
	g.DoubleSpend = false
	for _, hash := range g.keyImageHashes() {
		if ki, ok := t.keyImages.Get(hash); ok {
			t.releaseKeyImage(ki)
		}
	}
}

func (t *Tracker) releaseKeyImage(ki *KeyImageRecord) {
	ki.RingGroups = slices.DeleteFunc(ki.RingGroups, func(h types.Hash) bool {
		og, ok := t.ringGroups.Get(h)
		return !ok || og.Status == StatusRejected
	})
	for _, h := range ki.RingGroups {
		if og, ok := t.ringGroups.Get(h); ok {
			t.refreshDoubleSpend(og)
		}
	}
	if len(ki.RingGroups) == 0 && ki.Owner != types.ZeroHash {
		if owner, ok := t.outputs.Get(ki.Owner); ok && owner.Spent {
			owner.Spent = false
			utils.Logf("Tracker", "Output %s is unspent again", ki.Owner)
		}
	}
}

func (t *Tracker) refreshDoubleSpend(g *RingGroupRecord) {
	g.DoubleSpend = false
	for _, hash := range g.keyImageHashes() {
		if ki, ok := t.keyImages.Get(hash); ok && len(ki.RingGroups) > 1 {
			g.DoubleSpend = true
			return
		}
	}
}

func (t *Tracker) handleFreedKeyImageHashes(e *ledger.FreedKeyImageHashesEvent) {
	for _, hash := range e.KeyImageHashes {
		if ki, ok := t.keyImages.Get(hash); ok {
			t.releaseKeyImage(ki)
		}
	}
}

func (t *Tracker) handleCommitted(e *ledger.RingGroupCommittedEvent) {
	g, ok := t.ringGroups.Get(e.Hash)
	if !ok {
		utils.Errorf("Tracker", "Ring group %s committed without ring group", e.Hash)
		return
	}
	switch g.Status {
	case StatusConfirmed:
		return
	case StatusRejected:
		utils.Errorf("Tracker", "Rejected ring group %s committed", g.Hash)
		return
	}
	if !g.complete() {
		utils.Errorf("Tracker", "Ring group %s committed while waiting on range proofs", g.Hash)
	} else if !g.Valid {
		utils.Errorf("Tracker", "Ring group %s committed but failed verification", g.Hash)
	}

	g.Status = StatusConfirmed
	g.Confirmed = e.Block
	g.Disputes = nil
	for _, r := range t.groupOutputs(g) {
		r.Valid = true
		r.Confirmed = e.Block
	}
	utils.Logf("Tracker", "Ring group %s confirmed at block %d", g.Hash, e.Block)
}
