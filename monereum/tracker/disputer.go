package tracker

import (
	"slices"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/ledger"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

type DisputeKind uint8

const (
	DisputeLateRangeProof DisputeKind = iota
	DisputeForceCommit
	DisputeRingProof
	DisputeRangeProof
	DisputeResolve
)

func (k DisputeKind) String() string {
	switch k {
	case DisputeLateRangeProof:
		return "late range proof"
	case DisputeForceCommit:
		return "force commit"
	case DisputeRingProof:
		return "ring proof"
	case DisputeRangeProof:
		return "range proof"
	case DisputeResolve:
		return "resolve"
	}
	return utils.SprintfNoEscape("DisputeKind(%d)", uint8(k))
}

// Dispute an action any party can take against a ring group that is not settled
type Dispute struct {
	Kind      DisputeKind
	RingGroup ledger.GroupRef
	Hash      types.Hash
	// ProofHash disputed or resolved proof
	ProofHash      types.Hash
	KeyImageHashes []types.Hash
}

// Key identifies the action, submitting it twice is pointless
func (d *Dispute) Key() types.Hash {
	return abi.Hash(abi.Uint(uint64(d.Kind)), abi.Word(d.Hash), abi.Word(d.ProofHash))
}

func (d *Dispute) Calldata() ledger.Calldata {
	switch d.Kind {
	case DisputeLateRangeProof:
		return ledger.DisputeLateRangeProof(&d.RingGroup, d.KeyImageHashes)
	case DisputeForceCommit:
		return ledger.CommitRingGroup(&d.RingGroup)
	case DisputeRingProof:
		return ledger.DisputeRingProof(&d.RingGroup, d.ProofHash)
	case DisputeRangeProof:
		return ledger.DisputeRangeProof(&d.RingGroup, d.ProofHash)
	case DisputeResolve:
		return ledger.Resolve(d.Hash, d.ProofHash)
	}
	utils.Panicf("tracker: unknown dispute kind %d", d.Kind)
	return nil
}

// Disputes every action available at the current position, ring groups in creation order.
// A late ring group is disputed before anything else, a valid one is force committed once its window passed,
// an invalid one gets its first invalid ring proof disputed, else its first invalid range proof.
func (t *Tracker) Disputes() []Dispute {
	t.lock.RLock()
	defer t.lock.RUnlock()

	groups := make([]*RingGroupRecord, 0, t.ringGroups.Count())
	t.ringGroups.Iter(func(_ types.Hash, g *RingGroupRecord) bool {
		if !g.Status.Terminal() {
			groups = append(groups, g)
		}
		return false
	})
	slices.SortFunc(groups, func(a, b *RingGroupRecord) int {
		if a.Created != b.Created {
			if a.Created < b.Created {
				return -1
			}
			return 1
		}
		return a.Hash.Compare(b.Hash)
	})

	var disputes []Dispute
	for _, g := range groups {
		ref := ledger.GroupRef{OutputIDs: g.OutputIDs, RingHashes: g.RingHashes, RangeHashes: g.RangeHashes}
		dispute := func(kind DisputeKind, proofHash types.Hash) {
			disputes = append(disputes, Dispute{Kind: kind, RingGroup: ref, Hash: g.Hash, ProofHash: proofHash})
		}

		for _, h := range g.Disputes {
			dispute(DisputeResolve, h)
		}

		switch {
		case !g.complete():
			if t.position >= t.config.lateDeadline(g.Created) {
				keyImageHashes := g.keyImageHashes()
				slices.SortFunc(keyImageHashes, types.Hash.Compare)
				disputes = append(disputes, Dispute{Kind: DisputeLateRangeProof, RingGroup: ref, Hash: g.Hash, KeyImageHashes: keyImageHashes})
			}
		case g.Valid:
			if len(g.Disputes) == 0 && t.position >= g.Completed+t.config.DisputeTime {
				dispute(DisputeForceCommit, types.ZeroHash)
			}
		default:
			if i := slices.IndexFunc(g.RingProofs, func(r *RingProofRecord) bool {
				return !r.Valid && !slices.Contains(g.Disputes, r.Hash)
			}); i >= 0 {
				dispute(DisputeRingProof, g.RingProofs[i].Hash)
			} else if i = slices.IndexFunc(g.RangeProofs, func(r *RangeProofRecord) bool {
				return !r.Valid && !slices.Contains(g.Disputes, r.Hash)
			}); i >= 0 {
				dispute(DisputeRangeProof, g.RangeProofs[i].Hash)
			}
		}
	}
	return disputes
}

const disputerCacheSize = 4096

// Disputer turns tracker disputes into ledger calls, each at most once
type Disputer struct {
	tracker   *Tracker
	submitted utils.Cache[types.Hash, struct{}]
}

func NewDisputer(t *Tracker) *Disputer {
	return &Disputer{
		tracker:   t,
		submitted: utils.NewLRUCache[types.Hash, struct{}](disputerCacheSize),
	}
}

// Submissions calls for disputes not submitted before
func (d *Disputer) Submissions() []ledger.Calldata {
	var calls []ledger.Calldata
	for _, dispute := range d.tracker.Disputes() {
		key := dispute.Key()
		if _, ok := d.submitted.Get(key); ok {
			continue
		}
		d.submitted.Set(key, struct{}{})
		utils.Logf("Disputer", "Ring group %s: %s %s", dispute.Hash, dispute.Kind, dispute.ProofHash)
		calls = append(calls, dispute.Calldata())
	}
	return calls
}
