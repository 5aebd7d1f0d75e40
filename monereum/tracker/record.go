package tracker

import (
	"github.com/monereum/engine/monereum/crypto/ringct"
	"github.com/monereum/engine/monereum/crypto/ringct/borromean"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

type Status uint8

const (
	StatusUnknown Status = iota
	StatusPending
	StatusProofsComplete
	StatusDisputed
	StatusConfirmed
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusPending:
		return "pending"
	case StatusProofsComplete:
		return "proofs-complete"
	case StatusDisputed:
		return "disputed"
	case StatusConfirmed:
		return "confirmed"
	case StatusRejected:
		return "rejected"
	}
	return utils.SprintfNoEscape("Status(%d)", uint8(s))
}

func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

type OutputRecord struct {
	Output *wallet.Output
	// Block the output appeared on the ledger
	Block uint64
	// RingGroup zero for minted outputs
	RingGroup types.Hash
	Minted    bool
	Owned     bool
	// KeyImageHash set on owned outputs
	KeyImageHash types.Hash
	Spent        bool
	// Reserved collected by a created transaction that has not reached the ledger yet
	Reserved bool
	// Valid the output is minted or its ring group verified
	Valid bool
	// Confirmed block of the mint or ring group commitment, 0 while unconfirmed
	Confirmed uint64
}

type RingProofRecord struct {
	Proof    *ringct.RingProof
	Hash     types.Hash
	Verified bool
	Valid    bool
}

type RangeProofRecord struct {
	Proof *borromean.Range
	// Hash as listed in the ring group range hashes
	Hash       types.Hash
	LedgerHash types.Hash
	// Index of the output the proof covers
	Index    int
	Block    uint64
	Verified bool
	Valid    bool
}

type RingGroupRecord struct {
	Hash        types.Hash
	OutputIDs   []types.Hash
	RingHashes  []types.Hash
	RangeHashes []types.Hash
	Messages    types.Bytes

	Status      Status
	RingProofs  []*RingProofRecord
	RangeProofs []*RangeProofRecord
	// Stake an output of the group belongs to the wallet
	Stake bool
	// Valid aggregate of every verification result, meaningful once complete
	Valid       bool
	DoubleSpend bool

	Created   uint64
	Completed uint64
	Confirmed uint64
	// Disputes open proof disputes
	Disputes []types.Hash
}

func (g *RingGroupRecord) complete() bool {
	return len(g.RangeProofs) == len(g.OutputIDs)-1
}

func (g *RingGroupRecord) keyImageHashes() []types.Hash {
	hashes := make([]types.Hash, 0, len(g.RingProofs))
	for _, p := range g.RingProofs {
		hashes = append(hashes, p.Proof.KeyImageHash())
	}
	return hashes
}

func (g *RingGroupRecord) clone() RingGroupRecord {
	c := *g
	c.RingProofs = append([]*RingProofRecord(nil), g.RingProofs...)
	c.RangeProofs = append([]*RangeProofRecord(nil), g.RangeProofs...)
	c.Disputes = append([]types.Hash(nil), g.Disputes...)
	return c
}

// KeyImageRecord usage of a key image across ring groups
type KeyImageRecord struct {
	// Owner output id, zero when the key image does not belong to the wallet
	Owner      types.Hash
	RingGroups []types.Hash
}
