package ledger

import (
	"sync"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

// Kind of a ledger event. Kinds are declared in the order the tracker applies them.
type Kind uint8

const (
	KindTransaction Kind = iota
	KindMint
	KindRingGroup
	KindRingProof
	KindRangeProof
	KindRingGroupDisputed
	KindDisputeResolved
	KindRingGroupRejected
	KindFreedKeyImageHashes
	KindRingGroupCommitted

	KindCount = iota
)

var kindSignatures = [KindCount]string{
	KindTransaction:         "LogTransaction(uint256,uint256[2],uint256[2],uint256[2],uint256)",
	KindMint:                "LogMintTransaction(uint256,uint256)",
	KindRingGroup:           "LogRingGroup(uint256,uint256[],uint256[],uint256[],bytes)",
	KindRingProof:           "LogRingProof(uint256,uint256[2][],uint256[2],uint256[2],uint256,uint256[],uint256[],uint256)",
	KindRangeProof:          "LogRangeProof(uint256,uint256[2],uint256[2][],uint256[],uint256[2][],uint256[])",
	KindRingGroupDisputed:   "LogRingGroupDisputed(uint256,uint256)",
	KindDisputeResolved:     "LogDisputeResolved(uint256,uint256,uint256)",
	KindRingGroupRejected:   "LogRingGroupRejected(uint256)",
	KindFreedKeyImageHashes: "LogFreedKeyImageHashes(uint256[])",
	KindRingGroupCommitted:  "LogRingGroupCommitted(uint256)",
}

var kindNames = [KindCount]string{
	KindTransaction:         "Transaction",
	KindMint:                "Mint",
	KindRingGroup:           "RingGroup",
	KindRingProof:           "RingProof",
	KindRangeProof:          "RangeProof",
	KindRingGroupDisputed:   "RingGroupDisputed",
	KindDisputeResolved:     "DisputeResolved",
	KindRingGroupRejected:   "RingGroupRejected",
	KindFreedKeyImageHashes: "FreedKeyImageHashes",
	KindRingGroupCommitted:  "RingGroupCommitted",
}

var topics = sync.OnceValues(func() (byKind [KindCount]types.Hash, byTopic map[types.Hash]Kind) {
	byTopic = make(map[types.Hash]Kind, KindCount)
	for k := range Kind(KindCount) {
		byKind[k] = abi.Topic(kindSignatures[k])
		byTopic[byKind[k]] = k
	}
	return byKind, byTopic
})

func (k Kind) String() string {
	if k >= KindCount {
		return utils.SprintfNoEscape("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Signature event signature as declared by the ledger
func (k Kind) Signature() string {
	return kindSignatures[k]
}

// Topic Keccak-256 of the event signature
func (k Kind) Topic() types.Hash {
	byKind, _ := topics()
	return byKind[k]
}

// KindFromTopic reverse lookup of Topic
func KindFromTopic(topic types.Hash) (Kind, bool) {
	_, byTopic := topics()
	k, ok := byTopic[topic]
	return k, ok
}
