package ledger

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/monereum/crypto/ringct"
	"github.com/monereum/engine/monereum/crypto/ringct/borromean"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
	"github.com/stretchr/testify/require"
)

const testDisputeTime = 10

type fixture struct {
	ledger *MemoryLedger
	minter *wallet.Wallet
	bob    *wallet.Wallet
	carol  *wallet.Wallet
	miner  *wallet.Wallet
	fund   *wallet.Output
	decoys []*wallet.Output
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		ledger: NewMemoryLedger(testDisputeTime, 2),
		minter: wallet.NewWalletFromSeed(crypto.Keccak256("minter")),
		bob:    wallet.NewWalletFromSeed(crypto.Keccak256("bob")),
		carol:  wallet.NewWalletFromSeed(crypto.Keccak256("carol")),
		miner:  wallet.NewWalletFromSeed(crypto.Keccak256("miner")),
	}
	f.fund = f.mint(t, f.bob, 1000)
	f.decoys = []*wallet.Output{f.mint(t, f.carol, 10), f.mint(t, f.carol, 20)}
	f.ledger.Mine(1)
	return f
}

func (f *fixture) mint(t *testing.T, w *wallet.Wallet, amount uint64) *wallet.Output {
	out, err := f.minter.CreateMint(w.MasterKey(), amount)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Call(Mint(out, amount)))
	pub := out.Public()
	_, ok := w.TryDecryptTransaction(pub)
	require.True(t, ok)
	return pub
}

func (f *fixture) spend(t *testing.T, amount, fee uint64) *FullTransaction {
	out, err := f.bob.CreateTransaction(f.carol.MasterKey(), amount, []byte("hello carol"))
	require.NoError(t, err)
	change, err := f.bob.CreateTransaction(f.bob.MasterKey(), f.fund.ReceiverData.Amount-amount-fee, nil)
	require.NoError(t, err)

	full := &FullTransaction{
		Outputs:  []*wallet.Output{out, change},
		MinerFee: fee,
	}
	full.Messages = wallet.PackMessages(full.Outputs)

	var blinding bn254.Scalar
	bn254.Order.AddMod(&blinding, &out.SenderData.BlindingKey, &change.SenderData.BlindingKey)
	p, err := ringct.NewRingProof(f.fund, f.decoys, full.OutputHash(), &blinding, rand.Reader)
	require.NoError(t, err)
	full.RingProofs = []*ringct.RingProof{p}

	for _, o := range full.Outputs {
		r, err := borromean.NewRange(o.SenderData.Amount, &o.SenderData.BlindingKey, rand.Reader)
		require.NoError(t, err)
		full.RangeProofs = append(full.RangeProofs, r)
	}
	return full
}

func (f *fixture) submit(t *testing.T, full *FullTransaction) *Submission {
	s, err := FormatSubmission(full, f.miner)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Call(s.RingGroup))
	return s
}

func (f *fixture) events(t *testing.T, kind Kind) []Event {
	height, err := f.ledger.Height(context.Background())
	require.NoError(t, err)
	raw, err := f.ledger.Events(context.Background(), kind, 0, height)
	require.NoError(t, err)
	events := make([]Event, 0, len(raw))
	for _, r := range raw {
		e, err := ParseEvent(r)
		require.NoError(t, err)
		require.Equal(t, kind, e.Kind())
		events = append(events, e)
	}
	return events
}

func TestTopics(t *testing.T) {
	require.Equal(t, crypto.Keccak256("LogRingGroup(uint256,uint256[],uint256[],uint256[],bytes)"), KindRingGroup.Topic())
	require.Equal(t, crypto.Keccak256("LogRingGroupCommitted(uint256)"), KindRingGroupCommitted.Topic())

	seen := make(map[types.Hash]Kind)
	for k := range Kind(KindCount) {
		_, dup := seen[k.Topic()]
		require.False(t, dup, k.String())
		seen[k.Topic()] = k

		parsed, ok := KindFromTopic(k.Topic())
		require.True(t, ok)
		require.Equal(t, k, parsed)
	}
	require.Equal(t, "RingProof", KindRingProof.String())
	require.Equal(t, "submitRingGroup", MethodSubmitRingGroup.String())
}

func TestEventRoundTrip(t *testing.T) {
	f := newFixture(t)
	full := f.spend(t, 300, 5)
	p := full.RingProofs[0]
	h := crypto.Keccak256("ring group")

	events := []Event{
		&TransactionEvent{Header: Header{Block: 3, Index: 1}, Output: *full.Outputs[0].Public()},
		&MintEvent{ID: f.fund.ID, Amount: 1000},
		&RingGroupEvent{Hash: h, OutputIDs: []types.Hash{full.Outputs[0].ID, full.Outputs[1].ID}, RingHashes: []types.Hash{p.Hash()}, Messages: full.Messages},
		NewRingProofEvent(p),
		&RangeProofEvent{RingGroupHash: h, Proof: *full.RangeProofs[1]},
		&RingGroupDisputedEvent{Hash: h, ProofHash: p.Hash()},
		&DisputeResolvedEvent{Hash: h, ProofHash: p.Hash(), Valid: true},
		&RingGroupRejectedEvent{Hash: h},
		&FreedKeyImageHashesEvent{KeyImageHashes: []types.Hash{p.KeyImageHash()}},
		&RingGroupCommittedEvent{Hash: h},
	}
	require.Len(t, events, KindCount)

	for _, e := range events {
		t.Run(e.Kind().String(), func(t *testing.T) {
			raw := EncodeEvent(e)
			parsed, err := ParseEvent(raw)
			require.NoError(t, err)
			require.Equal(t, e.Kind(), parsed.Kind())
			require.Equal(t, e.Position(), parsed.Position())
			require.Equal(t, abi.Encode(e.Values()...), abi.Encode(parsed.Values()...))

			if len(raw.Data) > abi.WordSize {
				raw.Data = raw.Data[:len(raw.Data)-abi.WordSize-1]
				_, err = ParseEvent(raw)
				require.Error(t, err)
			}
		})
	}

	parsed, err := ParseEvent(EncodeEvent(NewRingProofEvent(p)))
	require.NoError(t, err)
	e := parsed.(*RingProofEvent)
	require.Equal(t, p.MemberIDs(), e.MemberIDs())
	require.True(t, e.RingProof(p.Ring).Verify())
	require.Equal(t, p.Hash(), ringHash(e))

	_, err = ParseEvent(RawEvent{Topic: crypto.Keccak256("LogUnknown()")})
	require.ErrorIs(t, err, ErrUnknownTopic)
}

func TestFormatSubmission(t *testing.T) {
	f := newFixture(t)
	full := f.spend(t, 300, 5)
	require.NoError(t, full.Verify(context.Background(), 0))

	s, err := FormatSubmission(full, f.miner)
	require.NoError(t, err)
	require.Len(t, s.OutputIDs, 3)
	require.Equal(t, s.MinerOutput.ID, s.OutputIDs[2])
	require.Equal(t, s.GroupRef.Hash(), s.RingGroupHash)
	require.Len(t, s.RangeProofs, 2)

	m, ok := s.RingGroup.Method()
	require.True(t, ok)
	require.Equal(t, MethodSubmitRingGroup, m)

	c, err := DecodeRingGroup(s.RingGroup.Arguments())
	require.NoError(t, err)
	require.Equal(t, full.OutputHash(), c.OutputHash())
	require.Equal(t, uint64(5), c.MinerFee)
	require.Equal(t, s.RingGroupHash, c.Ref().Hash())

	rc, err := DecodeRangeProof(s.RangeProofs[1].Arguments())
	require.NoError(t, err)
	require.Equal(t, s.RingGroupHash, rc.Group.Hash())
	require.Equal(t, full.RangeProofs[1].Hash(), rc.Proof.Hash())

	t.Run("OutputHashMismatch", func(t *testing.T) {
		other := f.spend(t, 200, 5)
		other.RingProofs = full.RingProofs
		_, err := FormatSubmission(other, f.miner)
		require.ErrorIs(t, err, ErrOutputHashMismatch)
		require.ErrorIs(t, other.Verify(context.Background(), 0), ErrOutputHashMismatch)
	})

	t.Run("FeeChanged", func(t *testing.T) {
		other := f.spend(t, 300, 5)
		other.MinerFee = 6
		for _, p := range other.RingProofs {
			p.OutputHash = other.OutputHash()
		}
		require.ErrorIs(t, other.Verify(context.Background(), 0), ErrInvalidRingProof)
	})

	t.Run("RangeProofCount", func(t *testing.T) {
		other := f.spend(t, 300, 5)
		other.RangeProofs = other.RangeProofs[:1]
		_, err := FormatSubmission(other, f.miner)
		require.ErrorIs(t, err, ErrRangeProofCount)
	})
}

func TestMemoryLedgerCommit(t *testing.T) {
	f := newFixture(t)
	full := f.spend(t, 300, 5)
	s := f.submit(t, full)

	require.ErrorIs(t, f.ledger.Call(s.Commit()), ErrIncomplete)
	for _, rp := range s.RangeProofs {
		require.NoError(t, f.ledger.Call(rp))
	}
	require.ErrorIs(t, f.ledger.Call(s.RangeProofs[0]), ErrDuplicateProof)
	require.ErrorIs(t, f.ledger.Call(s.Commit()), ErrDisputeWindow)

	f.ledger.Mine(testDisputeTime)
	require.NoError(t, f.ledger.Call(s.Commit()))
	require.ErrorIs(t, f.ledger.Call(s.Commit()), ErrRingGroupClosed)
	f.ledger.Mine(1)

	require.Len(t, f.events(t, KindMint), 3)
	// two outputs plus the miner output on top of the mints
	require.Len(t, f.events(t, KindTransaction), 6)
	require.Len(t, f.events(t, KindRingProof), 1)
	require.Len(t, f.events(t, KindRangeProof), 2)
	committed := f.events(t, KindRingGroupCommitted)
	require.Len(t, committed, 1)
	require.Equal(t, s.RingGroupHash, committed[0].(*RingGroupCommittedEvent).Hash)

	groups := f.events(t, KindRingGroup)
	require.Len(t, groups, 1)
	g := groups[0].(*RingGroupEvent)
	require.Equal(t, s.RingGroupHash, g.Hash)
	require.Equal(t, s.RingGroupHash, g.Ref().Hash())

	// the same output cannot be spent twice
	again := mustFormat(t, f.spend(t, 100, 5), f.miner)
	require.ErrorIs(t, f.ledger.Call(again.RingGroup), ErrKeyImageUsed)
}

func mustFormat(t *testing.T, full *FullTransaction, miner *wallet.Wallet) *Submission {
	s, err := FormatSubmission(full, miner)
	require.NoError(t, err)
	return s
}

func TestMemoryLedgerDisputeRangeProof(t *testing.T) {
	f := newFixture(t)
	full := f.spend(t, 300, 5)
	one := bn254.ScalarFromUint64(1)
	bn254.Order.AddMod(&full.RangeProofs[0].Responses[3][0], &full.RangeProofs[0].Responses[3][0], one)
	require.ErrorIs(t, full.Verify(context.Background(), 0), ErrInvalidRangeProof)

	s := f.submit(t, full)
	for _, rp := range s.RangeProofs {
		require.NoError(t, f.ledger.Call(rp))
	}

	require.ErrorIs(t, f.ledger.Call(DisputeRangeProof(&s.GroupRef, crypto.Keccak256("nothing"))), ErrUnknownProof)
	require.NoError(t, f.ledger.Call(DisputeRangeProof(&s.GroupRef, s.RangeHashes[0])))
	f.ledger.Mine(testDisputeTime)
	require.ErrorIs(t, f.ledger.Call(s.Commit()), ErrDisputed)

	require.NoError(t, f.ledger.Call(Resolve(s.RingGroupHash, s.RangeHashes[0])))
	f.ledger.Mine(1)

	resolved := f.events(t, KindDisputeResolved)
	require.Len(t, resolved, 1)
	require.False(t, resolved[0].(*DisputeResolvedEvent).Valid)
	require.Len(t, f.events(t, KindRingGroupRejected), 1)
	freed := f.events(t, KindFreedKeyImageHashes)
	require.Len(t, freed, 1)
	require.Equal(t, []types.Hash{full.RingProofs[0].KeyImageHash()}, freed[0].(*FreedKeyImageHashesEvent).KeyImageHashes)

	// freed key image can be spent again
	f.submit(t, f.spend(t, 300, 5))
}

func TestMemoryLedgerDisputeValidRingProof(t *testing.T) {
	f := newFixture(t)
	s := f.submit(t, f.spend(t, 300, 5))

	require.NoError(t, f.ledger.Call(DisputeRingProof(&s.GroupRef, s.RingHashes[0])))
	require.ErrorIs(t, f.ledger.Call(DisputeRingProof(&s.GroupRef, s.RingHashes[0])), ErrDisputed)
	require.NoError(t, f.ledger.Call(Resolve(s.RingGroupHash, s.RingHashes[0])))
	require.ErrorIs(t, f.ledger.Call(Resolve(s.RingGroupHash, s.RingHashes[0])), ErrNoDispute)
	f.ledger.Mine(1)

	resolved := f.events(t, KindDisputeResolved)
	require.Len(t, resolved, 1)
	require.True(t, resolved[0].(*DisputeResolvedEvent).Valid)
	require.Empty(t, f.events(t, KindRingGroupRejected))
}

func TestMemoryLedgerLateRangeProof(t *testing.T) {
	f := newFixture(t)
	full := f.spend(t, 300, 5)
	s := f.submit(t, full)
	require.NoError(t, f.ledger.Call(s.RangeProofs[0]))

	keyImages := []types.Hash{full.RingProofs[0].KeyImageHash()}
	require.ErrorIs(t, f.ledger.Call(DisputeLateRangeProof(&s.GroupRef, keyImages)), ErrDisputeWindow)
	f.ledger.Mine(2 * testDisputeTime)
	require.ErrorIs(t, f.ledger.Call(DisputeLateRangeProof(&s.GroupRef, nil)), ErrMalformedCall)
	require.NoError(t, f.ledger.Call(DisputeLateRangeProof(&s.GroupRef, keyImages)))
	require.ErrorIs(t, f.ledger.Call(s.RangeProofs[1]), ErrRingGroupClosed)
	f.ledger.Mine(1)

	require.Len(t, f.events(t, KindRingGroupRejected), 1)
}

func TestMemoryLedgerErrors(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.ledger.Call(Calldata{1, 2, 3, 4}), ErrUnknownMethod)
	require.ErrorIs(t, f.ledger.Call(nil), ErrUnknownMethod)

	out, err := f.minter.CreateMint(f.bob.MasterKey(), 1)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Call(Mint(out, 1)))
	require.ErrorIs(t, f.ledger.Call(Mint(out, 1)), ErrDuplicateOutput)

	s := mustFormat(t, f.spend(t, 300, 5), f.miner)
	require.ErrorIs(t, f.ledger.Call(s.RangeProofs[0]), ErrUnknownRingGroup)
	require.Error(t, f.ledger.Call(s.RingGroup[:len(s.RingGroup)-abi.WordSize]))

	// ring members must exist on the ledger
	foreign, err := f.minter.CreateMint(f.carol.MasterKey(), 7)
	require.NoError(t, err)
	f.decoys = []*wallet.Output{f.decoys[0], foreign.Public()}
	require.ErrorIs(t, f.ledger.Call(mustFormat(t, f.spend(t, 10, 1), f.miner).RingGroup), ErrUnknownOutput)
}
