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

var ErrUnknownTopic = errors.New("unknown event topic")

// RawEvent a log entry as emitted by the ledger. Data is the ABI encoding of the event arguments.
type RawEvent struct {
	Topic types.Hash  `json:"topic"`
	Block uint64      `json:"block"`
	Index uint32      `json:"index"`
	Data  types.Bytes `json:"data"`
}

type Event interface {
	Kind() Kind
	Position() Position
	Values() []abi.Value
}

// Position of an event in the ledger log
type Position struct {
	Block uint64 `json:"block"`
	Index uint32 `json:"index"`
}

func (p Position) Less(other Position) bool {
	return p.Block < other.Block || (p.Block == other.Block && p.Index < other.Index)
}

// Header log position shared by every event
type Header struct {
	Block uint64
	Index uint32
}

func (h Header) Position() Position {
	return Position{Block: h.Block, Index: h.Index}
}

// EncodeEvent inverse of ParseEvent
func EncodeEvent(e Event) RawEvent {
	pos := e.Position()
	return RawEvent{
		Topic: e.Kind().Topic(),
		Block: pos.Block,
		Index: pos.Index,
		Data:  abi.Encode(e.Values()...),
	}
}

// ParseEvent decodes a raw log entry. Points are validated, scalars must be reduced.
func ParseEvent(raw RawEvent) (Event, error) {
	kind, ok := KindFromTopic(raw.Topic)
	if !ok {
		return nil, ErrUnknownTopic
	}
	d := abi.NewDecoder(raw.Data)
	pos := Header{Block: raw.Block, Index: raw.Index}

	var e Event
	var err error
	switch kind {
	case KindTransaction:
		e, err = parseTransaction(d, pos)
	case KindMint:
		e, err = parseMint(d, pos)
	case KindRingGroup:
		e, err = parseRingGroup(d, pos)
	case KindRingProof:
		e, err = parseRingProof(d, pos)
	case KindRangeProof:
		e, err = parseRangeProof(d, pos)
	case KindRingGroupDisputed:
		e, err = parseRingGroupDisputed(d, pos)
	case KindDisputeResolved:
		e, err = parseDisputeResolved(d, pos)
	case KindRingGroupRejected:
		e, err = parseRingGroupRejected(d, pos)
	case KindFreedKeyImageHashes:
		e, err = parseFreedKeyImageHashes(d, pos)
	case KindRingGroupCommitted:
		e, err = parseRingGroupCommitted(d, pos)
	}
	if err != nil {
		return nil, fmt.Errorf("%s event at %d/%d: %w", kind, raw.Block, raw.Index, err)
	}
	return e, nil
}

// TransactionEvent a new output, either minted or part of a ring group
type TransactionEvent struct {
	Header
	Output wallet.Output
}

func (e *TransactionEvent) Kind() Kind {
	return KindTransaction
}

func (e *TransactionEvent) Values() []abi.Value {
	return []abi.Value{
		abi.Word(e.Output.ID),
		abi.Point(&e.Output.Src),
		abi.Point(&e.Output.Dest),
		abi.Point(&e.Output.Commitment),
		abi.Scalar(&e.Output.CommitmentAmount),
	}
}

func parseTransaction(d *abi.Decoder, pos Header) (*TransactionEvent, error) {
	e := &TransactionEvent{Header: pos}
	id, err := d.Word()
	if err != nil {
		return nil, err
	}
	e.Output.ID = id

	for _, p := range []*bn254.Point{&e.Output.Src, &e.Output.Dest, &e.Output.Commitment} {
		v, err := d.Point()
		if err != nil {
			return nil, err
		}
		p.Set(v)
	}

	amount, err := d.Scalar()
	if err != nil {
		return nil, err
	}
	e.Output.CommitmentAmount.Set(amount)
	return e, nil
}

// MintEvent marks a public output created outside a ring group, confirmed immediately
type MintEvent struct {
	Header
	ID     types.Hash
	Amount uint64
}

func (e *MintEvent) Kind() Kind {
	return KindMint
}

func (e *MintEvent) Values() []abi.Value {
	return []abi.Value{abi.Word(e.ID), abi.Uint(e.Amount)}
}

func parseMint(d *abi.Decoder, pos Header) (e *MintEvent, err error) {
	e = &MintEvent{Header: pos}
	if e.ID, err = d.Word(); err != nil {
		return nil, err
	}
	if e.Amount, err = d.Uint64(); err != nil {
		return nil, err
	}
	return e, nil
}

// RingGroupEvent a submitted batch of spends and their new outputs.
// The last output id is the miner fee output, Messages packs one message per other output.
type RingGroupEvent struct {
	Header
	Hash        types.Hash
	OutputIDs   []types.Hash
	RingHashes  []types.Hash
	RangeHashes []types.Hash
	Messages    []byte
}

func (e *RingGroupEvent) Kind() Kind {
	return KindRingGroup
}

func (e *RingGroupEvent) Values() []abi.Value {
	return []abi.Value{
		abi.Word(e.Hash),
		abi.DynamicArray(abi.Words(e.OutputIDs...)...),
		abi.DynamicArray(abi.Words(e.RingHashes...)...),
		abi.DynamicArray(abi.Words(e.RangeHashes...)...),
		abi.Bytes(e.Messages),
	}
}

// Ref content of the ring group that its hash commits to
func (e *RingGroupEvent) Ref() *GroupRef {
	return &GroupRef{OutputIDs: e.OutputIDs, RingHashes: e.RingHashes, RangeHashes: e.RangeHashes}
}

func parseRingGroup(d *abi.Decoder, pos Header) (e *RingGroupEvent, err error) {
	e = &RingGroupEvent{Header: pos}
	if e.Hash, err = d.Word(); err != nil {
		return nil, err
	}
	if e.OutputIDs, err = d.DynamicWords(); err != nil {
		return nil, err
	}
	if e.RingHashes, err = d.DynamicWords(); err != nil {
		return nil, err
	}
	if e.RangeHashes, err = d.DynamicWords(); err != nil {
		return nil, err
	}
	if e.Messages, err = d.Bytes(); err != nil {
		return nil, err
	}
	return e, nil
}

// RingProofEvent a ring proof body. Ring holds member destinations, members are resolved by output id.
type RingProofEvent struct {
	Header
	RingHash         types.Hash
	Ring             []bn254.Point
	KeyImage         bn254.Point
	Commitment       bn254.Point
	Borromean        bn254.Scalar
	ImageFundProofs  []bn254.Scalar
	CommitmentProofs []bn254.Scalar
	OutputHash       types.Hash
}

func NewRingProofEvent(p *ringct.RingProof) *RingProofEvent {
	e := &RingProofEvent{
		RingHash:         p.Hash(),
		Ring:             make([]bn254.Point, len(p.Ring)),
		ImageFundProofs:  append([]bn254.Scalar(nil), p.ImageFundProofs...),
		CommitmentProofs: append([]bn254.Scalar(nil), p.CommitmentProofs...),
		OutputHash:       p.OutputHash,
	}
	for i, out := range p.Ring {
		e.Ring[i].Set(&out.Dest)
	}
	e.KeyImage.Set(&p.KeyImage)
	e.Commitment.Set(&p.Commitment)
	e.Borromean.Set(&p.Borromean)
	return e
}

func (e *RingProofEvent) Kind() Kind {
	return KindRingProof
}

func (e *RingProofEvent) Values() []abi.Value {
	ring := make([]abi.Value, len(e.Ring))
	for i := range e.Ring {
		ring[i] = abi.Point(&e.Ring[i])
	}
	return []abi.Value{
		abi.Word(e.RingHash),
		abi.DynamicArray(ring...),
		abi.Point(&e.KeyImage),
		abi.Point(&e.Commitment),
		abi.Scalar(&e.Borromean),
		abi.DynamicArray(scalarValues(e.ImageFundProofs)...),
		abi.DynamicArray(scalarValues(e.CommitmentProofs)...),
		abi.Word(e.OutputHash),
	}
}

// MemberIDs output ids of the ring members, in ring order
func (e *RingProofEvent) MemberIDs() []types.Hash {
	ids := make([]types.Hash, len(e.Ring))
	for i := range e.Ring {
		ids[i] = wallet.OutputID(&e.Ring[i])
	}
	return ids
}

// RingProof rebuilds the proof over resolved ring members, which must match Ring in order
func (e *RingProofEvent) RingProof(ring []*wallet.Output) *ringct.RingProof {
	p := &ringct.RingProof{
		Ring:             ring,
		ImageFundProofs:  append([]bn254.Scalar(nil), e.ImageFundProofs...),
		CommitmentProofs: append([]bn254.Scalar(nil), e.CommitmentProofs...),
		OutputHash:       e.OutputHash,
	}
	p.KeyImage.Set(&e.KeyImage)
	p.Commitment.Set(&e.Commitment)
	p.Borromean.Set(&e.Borromean)
	return p
}

func parseRingProof(d *abi.Decoder, pos Header) (e *RingProofEvent, err error) {
	e = &RingProofEvent{Header: pos}
	if e.RingHash, err = d.Word(); err != nil {
		return nil, err
	}
	ring, err := d.DynamicPoints()
	if err != nil {
		return nil, err
	}
	e.Ring = derefPoints(ring)

	keyImage, err := d.Point()
	if err != nil {
		return nil, err
	}
	e.KeyImage.Set(keyImage)
	commitment, err := d.Point()
	if err != nil {
		return nil, err
	}
	e.Commitment.Set(commitment)
	borromean, err := d.Scalar()
	if err != nil {
		return nil, err
	}
	e.Borromean.Set(borromean)

	imageFundProofs, err := d.DynamicScalars()
	if err != nil {
		return nil, err
	}
	e.ImageFundProofs = derefScalars(imageFundProofs)
	commitmentProofs, err := d.DynamicScalars()
	if err != nil {
		return nil, err
	}
	e.CommitmentProofs = derefScalars(commitmentProofs)

	if e.OutputHash, err = d.Word(); err != nil {
		return nil, err
	}
	return e, nil
}

// RangeProofEvent a range proof body submitted for a ring group
type RangeProofEvent struct {
	Header
	RingGroupHash types.Hash
	Proof         borromean.Range
}

func (e *RangeProofEvent) Kind() Kind {
	return KindRangeProof
}

func (e *RangeProofEvent) Values() []abi.Value {
	return append([]abi.Value{abi.Word(e.RingGroupHash)}, e.Proof.Values()...)
}

func parseRangeProof(d *abi.Decoder, pos Header) (e *RangeProofEvent, err error) {
	e = &RangeProofEvent{Header: pos}
	if e.RingGroupHash, err = d.Word(); err != nil {
		return nil, err
	}
	r, err := decodeRange(d)
	if err != nil {
		return nil, err
	}
	e.Proof = *r
	return e, nil
}

// RingGroupDisputedEvent a proof of the ring group was challenged
type RingGroupDisputedEvent struct {
	Header
	Hash      types.Hash
	ProofHash types.Hash
}

func (e *RingGroupDisputedEvent) Kind() Kind {
	return KindRingGroupDisputed
}

func (e *RingGroupDisputedEvent) Values() []abi.Value {
	return []abi.Value{abi.Word(e.Hash), abi.Word(e.ProofHash)}
}

func parseRingGroupDisputed(d *abi.Decoder, pos Header) (e *RingGroupDisputedEvent, err error) {
	e = &RingGroupDisputedEvent{Header: pos}
	if e.Hash, err = d.Word(); err != nil {
		return nil, err
	}
	if e.ProofHash, err = d.Word(); err != nil {
		return nil, err
	}
	return e, nil
}

// DisputeResolvedEvent outcome of a dispute, Valid reports whether the challenged proof held
type DisputeResolvedEvent struct {
	Header
	Hash      types.Hash
	ProofHash types.Hash
	Valid     bool
}

func (e *DisputeResolvedEvent) Kind() Kind {
	return KindDisputeResolved
}

func (e *DisputeResolvedEvent) Values() []abi.Value {
	var valid uint64
	if e.Valid {
		valid = 1
	}
	return []abi.Value{abi.Word(e.Hash), abi.Word(e.ProofHash), abi.Uint(valid)}
}

func parseDisputeResolved(d *abi.Decoder, pos Header) (e *DisputeResolvedEvent, err error) {
	e = &DisputeResolvedEvent{Header: pos}
	if e.Hash, err = d.Word(); err != nil {
		return nil, err
	}
	if e.ProofHash, err = d.Word(); err != nil {
		return nil, err
	}
	valid, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	if valid > 1 {
		return nil, abi.ErrOverflow
	}
	e.Valid = valid == 1
	return e, nil
}

type RingGroupRejectedEvent struct {
	Header
	Hash types.Hash
}

func (e *RingGroupRejectedEvent) Kind() Kind {
	return KindRingGroupRejected
}

func (e *RingGroupRejectedEvent) Values() []abi.Value {
	return []abi.Value{abi.Word(e.Hash)}
}

func parseRingGroupRejected(d *abi.Decoder, pos Header) (e *RingGroupRejectedEvent, err error) {
	e = &RingGroupRejectedEvent{Header: pos}
	if e.Hash, err = d.Word(); err != nil {
		return nil, err
	}
	return e, nil
}

// FreedKeyImageHashesEvent key images released by the ledger after a rejection
type FreedKeyImageHashesEvent struct {
	Header
	KeyImageHashes []types.Hash
}

func (e *FreedKeyImageHashesEvent) Kind() Kind {
	return KindFreedKeyImageHashes
}

func (e *FreedKeyImageHashesEvent) Values() []abi.Value {
	return []abi.Value{abi.DynamicArray(abi.Words(e.KeyImageHashes...)...)}
}

func parseFreedKeyImageHashes(d *abi.Decoder, pos Header) (e *FreedKeyImageHashesEvent, err error) {
	e = &FreedKeyImageHashesEvent{Header: pos}
	if e.KeyImageHashes, err = d.DynamicWords(); err != nil {
		return nil, err
	}
	return e, nil
}

type RingGroupCommittedEvent struct {
	Header
	Hash types.Hash
}

func (e *RingGroupCommittedEvent) Kind() Kind {
	return KindRingGroupCommitted
}

func (e *RingGroupCommittedEvent) Values() []abi.Value {
	return []abi.Value{abi.Word(e.Hash)}
}

func parseRingGroupCommitted(d *abi.Decoder, pos Header) (e *RingGroupCommittedEvent, err error) {
	e = &RingGroupCommittedEvent{Header: pos}
	if e.Hash, err = d.Word(); err != nil {
		return nil, err
	}
	return e, nil
}
