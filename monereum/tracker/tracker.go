package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/dolthub/swiss"
	"github.com/monereum/engine/monereum/ledger"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
	"golang.org/x/sync/errgroup"
)

var (
	ErrGap          = errors.New("batch does not follow the tracker position")
	ErrInvalidBatch = errors.New("invalid batch range")
)

// Batch every event of the blocks From through To, grouped by kind
type Batch struct {
	From, To uint64
	Events   [ledger.KindCount][]ledger.Event
}

func NewBatch(from, to uint64, events ...ledger.Event) *Batch {
	b := &Batch{From: from, To: to}
	for _, e := range events {
		b.Events[e.Kind()] = append(b.Events[e.Kind()], e)
	}
	return b
}

// Tracker follows ring groups on the ledger from the point of view of one wallet.
// It is a single writer: batches are applied whole, under the lock, in kind order.
type Tracker struct {
	lock sync.RWMutex

	wallet *wallet.Wallet
	config Config
	rand   io.Reader

	// position last applied block
	position uint64

	outputs     *swiss.Map[types.Hash, *OutputRecord]
	ringGroups  *swiss.Map[types.Hash, *RingGroupRecord]
	ringToGroup *swiss.Map[types.Hash, types.Hash]
	keyImages   *swiss.Map[types.Hash, *KeyImageRecord]

	// owned output ids in arrival order
	owned []types.Hash

	// filled while applying ring and range proofs, verified once per batch
	pendingRing  []*RingProofRecord
	pendingRange []pendingRange
	touched      []*RingGroupRecord
}

type pendingRange struct {
	group  *RingGroupRecord
	record *RangeProofRecord
}

func NewTracker(w *wallet.Wallet, config Config, rand io.Reader) (*Tracker, error) {
	if !config.Verify() {
		return nil, ErrInvalidConfig
	}
	t := &Tracker{
		wallet:      w,
		config:      config,
		rand:        rand,
		outputs:     swiss.NewMap[types.Hash, *OutputRecord](256),
		ringGroups:  swiss.NewMap[types.Hash, *RingGroupRecord](64),
		ringToGroup: swiss.NewMap[types.Hash, types.Hash](64),
		keyImages:   swiss.NewMap[types.Hash, *KeyImageRecord](64),
	}
	if config.StartBlock > 0 {
		t.position = config.StartBlock - 1
	}
	// change comes back to the master key, it must be known before syncing
	w.MasterKey()
	return t, nil
}

func (t *Tracker) Config() Config {
	return t.config
}

// Position last applied block
func (t *Tracker) Position() uint64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.position
}

func comparePosition(a, b ledger.Event) int {
	pa, pb := a.Position(), b.Position()
	if pa.Less(pb) {
		return -1
	} else if pb.Less(pa) {
		return 1
	}
	return 0
}

// Apply a batch starting right after the current position. Batches already covered are ignored.
func (t *Tracker) Apply(batch *Batch) error {
	if batch.To < batch.From {
		return ErrInvalidBatch
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if batch.To <= t.position {
		return nil
	}
	if batch.From != t.position+1 {
		return fmt.Errorf("%w: batch starts at %d, position %d", ErrGap, batch.From, t.position)
	}

	utils.Debugf("Tracker", "Applying blocks %d to %d", batch.From, batch.To)
	for kind := range ledger.Kind(ledger.KindCount) {
		events := slices.Clone(batch.Events[kind])
		slices.SortStableFunc(events, comparePosition)
		for _, e := range events {
			t.handle(e)
		}
		switch kind {
		case ledger.KindRingProof:
			t.verifyRingProofs()
		case ledger.KindRangeProof:
			t.verifyRangeProofs()
		}
	}

	t.position = batch.To
	return nil
}

// Sync fetches blocks after the current position up to to, then applies them as one batch.
// Nothing is applied when fetching or parsing fails.
func (t *Tracker) Sync(ctx context.Context, source ledger.EventSource, to uint64) error {
	from := t.Position() + 1
	if to < from {
		return nil
	}

	var raw [ledger.KindCount][]ledger.RawEvent
	eg, egCtx := errgroup.WithContext(ctx)
	for kind := range ledger.Kind(ledger.KindCount) {
		eg.Go(func() error {
			events, err := source.Events(egCtx, kind, from, to)
			if err != nil {
				return fmt.Errorf("fetching %s events: %w", kind, err)
			}
			raw[kind] = events
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	batch := &Batch{From: from, To: to}
	for kind := range raw {
		for _, r := range raw[kind] {
			e, err := ledger.ParseEvent(r)
			if err != nil {
				return err
			}
			batch.Events[kind] = append(batch.Events[kind], e)
		}
	}
	return t.Apply(batch)
}

// SyncLatest syncs up to the source height
func (t *Tracker) SyncLatest(ctx context.Context, source ledger.EventSource) error {
	height, err := source.Height(ctx)
	if err != nil {
		return err
	}
	return t.Sync(ctx, source, height)
}

// Run applies batches in arrival order until the channel is closed or ctx is done
func (t *Tracker) Run(ctx context.Context, batches <-chan *Batch) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-batches:
			if !ok {
				return nil
			}
			if err := t.Apply(b); err != nil {
				return err
			}
		}
	}
}

func (t *Tracker) Status(ringGroupHash types.Hash) Status {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if g, ok := t.ringGroups.Get(ringGroupHash); ok {
		return g.Status
	}
	return StatusUnknown
}

func (t *Tracker) Output(id types.Hash) (OutputRecord, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if r, ok := t.outputs.Get(id); ok {
		return *r, true
	}
	return OutputRecord{}, false
}

func (t *Tracker) RingGroup(hash types.Hash) (RingGroupRecord, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if g, ok := t.ringGroups.Get(hash); ok {
		return g.clone(), true
	}
	return RingGroupRecord{}, false
}

func (t *Tracker) KeyImage(hash types.Hash) (KeyImageRecord, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if ki, ok := t.keyImages.Get(hash); ok {
		r := *ki
		r.RingGroups = slices.Clone(ki.RingGroups)
		return r, true
	}
	return KeyImageRecord{}, false
}
