package tracker

import (
	"encoding/binary"
	"errors"
	"io"
	"slices"

	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/monereum/crypto/ringct"
	"github.com/monereum/engine/monereum/crypto/ringct/borromean"
	"github.com/monereum/engine/monereum/ledger"
	"github.com/monereum/engine/monereum/wallet"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
	"lukechampine.com/uint128"
)

var (
	ErrInsufficientFunds = errors.New("not enough confirmed funds")
	ErrNotEnoughMixers   = errors.New("not enough confirmed outputs to mix with")
	ErrRandom            = errors.New("could not read randomness")
)

func randomIndex(rand io.Reader, n int) (int, error) {
	var buf [8]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return 0, ErrRandom
	}
	return int(binary.LittleEndian.Uint64(buf[:]) % uint64(n)), nil
}

func (t *Tracker) funds() []*OutputRecord {
	funds := make([]*OutputRecord, 0, len(t.owned))
	for _, id := range t.owned {
		r, _ := t.outputs.Get(id)
		if r.Confirmed == 0 || !r.Valid || r.Spent || r.Reserved {
			continue
		}
		funds = append(funds, r)
	}
	return funds
}

// Funds owned outputs that are confirmed, unspent and not reserved, in arrival order
func (t *Tracker) Funds() []*wallet.Output {
	t.lock.RLock()
	defer t.lock.RUnlock()
	funds := t.funds()
	outputs := make([]*wallet.Output, 0, len(funds))
	for _, r := range funds {
		outputs = append(outputs, r.Output)
	}
	return outputs
}

func (t *Tracker) Balance() (balance uint128.Uint128) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	for _, r := range t.funds() {
		balance = balance.Add64(r.Output.ReceiverData.Amount)
	}
	return balance
}

func (t *Tracker) collectAmount(goal uint128.Uint128) (funds []*wallet.Output, total uint128.Uint128) {
	for _, r := range t.funds() {
		if total.Cmp(goal) >= 0 {
			break
		}
		funds = append(funds, r.Output)
		total = total.Add64(r.Output.ReceiverData.Amount)
	}
	if total.Cmp(goal) < 0 {
		return nil, uint128.Zero
	}
	return funds, total
}

// CollectAmount picks funds in arrival order until they cover goal. Returns nil when they cannot.
func (t *Tracker) CollectAmount(goal uint128.Uint128) ([]*wallet.Output, uint128.Uint128) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.collectAmount(goal)
}

func (t *Tracker) mixers(n int, exclude []types.Hash) ([]*wallet.Output, error) {
	candidates := make([]*OutputRecord, 0, t.outputs.Count())
	t.outputs.Iter(func(id types.Hash, r *OutputRecord) bool {
		if r.Confirmed != 0 && r.Valid && !slices.Contains(exclude, id) {
			candidates = append(candidates, r)
		}
		return false
	})
	if len(candidates) < n {
		return nil, ErrNotEnoughMixers
	}
	slices.SortFunc(candidates, func(a, b *OutputRecord) int {
		return a.Output.ID.Compare(b.Output.ID)
	})

	mixers := make([]*wallet.Output, n)
	for i := range n {
		j, err := randomIndex(t.rand, len(candidates)-i)
		if err != nil {
			return nil, err
		}
		j += i
		candidates[i], candidates[j] = candidates[j], candidates[i]
		mixers[i] = candidates[i].Output
	}
	return mixers, nil
}

// Mixers n distinct random confirmed outputs, none of them in exclude
func (t *Tracker) Mixers(n int, exclude ...types.Hash) ([]*wallet.Output, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.mixers(n, exclude)
}

// CreateFullTransaction pays amount to the recipient, with the change back to the wallet master key
// and fee to the miner. Outputs are in random order, every collected fund is spent by its own ring proof.
// Collected funds stay reserved until a ring proof spending them is applied or Release is called.
func (t *Tracker) CreateFullTransaction(to *wallet.PublicKey, amount, fee uint64, msg []byte) (*ledger.FullTransaction, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	goal := uint128.From64(amount).Add64(fee)
	funds, total := t.collectAmount(goal)
	if funds == nil {
		utils.Errorf("Tracker", "Not enough funds for %s plus fee %s", utils.EtherUnits(amount), utils.EtherUnits(fee))
		return nil, ErrInsufficientFunds
	}
	change := total.Sub(goal)
	if change.Hi != 0 {
		utils.Panicf("tracker: change %s does not fit an output", change)
	}

	out, err := t.wallet.CreateTransaction(to, amount, msg)
	if err != nil {
		return nil, err
	}
	changeOut, err := t.wallet.CreateTransaction(t.wallet.MasterKey(), change.Lo, nil)
	if err != nil {
		return nil, err
	}
	outputs := []*wallet.Output{out, changeOut}
	if swap, err := randomIndex(t.rand, 2); err != nil {
		return nil, err
	} else if swap == 1 {
		outputs[0], outputs[1] = outputs[1], outputs[0]
	}

	full := &ledger.FullTransaction{
		Outputs:  outputs,
		MinerFee: fee,
		Messages: wallet.PackMessages(outputs),
	}
	outputHash := full.OutputHash()

	var blinding bn254.Scalar
	for _, o := range outputs {
		bn254.Order.AddMod(&blinding, &blinding, &o.SenderData.BlindingKey)
	}
	blindings, err := ringct.SplitBlinding(&blinding, len(funds), t.rand)
	if err != nil {
		return nil, err
	}

	exclude := make([]types.Hash, 0, len(funds))
	for _, fund := range funds {
		exclude = append(exclude, fund.ID)
	}
	for i, fund := range funds {
		mixers, err := t.mixers(t.config.Mixin-1, exclude)
		if err != nil {
			return nil, err
		}
		p, err := ringct.NewRingProof(fund, mixers, outputHash, blindings[i], t.rand)
		if err != nil {
			return nil, err
		}
		full.RingProofs = append(full.RingProofs, p)
	}

	for _, o := range outputs {
		r, err := borromean.NewRange(o.SenderData.Amount, &o.SenderData.BlindingKey, t.rand)
		if err != nil {
			return nil, err
		}
		full.RangeProofs = append(full.RangeProofs, r)
	}

	for _, fund := range funds {
		if r, ok := t.outputs.Get(fund.ID); ok {
			r.Reserved = true
		}
	}

	utils.Logf("Tracker", "Created transaction of %s spending %d outputs, change %s, fee %s", utils.EtherUnits(amount), len(funds), utils.EtherUnits(change.Lo), utils.EtherUnits(fee))
	return full, nil
}

// Release returns the funds reserved by full, for transactions that will not be submitted.
// Funds already spent on the ledger are left alone.
func (t *Tracker) Release(full *ledger.FullTransaction) {
	t.lock.Lock()
	defer t.lock.Unlock()
	for _, p := range full.RingProofs {
		ki, ok := t.keyImages.Get(p.KeyImageHash())
		if !ok || ki.Owner == types.ZeroHash {
			continue
		}
		if r, ok := t.outputs.Get(ki.Owner); ok && r.Reserved {
			r.Reserved = false
			utils.Logf("Tracker", "Released output %s", ki.Owner)
		}
	}
}
