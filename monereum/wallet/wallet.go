package wallet

import (
	"errors"
	"sync"

	"github.com/cosmos/go-bip39"
	"github.com/dolthub/swiss"
	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/types"
	"github.com/monereum/engine/utils"
)

const (
	streamView   = 1
	streamSpend  = 2
	streamOutput = 3
)

const (
	// tableCacheSize comb tables kept for recipient view keys and generator points
	tableCacheSize     = 64
	generatorCacheSize = 256
)

var (
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	ErrInvalidKey      = errors.New("invalid public key")
)

// NewMnemonic a fresh 24 word BIP-39 mnemonic
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// Wallet deterministic key and output derivation from a single seed. Safe for concurrent use.
type Wallet struct {
	lock sync.RWMutex

	seed    types.Hash
	viewKey bn254.Scalar

	spendStream  *crypto.HashStream
	outputStream *crypto.HashStream

	keys     []*KeyPair
	spendMap *swiss.Map[[bn254.PointSize]byte, *KeyPair]

	tables     *bn254.TableCache
	generators utils.Cache[uint64, *bn254.Point]
}

func NewWallet(mnemonic string) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return NewWalletFromSeed(crypto.Keccak256(mnemonic)), nil
}

// NewWalletFromSeed every key, view key and output of the wallet follows from seed
func NewWalletFromSeed(seed types.Hash) *Wallet {
	w := &Wallet{
		seed:         seed,
		spendStream:  crypto.NewHashStream(seed, streamSpend),
		outputStream: crypto.NewHashStream(seed, streamOutput),
		spendMap:     swiss.NewMap[[bn254.PointSize]byte, *KeyPair](8),
		tables:       bn254.NewTableCache(tableCacheSize, bn254.DefaultCombWidth),
		generators:   utils.NewLRUCache[uint64, *bn254.Point](generatorCacheSize),
	}
	w.viewKey.Set(nextScalar(crypto.NewHashStream(seed, streamView)))
	return w
}

func nextScalar(stream *crypto.HashStream) *bn254.Scalar {
	for {
		if s := bn254.ScalarFromHash(stream.Next()); !s.IsZero() {
			return s
		}
	}
}

// generatorPoint cached GeneratorFromSeed
func (w *Wallet) generatorPoint(seed uint64) *bn254.Point {
	if p, ok := w.generators.Get(seed); ok {
		return p
	}
	p := bn254.GeneratorFromSeed(seed)
	w.generators.Set(seed, p)
	return p
}

// GenerateKey derives the next spend key and binds it to its own generator
func (w *Wallet) GenerateKey() *KeyPair {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.generateKey()
}

func (w *Wallet) generateKey() *KeyPair {
	kp := &KeyPair{}
	kp.SpendKey.Set(nextScalar(w.spendStream))
	kp.ViewKey.Set(&w.viewKey)

	kp.PublicKey.SpendPub.ScalarBaseMult(&kp.SpendKey)
	kp.PublicKey.Generator = GeneratorSeed(&kp.PublicKey.SpendPub)
	kp.PublicKey.ViewPub.ScalarMult(&w.viewKey, w.generatorPoint(kp.PublicKey.Generator))

	w.keys = append(w.keys, kp)
	w.spendMap.Put(SpendID(&kp.PublicKey.SpendPub), kp)
	return kp
}

// MasterKey the first key of the wallet, used for change and fee outputs
func (w *Wallet) MasterKey() *PublicKey {
	w.lock.Lock()
	defer w.lock.Unlock()
	if len(w.keys) == 0 {
		w.generateKey()
	}
	pub := w.keys[0].PublicKey
	return &pub
}

func (w *Wallet) Keys() []PublicKey {
	w.lock.RLock()
	defer w.lock.RUnlock()
	keys := make([]PublicKey, len(w.keys))
	for i, kp := range w.keys {
		keys[i] = kp.PublicKey
	}
	return keys
}

// HasSpend reports whether a spend public key belongs to this wallet
func (w *Wallet) HasSpend(spendPub *bn254.Point) bool {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.spendMap.Has(SpendID(spendPub))
}

// CreateTransaction a hidden output of amount for pub, with an optional message encrypted to the recipient
func (w *Wallet) CreateTransaction(pub *PublicKey, amount uint64, msg []byte) (*Output, error) {
	if len(msg) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}
	return w.createOutput(pub, amount, msg, false)
}

// CreateMint a public output, blinding key zero and the amount in the clear.
// Used for minted funds and the miner fee output.
func (w *Wallet) CreateMint(pub *PublicKey, amount uint64) (*Output, error) {
	return w.createOutput(pub, amount, nil, true)
}

func (w *Wallet) createOutput(pub *PublicKey, amount uint64, msg []byte, public bool) (*Output, error) {
	if !pub.Valid() {
		return nil, ErrInvalidKey
	}

	w.lock.Lock()
	r := nextScalar(w.outputStream)
	w.lock.Unlock()

	out := &Output{}
	w.tables.Mult(&out.Src, r, w.generatorPoint(pub.Generator))

	var shared bn254.Point
	w.tables.Mult(&shared, r, &pub.ViewPub)
	secret := abi.HashToScalar(abi.Point(&shared))

	out.Dest.ScalarBaseMult(secret)
	out.Dest.Affine(out.Dest.Add(&out.Dest, &pub.SpendPub))
	out.ID = OutputID(&out.Dest)

	sender := &SenderData{
		Recipient: *pub,
		Amount:    amount,
		Public:    public,
	}
	sender.Secret.Set(secret)
	sender.OneTimeKey.Set(r)

	if public {
		out.Commitment.Affine(new(bn254.Point).ScalarMultH(bn254.ScalarFromUint64(amount)))
		out.CommitmentAmount.SetUint64(amount)
	} else {
		sender.BlindingKey.Set(abi.HashToScalar(abi.Scalar(secret)))
		out.Commitment.Set(Commit(&sender.BlindingKey, amount))
		out.CommitmentAmount.Set(PublicCommitmentAmount(&sender.BlindingKey, amount))
		if len(msg) > 0 {
			sender.Message = append([]byte(nil), msg...)
			out.Message = sealMessage(secret, msg)
		}
	}

	out.SenderData = sender
	return out, nil
}

// TryDecryptTransaction recovers the owner data of an output addressed to one of the wallet keys.
// Returns false when the output belongs to someone else, which is the common case.
func (w *Wallet) TryDecryptTransaction(out *Output) (*ReceiverData, bool) {
	if out.ReceiverData != nil {
		return out.ReceiverData, true
	}

	var shared, spendPub bn254.Point
	shared.ScalarMult(&w.viewKey, &out.Src)
	secret := abi.HashToScalar(abi.Point(&shared))

	spendPub.ScalarBaseMult(secret)
	spendPub.Affine(spendPub.Subtract(&out.Dest, &spendPub))

	w.lock.RLock()
	kp, ok := w.spendMap.Get(SpendID(&spendPub))
	w.lock.RUnlock()
	if !ok {
		return nil, false
	}

	rd := &ReceiverData{}
	rd.Secret.Set(secret)
	bn254.Order.AddMod(&rd.SpendKey, secret, &kp.SpendKey)

	blinding := abi.HashToScalar(abi.Scalar(secret))
	mask := abi.HashToScalar(abi.Scalar(blinding))

	var amount bn254.Scalar
	bn254.Order.SubMod(&amount, &out.CommitmentAmount, mask)
	if amount.IsUint64() && Commit(blinding, amount.Uint64()).Equal(&out.Commitment) {
		rd.Amount = amount.Uint64()
		rd.BlindingKey.Set(blinding)
	} else if out.CommitmentAmount.IsUint64() && new(bn254.Point).ScalarMultH(&out.CommitmentAmount).Equal(&out.Commitment) {
		rd.Amount = out.CommitmentAmount.Uint64()
		rd.Public = true
	} else {
		if out.SenderData != nil {
			utils.Panicf("wallet: own output %s does not open its commitment", out.ID)
		}
		utils.Errorf("Wallet", "output %s is addressed to us but does not open its commitment", out.ID)
		return nil, false
	}

	if out.SenderData != nil && out.SenderData.Amount != rd.Amount {
		utils.Panicf("wallet: own output %s amount mismatch, %d != %d", out.ID, out.SenderData.Amount, rd.Amount)
	}

	if len(out.Message) > 0 {
		rd.Message = openMessage(secret, out.Message)
	}

	out.ReceiverData = rd
	return rd, true
}

// Receipt proves payment to the recipient, hash(secret + 1). Only the creator can compute it.
func Receipt(out *Output) (types.Hash, bool) {
	if out.SenderData == nil {
		return types.ZeroHash, false
	}
	return receipt(&out.SenderData.Secret), true
}

// IsValidReceipt checks a receipt on an owned output
func IsValidReceipt(out *Output, r types.Hash) bool {
	if out.ReceiverData == nil {
		return false
	}
	return receipt(&out.ReceiverData.Secret) == r
}

func receipt(secret *bn254.Scalar) types.Hash {
	var s bn254.Scalar
	bn254.Order.AddMod(&s, secret, bn254.ScalarFromUint64(1))
	return abi.Hash(abi.Scalar(&s))
}

// KeyImage Hp(dest)·x for an owned output
func KeyImage(out *Output) (*bn254.Point, bool) {
	if out.ReceiverData == nil {
		return nil, false
	}
	return KeyImageOf(&out.Dest, &out.ReceiverData.SpendKey), true
}

func KeyImageOf(dest *bn254.Point, key *bn254.Scalar) *bn254.Point {
	return new(bn254.Point).ScalarMult(key, bn254.HashPoint(dest))
}

// KeyImageHash identifier of a key image on the ledger
func KeyImageHash(image *bn254.Point) types.Hash {
	return abi.Hash(abi.Point(image))
}
