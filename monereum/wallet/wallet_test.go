package wallet

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/utils"
	"github.com/stretchr/testify/require"
)

func testWallet(name string) *Wallet {
	return NewWalletFromSeed(crypto.Keccak256(name))
}

func TestMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic()
	require.NoError(t, err)
	require.Len(t, strings.Fields(mnemonic), 24)

	a, err := NewWallet(mnemonic)
	require.NoError(t, err)
	b, err := NewWallet(mnemonic)
	require.NoError(t, err)
	require.True(t, a.GenerateKey().PublicKey.Equal(&b.GenerateKey().PublicKey))

	_, err = NewWallet("definitely not a valid mnemonic")
	require.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestKeys(t *testing.T) {
	w := testWallet("keys")
	first := w.GenerateKey()
	second := w.GenerateKey()

	require.True(t, first.PublicKey.Valid())
	require.True(t, second.PublicKey.Valid())
	require.False(t, first.PublicKey.SpendPub.Equal(&second.PublicKey.SpendPub))
	require.NotEqual(t, first.PublicKey.Generator, second.PublicKey.Generator)
	require.True(t, first.ViewKey.Eq(&second.ViewKey), "view key is shared")
	require.False(t, first.PublicKey.ViewPub.Equal(&second.PublicKey.ViewPub), "view pub is bound to the key generator")

	require.True(t, w.HasSpend(&first.PublicKey.SpendPub))
	require.False(t, w.HasSpend(bn254.Generator()))
	require.Len(t, w.Keys(), 2)
	require.True(t, w.MasterKey().Equal(&first.PublicKey))
}

func TestAddress(t *testing.T) {
	pub := testWallet("address").GenerateKey().PublicKey

	parsed := FromBase58(pub.String())
	require.NotNil(t, parsed)
	require.True(t, parsed.Equal(&pub))

	s := []byte(pub.String())
	if s[10] == '1' {
		s[10] = '2'
	} else {
		s[10] = '1'
	}
	require.Nil(t, FromBase58(string(s)))
	require.Nil(t, FromBase58("short"))

	buf, err := utils.MarshalJSON(&pub)
	require.NoError(t, err)
	var decoded PublicKey
	require.NoError(t, utils.UnmarshalJSON(buf, &decoded))
	require.True(t, decoded.Equal(&pub))
}

func TestStealthTransaction(t *testing.T) {
	alice := testWallet("alice")
	bob := testWallet("bob")
	carol := testWallet("carol")
	bob.GenerateKey()
	bobKey := bob.GenerateKey()
	carol.GenerateKey()

	msg := []byte("thanks for the coffee")
	out, err := alice.CreateTransaction(&bobKey.PublicKey, 1234, msg)
	require.NoError(t, err)
	require.True(t, out.Verify())
	require.NotEqual(t, msg, []byte(out.Message))

	_, ok := carol.TryDecryptTransaction(out.Public())
	require.False(t, ok)
	_, ok = alice.TryDecryptTransaction(out.Public())
	require.False(t, ok)

	received := out.Public()
	rd, ok := bob.TryDecryptTransaction(received)
	require.True(t, ok)
	require.EqualValues(t, 1234, rd.Amount)
	require.False(t, rd.Public)
	require.Equal(t, msg, rd.Message)
	require.True(t, rd.Secret.Eq(&out.SenderData.Secret))
	require.True(t, rd.BlindingKey.Eq(&out.SenderData.BlindingKey))

	// one-time key opens the destination
	require.True(t, new(bn254.Point).ScalarBaseMult(&rd.SpendKey).Equal(&received.Dest))
	require.True(t, Commit(&rd.BlindingKey, rd.Amount).Equal(&received.Commitment))

	// cached on second call
	again, ok := bob.TryDecryptTransaction(received)
	require.True(t, ok)
	require.Same(t, rd, again)

	// sender can decrypt own record only if addressed to itself
	self, err := bob.CreateTransaction(&bobKey.PublicKey, 5, nil)
	require.NoError(t, err)
	rd, ok = bob.TryDecryptTransaction(self)
	require.True(t, ok)
	require.EqualValues(t, 5, rd.Amount)
	require.Nil(t, rd.Message)
}

func TestTamperedCommitment(t *testing.T) {
	alice := testWallet("alice")
	bob := testWallet("bob")
	key := bob.GenerateKey()

	out, err := alice.CreateTransaction(&key.PublicKey, 10, nil)
	require.NoError(t, err)
	tampered := out.Public()
	tampered.Commitment.Set(Commit(&out.SenderData.BlindingKey, 11))

	_, ok := bob.TryDecryptTransaction(tampered)
	require.False(t, ok)
}

func TestMint(t *testing.T) {
	miner := testWallet("miner")
	bob := testWallet("bob")
	key := bob.GenerateKey()

	out, err := miner.CreateMint(&key.PublicKey, 1<<40)
	require.NoError(t, err)
	require.True(t, out.CommitmentAmount.Eq(bn254.ScalarFromUint64(1<<40)))
	require.True(t, out.SenderData.BlindingKey.IsZero())

	rd, ok := bob.TryDecryptTransaction(out.Public())
	require.True(t, ok)
	require.True(t, rd.Public)
	require.EqualValues(t, uint64(1<<40), rd.Amount)
	require.True(t, rd.BlindingKey.IsZero())
}

func TestDeterministicOutputs(t *testing.T) {
	a := testWallet("same seed")
	b := testWallet("same seed")
	recipient := testWallet("recipient").GenerateKey().PublicKey

	outA, err := a.CreateTransaction(&recipient, 7, nil)
	require.NoError(t, err)
	outB, err := b.CreateTransaction(&recipient, 7, nil)
	require.NoError(t, err)
	require.Equal(t, outA.ID, outB.ID)

	next, err := a.CreateTransaction(&recipient, 7, nil)
	require.NoError(t, err)
	require.NotEqual(t, outA.ID, next.ID)
}

func TestReceipt(t *testing.T) {
	alice := testWallet("alice")
	bob := testWallet("bob")
	key := bob.GenerateKey()

	out, err := alice.CreateTransaction(&key.PublicKey, 99, nil)
	require.NoError(t, err)

	receipt, ok := Receipt(out)
	require.True(t, ok)

	received := out.Public()
	_, ok = Receipt(received)
	require.False(t, ok)
	require.False(t, IsValidReceipt(received, receipt), "not yet decrypted")

	_, ok = bob.TryDecryptTransaction(received)
	require.True(t, ok)
	require.True(t, IsValidReceipt(received, receipt))
	receipt[0] ^= 1
	require.False(t, IsValidReceipt(received, receipt))
}

func TestCreationSignature(t *testing.T) {
	alice := testWallet("alice")
	key := testWallet("bob").GenerateKey()

	out, err := alice.CreateTransaction(&key.PublicKey, 42, nil)
	require.NoError(t, err)

	msg := []byte("invoice #7")
	sig, err := SignCreation(out, msg, rand.Reader)
	require.NoError(t, err)
	require.True(t, VerifyCreation(out.Public(), msg, sig))
	require.False(t, VerifyCreation(out.Public(), []byte("invoice #8"), sig))

	bad := *sig
	bn254.Order.AddMod(&bad.Response, &bad.Response, bn254.ScalarFromUint64(1))
	require.False(t, VerifyCreation(out.Public(), msg, &bad))

	_, err = SignCreation(out.Public(), msg, rand.Reader)
	require.ErrorIs(t, err, ErrNotCreator)

	require.True(t, WasCreatedBy(out, &key.PublicKey, &out.SenderData.OneTimeKey))
	require.False(t, WasCreatedBy(out, &key.PublicKey, bn254.ScalarFromUint64(3)))
}

func TestKeyImage(t *testing.T) {
	alice := testWallet("alice")
	bob := testWallet("bob")
	key := bob.GenerateKey()

	out, err := alice.CreateTransaction(&key.PublicKey, 1, nil)
	require.NoError(t, err)
	received := out.Public()

	_, ok := KeyImage(received)
	require.False(t, ok)

	_, ok = bob.TryDecryptTransaction(received)
	require.True(t, ok)
	image, ok := KeyImage(received)
	require.True(t, ok)
	require.True(t, image.IsValid())

	again, _ := KeyImage(received)
	require.Equal(t, KeyImageHash(image), KeyImageHash(again))

	other, err := alice.CreateTransaction(&key.PublicKey, 1, nil)
	require.NoError(t, err)
	_, ok = bob.TryDecryptTransaction(other)
	require.True(t, ok)
	otherImage, _ := KeyImage(other)
	require.NotEqual(t, KeyImageHash(image), KeyImageHash(otherImage))
}

func TestMessageCipher(t *testing.T) {
	msg := []byte("payment for invoice 7")
	secrets := []*bn254.Scalar{bn254.ScalarFromUint64(0), bn254.ScalarFromUint64(1), bn254.RandomScalar(rand.Reader)}
	sealed := make([][]byte, 0, len(secrets))
	for _, secret := range secrets {
		require.NotPanics(t, func() {
			ciphertext := sealMessage(secret, msg)
			require.Len(t, ciphertext, len(msg))
			require.Equal(t, msg, openMessage(secret, ciphertext))
			sealed = append(sealed, ciphertext)
		})
	}
	require.NotEqual(t, sealed[0], sealed[1])
	require.NotEqual(t, sealed[1], sealed[2])
}

func TestPackMessages(t *testing.T) {
	outputs := []*Output{
		{Message: []byte("first")},
		{},
		{Message: []byte("third message")},
	}
	packed := PackMessages(outputs)

	messages, err := UnpackMessages(packed, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), messages[0])
	require.Nil(t, messages[1])
	require.Equal(t, []byte("third message"), messages[2])
	require.Nil(t, messages[3])

	_, err = UnpackMessages(packed[:len(packed)-1], 3)
	require.Error(t, err)
	_, err = UnpackMessages(packed, 2)
	require.Error(t, err)
}

func TestOutputJSON(t *testing.T) {
	key := testWallet("bob").GenerateKey()
	out, err := testWallet("alice").CreateTransaction(&key.PublicKey, 3, []byte("hi"))
	require.NoError(t, err)

	buf, err := utils.MarshalJSON(out)
	require.NoError(t, err)
	require.NotContains(t, string(buf), "SenderData")

	var decoded Output
	require.NoError(t, utils.UnmarshalJSON(buf, &decoded))
	require.Equal(t, out.ID, decoded.ID)
	require.True(t, decoded.Verify())
	require.True(t, decoded.CommitmentAmount.Eq(&out.CommitmentAmount))
	require.Equal(t, []byte(out.Message), []byte(decoded.Message))
}
