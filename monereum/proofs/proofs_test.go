package proofs

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/monereum/wallet"
)

func testOutput(t *testing.T, sender string) (out, received *wallet.Output) {
	t.Helper()
	alice := wallet.NewWalletFromSeed(crypto.Keccak256(sender))
	bob := wallet.NewWalletFromSeed(crypto.Keccak256("bob"))

	out, err := alice.CreateTransaction(bob.MasterKey(), 1234, []byte("invoice 7"))
	if err != nil {
		t.Fatal(err)
	}
	received = out.Public()
	if _, ok := bob.TryDecryptTransaction(received); !ok {
		t.Fatal("recipient could not decrypt output")
	}
	return out, received
}

func TestReceiptProof(t *testing.T) {
	out, received := testOutput(t, "alice")

	proof, err := GetReceiptProof(out)
	if err != nil {
		t.Fatal(err)
	}
	str := proof.String()
	if !strings.HasPrefix(str, "ReceiptV1") {
		t.Fatalf("unexpected prefix in %s", str)
	}

	proof2, err := NewReceiptProofFromString(str)
	if err != nil {
		t.Fatal(err)
	}
	if proof2 != proof {
		t.Fatal("decoded proof differs")
	}
	if !proof2.Verify(received) {
		t.Fatal("proof verification failed")
	}

	if _, err = GetReceiptProof(received); err == nil {
		t.Fatal("receiver produced a receipt")
	}

	proof2.Receipt[0] ^= 1
	if proof2.Verify(received) {
		t.Fatal("tampered receipt verifies")
	}
}

func TestCreationProof(t *testing.T) {
	out, received := testOutput(t, "alice")

	proof, err := GetCreationProof(out, "paid in full", rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	proof2, err := NewCreationProofFromString(proof.String())
	if err != nil {
		t.Fatal(err)
	}
	if proof2 != proof {
		t.Fatal("decoded proof differs")
	}
	if !proof2.Verify(received, "paid in full") {
		t.Fatal("proof verification failed")
	}
	if proof2.Verify(received, "paid in part") {
		t.Fatal("proof verifies under another message")
	}

	other, _ := testOutput(t, "carol")
	if proof2.Verify(other.Public(), "paid in full") {
		t.Fatal("proof verifies for another output")
	}
}

func TestProofStringErrors(t *testing.T) {
	out, _ := testOutput(t, "alice")
	receipt, _ := GetReceiptProof(out)
	str := receipt.String()

	for name, s := range map[string]string{
		"Empty":     "",
		"Prefix":    "SpendV1" + str[len("ReceiptV1"):],
		"Version":   "ReceiptV2" + str[len("ReceiptV1"):],
		"Truncated": str[:len(str)-1],
		"Extended":  str + "1",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := NewReceiptProofFromString(s); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := NewCreationProofFromString(str); err == nil {
		t.Fatal("receipt parsed as a creation proof")
	}
}
