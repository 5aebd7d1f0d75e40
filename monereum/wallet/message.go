package wallet

import (
	"encoding/binary"
	"errors"

	"github.com/monereum/engine/monereum/crypto"
	"github.com/monereum/engine/monereum/crypto/bn254"
	"github.com/monereum/engine/utils"
	"golang.org/x/crypto/chacha20"
)

// MaxMessageSize per output
const MaxMessageSize = 1 << 12

var ErrMessageTooLarge = errors.New("message too large")

// messageCipher chacha20 keyed by keccak("message" ‖ secret), nonce from keccak("nonce" ‖ secret)
func messageCipher(secret *bn254.Scalar) *chacha20.Cipher {
	secretBytes := bn254.ScalarBytes(secret)
	key := crypto.Keccak256Var([]byte("message"), secretBytes[:])
	nonce := crypto.Keccak256Var([]byte("nonce"), secretBytes[:])
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:chacha20.NonceSize])
	if err != nil {
		utils.Panicf("wallet: message cipher: %s", err)
	}
	return c
}

// sealMessage and openMessage are the same keystream xor
func sealMessage(secret *bn254.Scalar, msg []byte) []byte {
	if len(msg) == 0 {
		return nil
	}
	out := make([]byte, len(msg))
	messageCipher(secret).XORKeyStream(out, msg)
	return out
}

func openMessage(secret *bn254.Scalar, ciphertext []byte) []byte {
	return sealMessage(secret, ciphertext)
}

// OpenMessage decrypts a ciphertext delivered separately from the output, such as with its ring group.
// Returns nil if the output is not owned.
func (o *Output) OpenMessage(ciphertext []byte) []byte {
	if o.ReceiverData == nil {
		return nil
	}
	o.Message = append(o.Message[:0], ciphertext...)
	o.ReceiverData.Message = openMessage(&o.ReceiverData.Secret, ciphertext)
	return o.ReceiverData.Message
}

// PackMessages joins per-output ciphertexts as uint16 length ‖ data, in output order
func PackMessages(outputs []*Output) []byte {
	var buf []byte
	for _, o := range outputs {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(o.Message)))
		buf = append(buf, o.Message...)
	}
	return buf
}

// UnpackMessages splits a packed message blob into at most n ciphertexts.
// Missing trailing entries are returned empty, as fee outputs carry no message.
func UnpackMessages(buf []byte, n int) ([][]byte, error) {
	messages := make([][]byte, n)
	for i := 0; i < n && len(buf) > 0; i++ {
		if len(buf) < 2 {
			return nil, errors.New("truncated message length")
		}
		size := int(binary.BigEndian.Uint16(buf))
		buf = buf[2:]
		if size > len(buf) {
			return nil, errors.New("truncated message")
		}
		if size > 0 {
			messages[i] = buf[:size:size]
		}
		buf = buf[size:]
	}
	if len(buf) != 0 {
		return nil, errors.New("trailing message data")
	}
	return messages, nil
}
