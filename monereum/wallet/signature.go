package wallet

import (
	"errors"
	"io"

	"github.com/monereum/engine/monereum/abi"
	"github.com/monereum/engine/monereum/crypto/bn254"
)

var ErrNotCreator = errors.New("output was not created by this wallet")

// Signature Schnorr signature under the one-time key r of an output, Src = generator·r.
// Generator is the recipient generator seed the output was created for.
type Signature struct {
	Challenge bn254.Scalar `json:"challenge"`
	Response  bn254.Scalar `json:"response"`
	Generator uint64       `json:"generator"`
}

func signatureChallenge(r *bn254.Point, msg []byte) *bn254.Scalar {
	return abi.HashToScalar(abi.Point(r), abi.Bytes(msg))
}

// SignCreation proves authorship of an output without revealing any spend key.
// challenge = hash(R, msg), response = k - challenge·r
func SignCreation(out *Output, msg []byte, rand io.Reader) (*Signature, error) {
	if out.SenderData == nil {
		return nil, ErrNotCreator
	}
	k := bn254.RandomScalar(rand)
	if k == nil {
		return nil, errors.New("could not read random scalar")
	}

	gen := bn254.GeneratorFromSeed(out.SenderData.Recipient.Generator)
	var r bn254.Point
	r.ScalarMult(k, gen)

	sig := &Signature{Generator: out.SenderData.Recipient.Generator}
	sig.Challenge.Set(signatureChallenge(&r, msg))

	var t bn254.Scalar
	bn254.Order.MulMod(&t, &sig.Challenge, &out.SenderData.OneTimeKey)
	bn254.Order.SubMod(&sig.Response, k, &t)
	return sig, nil
}

// VerifyCreation recomputes R = Src·challenge + generator·response and the challenge from it
func VerifyCreation(out *Output, msg []byte, sig *Signature) bool {
	if !bn254.Order.IsReduced(&sig.Challenge) || !bn254.Order.IsReduced(&sig.Response) || !out.Src.IsValid() {
		return false
	}
	var r bn254.Point
	r.DoubleScalarMult(&sig.Challenge, &out.Src, &sig.Response, bn254.GeneratorFromSeed(sig.Generator))
	return signatureChallenge(&r, msg).Eq(&sig.Challenge)
}

// WasCreatedBy checks a revealed one-time key against the output source point
func WasCreatedBy(out *Output, recipient *PublicKey, r *bn254.Scalar) bool {
	return new(bn254.Point).ScalarMult(r, bn254.GeneratorFromSeed(recipient.Generator)).Equal(&out.Src)
}
