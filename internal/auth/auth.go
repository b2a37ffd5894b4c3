package auth

// auth.go — autorizaciones firmadas para operaciones que debitan al caller.
//
// El request se hashea como keccak256(typeHash || op || market || amount ||
// nonce || expiry), se envuelve con el prefijo EIP-191 de personal message y
// se firma con la clave secp256k1 del caller. El engine recupera el firmante,
// comprueba que sea el caller y consume el nonce: una autorización capturada
// no se puede reusar.

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var requestTypeHash = crypto.Keccak256Hash([]byte(
	"MarketRequest(string op,bytes32 market,uint64 amount,uint64 nonce,int64 expiry)",
))

// Request es el payload que aprueba una Authorization.
type Request struct {
	Op     string
	Market domain.Key
	Amount uint64
	Nonce  uint64
	Expiry time.Time
}

// Authorization es un Request firmado.
type Authorization struct {
	Signer    domain.Address
	Nonce     uint64
	Expiry    time.Time
	Signature []byte // 65 bytes, V en {27, 28}
}

// Digest devuelve el hash que efectivamente se firma.
func Digest(r Request) common.Hash {
	var buf []byte
	buf = append(buf, requestTypeHash.Bytes()...)
	buf = append(buf, crypto.Keccak256([]byte(r.Op))...)
	buf = append(buf, r.Market[:]...)
	buf = binary.BigEndian.AppendUint64(buf, r.Amount)
	buf = binary.BigEndian.AppendUint64(buf, r.Nonce)
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.Expiry.Unix()))
	structHash := crypto.Keccak256(buf)
	return common.BytesToHash(accounts.TextHash(structHash))
}

// Sign genera una Authorization para r con key.
func Sign(key *ecdsa.PrivateKey, r Request) (Authorization, error) {
	sig, err := crypto.Sign(Digest(r).Bytes(), key)
	if err != nil {
		return Authorization{}, fmt.Errorf("auth.Sign: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return Authorization{
		Signer:    crypto.PubkeyToAddress(key.PublicKey),
		Nonce:     r.Nonce,
		Expiry:    r.Expiry,
		Signature: sig,
	}, nil
}

// Verify comprueba que a.Signer firmó a sobre el request (op, market,
// amount) y que en now no expiró. No consume el nonce: eso lo hace el caller
// dentro de la misma transacción que la operación.
func Verify(a Authorization, op string, market domain.Key, amount uint64, now time.Time) error {
	if len(a.Signature) != crypto.SignatureLength {
		return fmt.Errorf("auth.Verify: signature length %d: %w", len(a.Signature), domain.ErrInvalidSignature)
	}
	if !a.Expiry.IsZero() && now.After(a.Expiry) {
		return fmt.Errorf("auth.Verify: expired at %s: %w", a.Expiry.Format(time.RFC3339), domain.ErrDeadlineExpired)
	}

	sig := make([]byte, len(a.Signature))
	copy(sig, a.Signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	digest := Digest(Request{Op: op, Market: market, Amount: amount, Nonce: a.Nonce, Expiry: a.Expiry})
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("auth.Verify: recover: %v: %w", err, domain.ErrInvalidSignature)
	}
	if got := crypto.PubkeyToAddress(*pub); got != a.Signer {
		return fmt.Errorf("auth.Verify: recovered %s, want %s: %w", got.Hex(), a.Signer.Hex(), domain.ErrInvalidSignature)
	}
	return nil
}

// EncodeSignature devuelve la firma en hex con 0x, como se usa en el CLI.
func EncodeSignature(sig []byte) string {
	return "0x" + hex.EncodeToString(sig)
}

// DecodeSignature parsea una firma hex con prefijo 0x.
func DecodeSignature(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("auth.DecodeSignature: %w", domain.ErrInvalidSignature)
	}
	return b, nil
}

// LoadKey parsea una clave privada hex, con o sin prefijo 0x.
func LoadKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("auth.LoadKey: invalid private key: %w", err)
	}
	return key, nil
}
