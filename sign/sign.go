// Package sign implements the Ansybl signature engine: keypair generation,
// deterministic signing over canonical bytes, and verification of untrusted
// input.
//
// Keys and signatures share one string encoding: "<algorithm>:<base64>".
// The Ansybl protocol generation pins ed25519; dilithium3 is registered for
// callers that opt in to post-quantum signatures.
package sign

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"github.com/ansybl/ansybl-go/canonical"
)

// KeyRole distinguishes the two halves of a keypair in format validation.
type KeyRole string

const (
	RolePrivate KeyRole = "private"
	RolePublic  KeyRole = "public"
)

// Supported algorithm tags.
const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// KeyPair holds an encoded private/public pair. The ed25519 private encoding
// is the 32-byte seed, so both roles decode to exactly 32 bytes.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}

// GenerateKeyPair produces a fresh ed25519 keypair from crypto/rand.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("sign: keypair generation failed: %w", err)
	}
	return KeyPair{
		PrivateKey: encodeKey(AlgEd25519, priv.Seed()),
		PublicKey:  encodeKey(AlgEd25519, pub),
	}, nil
}

// GenerateDilithium3KeyPair produces a dilithium3 keypair with the same
// string encoding as ed25519 keys.
func GenerateDilithium3KeyPair() (KeyPair, error) {
	pub, priv, err := mode3.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("sign: dilithium3 keypair generation failed: %w", err)
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return KeyPair{}, fmt.Errorf("sign: dilithium3 private key encoding failed: %w", err)
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return KeyPair{}, fmt.Errorf("sign: dilithium3 public key encoding failed: %w", err)
	}
	return KeyPair{
		PrivateKey: encodeKey(AlgDilithium3, privBytes),
		PublicKey:  encodeKey(AlgDilithium3, pubBytes),
	}, nil
}

func encodeKey(alg string, raw []byte) string {
	return alg + ":" + base64.StdEncoding.EncodeToString(raw)
}

// decodeTagged splits "<alg>:<base64>" and decodes the payload. Standard
// padded base64 is preferred; raw encoding is accepted.
func decodeTagged(s string) (alg string, raw []byte, err error) {
	alg, enc, ok := strings.Cut(s, ":")
	if !ok || alg == "" {
		return "", nil, newError(CodeInvalidPublicKey, "missing algorithm prefix")
	}
	if raw, err = base64.StdEncoding.DecodeString(enc); err == nil {
		return alg, raw, nil
	}
	if raw, err = base64.RawStdEncoding.DecodeString(enc); err == nil {
		return alg, raw, nil
	}
	return "", nil, wrapError(CodeInvalidPublicKey, "invalid base64 payload", err)
}

// ValidateKeyFormat checks the algorithm prefix, base64 well-formedness, and
// exact decoded byte length for the given role.
func ValidateKeyFormat(key string, role KeyRole) error {
	alg, raw, err := decodeTagged(key)
	if err != nil {
		if role == RolePrivate {
			return wrapError(CodeInvalidPrivateKey, "malformed private key", err)
		}
		return err
	}
	var want int
	switch alg {
	case AlgEd25519:
		// Seed for the private role, raw public key for the public role;
		// both are exactly 32 bytes.
		want = ed25519.SeedSize
	case AlgDilithium3:
		if role == RolePrivate {
			want = mode3.PrivateKeySize
		} else {
			want = mode3.PublicKeySize
		}
	default:
		return newError(CodeUnsupportedAlgorithm, fmt.Sprintf("unsupported algorithm %q", alg))
	}
	if len(raw) != want {
		code := CodeInvalidPublicKey
		if role == RolePrivate {
			code = CodeInvalidPrivateKey
		}
		return newError(code, fmt.Sprintf("%s %s key must decode to %d bytes, got %d", alg, role, want, len(raw)))
	}
	return nil
}

// PublicKeyFromPrivate deterministically derives the encoded public key
// matching privateKey.
func PublicKeyFromPrivate(privateKey string) (string, error) {
	alg, raw, err := decodeTagged(privateKey)
	if err != nil {
		return "", wrapError(CodeInvalidPrivateKey, "malformed private key", err)
	}
	switch alg {
	case AlgEd25519:
		if len(raw) != ed25519.SeedSize {
			return "", newError(CodeInvalidPrivateKey, "invalid ed25519 seed length")
		}
		priv := ed25519.NewKeyFromSeed(raw)
		return encodeKey(AlgEd25519, priv.Public().(ed25519.PublicKey)), nil
	case AlgDilithium3:
		var priv mode3.PrivateKey
		if err := priv.UnmarshalBinary(raw); err != nil {
			return "", wrapError(CodeInvalidPrivateKey, "invalid dilithium3 private key", err)
		}
		pubBytes, err := priv.Public().(*mode3.PublicKey).MarshalBinary()
		if err != nil {
			return "", wrapError(CodeInvalidPrivateKey, "dilithium3 public key encoding failed", err)
		}
		return encodeKey(AlgDilithium3, pubBytes), nil
	default:
		return "", newError(CodeUnsupportedAlgorithm, fmt.Sprintf("unsupported algorithm %q", alg))
	}
}

// Sign canonicalizes content and signs the canonical bytes.
//
// Determinism contract: identical (content, key) pairs always yield
// byte-identical signatures, and content differing only in key order yields
// the same signature, because canonicalization precedes signing.
//
// A malformed private key is a hard error: no partial result is meaningful.
func Sign(content any, privateKey string) (string, error) {
	payload, err := canonical.Serialize(content)
	if err != nil {
		return "", wrapError(CodeInvalidPayload, "content has no canonical form", err)
	}
	return SignPayload(payload, privateKey)
}

// SignPayload signs pre-canonicalized bytes, typically the output of
// canonical.SignatureData.
func SignPayload(payload []byte, privateKey string) (string, error) {
	alg, raw, err := decodeTagged(privateKey)
	if err != nil {
		return "", wrapError(CodeInvalidPrivateKey, "malformed private key", err)
	}
	switch alg {
	case AlgEd25519:
		if len(raw) != ed25519.SeedSize {
			return "", newError(CodeInvalidPrivateKey, "invalid ed25519 seed length")
		}
		sig := ed25519.Sign(ed25519.NewKeyFromSeed(raw), payload)
		return encodeKey(AlgEd25519, sig), nil
	case AlgDilithium3:
		var priv mode3.PrivateKey
		if err := priv.UnmarshalBinary(raw); err != nil {
			return "", wrapError(CodeInvalidPrivateKey, "invalid dilithium3 private key", err)
		}
		sig := make([]byte, mode3.SignatureSize)
		mode3.SignTo(&priv, payload, sig)
		return encodeKey(AlgDilithium3, sig), nil
	default:
		return "", newError(CodeUnsupportedAlgorithm, fmt.Sprintf("unsupported algorithm %q", alg))
	}
}

// Verify canonicalizes content and verifies the signature against publicKey.
//
// This path evaluates untrusted input and never panics or returns an error:
// any malformed signature, key, or content resolves to false.
func Verify(content any, signature, publicKey string) bool {
	payload, err := canonical.Serialize(content)
	if err != nil {
		return false
	}
	return VerifyPayload(payload, signature, publicKey)
}

// VerifyPayload verifies a signature over pre-canonicalized bytes. Never
// panics; malformed input resolves to false.
func VerifyPayload(payload []byte, signature, publicKey string) bool {
	sigAlg, sig, err := decodeTagged(signature)
	if err != nil {
		return false
	}
	keyAlg, pub, err := decodeTagged(publicKey)
	if err != nil {
		return false
	}
	if sigAlg != keyAlg {
		return false
	}
	switch sigAlg {
	case AlgEd25519:
		if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pub), payload, sig)
	case AlgDilithium3:
		if len(sig) != mode3.SignatureSize {
			return false
		}
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return false
		}
		return mode3.Verify(&pk, payload, sig)
	default:
		return false
	}
}

// Fingerprint returns a short sha3-256 hex fingerprint of an encoded public
// key, for logs and key metadata.
func Fingerprint(publicKey string) (string, error) {
	if err := ValidateKeyFormat(publicKey, RolePublic); err != nil {
		return "", err
	}
	_, raw, err := decodeTagged(publicKey)
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(raw)
	return hex.EncodeToString(sum[:16]), nil
}
