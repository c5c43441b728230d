package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// VerifierLength is the number of characters in a generated code verifier.
const VerifierLength = 128

const verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateVerifier produces a random string of length characters drawn
// uniformly from [A-Za-z0-9] using a cryptographically secure source.
//
// Rejection sampling keeps the draw uniform: 248 is the largest multiple of
// len(verifierAlphabet) below 256, so bytes at or above it are discarded.
func GenerateVerifier(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("verifier length must be positive, got %d", length)
	}

	const limit = 248 // 4 * 62
	out := make([]byte, 0, length)
	buf := make([]byte, length)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("secure random source unavailable: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, verifierAlphabet[int(b)%len(verifierAlphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// DeriveChallenge computes the S256 code challenge for a verifier: SHA-256
// over the verifier's bytes, encoded as unpadded URL-safe Base64.
//
// Deterministic for a given verifier.
func DeriveChallenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}
