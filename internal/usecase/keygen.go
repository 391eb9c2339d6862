package usecase

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
)

const (
	keyEntropyBytes = 32
	// keyLength is the fixed length of an encoded key: 32 bytes in unpadded base64.
	keyLength    = 43
	keyPrefixLen = 8
)

// GenerateKey returns a fresh URL-safe activation key with 256 bits of entropy.
func GenerateKey() (string, error) {
	buf := make([]byte, keyEntropyBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DigestKey is the only form of a key that is ever stored or compared.
func DigestKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// wellFormedKey rejects input that could never have come from GenerateKey,
// saving a database round trip on typos and junk.
func wellFormedKey(s string) bool {
	if len(s) != keyLength {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

func keyPrefix(plaintext string) string {
	if len(plaintext) < keyPrefixLen {
		return plaintext
	}
	return plaintext[:keyPrefixLen]
}
