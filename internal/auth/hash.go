package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argonParams fixes the Argon2id cost for API key hashing. The cost is not
// encoded alongside the stored hash, so these values are frozen: changing
// them would orphan every key already issued.
type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

// apiKeyParams follows the OWASP Argon2id baseline: 64 MiB, one pass,
// four lanes.
var apiKeyParams = argonParams{
	time:    1,
	memory:  64 * 1024,
	threads: 4,
	keyLen:  32,
	saltLen: 16,
}

func (p argonParams) derive(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, p.time, p.memory, p.threads, p.keyLen)
}

// HashAPIKey derives an Argon2id hash for an API key and encodes it as
// base64(salt)$base64(key) for storage on the user row.
func HashAPIKey(apiKey string) (string, error) {
	salt := make([]byte, apiKeyParams.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	key := apiKeyParams.derive([]byte(apiKey), salt)
	return base64.StdEncoding.EncodeToString(salt) + "$" + base64.StdEncoding.EncodeToString(key), nil
}

// VerifyAPIKey re-derives the hash from the presented key and the stored
// salt and compares in constant time.
func VerifyAPIKey(apiKey, encoded string) (bool, error) {
	saltPart, keyPart, ok := strings.Cut(encoded, "$")
	if !ok {
		return false, fmt.Errorf("auth: malformed api key hash")
	}

	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil {
		return false, fmt.Errorf("auth: decode salt: %w", err)
	}
	want, err := base64.StdEncoding.DecodeString(keyPart)
	if err != nil {
		return false, fmt.Errorf("auth: decode key hash: %w", err)
	}

	got := apiKeyParams.derive([]byte(apiKey), salt)
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// DummyVerify burns one Argon2id derivation at the verification cost.
// Failure paths that never reached a stored hash call it so a rejected
// unknown email takes as long as a rejected bad key.
func DummyVerify() {
	apiKeyParams.derive([]byte("heroarc-dummy"), make([]byte, apiKeyParams.saltLen))
}
