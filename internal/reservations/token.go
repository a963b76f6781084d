package reservations

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const claimTokenBytes = 32

// NewClaimToken mints an opaque capability token plus the hash stored with
// the item. Only the hash is persisted; the token itself goes to the guest
// and is the sole proof accepted on unreserve.
func NewClaimToken() (token string, hash string, err error) {
	buf := make([]byte, claimTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating claim token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, HashClaimToken(token), nil
}

// HashClaimToken derives the stored form of a claim token.
func HashClaimToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenMatchesHash compares in constant time.
func TokenMatchesHash(token, hash string) bool {
	computed := HashClaimToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
