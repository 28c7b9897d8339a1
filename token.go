package identity

import (
	"crypto/rand"
	"encoding/base64"

	goerrors "github.com/goliatone/go-errors"
)

// opaqueTokenBytes is the entropy of generated invitation, session, and
// password reset tokens. 32 bytes keeps tokens comfortably unguessable.
const opaqueTokenBytes = 32

// GenerateToken returns a high-entropy opaque token safe for use in URLs.
func GenerateToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate secure token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustGenerateToken panics when the system entropy source fails. Intended for
// seed and fixture code, never request paths.
func MustGenerateToken() string {
	token, err := GenerateToken()
	if err != nil {
		panic(err)
	}
	return token
}
