package auth

import (
	"fmt"
	"strings"

	"github.com/synodriver/davgate"
)

// Basic recognizes and verifies HTTP Basic credentials (RFC 7617).
//
// Verification is a single map lookup: the credential store is keyed by the
// precomputed base64 token, so the header value is never decoded.
type Basic struct {
	realm string
	store *davgate.CredentialStore
}

// NewBasic creates a Basic authenticator over the given credential store.
func NewBasic(realm string, store *davgate.CredentialStore) *Basic {
	return &Basic{realm: realm, store: store}
}

// IsCredential reports whether the Authorization header value carries Basic
// credentials.
func (b *Basic) IsCredential(header string) bool {
	return len(header) >= 6 && strings.EqualFold(header[:6], "basic ")
}

// ChallengeString returns the WWW-Authenticate challenge value.
func (b *Basic) ChallengeString() string {
	return fmt.Sprintf("Basic realm=%q", b.realm)
}

// Verify looks up the user for the header's base64 token. It returns false
// on any miss and never fails in another way.
func (b *Basic) Verify(header string) (*davgate.User, bool) {
	return b.store.FindByBasic(header[6:])
}
