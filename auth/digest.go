package auth

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/synodriver/davgate"
)

// requiredDigestFields are the Authorization parameters a Digest request
// must carry. Verification fails if any of them is absent.
var requiredDigestFields = []string{
	"username", "realm", "nonce", "uri", "response",
	"algorithm", "opaque", "qop", "nc", "cnonce",
}

// Digest implements HTTP Digest authentication (RFC 2617/7616, MD5, qop
// "auth") with stateless nonce verification.
//
// Nonces are derived from fresh randomness and a per-process secret; they
// are never stored, so validity is decided purely by recomputing the digest.
// The consequence is a documented limitation: issued nonces never expire and
// a captured valid response stays replayable until the secret rotates at
// process restart.
type Digest struct {
	realm  string
	secret string
	opaque string
}

// NewDigest creates a Digest authenticator for the realm. An empty secret
// picks a random per-process one.
func NewDigest(realm, secret string) *Digest {
	if secret == "" {
		secret = uuidHex()
	}
	return &Digest{
		realm:  realm,
		secret: secret,
		opaque: strings.ToUpper(uuidHex()),
	}
}

func uuidHex() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// IsCredential reports whether the Authorization header value carries
// Digest credentials.
func (d *Digest) IsCredential(header string) bool {
	return len(header) >= 7 && strings.EqualFold(header[:7], "digest ")
}

// ChallengeString returns the WWW-Authenticate challenge value with a fresh
// nonce. Every call issues a new nonce; none of them is tracked.
func (d *Digest) ChallengeString() string {
	return "Digest " + BuildAuthorizationString([][2]string{
		{"realm", d.realm},
		{"qop", "auth"},
		{"nonce", d.Nonce()},
		{"opaque", d.opaque},
		{"algorithm", "MD5"},
		{"stale", "false"},
	})
}

// Nonce generates a challenge nonce: MD5(random + secret) hex digest.
func (d *Digest) Nonce() string {
	return md5Hex(uuidHex() + d.secret)
}

// HA1HA2 computes the two intermediate Digest hashes:
// HA1 = MD5(username:realm:password), HA2 = MD5(method:uri).
func (d *Digest) HA1HA2(username, password, method, uri string) (string, string) {
	ha1 := md5Hex(strings.Join([]string{username, d.realm, password}, ":"))
	ha2 := md5Hex(strings.Join([]string{method, uri}, ":"))
	return ha1, ha2
}

// RequestDigest recomputes the digest a client must have produced for the
// parsed Authorization fields. With qop "auth" it is
// MD5(HA1:nonce:nc:cnonce:qop:HA2); legacy clients that omit qop use the
// two-component form MD5(HA1:nonce:HA2).
func (d *Digest) RequestDigest(user *davgate.User, method string, fields map[string]string) string {
	ha1, ha2 := d.HA1HA2(user.Username, user.Password, method, fields["uri"])

	if fields["qop"] == "auth" {
		return md5Hex(strings.Join([]string{
			ha1, fields["nonce"], fields["nc"], fields["cnonce"], fields["qop"], ha2,
		}, ":"))
	}

	return md5Hex(strings.Join([]string{ha1, fields["nonce"], ha2}, ":"))
}

// VerifyRequestDigest recomputes the digest and compares it against the
// submitted response in constant time. The protocol only requires an exact
// case-sensitive comparison; the constant-time property is hardening.
func (d *Digest) VerifyRequestDigest(user *davgate.User, method string, fields map[string]string) bool {
	expected := d.RequestDigest(user, method, fields)
	submitted := fields["response"]
	if subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) != 1 {
		slog.Debug("digest mismatch", "expected", expected, "received", submitted)
		return false
	}
	return true
}

// AuthenticationInfo computes the mutual authentication info echoed on the
// eventual success response (RFC 2617 §3.2.3). rspauth reuses the request
// digest formula; qop and nc are serialized unquoted, which is the quoting
// many legacy clients (macOS Finder WebDAVFS among them) expect.
func (d *Digest) AuthenticationInfo(user *davgate.User, method string, fields map[string]string) string {
	ha1, ha2 := d.HA1HA2(user.Username, user.Password, method, fields["uri"])
	rspauth := md5Hex(strings.Join([]string{
		ha1, fields["nonce"], fields["nc"], fields["cnonce"], fields["qop"], ha2,
	}, ":"))

	return fmt.Sprintf("rspauth=%q, cnonce=%q, qop=%s, nc=%s",
		rspauth, fields["cnonce"], fields["qop"], fields["nc"])
}

// missingDigestField returns the name of the first required field absent
// from the parsed Authorization value, or "" when all ten are present.
func missingDigestField(fields map[string]string) string {
	for _, name := range requiredDigestFields {
		if _, ok := fields[name]; !ok {
			return name
		}
	}
	return ""
}

// ParseAuthorizationFields splits a Digest Authorization value (without the
// scheme prefix) into its key/value fields. Fragments are separated by
// commas and split on the first "="; keys and values are trimmed of
// surrounding whitespace and both quote characters independently. A
// fragment with no "=" is logged and skipped, never fatal.
func ParseAuthorizationFields(value string) map[string]string {
	fields := make(map[string]string)
	for _, fragment := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(fragment, "=")
		if !ok {
			slog.Warn("skipping malformed authorization fragment", "fragment", fragment)
			continue
		}
		k = strings.TrimSpace(k)
		k = strings.Trim(k, `"`)
		k = strings.Trim(k, "'")
		v = strings.Trim(v, ` "`)
		v = strings.Trim(v, "'")
		fields[k] = v
	}
	return fields
}

// BuildAuthorizationString serializes ordered key/value pairs as
// k1="v1", k2="v2", ...
func BuildAuthorizationString(pairs [][2]string) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p[0], p[1]))
	}
	return strings.Join(parts, ", ")
}

func md5Hex(data string) string {
	sum := md5.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}
