// Package auth implements HTTP Basic and Digest authentication for the
// gateway: credential verification, 401 challenge negotiation by client
// user agent, and mutual Authentication-Info for Digest exchanges.
//
// Refs:
//   - https://datatracker.ietf.org/doc/html/rfc2617
//   - https://datatracker.ietf.org/doc/html/rfc7616
//   - https://datatracker.ietf.org/doc/html/rfc7617
package auth

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/synodriver/davgate"
	"github.com/synodriver/davgate/response"
)

// DigestConfig controls whether Digest challenges are issued and to whom.
// The rules are regexes matched against the start of the client user-agent
// string; an empty rule never matches.
type DigestConfig struct {
	Enable      bool   `mapstructure:"enable"`
	EnableRule  string `mapstructure:"enable_rule"`
	DisableRule string `mapstructure:"disable_rule"`
}

// Config is the authentication surface of the gateway configuration.
type Config struct {
	Realm  string       `mapstructure:"realm" validate:"required"`
	Digest DigestConfig `mapstructure:"digest"`
}

// Result is the outcome of authenticating one request. Exactly one of User
// or Reason is meaningful: a nil User carries a human-readable failure
// reason consumed only for logging, never exposed verbatim to clients.
type Result struct {
	User   *davgate.User
	Scheme string // "Basic" or "Digest" when a scheme was recognized
	Reason string
	// AuthInfo is the mutual authentication info to echo as an
	// Authentication-Info header on the eventual success response.
	AuthInfo string
}

// OK reports whether a verified user was established.
func (r Result) OK() bool {
	return r.User != nil
}

const message401Template = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8" />
    <title>Error</title>
  </head>
  <body>
    <h1>401 Unauthorized. %s</h1>
  </body>
</html>`

// Authenticator dispatches a request's Authorization header to the Basic or
// Digest scheme and decides which scheme to challenge with on failure. It is
// built once at startup and shared read-only across concurrent requests.
type Authenticator struct {
	basic  *Basic
	digest *Digest
	store  *davgate.CredentialStore

	digestEnabled bool
	enableRule    *regexp.Regexp
	disableRule   *regexp.Regexp
}

// New builds an Authenticator over the credential store.
func New(cfg Config, store *davgate.CredentialStore) (*Authenticator, error) {
	a := &Authenticator{
		basic:         NewBasic(cfg.Realm, store),
		digest:        NewDigest(cfg.Realm, ""),
		store:         store,
		digestEnabled: cfg.Digest.Enable,
	}

	var err error
	if cfg.Digest.EnableRule != "" {
		if a.enableRule, err = regexp.Compile(cfg.Digest.EnableRule); err != nil {
			return nil, fmt.Errorf("compile digest enable rule: %w", err)
		}
	}
	if cfg.Digest.DisableRule != "" {
		if a.disableRule, err = regexp.Compile(cfg.Digest.DisableRule); err != nil {
			return nil, fmt.Errorf("compile digest disable rule: %w", err)
		}
	}

	return a, nil
}

// Authenticate verifies the Authorization header of a request. Failures are
// never errors; every failure path produces a Result with a reason string
// and no user. Wrong password, unknown user, and missing Digest fields all
// collapse to the same reason so clients cannot enumerate accounts.
func (a *Authenticator) Authenticate(method, authorization string) Result {
	if authorization == "" {
		return Result{Reason: "miss header: authorization"}
	}

	if a.basic.IsCredential(authorization) {
		user, ok := a.basic.Verify(authorization)
		if !ok {
			return Result{Scheme: "Basic", Reason: "no permission"}
		}
		return Result{Scheme: "Basic", User: user}
	}

	if a.digest.IsCredential(authorization) {
		fields := ParseAuthorizationFields(authorization[7:])
		if missing := missingDigestField(fields); missing != "" {
			slog.Debug("digest authorization incomplete", "missing", missing)
			return Result{Scheme: "Digest", Reason: "no permission"}
		}

		user, ok := a.store.FindByUsername(fields["username"])
		if !ok {
			return Result{Scheme: "Digest", Reason: "no permission"}
		}

		if !a.digest.VerifyRequestDigest(user, method, fields) {
			return Result{Scheme: "Digest", Reason: "no permission"}
		}

		return Result{
			Scheme:   "Digest",
			User:     user,
			AuthInfo: a.digest.AuthenticationInfo(user, method, fields),
		}
	}

	return Result{Reason: "unknown authentication method"}
}

// ChallengeResponse builds the 401 envelope for a failed request. The
// challenge scheme is picked by matching the client user agent against the
// configured digest rules: with Digest globally enabled, clients matching
// the disable rule get Basic; with Digest disabled, only clients matching
// the enable rule get Digest.
func (a *Authenticator) ChallengeResponse(userAgent, message string) *response.Response {
	var enableDigest bool
	if a.digestEnabled {
		enableDigest = !matchUserAgent(a.disableRule, userAgent)
	} else {
		enableDigest = matchUserAgent(a.enableRule, userAgent)
	}

	var challenge string
	if enableDigest {
		challenge = a.digest.ChallengeString()
		slog.Debug("responding with digest auth challenge")
	} else {
		challenge = a.basic.ChallengeString()
		slog.Debug("responding with basic auth challenge")
	}

	resp := response.New(401)
	resp.Headers.Set("WWW-Authenticate", challenge)
	resp.SetBytes(fmt.Appendf(nil, message401Template, message))
	return resp
}

func matchUserAgent(rule *regexp.Regexp, userAgent string) bool {
	return rule != nil && davgate.MatchPrefix(rule, userAgent)
}
