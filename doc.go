// Package davgate provides the authentication and response-delivery core of
// an HTTP/WebDAV gateway.
//
// Davgate verifies HTTP Basic and Digest credentials (RFC 2617/7616),
// issues 401 challenges, and turns in-memory or streamed payloads into
// framed, optionally compressed, optionally zero-copy HTTP responses.
//
// # Key Components
//
//   - CredentialStore: read-only user lookup by username or precomputed
//     Basic credential string, built once from configuration
//   - auth.Authenticator: scheme dispatch (Basic/Digest), challenge
//     negotiation by client user agent, mutual Authentication-Info
//   - response.Sender: compression negotiation (gzip/brotli) and streaming
//     delivery with deferred-header framing and zero-copy file transfer
//   - hidefile.Filter: per-user-agent directory entry hiding for listings
//
// # Example Usage
//
//	store, err := davgate.NewCredentialStore(accounts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	authn, err := auth.New(auth.Config{Realm: "davgate"}, store)
//	result := authn.Authenticate(r.Method, r.Header.Get("Authorization"))
//
// See the http package for the net/http bridge and the cmd/davgate package
// for the server binary.
package davgate
