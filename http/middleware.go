package http

import (
	"log/slog"
	"net/http"

	"github.com/synodriver/davgate/auth"
	"github.com/synodriver/davgate/response"
)

// AuthMiddleware creates middleware that enforces Basic/Digest
// authentication. Failed requests receive a 401 with the challenge scheme
// negotiated from the client user agent; the challenge body is delivered
// through the response sender so compression negotiation applies to error
// bodies too. Pass a nil authenticator to disable authentication (public
// access).
func AuthMiddleware(authn *auth.Authenticator, sender *response.Sender) func(http.Handler) http.Handler {
	if authn == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := authn.Authenticate(r.Method, r.Header.Get("Authorization"))
			if !result.OK() {
				slog.Debug("authentication failed",
					"reason", result.Reason,
					"scheme", result.Scheme,
					"user_agent", r.UserAgent())

				resp := authn.ChallengeResponse(r.UserAgent(), result.Reason)
				accept := response.ParseAcceptEncoding(r.Header.Get("Accept-Encoding"))
				if err := sender.Send(r.Context(), NewResponseWriterSender(w), resp, accept); err != nil {
					slog.Error("failed to send challenge response", "err", err)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), result)))
		})
	}
}
