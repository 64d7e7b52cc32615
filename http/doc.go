// Package http bridges net/http to the gateway core.
//
// It adapts http.ResponseWriter to the transport message protocol (including
// the zero-copy file path through the writer's ReaderFrom), enforces Basic
// and Digest authentication via middleware, and serves files and filtered
// directory listings from a sandboxed filesystem store.
//
// # Usage
//
//	store, _ := davgate.NewCredentialStore(accounts)
//	authn, _ := auth.New(auth.Config{Realm: "davgate"}, store)
//	sender, _ := response.NewSender(compressionCfg)
//	filter, _ := hidefile.New(hideCfg)
//
//	handler := http.NewHandler(http.HandlerConfig{CORS: corsCfg}, fsStore, authn, sender, filter)
//	httpstd.ListenAndServe(":8080", handler.Router())
//
// Authentication outcomes are attached to the request context; successful
// Digest exchanges carry mutual authentication info that is echoed as an
// Authentication-Info header on the response.
package http
