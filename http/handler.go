package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/synodriver/davgate"
	"github.com/synodriver/davgate/auth"
	"github.com/synodriver/davgate/filesystem"
	"github.com/synodriver/davgate/hidefile"
	"github.com/synodriver/davgate/response"
)

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	CORS          CORSConfig
	EnableListing bool
}

// Handler serves files and directory listings through the gateway core.
type Handler struct {
	config HandlerConfig
	store  *filesystem.Store
	authn  *auth.Authenticator
	sender *response.Sender
	filter *hidefile.Filter
}

// NewHandler creates a new Handler with the given configuration and
// collaborators. authn may be nil for public access.
func NewHandler(config HandlerConfig, store *filesystem.Store, authn *auth.Authenticator,
	sender *response.Sender, filter *hidefile.Filter) *Handler {
	return &Handler{
		config: config,
		store:  store,
		authn:  authn,
		sender: sender,
		filter: filter,
	}
}

// Router returns an http.Handler with the gateway routes configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.authn, h.sender))
		r.Options("/*", h.handleOptions)
		r.Head("/*", h.handleHead)
		r.Get("/*", h.handleGet)
	})

	return r
}

func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "OPTIONS, HEAD, GET")
	w.Header().Set("DAV", "1")
	w.WriteHeader(http.StatusOK)
}

// requestPath normalizes the URL path for the filesystem store: the root
// maps to ".", everything else must be a valid relative path.
func requestPath(r *http.Request) (string, bool) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		return ".", true
	}
	path = strings.TrimSuffix(path, "/")
	return path, davgate.IsValidPath(path)
}

// checkPermission applies the authenticated user's path permission rules.
// Requests that never went through authentication (public access) pass.
func checkPermission(r *http.Request) error {
	result, ok := AuthResultFromContext(r.Context())
	if !ok || result.User == nil {
		return nil
	}
	path := "/" + strings.TrimPrefix(r.URL.Path, "/")
	if !result.User.CheckPaths([]string{path}) {
		return fmt.Errorf("user %q denied path %q: %w", result.User.Username, path, davgate.ErrUnauthorized)
	}
	return nil
}

func (h *Handler) handleHead(w http.ResponseWriter, r *http.Request) {
	path, valid := requestPath(r)
	if !valid {
		h.sendStatus(w, r, http.StatusBadRequest, "Invalid path")
		return
	}
	if err := checkPermission(r); err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	info, err := h.store.Stat(r.Context(), path)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	if !info.IsDir() {
		w.Header().Set("Content-Type", filesystem.DetectContentType(path))
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	} else {
		w.Header().Set("Content-Type", "text/html")
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	path, valid := requestPath(r)
	if !valid {
		h.sendStatus(w, r, http.StatusBadRequest, "Invalid path")
		return
	}
	if err := checkPermission(r); err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	info, err := h.store.Stat(r.Context(), path)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	if info.IsDir() {
		h.serveListing(w, r, path)
		return
	}
	h.serveFile(w, r, path, info.Size())
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, path string, size int64) {
	f, err := h.store.Open(r.Context(), path)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	status := http.StatusOK
	rangeStart, hasRange := parseRangeStart(r.Header.Get("Range"))
	if hasRange && rangeStart >= size {
		hasRange = false
	}

	var resp *response.Response
	if hasRange {
		status = http.StatusPartialContent
		resp = response.New(status)
		resp.SetFile(f, rangeStart, size-rangeStart)
		resp.SetContentLength(size)
		resp.SetContentRange(rangeStart)
	} else {
		resp = response.New(status)
		resp.SetFile(f, -1, size)
	}
	resp.Headers.Set("Content-Type", filesystem.DetectContentType(path))
	resp.Headers.Set("Accept-Ranges", "bytes")

	h.send(w, r, resp)
}

func (h *Handler) serveListing(w http.ResponseWriter, r *http.Request, path string) {
	if !h.config.EnableListing {
		// Listing disabled: answer with an empty body, as a directory has
		// no byte content of its own.
		resp := response.New(http.StatusOK).SetBytes(nil)
		h.send(w, r, resp)
		return
	}

	entries, err := h.store.ReadDir(r.Context(), path)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	visible := entries[:0]
	for _, e := range entries {
		if h.filter != nil && h.filter.ShouldHide(r.UserAgent(), e.Name) {
			continue
		}
		visible = append(visible, e)
	}

	body, err := renderListing(r.URL.Path, visible)
	if err != nil {
		slog.Error("failed to render listing", "path", path, "err", err)
		h.sendStatus(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.send(w, r, response.New(http.StatusOK).SetBytes(body))
}

// send attaches mutual authentication info from the request context and
// delivers the envelope through the streaming sender.
func (h *Handler) send(w http.ResponseWriter, r *http.Request, resp *response.Response) {
	if result, ok := AuthResultFromContext(r.Context()); ok && result.AuthInfo != "" {
		resp.SetAuthInfo(result.AuthInfo)
	}

	accept := response.ParseAcceptEncoding(r.Header.Get("Accept-Encoding"))
	if err := h.sender.Send(r.Context(), NewResponseWriterSender(w), resp, accept); err != nil {
		slog.Error("failed to send response", "err", err)
	}
}

func (h *Handler) sendStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := response.New(status)
	resp.SetBytes(fmt.Appendf(nil, "<html><body><h1>%d %s</h1></body></html>", status, message))
	h.send(w, r, resp)
}

func (h *Handler) handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, davgate.ErrNotFound) {
		h.sendStatus(w, r, http.StatusNotFound, "Not Found")
		return
	}
	if errors.Is(err, davgate.ErrUnauthorized) {
		slog.Debug("permission denied", "err", err)
		h.sendStatus(w, r, http.StatusForbidden, "Forbidden")
		return
	}
	slog.Error("store error", "err", err)
	h.sendStatus(w, r, http.StatusInternalServerError, "Internal server error")
}

// parseRangeStart reads the open-ended single-range form "bytes=N-". Other
// range forms are served whole with a 200.
func parseRangeStart(value string) (int64, bool) {
	if value == "" || !strings.HasPrefix(value, "bytes=") {
		return 0, false
	}
	spec := strings.TrimPrefix(value, "bytes=")
	if strings.ContainsAny(spec, ",") || !strings.HasSuffix(spec, "-") {
		return 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSuffix(spec, "-"), 10, 64)
	if err != nil || start < 0 {
		return 0, false
	}
	return start, true
}
