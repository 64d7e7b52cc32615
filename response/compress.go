package response

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/synodriver/davgate"
)

// Method is the compression method selected for one response. It is decided
// once, before any byte is sent, and cannot change mid-stream.
type Method int

const (
	MethodNone Method = iota
	MethodGzip
	MethodBrotli
)

func (m Method) String() string {
	switch m {
	case MethodGzip:
		return "gzip"
	case MethodBrotli:
		return "br"
	default:
		return "none"
	}
}

// Compression levels. The zero value is LevelDefault.
const (
	LevelDefault = "default"
	LevelFast    = "fast"
	LevelBest    = "best"
)

// defaultMinLength is the payload size below which compression overhead is
// not worth it and responses are sent direct.
const defaultMinLength = 1000

// defaultContentTypeRule matches content types that are worth compressing.
var defaultContentTypeRule = regexp.MustCompile(`^text/|^application/(json|javascript|xml)`)

// CompressionConfig is the compression surface of the gateway configuration.
type CompressionConfig struct {
	EnableGzip          bool   `mapstructure:"enable_gzip"`
	EnableBrotli        bool   `mapstructure:"enable_brotli"`
	Level               string `mapstructure:"level" validate:"omitempty,oneof=fast default best"`
	UserContentTypeRule string `mapstructure:"user_content_type_rule"`
	MinLength           int64  `mapstructure:"min_length" validate:"min=0"`
}

// AcceptEncoding is the client's declared codec acceptance.
type AcceptEncoding struct {
	Gzip   bool
	Brotli bool
}

// ParseAcceptEncoding reads an Accept-Encoding header value. Quality values
// are honored only as far as "q=0" disabling a codec.
func ParseAcceptEncoding(value string) AcceptEncoding {
	var accept AcceptEncoding
	for _, part := range strings.Split(value, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.Contains(params, "q=0") && !strings.Contains(params, "q=0.") {
			continue
		}
		switch strings.TrimSpace(name) {
		case "gzip", "x-gzip":
			accept.Gzip = true
		case "br":
			accept.Brotli = true
		}
	}
	return accept
}

// SelectMethod decides whether and how a response body is compressed. The
// decision is a pure function of its inputs: a payload with a known length
// below the minimum threshold is never compressed, and only content types
// matching the built-in rule or the configured user rule are candidates.
// Brotli is preferred over gzip when both are enabled and accepted.
func (s *Sender) SelectMethod(contentType string, contentLength int64, accept AcceptEncoding) Method {
	if contentLength != LengthUnknown && contentLength < s.minLength {
		return MethodNone
	}

	compressible := defaultContentTypeRule.MatchString(contentType) ||
		(s.userRule != nil && davgate.MatchPrefix(s.userRule, contentType))
	if !compressible {
		return MethodNone
	}

	if s.cfg.EnableBrotli && accept.Brotli {
		return MethodBrotli
	}
	if s.cfg.EnableGzip && accept.Gzip {
		return MethodGzip
	}
	return MethodNone
}

// codec is an incremental compressor writing into an in-memory buffer.
// Output produced so far is drained with take; Close flushes the trailing
// frame of the format.
type codec struct {
	name string
	buf  *bytes.Buffer
	w    io.WriteCloser
}

func newCodec(method Method, level string) (*codec, error) {
	buf := &bytes.Buffer{}
	switch method {
	case MethodGzip:
		w, err := gzip.NewWriterLevel(buf, gzipLevel(level))
		if err != nil {
			return nil, fmt.Errorf("init gzip writer: %w", err)
		}
		return &codec{name: "gzip", buf: buf, w: w}, nil
	case MethodBrotli:
		return &codec{
			name: "br",
			buf:  buf,
			w:    brotli.NewWriterLevel(buf, brotliLevel(level)),
		}, nil
	default:
		return nil, fmt.Errorf("no codec for method %v", method)
	}
}

func (c *codec) write(p []byte) error {
	_, err := c.w.Write(p)
	return err
}

func (c *codec) close() error {
	return c.w.Close()
}

// take returns the output produced so far and resets the buffer.
func (c *codec) take() []byte {
	out := append([]byte(nil), c.buf.Bytes()...)
	c.buf.Reset()
	return out
}

func gzipLevel(level string) int {
	switch level {
	case LevelFast:
		return 1
	case LevelBest:
		return 9
	default:
		return 4
	}
}

func brotliLevel(level string) int {
	switch level {
	case LevelFast:
		return 1
	case LevelBest:
		return 11
	default:
		return 4
	}
}
