package response

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/synodriver/davgate/transport"
)

// Sender frames and delivers response envelopes through a transport. It is
// built once from the compression configuration and shared read-only across
// concurrent requests.
type Sender struct {
	cfg       CompressionConfig
	minLength int64
	userRule  *regexp.Regexp
}

// NewSender compiles the compression configuration into a Sender.
func NewSender(cfg CompressionConfig) (*Sender, error) {
	s := &Sender{cfg: cfg, minLength: cfg.MinLength}
	if s.minLength <= 0 {
		s.minLength = defaultMinLength
	}
	if cfg.UserContentTypeRule != "" {
		re, err := regexp.Compile(cfg.UserContentTypeRule)
		if err != nil {
			return nil, fmt.Errorf("compile content type rule %q: %w", cfg.UserContentTypeRule, err)
		}
		s.userRule = re
	}
	return s, nil
}

// Send delivers the response in one call: it negotiates the compression
// method from the envelope and the client's acceptance, then dispatches to
// the direct, compressed, or zero-copy strategy. Ranged responses are never
// compressed. The Authentication-Info header, when present on the envelope,
// is attached before the header frame goes out.
func (s *Sender) Send(ctx context.Context, t transport.Sender, resp *Response, accept AcceptEncoding) error {
	if resp.authInfo != "" {
		resp.Headers.Set("Authentication-Info", resp.authInfo)
	}

	method := MethodNone
	if !resp.HasContentRange() {
		contentType, _ := resp.Headers.Get("Content-Type")
		method = s.SelectMethod(contentType, resp.contentLength, accept)
	}

	slog.Debug("sending response",
		"status", resp.Status,
		"length", resp.contentLength,
		"compression", method.String())

	if method == MethodNone {
		return s.sendDirect(ctx, t, resp)
	}
	return s.sendCompressed(ctx, t, resp, method)
}

// sendDirect transmits the payload unmodified: one header frame with a
// Content-Length when the length is known, then body chunks in their
// original boundaries. File payloads are delegated to the transport's
// zero-copy capability when it has one.
func (s *Sender) sendDirect(ctx context.Context, t transport.Sender, resp *Response) error {
	if resp.contentLength != LengthUnknown {
		resp.Headers.Set("Content-Length", strconv.FormatInt(resp.contentLength, 10))
	}

	if resp.kind == contentFile {
		if fs, ok := t.(transport.FileSender); ok {
			return s.sendFileRegion(ctx, fs, resp)
		}
		// No zero-copy capability: fall through to manual chunked reads.
	}

	if err := t.SendResponseStart(ctx, transport.ResponseStart{
		Status:  resp.Status,
		Headers: resp.Headers.Items(),
	}); err != nil {
		return err
	}

	src := resp.source()
	for {
		chunk, more, err := src.Next(ctx)
		if err != nil {
			return err
		}
		if err := t.SendBodyChunk(ctx, transport.BodyChunk{Body: chunk, MoreBody: more}); err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func (s *Sender) sendFileRegion(ctx context.Context, t transport.FileSender, resp *Response) error {
	if err := t.SendResponseStart(ctx, transport.ResponseStart{
		Status:  resp.Status,
		Headers: resp.Headers.Items(),
	}); err != nil {
		return err
	}
	return t.SendFileRegion(ctx, transport.FileRegion{
		File:     resp.file.File,
		Offset:   resp.file.Offset,
		Count:    resp.file.Count,
		MoreBody: false,
	})
}

// sendCompressed streams the payload through a codec. The header frame is
// deferred until the first output chunk is ready: if the first chunk is also
// the last, the compressed length is known and declared; otherwise
// Content-Length is dropped and the response is framed without a declared
// length.
func (s *Sender) sendCompressed(ctx context.Context, t transport.Sender, resp *Response, method Method) error {
	c, err := newCodec(method, s.cfg.Level)
	if err != nil {
		return err
	}
	resp.Headers.Set("Content-Encoding", c.name)

	src := resp.source()
	first := true
	for {
		chunk, more, err := src.Next(ctx)
		if err != nil {
			return err
		}

		if err := c.write(chunk); err != nil {
			return fmt.Errorf("compress chunk: %w", err)
		}
		if !more {
			if err := c.close(); err != nil {
				return fmt.Errorf("finish compression: %w", err)
			}
		}
		out := c.take()

		if first {
			first = false
			if more {
				resp.Headers.Del("Content-Length")
			} else {
				resp.Headers.Set("Content-Length", strconv.Itoa(len(out)))
			}
			if err := t.SendResponseStart(ctx, transport.ResponseStart{
				Status:  resp.Status,
				Headers: resp.Headers.Items(),
			}); err != nil {
				return err
			}
		}

		if err := t.SendBodyChunk(ctx, transport.BodyChunk{Body: out, MoreBody: more}); err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}
