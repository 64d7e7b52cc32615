package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/synodriver/davgate/transport"
)

// ResponseWriterSender adapts an http.ResponseWriter to the transport
// message protocol. It implements transport.FileSender: file regions are
// copied with io.Copy so the net/http ReaderFrom fast path can hand them to
// the kernel (sendfile) without passing through user space.
type ResponseWriterSender struct {
	w           http.ResponseWriter
	wroteHeader bool
}

// NewResponseWriterSender wraps a response writer for one response.
func NewResponseWriterSender(w http.ResponseWriter) *ResponseWriterSender {
	return &ResponseWriterSender{w: w}
}

// SendResponseStart writes the ordered header set and the status line.
func (s *ResponseWriterSender) SendResponseStart(ctx context.Context, start transport.ResponseStart) error {
	if s.wroteHeader {
		return fmt.Errorf("response header already sent")
	}
	for _, h := range start.Headers {
		s.w.Header().Add(h.Key, h.Value)
	}
	s.w.WriteHeader(start.Status)
	s.wroteHeader = true
	return nil
}

// SendBodyChunk writes one body frame, flushing streamed responses so
// chunks reach the client as they are produced.
func (s *ResponseWriterSender) SendBodyChunk(ctx context.Context, chunk transport.BodyChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(chunk.Body) > 0 {
		if _, err := s.w.Write(chunk.Body); err != nil {
			return err
		}
	}
	if chunk.MoreBody {
		if f, ok := s.w.(http.Flusher); ok {
			f.Flush()
		}
	}
	return nil
}

// SendFileRegion transmits a file region through io.Copy. net/http
// recognizes *os.File (and io.LimitedReader over one) in its ReadFrom and
// uses sendfile where the platform supports it.
func (s *ResponseWriterSender) SendFileRegion(ctx context.Context, region transport.FileRegion) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if region.Offset >= 0 {
		if _, err := region.File.Seek(region.Offset, io.SeekStart); err != nil {
			return fmt.Errorf("seek to range start: %w", err)
		}
	}

	var err error
	if region.Count >= 0 {
		_, err = io.CopyN(s.w, region.File, region.Count)
	} else {
		_, err = io.Copy(s.w, region.File)
	}
	if err != nil {
		return fmt.Errorf("send file region: %w", err)
	}
	return nil
}
