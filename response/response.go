// Package response turns payloads into framed, optionally compressed,
// optionally zero-copy HTTP responses delivered through a transport.Sender.
package response

import (
	"context"
	"fmt"
	"io"
	"os"
)

// LengthUnknown marks a response whose body length is not known ahead of
// transmission; such responses are framed without a Content-Length header.
const LengthUnknown int64 = -1

// ChunkSource yields successive body chunks of a streamed payload. more
// reports whether another chunk follows. A ChunkSource is single-pass and
// not restartable.
type ChunkSource interface {
	Next(ctx context.Context) (chunk []byte, more bool, err error)
}

// FileContent describes a zero-copy file payload. Offset < 0 means the
// file's current position, Count < 0 means until EOF.
type FileContent struct {
	File   *os.File
	Offset int64
	Count  int64
}

// contentKind discriminates the active payload representation.
type contentKind int

const (
	contentBytes contentKind = iota
	contentStream
	contentFile
)

// Response is the envelope of one outgoing HTTP response. It carries the
// status, an ordered header set, and exactly one payload representation.
// A Response is owned by a single request flow and is mutated during send
// (Content-Length, Content-Encoding, Content-Range).
type Response struct {
	Status  int
	Headers *Headers

	kind   contentKind
	bytes  []byte
	stream ChunkSource
	file   FileContent

	contentLength int64

	contentRange      bool
	contentRangeStart int64

	// authInfo is attached as an Authentication-Info header before the
	// header frame is sent, when non-empty.
	authInfo string
}

// New creates an HTML response envelope with an empty body.
func New(status int) *Response {
	r := &Response{
		Status:        status,
		Headers:       NewHeaders(),
		contentLength: 0,
	}
	r.Headers.Set("Content-Type", "text/html")
	return r
}

// NewXML creates an application/xml response envelope, used by WebDAV
// multi-status payloads.
func NewXML(status int) *Response {
	r := New(status)
	r.Headers.Set("Content-Type", "application/xml")
	return r
}

// SetBytes installs a fixed payload. The content length becomes known and
// any previously installed stream or file payload is cleared.
func (r *Response) SetBytes(body []byte) *Response {
	r.kind = contentBytes
	r.bytes = body
	r.stream = nil
	r.file = FileContent{}
	r.contentLength = int64(len(body))
	return r
}

// SetStream installs a lazy payload. The content length becomes unknown
// unless SetContentLength is called afterwards.
func (r *Response) SetStream(src ChunkSource) *Response {
	r.kind = contentStream
	r.stream = src
	r.bytes = nil
	r.file = FileContent{}
	r.contentLength = LengthUnknown
	return r
}

// SetFile installs a file payload eligible for zero-copy transmission.
// offset < 0 keeps the file's current position; count < 0 transmits to EOF.
// When count is given, the content length is known.
func (r *Response) SetFile(file *os.File, offset, count int64) *Response {
	r.kind = contentFile
	r.file = FileContent{File: file, Offset: offset, Count: count}
	r.bytes = nil
	r.stream = nil
	if count >= 0 {
		r.contentLength = count
	} else {
		r.contentLength = LengthUnknown
	}
	return r
}

// SetContentLength overrides the declared content length. Use when the
// payload is a stream whose total size is known out of band.
func (r *Response) SetContentLength(n int64) *Response {
	r.contentLength = n
	return r
}

// ContentLength returns the declared content length, or LengthUnknown.
func (r *Response) ContentLength() int64 {
	return r.contentLength
}

// SetContentRange declares a partial-content transfer beginning at start of
// a payload whose declared total is the current content length. The
// effective transfer length becomes length-start and a Content-Range header
// is added.
//
// The advertised range is "bytes {start}-{length}/{length}": the second
// number equals the total size rather than the conventional inclusive end.
// Existing clients depend on this exact arithmetic; do not correct it here.
func (r *Response) SetContentRange(start int64) *Response {
	if r.contentLength == LengthUnknown || start < 0 {
		return r
	}
	total := r.contentLength
	r.contentRange = true
	r.contentRangeStart = start
	r.contentLength = total - start
	r.Headers.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, total, total))
	return r
}

// HasContentRange reports whether a Content-Range transfer was declared.
func (r *Response) HasContentRange() bool {
	return r.contentRange
}

// SetAuthInfo attaches the mutual authentication info string computed for a
// Digest-authenticated request. It is emitted as an Authentication-Info
// header when the response is sent.
func (r *Response) SetAuthInfo(info string) *Response {
	r.authInfo = info
	return r
}

// source returns a ChunkSource over the active payload representation.
func (r *Response) source() ChunkSource {
	switch r.kind {
	case contentStream:
		return r.stream
	case contentFile:
		return newFileSource(r.file)
	default:
		return &bytesSource{body: r.bytes}
	}
}

// bytesSource yields a fixed payload as a single final chunk.
type bytesSource struct {
	body []byte
	done bool
}

func (s *bytesSource) Next(ctx context.Context) ([]byte, bool, error) {
	if s.done {
		return nil, false, io.EOF
	}
	s.done = true
	return s.body, false, nil
}

// fileBlockSize is the read size of the manual file-streaming fallback.
const fileBlockSize = 64 * 1024

// fileSource reads a file region in fixed-size blocks. It is the fallback
// used when the transport has no zero-copy capability or when the payload
// must pass through a compression codec.
type fileSource struct {
	file      *os.File
	remaining int64 // <0 means until EOF
	seeked    bool
	offset    int64
	done      bool
}

func newFileSource(fc FileContent) *fileSource {
	return &fileSource{
		file:      fc.File,
		remaining: fc.Count,
		offset:    fc.Offset,
	}
}

func (s *fileSource) Next(ctx context.Context) ([]byte, bool, error) {
	if s.done {
		return nil, false, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if !s.seeked {
		s.seeked = true
		if s.offset >= 0 {
			if _, err := s.file.Seek(s.offset, io.SeekStart); err != nil {
				return nil, false, fmt.Errorf("seek to range start: %w", err)
			}
		}
	}

	size := int64(fileBlockSize)
	if s.remaining >= 0 && s.remaining < size {
		size = s.remaining
	}

	buf := make([]byte, size)
	n, err := io.ReadFull(s.file, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		s.done = true
		return buf[:n], false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read file content: %w", err)
	}

	if s.remaining >= 0 {
		s.remaining -= int64(n)
		if s.remaining == 0 {
			s.done = true
			return buf[:n], false, nil
		}
	}

	return buf[:n], true, nil
}
