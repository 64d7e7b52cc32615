// Package transport defines the outbound message protocol between the
// response-delivery core and the transport layer.
//
// A response is delivered as exactly one ResponseStart followed by one or
// more BodyChunk messages; the final chunk carries MoreBody=false. Transports
// that can transmit file regions without copying through user space
// additionally implement FileSender.
package transport

import (
	"context"
	"os"
)

// Header is one outbound header pair. Keys are transmitted case-sensitively
// in the order they were added.
type Header struct {
	Key   string
	Value string
}

// ResponseStart opens a response: status line plus the full ordered header
// set. It is sent exactly once, before any body chunk.
type ResponseStart struct {
	Status  int
	Headers []Header
}

// BodyChunk carries one body frame. MoreBody reports whether another chunk
// follows; the final chunk of a response has MoreBody=false.
type BodyChunk struct {
	Body     []byte
	MoreBody bool
}

// FileRegion asks the transport to transmit a byte range of an open file
// directly, typically via sendfile. Offset < 0 means the file's current
// position; Count < 0 means until EOF.
type FileRegion struct {
	File     *os.File
	Offset   int64
	Count    int64
	MoreBody bool
}

// Sender emits outbound messages for one response. Implementations are used
// by a single request at a time and need not be safe for concurrent use.
type Sender interface {
	SendResponseStart(ctx context.Context, start ResponseStart) error
	SendBodyChunk(ctx context.Context, chunk BodyChunk) error
}

// FileSender is implemented by transports that advertise native zero-copy
// file transmission. Callers discover the capability by type assertion and
// fall back to chunked reads when it is absent.
type FileSender interface {
	Sender
	SendFileRegion(ctx context.Context, region FileRegion) error
}
