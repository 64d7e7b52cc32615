package response_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synodriver/davgate/response"
	"github.com/synodriver/davgate/transport"
)

// recordingSender captures the frames a send produces.
type recordingSender struct {
	start  *transport.ResponseStart
	chunks []transport.BodyChunk
}

func (r *recordingSender) SendResponseStart(_ context.Context, start transport.ResponseStart) error {
	r.start = &start
	return nil
}

func (r *recordingSender) SendBodyChunk(_ context.Context, chunk transport.BodyChunk) error {
	r.chunks = append(r.chunks, chunk)
	return nil
}

func (r *recordingSender) header(key string) (string, bool) {
	for _, h := range r.start.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

func (r *recordingSender) body() []byte {
	var buf bytes.Buffer
	for _, c := range r.chunks {
		buf.Write(c.Body)
	}
	return buf.Bytes()
}

// recordingFileSender additionally captures zero-copy regions.
type recordingFileSender struct {
	recordingSender
	regions []transport.FileRegion
}

func (r *recordingFileSender) SendFileRegion(_ context.Context, region transport.FileRegion) error {
	r.regions = append(r.regions, region)
	return nil
}

// sliceSource yields a fixed sequence of chunks.
type sliceSource struct {
	chunks [][]byte
	next   int
}

func (s *sliceSource) Next(_ context.Context) ([]byte, bool, error) {
	chunk := s.chunks[s.next]
	s.next++
	return chunk, s.next < len(s.chunks), nil
}

func writeTempFile(t *testing.T, content []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func decompress(t *testing.T, encoding string, data []byte) []byte {
	t.Helper()
	var r io.Reader
	switch encoding {
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(data))
		require.NoError(t, err)
		r = gr
	case "br":
		r = brotli.NewReader(bytes.NewReader(data))
	default:
		t.Fatalf("unknown encoding %q", encoding)
	}
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}

func TestSender_Send_DirectBytes(t *testing.T) {
	s := newTestSender(t, response.CompressionConfig{})
	rec := &recordingSender{}

	resp := response.New(200).SetBytes([]byte("hello world"))
	err := s.Send(context.Background(), rec, resp, response.AcceptEncoding{})
	require.NoError(t, err)

	assert.Equal(t, 200, rec.start.Status)
	length, ok := rec.header("Content-Length")
	require.True(t, ok)
	assert.Equal(t, "11", length)

	_, ok = rec.header("Content-Encoding")
	assert.False(t, ok)

	require.Len(t, rec.chunks, 1)
	assert.Equal(t, []byte("hello world"), rec.chunks[0].Body)
	assert.False(t, rec.chunks[0].MoreBody)
}

func TestSender_Send_AuthInfoHeader(t *testing.T) {
	s := newTestSender(t, response.CompressionConfig{})
	rec := &recordingSender{}

	resp := response.New(200).
		SetBytes([]byte("ok")).
		SetAuthInfo(`rspauth="abc", cnonce="def", qop=auth, nc=00000001`)
	require.NoError(t, s.Send(context.Background(), rec, resp, response.AcceptEncoding{}))

	info, ok := rec.header("Authentication-Info")
	require.True(t, ok)
	assert.Equal(t, `rspauth="abc", cnonce="def", qop=auth, nc=00000001`, info)
}

func TestSender_Send_CompressedSingleChunk(t *testing.T) {
	s := newTestSender(t, response.CompressionConfig{EnableGzip: true})
	rec := &recordingSender{}

	payload := []byte(strings.Repeat("compressible text ", 100))
	resp := response.New(200).SetBytes(payload)
	err := s.Send(context.Background(), rec, resp, response.AcceptEncoding{Gzip: true})
	require.NoError(t, err)

	encoding, ok := rec.header("Content-Encoding")
	require.True(t, ok)
	assert.Equal(t, "gzip", encoding)

	// A single-chunk payload compresses in one shot, so the compressed
	// length is known before the header frame goes out.
	require.Len(t, rec.chunks, 1)
	assert.False(t, rec.chunks[0].MoreBody)
	length, ok := rec.header("Content-Length")
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(len(rec.chunks[0].Body)), length)

	assert.Equal(t, payload, decompress(t, "gzip", rec.body()))
}

func TestSender_Send_CompressedMultiChunk(t *testing.T) {
	s := newTestSender(t, response.CompressionConfig{EnableGzip: true, EnableBrotli: true})
	rec := &recordingSender{}

	chunkA := []byte(strings.Repeat("first part ", 200))
	chunkB := []byte(strings.Repeat("second part ", 200))
	resp := response.New(200).SetStream(&sliceSource{chunks: [][]byte{chunkA, chunkB}})

	err := s.Send(context.Background(), rec, resp, response.AcceptEncoding{Brotli: true})
	require.NoError(t, err)

	encoding, _ := rec.header("Content-Encoding")
	assert.Equal(t, "br", encoding)

	// The total compressed size is unknown when the header frame goes out.
	_, ok := rec.header("Content-Length")
	assert.False(t, ok)

	require.Len(t, rec.chunks, 2)
	assert.True(t, rec.chunks[0].MoreBody)
	assert.False(t, rec.chunks[1].MoreBody)

	want := append(append([]byte(nil), chunkA...), chunkB...)
	assert.Equal(t, want, decompress(t, "br", rec.body()))
}

func TestSender_Send_RangedNeverCompressed(t *testing.T) {
	s := newTestSender(t, response.CompressionConfig{EnableGzip: true, EnableBrotli: true})
	rec := &recordingSender{}

	payload := []byte(strings.Repeat("x", 20))
	f := writeTempFile(t, payload)

	resp := response.New(206)
	resp.SetFile(f, 5, 15)
	resp.SetContentLength(20)
	resp.SetContentRange(5)

	err := s.Send(context.Background(), rec, resp, response.AcceptEncoding{Gzip: true, Brotli: true})
	require.NoError(t, err)

	_, ok := rec.header("Content-Encoding")
	assert.False(t, ok)

	cr, ok := rec.header("Content-Range")
	require.True(t, ok)
	assert.Equal(t, "bytes 5-20/20", cr)

	length, _ := rec.header("Content-Length")
	assert.Equal(t, "15", length)
	assert.Equal(t, payload[5:], rec.body())
}

func TestSender_Send_ZeroCopyTransport(t *testing.T) {
	s := newTestSender(t, response.CompressionConfig{})
	rec := &recordingFileSender{}

	f := writeTempFile(t, []byte("zero copy payload"))
	resp := response.New(200)
	resp.Headers.Set("Content-Type", "application/octet-stream")
	resp.SetFile(f, 0, 17)

	err := s.Send(context.Background(), rec, resp, response.AcceptEncoding{})
	require.NoError(t, err)

	// The file region goes through the transport's zero-copy path, never
	// through body chunks.
	assert.Empty(t, rec.chunks)
	require.Len(t, rec.regions, 1)
	assert.Equal(t, int64(0), rec.regions[0].Offset)
	assert.Equal(t, int64(17), rec.regions[0].Count)
	assert.Same(t, f, rec.regions[0].File)

	length, _ := rec.header("Content-Length")
	assert.Equal(t, "17", length)
}

func TestSender_Send_FileFallbackChunking(t *testing.T) {
	s := newTestSender(t, response.CompressionConfig{})
	rec := &recordingSender{} // no zero-copy capability

	payload := bytes.Repeat([]byte("abcdefgh"), 20000) // 160000 bytes
	f := writeTempFile(t, payload)

	resp := response.New(200)
	resp.Headers.Set("Content-Type", "application/octet-stream")
	resp.SetFile(f, 0, int64(len(payload)))

	err := s.Send(context.Background(), rec, resp, response.AcceptEncoding{})
	require.NoError(t, err)

	// 160000 bytes read in 64 KiB blocks: 65536 + 65536 + 28928.
	require.Len(t, rec.chunks, 3)
	assert.Len(t, rec.chunks[0].Body, 64*1024)
	assert.True(t, rec.chunks[0].MoreBody)
	assert.Len(t, rec.chunks[1].Body, 64*1024)
	assert.True(t, rec.chunks[1].MoreBody)
	assert.Len(t, rec.chunks[2].Body, 28928)
	assert.False(t, rec.chunks[2].MoreBody)

	assert.Equal(t, payload, rec.body())
}

func TestSender_Send_FileRegionFallback(t *testing.T) {
	s := newTestSender(t, response.CompressionConfig{})
	rec := &recordingSender{}

	payload := []byte("0123456789")
	f := writeTempFile(t, payload)

	resp := response.New(200)
	resp.Headers.Set("Content-Type", "application/octet-stream")
	resp.SetFile(f, 3, 4)

	err := s.Send(context.Background(), rec, resp, response.AcceptEncoding{})
	require.NoError(t, err)

	assert.Equal(t, []byte("3456"), rec.body())
	length, _ := rec.header("Content-Length")
	assert.Equal(t, "4", length)
}
