package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	davgatehttp "github.com/synodriver/davgate/http"
	"github.com/synodriver/davgate/transport"
)

func TestResponseWriterSender_Start(t *testing.T) {
	rec := httptest.NewRecorder()
	s := davgatehttp.NewResponseWriterSender(rec)
	ctx := context.Background()

	start := transport.ResponseStart{
		Status: http.StatusCreated,
		Headers: []transport.Header{
			{Key: "Content-Type", Value: "text/html"},
			{Key: "X-Custom", Value: "yes"},
		},
	}
	require.NoError(t, s.SendResponseStart(ctx, start))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Equal(t, "yes", rec.Header().Get("X-Custom"))

	// A second header frame is a protocol violation.
	assert.Error(t, s.SendResponseStart(ctx, start))
}

func TestResponseWriterSender_BodyChunks(t *testing.T) {
	rec := httptest.NewRecorder()
	s := davgatehttp.NewResponseWriterSender(rec)
	ctx := context.Background()

	require.NoError(t, s.SendResponseStart(ctx, transport.ResponseStart{Status: 200}))
	require.NoError(t, s.SendBodyChunk(ctx, transport.BodyChunk{Body: []byte("part one "), MoreBody: true}))
	require.NoError(t, s.SendBodyChunk(ctx, transport.BodyChunk{Body: []byte("part two"), MoreBody: false}))

	assert.Equal(t, "part one part two", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestResponseWriterSender_FileRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	tests := []struct {
		name   string
		offset int64
		count  int64
		want   string
	}{
		{name: "whole file", offset: 0, count: -1, want: "0123456789"},
		{name: "bounded region", offset: 2, count: 5, want: "23456"},
		{name: "tail from offset", offset: 7, count: -1, want: "789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s := davgatehttp.NewResponseWriterSender(rec)
			ctx := context.Background()

			require.NoError(t, s.SendResponseStart(ctx, transport.ResponseStart{Status: 200}))
			require.NoError(t, s.SendFileRegion(ctx, transport.FileRegion{
				File:   f,
				Offset: tt.offset,
				Count:  tt.count,
			}))
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestResponseWriterSender_CanceledContext(t *testing.T) {
	rec := httptest.NewRecorder()
	s := davgatehttp.NewResponseWriterSender(rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SendBodyChunk(ctx, transport.BodyChunk{Body: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}
