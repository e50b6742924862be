package node

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/fzft/go-mini-redis/db"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConn replays canned reads and captures writes.
type TestConn struct {
	Reads  [][]byte
	Buffer bytes.Buffer // buffer to capture output
	closed bool
}

func (t *TestConn) Read() ([]byte, error) {
	if len(t.Reads) == 0 {
		return nil, io.EOF
	}
	data := t.Reads[0]
	t.Reads = t.Reads[1:]
	return data, nil
}

func (t *TestConn) Write(b []byte) error {
	_, err := t.Buffer.Write(b)
	return err
}

func (t *TestConn) Close() error {
	t.closed = true
	return nil
}

func (t *TestConn) Ip() string {
	return "127.0.0.1:0"
}

func newTestClient(conn Conn, rateLimit int) *Client {
	return NewClient(1, conn, NewDispatcher(db.New()), NewMetrics(nil), rateLimit)
}

func TestClientPartialRequest(t *testing.T) {
	conn := &TestConn{Reads: [][]byte{
		[]byte("*3\r\n$3\r\nSET\r\n$3\r\nfo"),
		[]byte("o\r\n$3\r\nbar\r\n"),
	}}
	c := newTestClient(conn, 0)
	h := DefaultHandler{}

	require.NoError(t, h.Read(c))
	assert.Equal(t, 0, conn.Buffer.Len(), "no reply before the request is complete")

	require.NoError(t, h.Read(c))
	assert.Equal(t, "+OK\r\n", conn.Buffer.String())
	assert.Empty(t, c.queryBuf)
}

func TestClientPipelinedRequests(t *testing.T) {
	conn := &TestConn{Reads: [][]byte{
		[]byte("*1\r\n$4\r\nPING\r\n*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n*2\r\n$3\r\nGET\r\n$1\r\nk\r\n*2\r\n$3\r\nGET"),
	}}
	c := newTestClient(conn, 0)

	require.NoError(t, DefaultHandler{}.Read(c))
	assert.Equal(t, "+PONG\r\n+OK\r\n$1\r\nv\r\n", conn.Buffer.String())
	assert.Equal(t, "*2\r\n$3\r\nGET", string(c.queryBuf), "partial request kept")
}

func TestClientProtocolErrorCloses(t *testing.T) {
	conn := &TestConn{Reads: [][]byte{
		[]byte("*1\r\n$4\r\nPING\r\n$abc\r\n*1\r\n$4\r\nPING\r\n"),
	}}
	c := newTestClient(conn, 0)

	err := DefaultHandler{}.Read(c)
	assert.True(t, errors.Is(err, errCloseAfterReply))
	assert.True(t, errors.Is(err, errProtocolClose))
	assert.Equal(t, "+PONG\r\n-ERR Protocol error: invalid bulk length \"abc\"\r\n", conn.Buffer.String())
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.ProtocolErrors))
}

func TestClientShapeErrorKeepsConnection(t *testing.T) {
	conn := &TestConn{Reads: [][]byte{
		[]byte("+PING\r\n*1\r\n$4\r\nPING\r\n"),
	}}
	c := newTestClient(conn, 0)

	require.NoError(t, DefaultHandler{}.Read(c))
	assert.Equal(t, "-ERR invalid format: expected array, got '+'\r\n+PONG\r\n", conn.Buffer.String())
}

func TestClientRateLimit(t *testing.T) {
	ping := "*1\r\n$4\r\nPING\r\n"
	conn := &TestConn{Reads: [][]byte{[]byte(ping + ping + ping)}}
	c := newTestClient(conn, 2)

	require.NoError(t, DefaultHandler{}.Read(c))
	assert.Equal(t, "+PONG\r\n+PONG\r\n-ERR rate limit exceeded\r\n", conn.Buffer.String())
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.Commands.WithLabelValues("ping", resultRateLimited)))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.metrics.Commands.WithLabelValues("ping", resultOK)))
}

func TestClientCommandMetrics(t *testing.T) {
	conn := &TestConn{Reads: [][]byte{
		[]byte("*1\r\n$3\r\nFOO\r\n*1\r\n$3\r\nGET\r\n*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"),
	}}
	c := newTestClient(conn, 0)

	require.NoError(t, DefaultHandler{}.Read(c))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.Commands.WithLabelValues("unknown", resultError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.Commands.WithLabelValues("get", resultError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.Commands.WithLabelValues("get", resultOK)))
}

func TestClientReadErrorEndsCycle(t *testing.T) {
	conn := &TestConn{}
	c := newTestClient(conn, 0)

	assert.ErrorIs(t, DefaultHandler{}.Read(c), io.EOF)
	assert.Equal(t, 0, conn.Buffer.Len())
}
