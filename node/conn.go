package node

import (
	"io"
	"net"
	"time"
)

const ProtoIOLen = 1024 * 16

// Conn is the interface for connection.
type Conn interface {
	// Read blocks until some bytes arrive, the read timeout fires or the
	// peer goes away. The returned slice is only valid until the next Read.
	Read() (data []byte, err error)

	// Write writes all of data.
	Write(data []byte) (err error)

	// Close closes the connection.
	Close() error

	Ip() string
}

// netConn is a Conn over a net.Conn with a per read deadline.
type netConn struct {
	nc          net.Conn
	readTimeout time.Duration
	buf         []byte
}

func newNetConn(nc net.Conn, readTimeout time.Duration) *netConn {
	return &netConn{
		nc:          nc,
		readTimeout: readTimeout,
		buf:         make([]byte, ProtoIOLen),
	}
}

func (c *netConn) Read() ([]byte, error) {
	if c.readTimeout > 0 {
		if err := c.nc.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, err
		}
	}
	n, err := c.nc.Read(c.buf)
	if n > 0 {
		// bytes before an error are still delivered, the error surfaces on
		// the next call
		return c.buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

func (c *netConn) Write(data []byte) error {
	for len(data) > 0 {
		n, err := c.nc.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (c *netConn) Close() error {
	return c.nc.Close()
}

func (c *netConn) Ip() string {
	return c.nc.RemoteAddr().String()
}
