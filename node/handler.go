package node

import (
	"github.com/fzft/go-mini-redis/log"
	"go.uber.org/zap"
)

// ReaderHandler runs one read cycle for a client. A non nil error ends the
// connection.
type ReaderHandler interface {
	Read(c *Client) error
}

// DefaultHandler reads once, answers every complete request received so far
// and writes the replies back.
type DefaultHandler struct{}

func (dh DefaultHandler) Read(c *Client) error {
	data, err := c.connection.Read()
	if err != nil {
		return err
	}
	log.Logger.Debug("read data", zap.Uint64("client", c.id), zap.Int("bytes", len(data)))

	c.feed(data)
	c.processInputBuffer()
	if err := c.writeReplies(); err != nil {
		return err
	}
	if c.flags&ClientProtocolError != 0 {
		return errProtocolClose
	}
	if c.flags&ClientCloseAfterReply != 0 {
		return errCloseAfterReply
	}
	return nil
}
