package node

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fzft/go-mini-redis/log"
	"github.com/fzft/go-mini-redis/resp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// errCloseAfterReply ends the connection once the pending reply is written.
	errCloseAfterReply = errors.New("close after reply")
	errProtocolClose   = fmt.Errorf("%w: protocol error", errCloseAfterReply)
)

// ClientFlags mark per connection state.
type ClientFlags uint64

const (
	ClientCloseAfterReply ClientFlags = 1 << iota // Close after writing entire reply.
	ClientProtocolError                           // A framing error was seen.
)

// Client is the server side state of one connection. It is owned by exactly
// one worker for its whole life.
type Client struct {
	id         uint64      // client increment unique id
	flags      ClientFlags // client type flags
	connection Conn
	dispatcher *Dispatcher
	metrics    *Metrics
	limiter    *rate.Limiter // nil when rate limiting is off

	queryBuf []byte // buffer for client query
	queryPos int    // current position in query buffer
	reply    []byte // encoded replies not yet written
}

func NewClient(id uint64, connection Conn, dispatcher *Dispatcher, metrics *Metrics, rateLimit int) *Client {
	c := &Client{
		id:         id,
		connection: connection,
		dispatcher: dispatcher,
		metrics:    metrics,
		queryBuf:   make([]byte, 0, ProtoIOLen),
	}
	if rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	}
	return c
}

// feed appends freshly read bytes to the query buffer.
func (c *Client) feed(data []byte) {
	c.queryBuf = append(c.queryBuf, data...)
}

// AddReply appends the wire form of reply to the output buffer.
func (c *Client) AddReply(reply resp.Node) {
	c.reply = resp.AppendNode(c.reply, reply)
}

// processInputBuffer runs every complete request in the query buffer, in
// order. A framing error queues an error reply, flags the client to close
// and stops processing; anything after the bad bytes is ignored.
func (c *Client) processInputBuffer() {
	for c.queryPos < len(c.queryBuf) && c.flags&ClientCloseAfterReply == 0 {
		req, next, err := resp.DecodeAt(c.queryBuf, c.queryPos)
		if err != nil {
			if errors.Is(err, resp.ErrIncomplete) {
				break
			}
			c.protocolError(err)
			break
		}
		c.queryPos = next
		c.processCommand(req)
	}
	c.trimQueryBuffer()
}

func (c *Client) processCommand(req resp.Node) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.metrics.observeCommand(requestName(req), resultRateLimited)
		c.AddReply(SharedRateLimitErr)
		return
	}

	reply, name := c.dispatcher.dispatch(req)
	result := resultOK
	if _, isErr := reply.(resp.Error); isErr {
		result = resultError
	}
	c.metrics.observeCommand(name, result)
	c.AddReply(reply)
}

func (c *Client) protocolError(err error) {
	log.Logger.Warn("protocol error", zap.Uint64("client", c.id), zap.String("peer", c.connection.Ip()), zap.Error(err))
	detail := strings.TrimPrefix(err.Error(), "resp: ")
	detail = strings.TrimPrefix(detail, "protocol error: ")
	c.AddReply(errorReplyf("ERR Protocol error: %s", detail))
	c.flags |= ClientCloseAfterReply | ClientProtocolError
	c.metrics.ProtocolErrors.Inc()
}

// trimQueryBuffer drops consumed bytes so the buffer holds only the partial
// request still being received.
func (c *Client) trimQueryBuffer() {
	if c.queryPos == 0 {
		return
	}
	n := copy(c.queryBuf, c.queryBuf[c.queryPos:])
	c.queryBuf = c.queryBuf[:n]
	c.queryPos = 0
}

// writeReplies flushes the output buffer.
func (c *Client) writeReplies() error {
	if len(c.reply) == 0 {
		return nil
	}
	err := c.connection.Write(c.reply)
	c.reply = c.reply[:0]
	return err
}

func (c *Client) Close() error {
	return c.connection.Close()
}

// requestName is the lower cased name of a known command in req, or "".
func requestName(req resp.Node) string {
	arr, ok := req.(resp.Array)
	if !ok || len(arr.Elements) == 0 {
		return ""
	}
	bulk, ok := arr.Elements[0].(resp.BulkString)
	if !ok {
		return ""
	}
	if cmd, ok := LookupCommand(bulk.Value); ok {
		return cmd.Name
	}
	return ""
}
