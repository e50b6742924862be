// Package hredis is a small blocking client for the server. Requests are
// framed and replies decoded with the same resp codec the server uses.
package hredis

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/fzft/go-mini-redis/resp"
)

type RedisErrFlag uint8

const (
	RedisErrNoErr RedisErrFlag = iota
	RedisErrIo
	RedisErrOther
	RedisErrEOF
	RedisErrProtocol
	RedisErrTimeout
)

type RedisReplyType int8

const (
	RedisReplyString RedisReplyType = iota + 1
	RedisReplyArray
	RedisReplyInteger
	RedisReplyNil
	RedisReplyStatus
	RedisReplyError
)

func (t RedisReplyType) String() string {
	switch t {
	case RedisReplyString:
		return "string"
	case RedisReplyArray:
		return "array"
	case RedisReplyInteger:
		return "integer"
	case RedisReplyNil:
		return "nil"
	case RedisReplyStatus:
		return "status"
	case RedisReplyError:
		return "error"
	default:
		return "unknown"
	}
}

// RedisReply is a reply object returned by RedisCommand and GetReply.
type RedisReply struct {
	Tp      RedisReplyType
	Integer int64  // The integer when type is RedisReplyInteger
	Str     string // The string when type is RedisReplyString, RedisReplyError, RedisReplyStatus
	Element []*RedisReply
}

// ReplyError is a "-ERR ..." reply surfaced as a Go error by the typed
// helpers.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return e.Message
}

// newReply converts a decoded value. A null array becomes a nil reply, as
// does a null bulk string.
func newReply(n resp.Node) *RedisReply {
	switch v := n.(type) {
	case resp.SimpleString:
		return &RedisReply{Tp: RedisReplyStatus, Str: v.Value}
	case resp.Error:
		return &RedisReply{Tp: RedisReplyError, Str: v.Message}
	case resp.Integer:
		return &RedisReply{Tp: RedisReplyInteger, Integer: v.Value}
	case resp.BulkString:
		if v.Null {
			return &RedisReply{Tp: RedisReplyNil}
		}
		return &RedisReply{Tp: RedisReplyString, Str: v.Value}
	case resp.Array:
		if v.Null {
			return &RedisReply{Tp: RedisReplyNil}
		}
		r := &RedisReply{Tp: RedisReplyArray, Element: make([]*RedisReply, len(v.Elements))}
		for i, el := range v.Elements {
			r.Element[i] = newReply(el)
		}
		return r
	default:
		return &RedisReply{Tp: RedisReplyNil}
	}
}

// RedisContext is one blocking connection to a server. It is not safe for
// concurrent use.
type RedisContext struct {
	Err    RedisErrFlag
	ErrStr string

	Tcp struct {
		Host string
		Port int
	}

	conn    net.Conn
	timeout time.Duration
	oBuf    []byte // output buffer
	iBuf    []byte // bytes read but not yet decoded
	pending int    // replies owed for appended commands
}

func RedisConnect(ip string, port int) (*RedisContext, error) {
	return RedisConnectWithTimeout(ip, port, 0)
}

// RedisConnectWithTimeout bounds the dial and, when timeout is positive,
// every later read and write.
func RedisConnectWithTimeout(ip string, port int, timeout time.Duration) (*RedisContext, error) {
	c := &RedisContext{timeout: timeout}
	c.Tcp.Host = ip
	c.Tcp.Port = port

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(ip, strconv.Itoa(port)), dialTimeout(timeout))
	if err != nil {
		c.SetError(RedisErrIo, err.Error())
		return c, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
	}
	c.conn = conn
	return c, nil
}

func dialTimeout(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return 30 * time.Second
}

func (c *RedisContext) SetError(tp RedisErrFlag, err string) {
	c.Err = tp
	c.ErrStr = err
}

// Close closes the connection. The context cannot be reused.
func (c *RedisContext) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// AppendCommand queues a command without sending it. Replies are read in
// order with GetReply.
func (c *RedisContext) AppendCommand(argv ...string) {
	if len(argv) == 0 {
		return
	}
	c.oBuf = append(c.oBuf, resp.ConvertToRESP(argv[0], argv[1:]...)...)
	c.pending++
}

// RedisCommand sends argv and waits for its reply.
func (c *RedisContext) RedisCommand(argv ...string) (*RedisReply, error) {
	if len(argv) == 0 {
		return nil, errors.New("hredis: empty command")
	}
	c.AppendCommand(argv...)
	return c.GetReply()
}

// RedisCommandf splits format on spaces and substitutes %s and %d verbs,
// so an argument containing spaces stays one argument.
func (c *RedisContext) RedisCommandf(format string, args ...any) (*RedisReply, error) {
	argv, err := redisFormatCommand(format, args...)
	if err != nil {
		c.SetError(RedisErrOther, err.Error())
		return nil, err
	}
	return c.RedisCommand(argv...)
}

// GetReply flushes queued commands and returns the next reply.
func (c *RedisContext) GetReply() (*RedisReply, error) {
	if c.conn == nil {
		return nil, errors.New("hredis: not connected")
	}
	if err := c.flush(); err != nil {
		return nil, err
	}

	var chunk [4096]byte
	for {
		n, used, err := resp.Decode(c.iBuf)
		if err == nil {
			c.iBuf = c.iBuf[used:]
			if c.pending > 0 {
				c.pending--
			}
			return newReply(n), nil
		}
		if !errors.Is(err, resp.ErrIncomplete) {
			// the stream cannot be resynchronized after a framing error
			c.SetError(RedisErrProtocol, err.Error())
			c.iBuf, c.oBuf, c.pending = nil, nil, 0
			_ = c.Close()
			return nil, err
		}

		if c.timeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
		}
		read, err := c.conn.Read(chunk[:])
		c.iBuf = append(c.iBuf, chunk[:read]...)
		if err != nil {
			if read > 0 {
				continue
			}
			return nil, c.ioError(err)
		}
	}
}

func (c *RedisContext) flush() error {
	if len(c.oBuf) == 0 {
		return nil
	}
	if c.timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	for len(c.oBuf) > 0 {
		n, err := c.conn.Write(c.oBuf)
		c.oBuf = c.oBuf[n:]
		if err != nil {
			return c.ioError(err)
		}
	}
	c.oBuf = nil
	return nil
}

func (c *RedisContext) ioError(err error) error {
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF):
		c.SetError(RedisErrEOF, "Server closed the connection")
	case errors.As(err, &ne) && ne.Timeout():
		c.SetError(RedisErrTimeout, err.Error())
	default:
		c.SetError(RedisErrIo, err.Error())
	}
	return err
}

// Pending returns the number of appended commands whose reply has not been
// read yet.
func (c *RedisContext) Pending() int {
	return c.pending
}

func redisFormatCommand(format string, args ...any) ([]string, error) {
	var curArg []byte
	var argv []string

	argIndex := 0 // To track the current argument in args
	touched := false

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			if c == ' ' {
				if touched {
					argv = append(argv, string(curArg))
					curArg = curArg[:0]
					touched = false
				}
			} else {
				curArg = append(curArg, c)
				touched = true
			}
			continue
		}

		i++
		if i >= len(format) {
			return nil, errors.New("format string ended unexpectedly")
		}
		if format[i] == '%' {
			curArg = append(curArg, '%')
			touched = true
			continue
		}
		if argIndex >= len(args) {
			return nil, errors.New("not enough arguments")
		}

		switch format[i] {
		case 's':
			switch v := args[argIndex].(type) {
			case string:
				curArg = append(curArg, v...)
			case []byte:
				curArg = append(curArg, v...)
			default:
				return nil, fmt.Errorf("expected a string argument, got %T", v)
			}
		case 'd':
			switch v := args[argIndex].(type) {
			case int:
				curArg = strconv.AppendInt(curArg, int64(v), 10)
			case int64:
				curArg = strconv.AppendInt(curArg, v, 10)
			default:
				return nil, fmt.Errorf("expected an integer argument, got %T", v)
			}
		default:
			return nil, fmt.Errorf("unsupported format specifier: %c", format[i])
		}
		argIndex++
		touched = true
	}

	if touched {
		argv = append(argv, string(curArg))
	}
	return argv, nil
}
