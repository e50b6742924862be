package hredis

import "fmt"

// Typed helpers for the commands the server supports. A "-ERR" reply is
// returned as *ReplyError.

func (c *RedisContext) Ping() error {
	_, err := c.expect(RedisReplyStatus, "PING")
	return err
}

func (c *RedisContext) Set(key, value string) error {
	_, err := c.expect(RedisReplyStatus, "SET", key, value)
	return err
}

// Get returns the value of key and false when the key does not exist.
func (c *RedisContext) Get(key string) (string, bool, error) {
	reply, err := c.call("GET", key)
	if err != nil {
		return "", false, err
	}
	switch reply.Tp {
	case RedisReplyNil:
		return "", false, nil
	case RedisReplyString:
		return reply.Str, true, nil
	default:
		return "", false, unexpected("GET", reply)
	}
}

// Del reports whether key existed.
func (c *RedisContext) Del(key string) (bool, error) {
	reply, err := c.expect(RedisReplyInteger, "DEL", key)
	if err != nil {
		return false, err
	}
	return reply.Integer == 1, nil
}

func (c *RedisContext) Exists(key string) (bool, error) {
	reply, err := c.expect(RedisReplyInteger, "EXISTS", key)
	if err != nil {
		return false, err
	}
	return reply.Integer == 1, nil
}

func (c *RedisContext) call(argv ...string) (*RedisReply, error) {
	reply, err := c.RedisCommand(argv...)
	if err != nil {
		return nil, err
	}
	if reply.Tp == RedisReplyError {
		return nil, &ReplyError{Message: reply.Str}
	}
	return reply, nil
}

func (c *RedisContext) expect(tp RedisReplyType, argv ...string) (*RedisReply, error) {
	reply, err := c.call(argv...)
	if err != nil {
		return nil, err
	}
	if reply.Tp != tp {
		return nil, unexpected(argv[0], reply)
	}
	return reply, nil
}

func unexpected(cmd string, reply *RedisReply) error {
	return fmt.Errorf("hredis: unexpected %s reply to %s", reply.Tp, cmd)
}
