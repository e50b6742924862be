package cmd

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/fzft/go-mini-redis/config"
	"github.com/fzft/go-mini-redis/deps/hredis"
	"github.com/fzft/go-mini-redis/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitArgs(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{"", []string{}},
		{"   ", []string{}},
		{"set foo bar", []string{"set", "foo", "bar"}},
		{"  get\tfoo  ", []string{"get", "foo"}},
		{`set "hello world" 'a b'`, []string{"set", "hello world", "a b"}},
		{`set k "line\nbreak"`, []string{"set", "k", "line\nbreak"}},
		{`set k "\x41\x42"`, []string{"set", "k", "AB"}},
		{`set k 'it\'s'`, []string{"set", "k", "it's"}},
		{`set k ""`, []string{"set", "k", ""}},
	}
	for _, tc := range cases {
		got, err := splitArgs(tc.line)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}
}

func TestSplitArgsUnbalanced(t *testing.T) {
	for _, line := range []string{`set "foo`, `set 'foo`, `set "foo"bar`, `get 'a'b`} {
		_, err := splitArgs(line)
		assert.Error(t, err, line)
	}
}

func TestFormatReply(t *testing.T) {
	array := &hredis.RedisReply{Tp: hredis.RedisReplyArray, Element: []*hredis.RedisReply{
		{Tp: hredis.RedisReplyString, Str: "a"},
		{Tp: hredis.RedisReplyNil},
		{Tp: hredis.RedisReplyInteger, Integer: 7},
	}}

	cases := []struct {
		reply    *hredis.RedisReply
		standard string
		raw      string
	}{
		{&hredis.RedisReply{Tp: hredis.RedisReplyStatus, Str: "OK"}, "OK\n", "OK\n"},
		{&hredis.RedisReply{Tp: hredis.RedisReplyString, Str: "bar"}, "\"bar\"\n", "bar\n"},
		{&hredis.RedisReply{Tp: hredis.RedisReplyNil}, "(nil)\n", "\n"},
		{&hredis.RedisReply{Tp: hredis.RedisReplyInteger, Integer: 1}, "(integer) 1\n", "1\n"},
		{&hredis.RedisReply{Tp: hredis.RedisReplyError, Str: "ERR boom"}, "(error) ERR boom\n", "ERR boom\n"},
		{&hredis.RedisReply{Tp: hredis.RedisReplyArray}, "(empty array)\n", "\n"},
		{array, "1) \"a\"\n2) (nil)\n3) (integer) 7\n", "a\n\n7\n"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.standard, formatReply(tc.reply, OutputStandard))
		assert.Equal(t, tc.raw, formatReply(tc.reply, OutputRaw))
	}
}

func TestFormatNestedArray(t *testing.T) {
	nested := &hredis.RedisReply{Tp: hredis.RedisReplyArray, Element: []*hredis.RedisReply{
		{Tp: hredis.RedisReplyArray, Element: []*hredis.RedisReply{
			{Tp: hredis.RedisReplyString, Str: "x"},
			{Tp: hredis.RedisReplyString, Str: "y"},
		}},
	}}
	assert.Equal(t, "1) 1) \"x\"\n   2) \"y\"\n", formatReply(nested, OutputStandard))
}

func TestVersion(t *testing.T) {
	cli := &RedisCli{}
	assert.Equal(t, RedisVersion, cli.Version("unknown", "unknown"))
	assert.Equal(t, RedisVersion+" (git:abc123)", cli.Version("abc123", "0"))
	assert.Equal(t, RedisVersion+" (git:abc123-dirty)", cli.Version("abc123", "1"))
}

func startServer(t *testing.T) (string, int) {
	t.Helper()
	cfg := config.Default()
	cfg.Bind = "127.0.0.1"
	cfg.Port = 0
	cfg.Workers = 2
	cfg.ReadTimeout = 2 * time.Second

	s := node.NewServer(cfg)
	require.NoError(t, s.Start())
	done := make(chan error, 1)
	go func() { done <- s.Serve() }()
	t.Cleanup(func() {
		_ = s.Stop()
		<-done
	})
	addr := s.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestRunOneShot(t *testing.T) {
	host, port := startServer(t)
	var out, errOut bytes.Buffer

	cli := NewRedisCli(host, port, WithRaw(false), WithIO(strings.NewReader(""), &out, &errOut))
	require.NoError(t, cli.Run([]string{"SET", "foo", "bar"}))

	cli = NewRedisCli(host, port, WithRaw(false), WithRepeat(2, 0), WithIO(strings.NewReader(""), &out, &errOut))
	require.NoError(t, cli.Run([]string{"GET", "foo"}))

	assert.Equal(t, "OK\n\"bar\"\n\"bar\"\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestRunPipedInput(t *testing.T) {
	host, port := startServer(t)
	var out, errOut bytes.Buffer
	in := strings.NewReader("PING\nset k \"v 1\"\n\nget k\nexists k\nfoo\nget \"bad\n")

	cli := NewRedisCli(host, port, WithRaw(true), WithIO(in, &out, &errOut))
	require.NoError(t, cli.Run(nil))

	assert.Equal(t, "PONG\nOK\nv 1\n1\nERR unknown command 'foo'\n", out.String())
	assert.Equal(t, "Invalid argument(s)\n", errOut.String())
}

func TestRunConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	var out, errOut bytes.Buffer
	cli := NewRedisCli("127.0.0.1", port, WithTimeout(time.Second), WithIO(strings.NewReader(""), &out, &errOut))
	assert.Error(t, cli.Run([]string{"PING"}))
	assert.Contains(t, errOut.String(), "Could not connect to server")
}

func TestOutputHelp(t *testing.T) {
	var out bytes.Buffer
	cli := NewRedisCli("127.0.0.1", 6379, WithIO(strings.NewReader(""), &out, &out))

	cli.outputHelp([]string{"get"})
	assert.Contains(t, out.String(), "GET key")
	assert.Contains(t, out.String(), "group: string")
	assert.Contains(t, out.String(), "flags: readonly fast")

	out.Reset()
	cli.outputHelp([]string{"@generic"})
	assert.Contains(t, out.String(), "DEL key")
	assert.Contains(t, out.String(), "EXISTS key")
	assert.NotContains(t, out.String(), "SET")

	out.Reset()
	cli.outputHelp([]string{"flushall"})
	assert.Equal(t, "No help for flushall\n", out.String())

	assert.Equal(t, []string{"DEL", "EXISTS", "GET", "PING", "SET"}, commandNames())
}
