package node

import (
	"fmt"
	"strings"

	"github.com/fzft/go-mini-redis/db"
	"github.com/fzft/go-mini-redis/resp"
)

type CommandFlags uint64

const (
	CmdWrite CommandFlags = 1 << iota
	CmdReadOnly
	CmdFast
)

// String lists the set flags, e.g. "readonly fast".
func (f CommandFlags) String() string {
	var names []string
	if f&CmdWrite != 0 {
		names = append(names, "write")
	}
	if f&CmdReadOnly != 0 {
		names = append(names, "readonly")
	}
	if f&CmdFast != 0 {
		names = append(names, "fast")
	}
	return strings.Join(names, " ")
}

type RedisCommandGroup uint8

const (
	RedisCommandGroupGeneric RedisCommandGroup = iota
	RedisCommandGroupString
	RedisCommandGroupConnection
)

func (g RedisCommandGroup) String() string {
	switch g {
	case RedisCommandGroupString:
		return "string"
	case RedisCommandGroupConnection:
		return "connection"
	default:
		return "generic"
	}
}

var (
	// Shared command responses

	SharedOk       = resp.SimpleString{Value: "OK"}
	SharedPong     = resp.SimpleString{Value: "PONG"}
	SharedNullBulk = resp.NullBulk()
	SharedCZero    = resp.Integer{Value: 0}
	SharedCOne     = resp.Integer{Value: 1}

	// Shared command error responses

	SharedEmptyCommandErr = resp.Error{Message: "ERR empty command"}
	SharedRateLimitErr    = resp.Error{Message: "ERR rate limit exceeded"}
)

// RedisCommandProc runs a command whose arity was already checked. argv[0]
// is the command name as sent by the client.
type RedisCommandProc func(store db.Store, argv []string) resp.Node

// RedisCommand describes one entry of the command table.
type RedisCommand struct {
	Name  string
	Proc  RedisCommandProc
	Group RedisCommandGroup
	Flags CommandFlags
	// Arity counts the command name itself and must match exactly.
	Arity   int
	Summary string
}

func (c *RedisCommand) checkArity(argc int) bool {
	return argc == c.Arity
}

var commandTable = map[string]*RedisCommand{
	"ping": {
		Name:    "ping",
		Proc:    pingCommand,
		Group:   RedisCommandGroupConnection,
		Flags:   CmdFast,
		Arity:   1,
		Summary: "Returns the server's liveliness response.",
	},
	"set": {
		Name:    "set",
		Proc:    setCommand,
		Group:   RedisCommandGroupString,
		Flags:   CmdWrite,
		Arity:   3,
		Summary: "Sets the string value of a key.",
	},
	"get": {
		Name:    "get",
		Proc:    getCommand,
		Group:   RedisCommandGroupString,
		Flags:   CmdReadOnly | CmdFast,
		Arity:   2,
		Summary: "Returns the string value of a key.",
	},
	"del": {
		Name:    "del",
		Proc:    delCommand,
		Group:   RedisCommandGroupGeneric,
		Flags:   CmdWrite,
		Arity:   2,
		Summary: "Deletes a key.",
	},
	"exists": {
		Name:    "exists",
		Proc:    existsCommand,
		Group:   RedisCommandGroupGeneric,
		Flags:   CmdReadOnly | CmdFast,
		Arity:   2,
		Summary: "Determines whether a key exists.",
	},
}

// LookupCommand finds a command by name, ignoring case.
func LookupCommand(name string) (*RedisCommand, bool) {
	cmd, ok := commandTable[strings.ToLower(name)]
	return cmd, ok
}

// Dispatcher turns decoded requests into store operations and replies.
// It does no I/O and is safe for concurrent use when its store is.
type Dispatcher struct {
	store db.Store
}

func NewDispatcher(store db.Store) *Dispatcher {
	return &Dispatcher{store: store}
}

// Dispatch executes req, which must be an array of bulk strings, and
// returns the reply. Malformed or unknown requests yield an Error reply.
func (d *Dispatcher) Dispatch(req resp.Node) resp.Node {
	reply, _ := d.dispatch(req)
	return reply
}

// dispatch also returns the name of the executed command, or "" when the
// request never reached a known command.
func (d *Dispatcher) dispatch(req resp.Node) (resp.Node, string) {
	argv, errReply := requestArgs(req)
	if errReply != nil {
		return errReply, ""
	}
	if len(argv) == 0 {
		return SharedEmptyCommandErr, ""
	}

	cmd, ok := LookupCommand(argv[0])
	if !ok {
		return errorReplyf("ERR unknown command '%s'", argv[0]), ""
	}
	if !cmd.checkArity(len(argv)) {
		return errorReplyf("ERR wrong number of arguments for '%s' command", cmd.Name), cmd.Name
	}
	return cmd.Proc(d.store, argv), cmd.Name
}

// requestArgs flattens an array of present bulk strings into argv.
func requestArgs(req resp.Node) ([]string, resp.Node) {
	arr, ok := req.(resp.Array)
	if !ok {
		return nil, formatErr("expected array, got '%c'", typeByte(req))
	}
	if arr.Null {
		return nil, formatErr("null array")
	}

	argv := make([]string, len(arr.Elements))
	for i, el := range arr.Elements {
		bulk, ok := el.(resp.BulkString)
		if !ok {
			return nil, formatErr("argument %d is not a bulk string", i)
		}
		if bulk.Null {
			return nil, formatErr("argument %d is a null bulk string", i)
		}
		argv[i] = bulk.Value
	}
	return argv, nil
}

func typeByte(n resp.Node) byte {
	if n == nil {
		return '?'
	}
	return n.Type()
}

func formatErr(format string, a ...any) resp.Node {
	return errorReplyf("ERR invalid format: "+format, a...)
}

// errorReplyf builds an Error reply. Line breaks would end the simple
// string early, so they are replaced by spaces.
func errorReplyf(format string, a ...any) resp.Error {
	return resp.Error{Message: mapChars(fmt.Sprintf(format, a...), "\r\n", "  ")}
}
