package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fzft/go-mini-redis/deps/hredis"
	"github.com/fzft/go-mini-redis/deps/linenoise"
	"github.com/mattn/go-isatty"
)

var (
	RedisVersion = "1.0.0"

	RedisCliHisFileEnv     = "MINIREDIS_CLI_HISTFILE"
	RedisCliHisFileDefault = ".miniredis_history"
)

type CliConnectFlag int

const (
	CCForce CliConnectFlag = 1 << iota // Re-connect if already connected.
	CCQuiet                            // Don't show non-error messages.
)

type OutputMode uint8

const (
	OutputStandard OutputMode = iota
	OutputRaw
)

type CliConnInfo struct {
	hostIp   string
	hostPort int
}

type RedisCliCfg struct {
	connInfo    *CliConnInfo
	repeat      int
	interval    time.Duration
	timeout     time.Duration
	interactive bool
	prompt      string
	output      OutputMode
}

type RedisCli struct {
	config  *RedisCliCfg
	context *hredis.RedisContext

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

type Option func(*RedisCli)

// WithRepeat runs a one shot command n times, waiting interval in between.
func WithRepeat(n int, interval time.Duration) Option {
	return func(cli *RedisCli) {
		cli.config.repeat = n
		cli.config.interval = interval
	}
}

// WithRaw forces raw (true) or formatted (false) output. Without it, output
// is raw when stdout is not a terminal.
func WithRaw(raw bool) Option {
	return func(cli *RedisCli) {
		if raw {
			cli.config.output = OutputRaw
		} else {
			cli.config.output = OutputStandard
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cli *RedisCli) {
		cli.config.timeout = d
	}
}

// WithIO replaces stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(cli *RedisCli) {
		cli.in, cli.out, cli.errOut = in, out, errOut
	}
}

func NewRedisCli(host string, port int, opts ...Option) *RedisCli {
	cli := &RedisCli{
		config: &RedisCliCfg{
			connInfo: &CliConnInfo{hostIp: host, hostPort: port},
			repeat:   1,
			timeout:  5 * time.Second,
		},
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		cli.config.output = OutputRaw
	}
	for _, opt := range opts {
		opt(cli)
	}
	cli.cliRefreshPrompt()
	return cli
}

func (cli *RedisCli) Version(gitSHA1, gitDirty string) string {
	version := RedisVersion
	// Add git commit and working tree status when available
	if sha1Int, err := strconv.ParseUint(gitSHA1, 16, 64); err == nil && sha1Int != 0 {
		version = fmt.Sprintf("%s (git:%s", version, gitSHA1)
		if dirtyInt, err := strconv.ParseInt(gitDirty, 10, 64); err == nil && dirtyInt != 0 {
			version = fmt.Sprintf("%s-dirty", version)
		}
		version = fmt.Sprintf("%s)", version)
	}
	return version
}

// Run sends args as one command when given. Otherwise it reads commands
// from stdin, interactively when stdin is a terminal.
func (cli *RedisCli) Run(args []string) error {
	defer cli.close()

	if len(args) > 0 {
		if err := cli.connect(0); err != nil {
			return err
		}
		return cli.issueCommandRepeat(args, cli.config.repeat)
	}

	if f, ok := cli.in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		_ = cli.connect(0)
		cli.repl()
		return nil
	}

	if err := cli.connect(0); err != nil {
		return err
	}
	return cli.readCommands(cli.in)
}

func (cli *RedisCli) close() {
	if cli.context != nil {
		_ = cli.context.Close()
		cli.context = nil
	}
}

// connect to the server
// flag: CCForce: The connection is performed even if there is already
// a connected socket.
// CCQuiet: Don't print errors if connection fails
func (cli *RedisCli) connect(flag CliConnectFlag) error {
	if cli.context != nil && flag&CCForce == 0 {
		return nil
	}
	cli.close()

	ctx, err := hredis.RedisConnectWithTimeout(cli.config.connInfo.hostIp, cli.config.connInfo.hostPort, cli.config.timeout)
	if err != nil {
		if flag&CCQuiet == 0 {
			fmt.Fprintf(cli.errOut, "Could not connect to server at %s:%d: %s\n",
				cli.config.connInfo.hostIp, cli.config.connInfo.hostPort, ctx.ErrStr)
		}
		return err
	}
	cli.context = ctx
	return nil
}

// readCommands runs one command per line of r, for piped input.
func (cli *RedisCli) readCommands(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		argv, err := splitArgs(scanner.Text())
		if err != nil {
			fmt.Fprintln(cli.errOut, "Invalid argument(s)")
			continue
		}
		if len(argv) == 0 {
			continue
		}
		if err := cli.issueCommandRepeat(argv, 1); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (cli *RedisCli) repl() {
	line := linenoise.New()
	defer line.Close()
	line.SetCompletions(commandNames())

	cli.config.interactive = true
	historyFile := getDotfilePath(RedisCliHisFileEnv, RedisCliHisFileDefault)
	if historyFile != "" {
		_ = line.HistoryLoad(historyFile)
	}

	for {
		prompt := cli.config.prompt
		if cli.context == nil {
			prompt = "not connected> "
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			// Ctrl-C, Ctrl-D or a closed terminal
			break
		}

		argv, err := splitArgs(input)
		if err != nil {
			fmt.Fprintln(cli.out, "Invalid argument(s)")
			line.AppendHistory(input)
			continue
		} else if len(argv) == 0 {
			continue
		}
		line.AppendHistory(input)
		if historyFile != "" {
			_ = line.HistorySave(historyFile)
		}

		// check if we have a repeat command option and need to skip the first arg
		repeat, err := strconv.Atoi(argv[0])
		if len(argv) > 1 && err == nil {
			if repeat <= 0 {
				fmt.Fprintln(cli.out, "Invalid repeat command option value.")
				continue
			}
			argv = argv[1:]
		} else {
			repeat = 1
		}

		switch {
		case strings.EqualFold(argv[0], "quit") || strings.EqualFold(argv[0], "exit"):
			return
		case len(argv) == 3 && strings.EqualFold(argv[0], "connect"):
			port, err := strconv.Atoi(argv[2])
			if err != nil {
				fmt.Fprintln(cli.out, "Invalid port number")
				continue
			}
			cli.config.connInfo.hostIp = argv[1]
			cli.config.connInfo.hostPort = port
			cli.cliRefreshPrompt()
			_ = cli.connect(CCForce)
		case len(argv) == 1 && strings.EqualFold(argv[0], "clear"):
			_ = line.ClearScreen()
		case strings.EqualFold(argv[0], "help") || argv[0] == "?":
			cli.outputHelp(argv[1:])
		default:
			start := time.Now()
			if err := cli.issueCommandRepeat(argv, repeat); err != nil {
				continue
			}
			if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
				fmt.Fprintf(cli.out, "(%.2fs)\n", elapsed.Seconds())
			}
		}
	}
}

// issueCommandRepeat runs argv repeat times. An I/O failure triggers one
// reconnect and retry, as the connection may have been closed on timeout.
func (cli *RedisCli) issueCommandRepeat(argv []string, repeat int) error {
	for i := 0; i < repeat; i++ {
		if i > 0 && cli.config.interval > 0 {
			time.Sleep(cli.config.interval)
		}
		err := cli.issueCommand(argv)
		if err != nil {
			if cerr := cli.connect(CCForce); cerr != nil {
				return cerr
			}
			if err = cli.issueCommand(argv); err != nil {
				fmt.Fprintf(cli.errOut, "I/O error: %s\n", err)
				cli.close()
				return err
			}
		}
	}
	return nil
}

func (cli *RedisCli) issueCommand(argv []string) error {
	if cli.context == nil {
		return errors.New("not connected")
	}
	reply, err := cli.context.RedisCommand(argv...)
	if err != nil {
		return err
	}
	fmt.Fprint(cli.out, formatReply(reply, cli.config.output))
	return nil
}

func (cli *RedisCli) cliRefreshPrompt() {
	cli.config.prompt = fmt.Sprintf("%s:%d> ", cli.config.connInfo.hostIp, cli.config.connInfo.hostPort)
}

/*------------------------------------------------------------------------------
 * Reply formatting
 *--------------------------------------------------------------------------- */

// formatReply renders a reply followed by a newline, like redis-cli.
func formatReply(r *hredis.RedisReply, mode OutputMode) string {
	if mode == OutputRaw {
		return formatRawReply(r) + "\n"
	}
	return formatStandardReply(r, "")
}

func formatStandardReply(r *hredis.RedisReply, prefix string) string {
	switch r.Tp {
	case hredis.RedisReplyError:
		return fmt.Sprintf("(error) %s\n", r.Str)
	case hredis.RedisReplyStatus:
		return r.Str + "\n"
	case hredis.RedisReplyInteger:
		return fmt.Sprintf("(integer) %d\n", r.Integer)
	case hredis.RedisReplyString:
		return strconv.Quote(r.Str) + "\n"
	case hredis.RedisReplyNil:
		return "(nil)\n"
	case hredis.RedisReplyArray:
		if len(r.Element) == 0 {
			return "(empty array)\n"
		}
		var b strings.Builder
		width := len(strconv.Itoa(len(r.Element)))
		indent := prefix + strings.Repeat(" ", width+2)
		for i, el := range r.Element {
			if i > 0 {
				b.WriteString(prefix)
			}
			fmt.Fprintf(&b, "%*d) ", width, i+1)
			b.WriteString(formatStandardReply(el, indent))
		}
		return b.String()
	default:
		return fmt.Sprintf("Unknown reply type: %d\n", r.Tp)
	}
}

func formatRawReply(r *hredis.RedisReply) string {
	switch r.Tp {
	case hredis.RedisReplyInteger:
		return strconv.FormatInt(r.Integer, 10)
	case hredis.RedisReplyNil:
		return ""
	case hredis.RedisReplyArray:
		parts := make([]string, len(r.Element))
		for i, el := range r.Element {
			parts[i] = formatRawReply(el)
		}
		return strings.Join(parts, "\n")
	default:
		return r.Str
	}
}

/*------------------------------------------------------------------------------
 * Argument splitting
 *--------------------------------------------------------------------------- */

var errUnbalancedQuotes = errors.New("unbalanced quotes")

// splitArgs splits a line into arguments. Double quoted arguments support
// \n \r \t \b \a \\ \" and \xHH escapes, single quoted ones only \'. A
// closing quote must be followed by a space or the end of the line.
func splitArgs(line string) ([]string, error) {
	argv := []string{}
	i := 0
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			return argv, nil
		}

		var (
			cur    []byte
			inDq   bool
			inSq   bool
			closed bool
		)
		for !closed {
			if inDq {
				if i >= len(line) {
					return nil, errUnbalancedQuotes
				}
				c := line[i]
				switch {
				case c == '\\' && i+3 < len(line) && line[i+1] == 'x' && isHex(line[i+2]) && isHex(line[i+3]):
					cur = append(cur, hexVal(line[i+2])<<4|hexVal(line[i+3]))
					i += 3
				case c == '\\' && i+1 < len(line):
					i++
					cur = append(cur, unescape(line[i]))
				case c == '"':
					// closing quote must be followed by a space or nothing
					if i+1 < len(line) && !isSpace(line[i+1]) {
						return nil, errUnbalancedQuotes
					}
					closed = true
				default:
					cur = append(cur, c)
				}
			} else if inSq {
				if i >= len(line) {
					return nil, errUnbalancedQuotes
				}
				c := line[i]
				switch {
				case c == '\\' && i+1 < len(line) && line[i+1] == '\'':
					i++
					cur = append(cur, '\'')
				case c == '\'':
					if i+1 < len(line) && !isSpace(line[i+1]) {
						return nil, errUnbalancedQuotes
					}
					closed = true
				default:
					cur = append(cur, c)
				}
			} else {
				if i >= len(line) {
					break
				}
				switch c := line[i]; {
				case isSpace(c):
					closed = true
				case c == '"':
					inDq = true
				case c == '\'':
					inSq = true
				default:
					cur = append(cur, c)
				}
			}
			if i < len(line) {
				i++
			}
		}
		argv = append(argv, string(cur))
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\v' || c == '\f'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'a':
		return '\a'
	default:
		return c
	}
}

func getDotfilePath(envOverride, dotFilename string) string {
	if path := os.Getenv(envOverride); path != "" {
		if path == "/dev/null" {
			return ""
		}
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, dotFilename)
}
