package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Protocol limits. A peer declaring anything larger is treated as malformed.
const (
	// MaxArrayLen limits the number of elements in a single array.
	MaxArrayLen = 1024 * 1024

	// MaxBulkLen limits the payload of a single bulk string (512MB, as Redis).
	MaxBulkLen = 512 * 1024 * 1024

	// MaxLineLen limits a CRLF terminated header or simple value.
	MaxLineLen = 64 * 1024

	// MaxDepth limits array nesting.
	MaxDepth = 512
)

var (
	// ErrIncomplete means the input ends before the value does. More bytes may
	// complete it, so a stream reader should keep accumulating.
	ErrIncomplete = errors.New("resp: incomplete value")

	// ErrProtocol means the input can never form a valid value.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrLimitExceeded means a declared length is above the protocol limits.
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// Decode parses one value from the start of data and returns it together
// with the number of bytes consumed.
func Decode(data []byte) (Node, int, error) {
	return DecodeAt(data, 0)
}

// DecodeAt parses one value starting at pos and returns the position right
// after it. Nothing past the value is inspected, so consecutive values can be
// read by feeding the returned position back in.
func DecodeAt(data []byte, pos int) (Node, int, error) {
	return decode(data, pos, 0)
}

func decode(data []byte, pos int, depth int) (Node, int, error) {
	if pos >= len(data) {
		return nil, pos, ErrIncomplete
	}

	switch data[pos] {
	case TypeSimple:
		line, next, err := readLine(data, pos+1)
		if err != nil {
			return nil, pos, err
		}
		return SimpleString{Value: string(line)}, next, nil

	case TypeError:
		line, next, err := readLine(data, pos+1)
		if err != nil {
			return nil, pos, err
		}
		return Error{Message: string(line)}, next, nil

	case TypeInteger:
		line, next, err := readLine(data, pos+1)
		if err != nil {
			return nil, pos, err
		}
		n, err := parseInt(line)
		if err != nil {
			return nil, pos, fmt.Errorf("%w: invalid integer %q", ErrProtocol, line)
		}
		return Integer{Value: n}, next, nil

	case TypeBlob:
		return decodeBulk(data, pos)

	case TypeArray:
		return decodeArray(data, pos, depth)

	default:
		return nil, pos, fmt.Errorf("%w: unexpected type byte %q", ErrProtocol, data[pos])
	}
}

func decodeBulk(data []byte, pos int) (Node, int, error) {
	line, next, err := readLine(data, pos+1)
	if err != nil {
		return nil, pos, err
	}
	n, err := parseInt(line)
	if err != nil {
		return nil, pos, fmt.Errorf("%w: invalid bulk length %q", ErrProtocol, line)
	}

	switch {
	case n == -1:
		return NullBulk(), next, nil
	case n < 0:
		return nil, pos, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, n)
	case n > MaxBulkLen:
		return nil, pos, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	end := next + int(n)
	// a terminator byte already received is checked even when the other
	// one is still missing
	if (end < len(data) && data[end] != '\r') || (end+1 < len(data) && data[end+1] != '\n') {
		return nil, pos, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	if end+2 > len(data) {
		return nil, pos, ErrIncomplete
	}
	return BulkString{Value: string(data[next:end])}, end + 2, nil
}

func decodeArray(data []byte, pos int, depth int) (Node, int, error) {
	if depth >= MaxDepth {
		return nil, pos, fmt.Errorf("%w: nesting deeper than %d", ErrLimitExceeded, MaxDepth)
	}

	line, next, err := readLine(data, pos+1)
	if err != nil {
		return nil, pos, err
	}
	n, err := parseInt(line)
	if err != nil {
		return nil, pos, fmt.Errorf("%w: invalid array length %q", ErrProtocol, line)
	}

	switch {
	case n == -1:
		return NullArray(), next, nil
	case n < 0:
		return nil, pos, fmt.Errorf("%w: invalid array length %d", ErrProtocol, n)
	case n > MaxArrayLen:
		return nil, pos, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	// Do not trust the declared length for the allocation.
	elements := make([]Node, 0, min(int(n), 64))
	for i := int64(0); i < n; i++ {
		var elem Node
		elem, next, err = decode(data, next, depth+1)
		if err != nil {
			return nil, pos, err
		}
		elements = append(elements, elem)
	}
	return Array{Elements: elements}, next, nil
}

// readLine returns the bytes between pos and the next CRLF, and the position
// after the CRLF. A lone CR or LF inside the line is a protocol error.
func readLine(data []byte, pos int) ([]byte, int, error) {
	rest := data[pos:]
	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		if cr := bytes.IndexByte(rest, '\r'); cr >= 0 && cr < len(rest)-1 {
			return nil, pos, fmt.Errorf("%w: missing CRLF", ErrProtocol)
		}
		if len(rest) > MaxLineLen {
			return nil, pos, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, MaxLineLen)
		}
		return nil, pos, ErrIncomplete
	}
	if idx == 0 || rest[idx-1] != '\r' {
		return nil, pos, fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	line := rest[:idx-1]
	if bytes.IndexByte(line, '\r') >= 0 {
		return nil, pos, fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	if len(line) > MaxLineLen {
		return nil, pos, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, MaxLineLen)
	}
	return line, pos + idx + 1, nil
}

// parseInt accepts an optional leading '-' followed by decimal digits only.
func parseInt(b []byte) (int64, error) {
	digits := b
	if len(digits) > 0 && digits[0] == '-' {
		digits = digits[1:]
	}
	if len(digits) == 0 {
		return 0, strconv.ErrSyntax
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.ParseInt(string(b), 10, 64)
}
