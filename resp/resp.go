// Package resp implements the RESP2 wire format used between the server and
// its clients: five value kinds, each carrying its own length so a decoder
// never needs external framing.
//
// https://redis.io/docs/reference/protocol-spec/
package resp

const CRLF string = "\r\n"

// Types equivalent to RESP version 2
const (
	TypeArray   byte = '*'
	TypeBlob    byte = '$'
	TypeSimple  byte = '+'
	TypeError   byte = '-'
	TypeInteger byte = ':'
)

// Node is a decoded protocol value. The set of implementations is closed:
// SimpleString, Error, Integer, BulkString and Array.
type Node interface {
	// Type returns the wire prefix byte of the value.
	Type() byte
}

// SimpleString is a short status string without line terminators.
type SimpleString struct {
	Value string
}

// Error carries a server or protocol failure description.
type Error struct {
	Message string
}

type Integer struct {
	Value int64
}

// BulkString is a binary safe string. A Null bulk string ("$-1") signals the
// absence of a value and is distinct from the empty string.
type BulkString struct {
	Value string
	Null  bool
}

// Array is an ordered list of values. A Null array ("*-1") is distinct from
// an array with zero elements.
type Array struct {
	Elements []Node
	Null     bool
}

func (SimpleString) Type() byte { return TypeSimple }
func (Error) Type() byte        { return TypeError }
func (Integer) Type() byte      { return TypeInteger }
func (BulkString) Type() byte   { return TypeBlob }
func (Array) Type() byte        { return TypeArray }

// Bulk returns a present bulk string holding s.
func Bulk(s string) BulkString {
	return BulkString{Value: s}
}

// NullBulk returns the absent bulk string.
func NullBulk() BulkString {
	return BulkString{Null: true}
}

// NewArray returns a non-null array of the given elements.
func NewArray(elements ...Node) Array {
	if elements == nil {
		elements = []Node{}
	}
	return Array{Elements: elements}
}

// NullArray returns the null array.
func NullArray() Array {
	return Array{Null: true}
}
