package resp

import "strconv"

// Encode serializes n into its wire form.
func Encode(n Node) []byte {
	return AppendNode(nil, n)
}

// AppendNode appends the wire form of n to dst and returns the extended
// buffer. A nil Node encodes as the null bulk string.
func AppendNode(dst []byte, n Node) []byte {
	switch v := n.(type) {
	case SimpleString:
		dst = append(dst, TypeSimple)
		dst = append(dst, v.Value...)
		return append(dst, CRLF...)

	case Error:
		dst = append(dst, TypeError)
		dst = append(dst, v.Message...)
		return append(dst, CRLF...)

	case Integer:
		return appendPrefixedInt(dst, TypeInteger, v.Value)

	case BulkString:
		if v.Null {
			return appendPrefixedInt(dst, TypeBlob, -1)
		}
		// length in bytes, not runes
		dst = appendPrefixedInt(dst, TypeBlob, int64(len(v.Value)))
		dst = append(dst, v.Value...)
		return append(dst, CRLF...)

	case Array:
		if v.Null {
			return appendPrefixedInt(dst, TypeArray, -1)
		}
		dst = appendPrefixedInt(dst, TypeArray, int64(len(v.Elements)))
		for _, elem := range v.Elements {
			dst = AppendNode(dst, elem)
		}
		return dst

	default:
		return appendPrefixedInt(dst, TypeBlob, -1)
	}
}

func appendPrefixedInt(dst []byte, prefix byte, ll int64) []byte {
	dst = append(dst, prefix)
	dst = strconv.AppendInt(dst, ll, 10)
	return append(dst, CRLF...)
}

// ConvertToRESP frames a command and its arguments as an array of bulk
// strings, the only request shape the server accepts.
func ConvertToRESP(command string, arguments ...string) []byte {
	elements := make([]Node, 0, len(arguments)+1)
	elements = append(elements, Bulk(command))
	for _, arg := range arguments {
		elements = append(elements, Bulk(arg))
	}
	return Encode(NewArray(elements...))
}
