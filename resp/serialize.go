package resp

import (
	"bytes"
	"strconv"
)

const crlf = "\r\n"

// Serialize encodes v into its canonical RESP wire form. Encoding is
// always complete; there is no notion of partial output.
func Serialize(v Value) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v Value) {
	switch v.Kind {
	case SimpleString:
		buf.WriteByte('+')
		buf.WriteString(v.Str)
		buf.WriteString(crlf)
	case Error:
		buf.WriteByte('-')
		buf.WriteString(v.Str)
		buf.WriteString(crlf)
	case Integer:
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(v.Int, 10))
		buf.WriteString(crlf)
	case BulkString:
		if v.IsNullBulk() {
			buf.WriteString("$-1")
			buf.WriteString(crlf)
			return
		}
		buf.WriteByte('$')
		buf.WriteString(strconv.Itoa(len(v.Bulk)))
		buf.WriteString(crlf)
		buf.Write(v.Bulk)
		buf.WriteString(crlf)
	case Array:
		if v.IsNullArray() {
			buf.WriteString("*-1")
			buf.WriteString(crlf)
			return
		}
		buf.WriteByte('*')
		buf.WriteString(strconv.Itoa(len(v.Elems)))
		buf.WriteString(crlf)
		for _, e := range v.Elems {
			writeValue(buf, e)
		}
	default:
		// Unreachable for values built through the constructors in
		// value.go; a zero Value has Kind 0, which is a programming
		// bug rather than something a client can trigger.
		panic("resp: serialize of value with unknown kind")
	}
}
