// Package resp implements the RESP v2 wire format: a tagged-union value
// type, an incremental byte-buffer parser, and an encoder.
//
// Grounded on myredis/resp's reply.go (encoder shape, one struct per
// RESP type) and parser.go (prefix dispatch on '+','-',':','$','*'), but
// the parser here works over a byte slice instead of a bufio.Reader so
// it can report Incomplete without consuming or blocking — required by
// the event loop, which owns non-blocking sockets and must resume
// parsing after each partial read.
package resp

// Kind is the RESP type tag.
type Kind byte

const (
	SimpleString Kind = '+'
	Error        Kind = '-'
	Integer      Kind = ':'
	BulkString   Kind = '$'
	Array        Kind = '*'
)

// Value is a tagged-union RESP value. Exactly one of the fields below is
// meaningful, selected by Kind:
//
//	SimpleString/Error -> Str
//	Integer            -> Int
//	BulkString         -> Bulk (nil means the null bulk string, $-1)
//	Array              -> Elems (nil means the null array, *-1)
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Bulk  []byte
	Elems []Value
}

func NewSimpleString(s string) Value { return Value{Kind: SimpleString, Str: s} }
func NewError(s string) Value        { return Value{Kind: Error, Str: s} }
func NewInteger(n int64) Value       { return Value{Kind: Integer, Int: n} }

// NewBulkString wraps b as a non-null bulk string. A nil b is replaced
// by []byte{}, so the result is an empty bulk string, never the null
// bulk string; use NewNullBulkString for $-1.
func NewBulkString(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{Kind: BulkString, Bulk: b}
}

func NewNullBulkString() Value { return Value{Kind: BulkString, Bulk: nil} }

// NewArray wraps elems as a non-null array. Pass []Value{} for an
// explicit empty (non-null) array.
func NewArray(elems []Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: Array, Elems: elems}
}

func NewNullArray() Value { return Value{Kind: Array, Elems: nil} }

// NewCommandArray builds an Array of BulkStrings from raw command
// arguments, the shape the dispatcher and AOF both work with.
func NewCommandArray(args [][]byte) Value {
	elems := make([]Value, len(args))
	for i, a := range args {
		elems[i] = NewBulkString(a)
	}
	return NewArray(elems)
}

// IsNullBulk reports whether v is the null bulk string.
func (v Value) IsNullBulk() bool { return v.Kind == BulkString && v.Bulk == nil }

// IsNullArray reports whether v is the null array.
func (v Value) IsNullArray() bool { return v.Kind == Array && v.Elems == nil }

var (
	OK       = NewSimpleString("OK")
	Pong     = NewSimpleString("PONG")
	NullBulk = NewNullBulkString()
)

// Equal compares two values for structural equality, treating both null
// bulk strings and both null arrays as equal regardless of nested
// contents (there are none).
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case SimpleString, Error:
		return a.Str == b.Str
	case Integer:
		return a.Int == b.Int
	case BulkString:
		if a.IsNullBulk() != b.IsNullBulk() {
			return false
		}
		return string(a.Bulk) == string(b.Bulk)
	case Array:
		if a.IsNullArray() != b.IsNullArray() {
			return false
		}
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
