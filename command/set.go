package command

import (
	"fmt"
	"strconv"
	"strings"

	"redisloop/resp"
)

// cmdSet implements SET k v [EX seconds | PX milliseconds]. Grounded on
// aravinth-kanesh-distributed-cache's cmdSet: loop the trailing args,
// uppercase-match the option token and parse its numeric argument. An
// odd number of trailing args is a syntax error, a non-numeric argument
// a not-an-integer error, and an unrecognized token an unknown-option
// error.
func (h *Handler) cmdSet(args [][]byte, nowMs int64) (resp.Value, bool) {
	if len(args) < 3 {
		return arityError("SET"), false
	}
	key := string(args[1])
	val := args[2]

	var expiresAtMs int64
	rest := args[3:]
	if len(rest)%2 != 0 {
		return resp.NewError("ERR syntax error"), false
	}
	for i := 0; i < len(rest); i += 2 {
		opt := strings.ToUpper(string(rest[i]))
		numArg := rest[i+1]
		n, err := strconv.ParseInt(string(numArg), 10, 64)
		if err != nil {
			return resp.NewError("ERR value is not an integer or out of range"), false
		}
		if n <= 0 {
			return resp.NewError(fmt.Sprintf("ERR invalid expire time in '%s' command", "SET")), false
		}
		switch opt {
		case "EX":
			expiresAtMs = nowMs + n*1000
		case "PX":
			expiresAtMs = nowMs + n
		default:
			return resp.NewError(fmt.Sprintf("ERR unknown option '%s'", rest[i])), false
		}
	}

	h.ks.Set(key, val, expiresAtMs, nowMs)
	return resp.OK, true
}
