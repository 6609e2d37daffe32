package command

import (
	"fmt"
	"strconv"
	"strings"

	"redisloop/aof"
	"redisloop/resp"
)

// cmdConfig implements CONFIG SET param value and CONFIG GET param.
// Grounded on aravinth-kanesh-distributed-cache's config handling and
// spec §4.4's fixed two-parameter surface: maxmemory and appendfsync.
func (h *Handler) cmdConfig(args [][]byte) (resp.Value, bool) {
	if len(args) < 2 {
		return arityError("CONFIG"), false
	}
	switch strings.ToUpper(string(args[1])) {
	case "SET":
		return h.cmdConfigSet(args)
	case "GET":
		return h.cmdConfigGet(args)
	default:
		return resp.NewError("ERR unknown CONFIG subcommand"), false
	}
}

func (h *Handler) cmdConfigSet(args [][]byte) (resp.Value, bool) {
	if len(args) != 4 {
		return arityError("CONFIG"), false
	}
	param := strings.ToLower(string(args[2]))
	value := string(args[3])
	switch param {
	case "maxmemory":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return resp.NewError("ERR value is not an integer or out of range"), false
		}
		h.ks.SetMaxMemory(n)
		return resp.OK, false
	case "appendfsync":
		policy, err := aof.ParseSyncPolicy(strings.ToLower(value))
		if err != nil {
			return resp.NewError("ERR syntax error"), false
		}
		h.writer.SetPolicy(policy)
		return resp.OK, false
	default:
		return resp.NewError(fmt.Sprintf("ERR unknown configuration parameter '%s'", args[2])), false
	}
}

func (h *Handler) cmdConfigGet(args [][]byte) (resp.Value, bool) {
	if len(args) != 3 {
		return arityError("CONFIG"), false
	}
	param := strings.ToLower(string(args[2]))
	switch param {
	case "maxmemory":
		return resp.NewArray([]resp.Value{
			resp.NewBulkString(args[2]),
			resp.NewBulkString([]byte(strconv.FormatInt(h.ks.MaxBytes(), 10))),
		}), false
	case "appendfsync":
		return resp.NewArray([]resp.Value{
			resp.NewBulkString(args[2]),
			resp.NewBulkString([]byte(h.writer.Policy())),
		}), false
	default:
		return resp.NewError(fmt.Sprintf("ERR unknown configuration parameter '%s'", args[2])), false
	}
}

// cmdAOF implements AOF ENABLE / AOF DISABLE.
func (h *Handler) cmdAOF(args [][]byte) (resp.Value, bool) {
	if len(args) != 2 {
		return arityError("AOF"), false
	}
	switch strings.ToUpper(string(args[1])) {
	case "ENABLE":
		if err := h.writer.Enable(); err != nil {
			return resp.NewError(fmt.Sprintf("ERR failed to enable AOF: %v", err)), false
		}
		return resp.OK, false
	case "DISABLE":
		h.writer.Disable()
		return resp.OK, false
	default:
		return resp.NewError("ERR syntax error"), false
	}
}
