// Package command validates and executes RESP command arrays against a
// keyspace, an AOF writer, and an optional metrics registry.
//
// Grounded on aravinth-kanesh-distributed-cache's handler.go: a
// map[string]CommandFunc-free but structurally identical big switch
// over the uppercased command name, arity checked up front, mutating
// commands re-serializing their own frame into the AOF writer on
// success, INFO built as CRLF-joined "# Section" / "key:value" lines,
// and metrics hooks that are nil-checked rather than required.
package command

import (
	"fmt"
	"strings"

	"redisloop/aof"
	"redisloop/metrics"
	"redisloop/resp"
	"redisloop/store"
)

// Handler dispatches parsed command frames. It is not safe for
// concurrent use; the event loop is its only caller.
type Handler struct {
	ks      *store.Keyspace
	writer  *aof.Writer
	metrics *metrics.Registry // nil disables metrics entirely
}

func New(ks *store.Keyspace, writer *aof.Writer, m *metrics.Registry) *Handler {
	return &Handler{ks: ks, writer: writer, metrics: m}
}

// Execute validates frame against the input contract (spec §4.4: a
// non-null array of non-null bulk strings) and, on success, dispatches
// it and appends the original frame to the AOF log if the command
// mutated the keyspace.
func (h *Handler) Execute(frame resp.Value, nowMs int64) resp.Value {
	args, ok := commandArgs(frame)
	if !ok {
		return resp.NewError("ERR Protocol error: expected array of bulk strings")
	}
	reply, mutated := h.dispatch(args, nowMs)
	if mutated && reply.Kind != resp.Error {
		if err := h.writer.Append(resp.Serialize(frame)); err != nil {
			// A write failure after a successful open is fatal per
			// spec §4.3; this handler reacts by disabling AOF. The
			// command's own reply is still returned unchanged.
			h.writer.Disable()
		}
	}
	return reply
}

// ExecuteReplay dispatches args (already decoded from the AOF file)
// with AOF writes suppressed, ignoring any command-level error the
// replayed command reports — only a corrupt frame aborts replay, and
// that is caught by aof.Replay before this is ever called.
func (h *Handler) ExecuteReplay(args [][]byte, nowMs int64) {
	h.dispatch(args, nowMs)
}

func commandArgs(v resp.Value) ([][]byte, bool) {
	if v.Kind != resp.Array || v.IsNullArray() || len(v.Elems) == 0 {
		return nil, false
	}
	args := make([][]byte, len(v.Elems))
	for i, e := range v.Elems {
		if e.Kind != resp.BulkString || e.IsNullBulk() {
			return nil, false
		}
		args[i] = e.Bulk
	}
	return args, true
}

// dispatch executes a validated command array and reports whether it
// mutated the keyspace (and should therefore be AOF-logged on success).
func (h *Handler) dispatch(args [][]byte, nowMs int64) (resp.Value, bool) {
	name := strings.ToUpper(string(args[0]))
	if h.metrics != nil {
		h.metrics.ObserveCommand(name)
	}
	switch name {
	case "PING":
		return h.cmdPing(args)
	case "ECHO":
		return h.cmdEcho(args)
	case "SET":
		return h.cmdSet(args, nowMs)
	case "GET":
		return h.cmdGet(args, nowMs)
	case "DEL":
		return h.cmdDel(args, nowMs)
	case "EXISTS":
		return h.cmdExists(args, nowMs)
	case "DBSIZE":
		return h.cmdDBSize(args)
	case "CONFIG":
		return h.cmdConfig(args)
	case "AOF":
		return h.cmdAOF(args)
	case "INFO":
		return h.cmdInfo(args)
	default:
		return resp.NewError(fmt.Sprintf("ERR unknown command '%s'", args[0])), false
	}
}

func arityError(name string) resp.Value {
	return resp.NewError(fmt.Sprintf("ERR wrong number of arguments for '%s'", strings.ToUpper(name)))
}

func (h *Handler) cmdPing(args [][]byte) (resp.Value, bool) {
	switch len(args) {
	case 1:
		return resp.Pong, false
	case 2:
		return resp.NewBulkString(args[1]), false
	default:
		return arityError("PING"), false
	}
}

func (h *Handler) cmdEcho(args [][]byte) (resp.Value, bool) {
	if len(args) != 2 {
		return arityError("ECHO"), false
	}
	return resp.NewBulkString(args[1]), false
}

func (h *Handler) cmdGet(args [][]byte, nowMs int64) (resp.Value, bool) {
	if len(args) != 2 {
		return arityError("GET"), false
	}
	v, ok := h.ks.Get(string(args[1]), nowMs)
	if !ok {
		return resp.NullBulk, false
	}
	return resp.NewBulkString(v), false
}

func (h *Handler) cmdDel(args [][]byte, nowMs int64) (resp.Value, bool) {
	if len(args) < 2 {
		return arityError("DEL"), false
	}
	keys := make([]string, len(args)-1)
	for i, a := range args[1:] {
		keys[i] = string(a)
	}
	n := h.ks.Del(keys, nowMs)
	return resp.NewInteger(int64(n)), true
}

func (h *Handler) cmdExists(args [][]byte, nowMs int64) (resp.Value, bool) {
	if len(args) < 2 {
		return arityError("EXISTS"), false
	}
	count := 0
	for _, a := range args[1:] {
		if h.ks.Exists(string(a), nowMs) {
			count++
		}
	}
	return resp.NewInteger(int64(count)), false
}

func (h *Handler) cmdDBSize(args [][]byte) (resp.Value, bool) {
	if len(args) != 1 {
		return arityError("DBSIZE"), false
	}
	return resp.NewInteger(int64(h.ks.Len())), false
}
