package command

import (
	"fmt"
	"strconv"
	"strings"

	"redisloop/resp"
)

// cmdInfo builds the CRLF-separated key:value report spec §6 requires.
// Grounded on aravinth-kanesh-distributed-cache's cmdInfo: a
// "# Section" header followed by "key:value" lines, joined with "\r\n"
// into a single bulk string. INFO takes no arguments here, per spec
// §9's resolution of the section-argument open question.
func (h *Handler) cmdInfo(args [][]byte) (resp.Value, bool) {
	if len(args) != 1 {
		return arityError("INFO"), false
	}
	var b strings.Builder
	b.WriteString("# Memory\r\n")
	fmt.Fprintf(&b, "used_memory:%d\r\n", h.ks.EstimatedBytes())
	fmt.Fprintf(&b, "maxmemory:%d\r\n", h.ks.MaxBytes())
	fmt.Fprintf(&b, "evicted_keys:%d\r\n", h.ks.EvictionsTotal())
	b.WriteString("# Persistence\r\n")
	fmt.Fprintf(&b, "aof_enabled:%s\r\n", strconv.FormatBool(h.writer.Enabled()))
	b.WriteString("# Keyspace\r\n")
	fmt.Fprintf(&b, "keys:%d\r\n", h.ks.Len())

	return resp.NewBulkString([]byte(b.String())), false
}
