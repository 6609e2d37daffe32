package aof

import (
	"fmt"
	"os"

	"redisloop/resp"
)

// Replay reads path as a concatenation of RESP arrays and calls
// dispatch with each array's bulk-string arguments in order. A missing
// file is not an error (nothing to replay). A protocol error mid-stream
// aborts replay and returns an error, matching spec §4.3's "abort on
// corrupt suffix" resolution of the open question — no truncate-and-
// continue behavior.
//
// Grounded on myredis/aof/load.go's LoadAof, reworked against the
// incremental resp.TryParse contract instead of resp.ParseStream's
// blocking channel, since the parser this system carries forward
// cannot behave any other way.
func Replay(path string, dispatch func(args [][]byte) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	pos := 0
	for pos < len(data) {
		consumed, value, status, perr := resp.TryParse(data[pos:])
		switch status {
		case resp.Complete:
			args, ok := commandArgs(value)
			if !ok {
				return fmt.Errorf("aof: corrupt frame at offset %d: expected array of bulk strings", pos)
			}
			if err := dispatch(args); err != nil {
				return fmt.Errorf("aof: replay failed at offset %d: %w", pos, err)
			}
			pos += consumed
		case resp.Incomplete:
			return fmt.Errorf("aof: truncated frame at offset %d", pos)
		case resp.ProtocolError:
			return fmt.Errorf("aof: protocol error at offset %d: %w", pos, perr)
		}
	}
	return nil
}

func commandArgs(v resp.Value) ([][]byte, bool) {
	if v.Kind != resp.Array || v.IsNullArray() {
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
