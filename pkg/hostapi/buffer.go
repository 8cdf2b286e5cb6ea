package hostapi

import (
	"strings"

	"go.uber.org/zap"
)

// BufferReader is the host's chunked view over an I/O buffer, e.g. a body
// passing through a transform hook.
type BufferReader interface {
	// Avail reports the bytes ready to read, or an error when the host
	// buffer is in a bad state.
	Avail() (int64, error)
	// Blocks returns the buffered data split the way the host stores it.
	Blocks() [][]byte
	// Consume marks n bytes as read so the host can recycle them.
	Consume(n int64)
}

// Drain reads everything currently available from a host buffer reader and
// consumes it. A host-side error is logged and yields an empty string; the
// caller sees "no data", never a fault.
func Drain(r BufferReader, log *zap.Logger) string {
	avail, err := r.Avail()
	if err != nil {
		log.Error("host buffer reader in error state", zap.Error(err))
		return ""
	}
	if avail <= 0 {
		r.Consume(0)
		return ""
	}
	var sb strings.Builder
	sb.Grow(int(avail))
	var consumed int64
	for _, b := range r.Blocks() {
		sb.Write(b)
		consumed += int64(len(b))
	}
	r.Consume(consumed)
	return sb.String()
}
