package sfcli

import "bytes"

// cappedBuffer stores at most max bytes and silently drops the rest.
// Dropping instead of erroring keeps the child process from blocking on
// a full pipe while still bounding memory.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - int64(b.buf.Len())
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.truncated = true
		b.buf.Write(p[:remaining])
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte  { return b.buf.Bytes() }
func (b *cappedBuffer) String() string { return b.buf.String() }
