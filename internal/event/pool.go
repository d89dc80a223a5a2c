package event

import (
	"bytes"
	"sync"
)

// bufferPool reuses encode buffers; every committed instruction is encoded
// at least once on the commit path.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

func acquireBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// releaseBuffer resets buf and returns it to the pool.
// Oversized buffers are dropped so one large event does not pin memory.
func releaseBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > 64<<10 {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
