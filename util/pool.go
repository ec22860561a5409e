package util

import "sync"

// DefaultBufSize is the standard buffer size for serial reads (4 KiB).
// Serial chunks are small; the kernel tty buffer is 4 KiB per side.
const DefaultBufSize = 4 * 1024

// BufPool provides reusable byte buffers for serial I/O, reducing
// GC pressure on the forwarder hot path.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
