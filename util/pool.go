package util

import "github.com/valyala/bytebufferpool"

// GetBuffer retrieves a growable byte buffer from the shared pool.
// Callers must return it with [PutBuffer] when finished and must not
// retain slices of its contents afterwards.
func GetBuffer() *bytebufferpool.ByteBuffer {
	return bytebufferpool.Get()
}

// PutBuffer resets buf and returns it to the pool for reuse.
func PutBuffer(buf *bytebufferpool.ByteBuffer) {
	if buf == nil {
		return
	}
	bytebufferpool.Put(buf)
}
