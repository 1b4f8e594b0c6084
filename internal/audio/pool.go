package audio

import "sync"

// BufferPool recycles fragment byte buffers between a transport and the
// fragment processor. A buffer handed out by Get must be returned with Put
// once the consumer has finished with it.
type BufferPool struct {
	pool sync.Pool
	size int
}

// NewBufferPool creates a pool whose buffers start with the given capacity
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = 4096
	}
	p := &BufferPool{size: size}
	p.pool.New = func() any {
		b := make([]byte, 0, p.size)
		return &b
	}
	return p
}

// Get returns an empty buffer with at least n bytes of capacity
func (p *BufferPool) Get(n int) []byte {
	b := *(p.pool.Get().(*[]byte))
	if cap(b) < n {
		return make([]byte, 0, n)
	}
	return b[:0]
}

// Put returns a buffer to the pool
func (p *BufferPool) Put(b []byte) {
	if b == nil {
		return
	}
	b = b[:0]
	p.pool.Put(&b)
}

// Copy returns a pooled copy of data
func (p *BufferPool) Copy(data []byte) []byte {
	return append(p.Get(len(data)), data...)
}
