package process

import (
	"bytes"
	"sync"
)

// cappedBuffer keeps at most limit bytes and reports the first overflow
type cappedBuffer struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	limit    int
	exceeded bool
	overflow func()
}

func newCappedBuffer(limit int, overflow func()) *cappedBuffer {
	return &cappedBuffer{limit: limit, overflow: overflow}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit <= 0 || b.buf.Len()+len(p) <= b.limit {
		return b.buf.Write(p)
	}
	if room := b.limit - b.buf.Len(); room > 0 {
		b.buf.Write(p[:room])
	}
	if !b.exceeded {
		b.exceeded = true
		if b.overflow != nil {
			b.overflow()
		}
	}
	// swallow the rest so the child sees no write error before it is killed
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *cappedBuffer) Exceeded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exceeded
}
