package at

import "bytes"

// DefaultBufferSize bounds a single transaction's response accumulator.
// Tokens of interest are short and arrive at the end of the modem chatter.
const DefaultBufferSize = 512

// Buffer is a fixed-capacity response accumulator. When full, the oldest
// bytes are dropped so the most recent output is always searchable.
type Buffer struct {
	data    []byte
	size    int
	dropped int
}

// NewBuffer returns an empty accumulator holding at most size bytes.
// A non-positive size selects DefaultBufferSize.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{data: make([]byte, 0, size), size: size}
}

// Write appends p, discarding from the oldest end on overflow. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= b.size {
		b.dropped += len(b.data) + n - b.size
		b.data = append(b.data[:0], p[n-b.size:]...)
		return n, nil
	}
	if over := len(b.data) + n - b.size; over > 0 {
		copy(b.data, b.data[over:])
		b.data = b.data[:len(b.data)-over]
		b.dropped += over
	}
	b.data = append(b.data, p...)
	return n, nil
}

// Contains reports whether any of the patterns occurs in the retained bytes.
// Empty patterns never match.
func (b *Buffer) Contains(patterns ...string) bool {
	for _, p := range patterns {
		if p != "" && bytes.Contains(b.data, []byte(p)) {
			return true
		}
	}
	return false
}

// Len returns the number of retained bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Dropped returns how many bytes were discarded on overflow.
func (b *Buffer) Dropped() int { return b.dropped }

func (b *Buffer) String() string { return string(b.data) }

// Reset empties the accumulator and clears the overflow count.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.dropped = 0
}
