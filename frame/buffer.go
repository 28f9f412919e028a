package frame

// Buffer is the ordered queue of raw frames filled by an acquisition loop.
// Order is acquisition order, which is also rotation order.
//
// A Buffer is consumed by Pop; a converter that drains it takes ownership of
// the frames and leaves the Buffer empty.  It is not thread safe.
type Buffer struct {
	frames []Frame
}

// NewBuffer returns a buffer holding frames, in order
func NewBuffer(frames ...Frame) *Buffer {
	b := &Buffer{frames: make([]Frame, 0, len(frames))}
	b.frames = append(b.frames, frames...)
	return b
}

// Push appends a frame to the end of the buffer
func (b *Buffer) Push(f Frame) {
	b.frames = append(b.frames, f)
}

// Pop removes and returns the first pending frame.  ok is false when the
// buffer is empty.
func (b *Buffer) Pop() (f Frame, ok bool) {
	if len(b.frames) == 0 {
		return Frame{}, false
	}
	f = b.frames[0]
	b.frames[0] = Frame{}
	b.frames = b.frames[1:]
	return f, true
}

// Len is the number of pending frames
func (b *Buffer) Len() int {
	return len(b.frames)
}

// Peek returns the i-th pending frame without removing it
func (b *Buffer) Peek(i int) Frame {
	return b.frames[i]
}
