package capture

import (
	"context"
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is used when encoding frames for the stream.
const DefaultJPEGQuality = 75

// ErrNoFrame is returned by Latest before any frame was published.
var ErrNoFrame = errors.New("no frame captured yet")

// FrameBuffer holds the most recent JPEG frame so several viewers can
// stream without reading the camera themselves.
type FrameBuffer struct {
	quality int

	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	changed chan struct{}
}

// NewFrameBuffer returns an empty buffer encoding at quality (1-100).
func NewFrameBuffer(quality int) *FrameBuffer {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &FrameBuffer{quality: quality, changed: make(chan struct{})}
}

// Publish encodes frame and wakes waiting viewers.
func (b *FrameBuffer) Publish(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return ErrEmptyFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{int(gocv.IMWriteJpegQuality), b.quality})
	if err != nil {
		return err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	b.Store(data)
	return nil
}

// Store replaces the latest frame with already encoded JPEG bytes.
func (b *FrameBuffer) Store(jpeg []byte) {
	b.mu.Lock()
	b.jpeg = jpeg
	b.seq++
	close(b.changed)
	b.changed = make(chan struct{})
	b.mu.Unlock()
}

// Latest returns the newest frame and its sequence number.
func (b *FrameBuffer) Latest() ([]byte, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seq == 0 {
		return nil, 0, ErrNoFrame
	}
	return b.jpeg, b.seq, nil
}

// Next blocks until a frame newer than after is available.
func (b *FrameBuffer) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		b.mu.Lock()
		if b.seq > after {
			jpeg, seq := b.jpeg, b.seq
			b.mu.Unlock()
			return jpeg, seq, nil
		}
		changed := b.changed
		b.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, after, ctx.Err()
		}
	}
}
