package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestFrameBuffer_Latest(t *testing.T) {
	b := NewFrameBuffer(0)

	if _, _, err := b.Latest(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Latest() on empty buffer = %v, want ErrNoFrame", err)
	}

	b.Store([]byte("one"))
	b.Store([]byte("two"))

	data, seq, err := b.Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if string(data) != "two" || seq != 2 {
		t.Errorf("Latest() = %q, %d", data, seq)
	}
}

func TestFrameBuffer_Next(t *testing.T) {
	b := NewFrameBuffer(80)
	b.Store([]byte("first"))

	data, seq, err := b.Next(context.Background(), 0)
	if err != nil || string(data) != "first" {
		t.Fatalf("Next(0) = %q, %v", data, err)
	}

	done := make(chan []byte)
	go func() {
		data, _, _ := b.Next(context.Background(), seq)
		done <- data
	}()

	time.Sleep(20 * time.Millisecond)
	b.Store([]byte("second"))

	select {
	case data := <-done:
		if string(data) != "second" {
			t.Errorf("Next() = %q, want second", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next() did not wake on Store()")
	}
}

func TestFrameBuffer_NextCancelled(t *testing.T) {
	b := NewFrameBuffer(80)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, _, err := b.Next(ctx, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next() = %v, want deadline exceeded", err)
	}
}

func TestFrameBuffer_Publish(t *testing.T) {
	b := NewFrameBuffer(90)

	empty := gocv.NewMat()
	defer empty.Close()
	if err := b.Publish(&empty); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Publish(empty) = %v, want ErrEmptyFrame", err)
	}

	frame := solidFrame(128)
	defer frame.Close()
	if err := b.Publish(&frame); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	data, _, err := b.Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("published frame is not a JPEG")
	}
}
