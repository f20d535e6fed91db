package capture

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func solidFrame(v uint8) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(v), float64(v), float64(v), 0), 480, 640, gocv.MatTypeCV8UC3)
}

func TestMotionDetector_FirstFrameIsBaseline(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := solidFrame(0)
	defer frame.Close()

	if moved, change := md.Detect(&frame); moved || change != 0 {
		t.Errorf("first frame: moved=%v change=%v, want false 0", moved, change)
	}
}

func TestMotionDetector_NoMotion(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := solidFrame(60)
	defer frame.Close()

	md.Detect(&frame)
	if moved, change := md.Detect(&frame); moved || change != 0 {
		t.Errorf("identical frames: moved=%v change=%v", moved, change)
	}
}

func TestMotionDetector_Motion(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	still := solidFrame(0)
	defer still.Close()

	// A bright block covering a quarter of the frame.
	moving := solidFrame(0)
	defer moving.Close()
	gocv.Rectangle(&moving, image.Rect(0, 0, 320, 240), color.RGBA{255, 255, 255, 0}, -1)

	md.Detect(&still)
	moved, change := md.Detect(&moving)
	if !moved {
		t.Errorf("expected motion, change=%.2f%%", change)
	}
	if change < 15 || change > 35 {
		t.Errorf("change = %.2f%%, want roughly 25%%", change)
	}
	if md.LastChange() != change {
		t.Errorf("LastChange() = %v, want %v", md.LastChange(), change)
	}
}

func TestMotionDetector_ResetAndSizeChange(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	a := solidFrame(0)
	defer a.Close()
	b := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 240, 320, gocv.MatTypeCV8UC3)
	defer b.Close()

	md.Detect(&a)
	if moved, _ := md.Detect(&b); moved {
		t.Error("a new frame size should start a new baseline")
	}

	md.Reset()
	if moved, _ := md.Detect(&a); moved {
		t.Error("first frame after Reset() should not report motion")
	}
}

func TestMotionDetector_Threshold(t *testing.T) {
	md := NewMotionDetector(2.5)
	defer md.Close()

	md.SetThreshold(0)
	if md.Threshold() != 2.5 {
		t.Errorf("Threshold() = %v, want 2.5", md.Threshold())
	}
	md.SetThreshold(5)
	if md.Threshold() != 5 {
		t.Errorf("Threshold() = %v, want 5", md.Threshold())
	}
}

func TestMotionDetector_EmptyFrame(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	if moved, _ := md.Detect(&empty); moved {
		t.Error("empty frame reported motion")
	}
	if moved, _ := md.Detect(nil); moved {
		t.Error("nil frame reported motion")
	}
}
