package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestActivityGate_FirstFrameCountsAsChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	gate := NewActivityGate(1.0)
	defer gate.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	changed, percent := gate.Changed(&frame)
	if !changed {
		t.Error("first frame should count as changed")
	}
	if percent != 100 {
		t.Errorf("first frame percent = %f, want 100", percent)
	}
}

func TestActivityGate_StillScene(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	gate := NewActivityGate(1.0)
	defer gate.Close()

	first := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer first.Close()
	second := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer second.Close()

	gate.Changed(&first)
	changed, percent := gate.Changed(&second)
	if changed {
		t.Errorf("identical frames reported change, percent = %f", percent)
	}
}

func TestActivityGate_SceneChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	gate := NewActivityGate(1.0)
	defer gate.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	gate.Changed(&black)
	changed, percent := gate.Changed(&white)
	if !changed {
		t.Errorf("black to white should report change, percent = %f", percent)
	}
	if percent < 50 {
		t.Errorf("percent = %f, want > 50", percent)
	}
}

func TestActivityGate_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	gate := NewActivityGate(1.0)
	defer gate.Close()

	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer frame.Close()

	gate.Changed(&frame)
	if !gate.primed {
		t.Fatal("gate should be primed after the first frame")
	}

	gate.Reset()
	if gate.primed {
		t.Error("gate should not be primed after Reset")
	}
	if changed, _ := gate.Changed(&frame); !changed {
		t.Error("first frame after Reset should count as changed")
	}
}

func TestActivityGate_NilFrame(t *testing.T) {
	gate := NewActivityGate(1.0)
	defer gate.Close()

	if changed, _ := gate.Changed(nil); changed {
		t.Error("nil frame should not report change")
	}
}

func TestActivityGate_CloseTwice(t *testing.T) {
	gate := NewActivityGate(1.0)
	gate.Close()
	gate.Close()
}
