package gain

import (
	"math"
	"testing"
)

func TestDbConversion(t *testing.T) {
	tests := []struct {
		name    string
		linear  float64
		db      float64
		epsilon float64
	}{
		{"Unity gain", 1.0, 0.0, 0.001},
		{"Half amplitude", 0.5, -6.02, 0.01},
		{"Double amplitude", 2.0, 6.02, 0.01},
		{"Zero amplitude", 0.0, MinDB, 0.001},
		{"Negative amplitude", -1.0, MinDB, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinearToDb(tt.linear); math.Abs(got-tt.db) > tt.epsilon {
				t.Errorf("LinearToDb(%f) = %f, want %f", tt.linear, got, tt.db)
			}
			if tt.linear > 0 {
				if got := DbToLinear(tt.db); math.Abs(got-tt.linear) > tt.epsilon {
					t.Errorf("DbToLinear(%f) = %f, want %f", tt.db, got, tt.linear)
				}
			}
		})
	}

	if DbToLinear(MinDB) != 0 {
		t.Error("MinDB should be silence")
	}
}

func TestRamp(t *testing.T) {
	buf := []float32{1, 1, 1, 1}
	Ramp(buf, 0, 1)
	want := []float32{0.25, 0.5, 0.75, 1}
	for i := range buf {
		if math.Abs(float64(buf[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %f want %f", i, buf[i], want[i])
		}
	}

	flat := []float32{2, -2}
	Ramp(flat, 0.5, 0.5)
	if flat[0] != 1 || flat[1] != -1 {
		t.Errorf("constant gain: got %v", flat)
	}
}

func TestSoftClip(t *testing.T) {
	if SoftClip(0.5, 0.9) != 0.5 {
		t.Error("below threshold must pass unchanged")
	}
	for _, x := range []float32{1, 2, 10, -10} {
		y := SoftClip(x, 0.9)
		if y > 0.9 || y < -0.9 {
			t.Errorf("SoftClip(%f) = %f exceeds threshold", x, y)
		}
	}
}

func TestSanitize(t *testing.T) {
	buf := []float32{0.5, float32(math.NaN()), float32(math.Inf(1)), -0.25, float32(math.Inf(-1))}
	if n := Sanitize(buf); n != 3 {
		t.Errorf("expected 3 replaced, got %d", n)
	}
	for i, s := range buf {
		if s != s {
			t.Errorf("sample %d still NaN", i)
		}
	}
	if buf[0] != 0.5 || buf[3] != -0.25 {
		t.Errorf("finite samples changed: %v", buf)
	}
}
