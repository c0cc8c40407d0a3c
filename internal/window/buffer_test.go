package window

import (
	"reflect"
	"testing"

	"github.com/danielpatrickdp/horizon/go-controller/internal/env"
)

// filledBuffer appends n frames; frame i carries Biome=i and the action {i,...}.
func filledBuffer(t *testing.T, n int) *Buffer {
	t.Helper()
	b := NewBuffer(env.ActionDim)
	for i := 0; i < n; i++ {
		act := make(env.Action, env.ActionDim)
		act[0] = int32(i)
		b.Append(Frame{Biome: int64(i)}, act)
	}
	return b
}

func TestReadWindow_Empty(t *testing.T) {
	b := NewBuffer(env.ActionDim)
	if s := b.ReadWindow(0, 4, 1); s.Len() != 0 {
		t.Errorf("expected empty slice, got %v", s.Indices)
	}
}

func TestReadWindow_Indices(t *testing.T) {
	b := filledBuffer(t, 10)

	tests := []struct {
		name   string
		seek   int
		wl     int
		skip   int
		expect []int
	}{
		{"trailing-window", 0, 4, 1, []int{6, 7, 8, 9}},
		{"clamped-by-seek", 8, 4, 1, []int{8, 9}},
		{"strided", 0, 3, 2, []int{5, 7, 9}},
		{"strided-clamped", 6, 5, 2, []int{7, 9}},
		{"goal-just-started", 9, 4, 1, []int{9}},
		{"window-longer-than-history", 0, 32, 1, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := b.ReadWindow(tt.seek, tt.wl, tt.skip)
			if !reflect.DeepEqual(s.Indices, tt.expect) {
				t.Errorf("indices = %v, want %v", s.Indices, tt.expect)
			}
			for j, idx := range s.Indices {
				if s.Frames[j].Biome != int64(idx) {
					t.Errorf("frame %d not aligned with index %d", j, idx)
				}
			}
		})
	}
}

func TestReadWindow_NeverBeforeSeekAndBoundedLength(t *testing.T) {
	for n := 1; n <= 20; n++ {
		b := filledBuffer(t, n)
		end := n - 1
		for seek := 0; seek <= end; seek++ {
			for wl := 1; wl <= 8; wl++ {
				s := b.ReadWindow(seek, wl, 1)
				for _, idx := range s.Indices {
					if idx < seek-1 {
						t.Fatalf("n=%d seek=%d wl=%d: index %d precedes seek-1", n, seek, wl, idx)
					}
				}
				want := min(wl, end-seek+1)
				if s.Len() != want {
					t.Fatalf("n=%d seek=%d wl=%d: len %d, want %d", n, seek, wl, s.Len(), want)
				}
				if s.Indices[s.Len()-1] != end {
					t.Fatalf("window must end at the latest entry")
				}
			}
		}
	}
}

func TestReadWindow_PrevActionsResetAtSeek(t *testing.T) {
	b := filledBuffer(t, 10)
	s := b.ReadWindow(7, 4, 1)
	if !reflect.DeepEqual(s.Indices, []int{7, 8, 9}) {
		t.Fatalf("indices = %v", s.Indices)
	}
	if !s.PrevActions[0].IsZero() {
		t.Errorf("action at seek point should read as zero, got %v", s.PrevActions[0])
	}
	if s.PrevActions[1][0] != 8 || s.PrevActions[2][0] != 9 {
		t.Errorf("actions after seek should be preserved, got %v", s.PrevActions)
	}
}

func TestAppend_NilActionStoredAsZero(t *testing.T) {
	b := NewBuffer(env.ActionDim)
	b.Append(Frame{}, nil)
	s := b.ReadWindow(-1, 1, 1)
	if len(s.PrevActions[0]) != env.ActionDim || !s.PrevActions[0].IsZero() {
		t.Errorf("expected zero action of dim %d, got %v", env.ActionDim, s.PrevActions[0])
	}
}

func TestPreprocessScalesGPS(t *testing.T) {
	f := Preprocess(env.Observation{GPS: [3]float64{500, 64, -2000}, Biome: 3})
	want := [3]float32{0.5, 0.64, -2}
	if f.GPS != want {
		t.Errorf("GPS = %v, want %v", f.GPS, want)
	}
	if f.Biome != 3 {
		t.Errorf("biome not carried over")
	}
}
