package window

// #region imports
import (
	"github.com/danielpatrickdp/horizon/go-controller/internal/env"
)

// #endregion

// #region frame
// gpsScale normalizes raw GPS coordinates (x, y, z) into roughly unit range.
var gpsScale = [3]float64{1000, 100, 1000}

// Frame is one preprocessed observation as fed to the perception policy.
type Frame struct {
	RGB     []byte     `json:"rgb,omitempty"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Voxels  []int64    `json:"voxels"`
	Compass []float32  `json:"compass"`
	GPS     [3]float32 `json:"gps"`
	Biome   int64      `json:"biome"`
}

// Preprocess converts a raw observation into a Frame, scaling GPS by (1000, 100, 1000).
func Preprocess(raw env.Observation) Frame {
	f := Frame{
		RGB:     raw.RGB,
		Width:   raw.Width,
		Height:  raw.Height,
		Voxels:  raw.Voxels,
		Compass: raw.Compass,
		Biome:   raw.Biome,
	}
	for i := range f.GPS {
		f.GPS[i] = float32(raw.GPS[i] / gpsScale[i])
	}
	return f
}
// #endregion frame

// #region buffer
// Buffer is an append-only history of frames and the action that preceded each one.
// Everything is retained; reads go through ReadWindow which is bounded.
type Buffer struct {
	frames    []Frame
	actions   []env.Action
	actionDim int
}

// NewBuffer creates an empty buffer whose zero action has actionDim components.
func NewBuffer(actionDim int) *Buffer {
	return &Buffer{actionDim: actionDim}
}

// Append records f together with the action taken before it. A nil action is
// stored as the zero action.
func (b *Buffer) Append(f Frame, action env.Action) {
	if action == nil {
		action = b.zeroAction()
	} else {
		action = action.Clone()
	}
	b.frames = append(b.frames, f)
	b.actions = append(b.actions, action)
}

// Len returns the number of retained entries.
func (b *Buffer) Len() int { return len(b.frames) }

func (b *Buffer) zeroAction() env.Action {
	return make(env.Action, b.actionDim)
}
// #endregion buffer

// #region read-window
// Slice is a lock-step view over the buffer at a fixed set of indices.
type Slice struct {
	Indices     []int
	Frames      []Frame
	PrevActions []env.Action
}

// Len returns the number of indices in the slice.
func (s Slice) Len() int { return len(s.Indices) }

// ReadWindow selects up to windowLen indices ending at the latest entry, stepping
// back by skipFrame, and never earlier than seekPoint. Indices are returned
// ascending. Actions recorded at or before seekPoint belong to an earlier goal and
// read as the zero action.
func (b *Buffer) ReadWindow(seekPoint, windowLen, skipFrame int) Slice {
	if len(b.frames) == 0 {
		return Slice{}
	}
	if windowLen < 1 {
		windowLen = 1
	}
	if skipFrame < 1 {
		skipFrame = 1
	}

	end := len(b.frames) - 1
	stop := min(max(end-skipFrame*(windowLen-1)-1, seekPoint-1), end-1)

	var rev []int
	for i := end; i > stop; i -= skipFrame {
		rev = append(rev, i)
	}

	s := Slice{
		Indices:     make([]int, len(rev)),
		Frames:      make([]Frame, len(rev)),
		PrevActions: make([]env.Action, len(rev)),
	}
	for j := range rev {
		idx := rev[len(rev)-1-j]
		s.Indices[j] = idx
		s.Frames[j] = b.frames[idx]
		if idx <= seekPoint {
			s.PrevActions[j] = b.zeroAction()
		} else {
			s.PrevActions[j] = b.actions[idx].Clone()
		}
	}
	return s
}
// #endregion read-window
