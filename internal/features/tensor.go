package features

// Tensor is an immutable channel × mel × frame spectrogram with values in
// [0,1]. Accessors hand out copies.
type Tensor struct {
	mels   int
	frames int
	data   []float32
}

// NewTensor wraps row-major mel × frame data. It is used by tests and by
// callers restoring tensors from storage.
func NewTensor(mels, frames int, data []float32) Tensor {
	cp := make([]float32, mels*frames)
	copy(cp, data)
	return Tensor{mels: mels, frames: frames, data: cp}
}

// Shape returns [channels, mels, frames].
func (t Tensor) Shape() []int { return []int{1, t.mels, t.frames} }

// Mels returns the number of mel rows.
func (t Tensor) Mels() int { return t.mels }

// Frames returns the number of time frames.
func (t Tensor) Frames() int { return t.frames }

// At returns the value for mel row m at frame f.
func (t Tensor) At(m, f int) float32 { return t.data[m*t.frames+f] }

// Row returns a copy of mel row m.
func (t Tensor) Row(m int) []float32 {
	out := make([]float32, t.frames)
	copy(out, t.data[m*t.frames:(m+1)*t.frames])
	return out
}

// Data returns a copy of the row-major values.
func (t Tensor) Data() []float32 {
	out := make([]float32, len(t.data))
	copy(out, t.data)
	return out
}

// Pool summarizes the tensor over time: the per-mel mean followed by the
// per-mel maximum.
func (t Tensor) Pool() []float64 {
	out := make([]float64, 2*t.mels)
	for m := range t.mels {
		row := t.data[m*t.frames : (m+1)*t.frames]
		var sum float64
		peak := float64(row[0])
		for _, v := range row {
			sum += float64(v)
			peak = max(peak, float64(v))
		}
		out[m] = sum / float64(t.frames)
		out[t.mels+m] = peak
	}
	return out
}
