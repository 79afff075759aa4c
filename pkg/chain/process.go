package chain

import (
	"github.com/dijksterhuis/octatools/pkg/codec"
)

// Time-stretch factor bounds
const (
	MinStretch = -127
	MaxStretch = 127
)

// Processing is the optional per-sample treatment applied before chaining
type Processing struct {
	FadeIn    float64 `yaml:"fade_in" json:"fade_in"`
	FadeOut   float64 `yaml:"fade_out" json:"fade_out"`
	Normalize bool    `yaml:"normalize" json:"normalize"`
	Stretch   int     `yaml:"timestretch" json:"timestretch"`
}

// Validate checks fade fractions and the stretch factor
func (p Processing) Validate() error {
	if p.FadeIn < 0 || p.FadeIn > 1 {
		return codec.Invalid("fade in", p.FadeIn, "0.0..1.0")
	}
	if p.FadeOut < 0 || p.FadeOut > 1 {
		return codec.Invalid("fade out", p.FadeOut, "0.0..1.0")
	}
	if p.Stretch < MinStretch || p.Stretch > MaxStretch {
		return codec.Invalid("timestretch", p.Stretch, "-127..127")
	}
	return nil
}

// Apply runs fade in, fade out, normalize and time-stretch on b, in that order.
// Stretch goes last since it changes the frame count.
func (p Processing) Apply(b *Buffer) {
	if p.FadeIn > 0 {
		b.FadeIn(p.FadeIn)
	}
	if p.FadeOut > 0 {
		b.FadeOut(p.FadeOut)
	}
	if p.Normalize {
		b.Normalize()
	}
	if p.Stretch != 0 {
		b.Stretch(p.Stretch)
	}
}

func (b *Buffer) fadeFrames(fraction float64) int {
	return int(fraction * float64(b.Frames()))
}

func (b *Buffer) scaleFrame(frame int, gain float64) {
	for c := 0; c < b.Channels; c++ {
		b.Samples[frame*b.Channels+c] *= gain
	}
}

// FadeIn ramps the first fraction of the buffer linearly up from silence
func (b *Buffer) FadeIn(fraction float64) {
	n := b.fadeFrames(fraction)
	for i := 0; i < n; i++ {
		b.scaleFrame(i, float64(i)/float64(n))
	}
}

// FadeOut ramps the last fraction of the buffer linearly down to silence
func (b *Buffer) FadeOut(fraction float64) {
	n := b.fadeFrames(fraction)
	start := b.Frames() - n
	for i := 0; i < n; i++ {
		b.scaleFrame(start+i, float64(n-1-i)/float64(n))
	}
}

// Normalize scales the buffer so its peak reaches full scale
func (b *Buffer) Normalize() {
	peak := b.Peak()
	if peak == 0 {
		return
	}
	for i := range b.Samples {
		b.Samples[i] /= peak
	}
}

// Stretch changes the buffer's speed. A positive factor n keeps every
// (n+1)th frame; a negative factor repeats each frame |n|+1 times.
func (b *Buffer) Stretch(n int) {
	ch := b.Channels
	switch {
	case n > 0:
		step := n + 1
		out := make([]float64, 0, (b.Frames()/step+1)*ch)
		for f := 0; f < b.Frames(); f += step {
			out = append(out, b.Samples[f*ch:(f+1)*ch]...)
		}
		b.Samples = out
	case n < 0:
		reps := -n + 1
		out := make([]float64, 0, len(b.Samples)*reps)
		for f := 0; f < b.Frames(); f++ {
			for r := 0; r < reps; r++ {
				out = append(out, b.Samples[f*ch:(f+1)*ch]...)
			}
		}
		b.Samples = out
	}
}
