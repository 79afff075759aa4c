package chain

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/dijksterhuis/octatools/pkg/codec"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

func constant(frames int, v float64) *Buffer {
	b := NewBuffer(frames, 1, 44100, 16)
	for i := range b.Samples {
		b.Samples[i] = v
	}
	return b
}

func ramp(frames int) *Buffer {
	b := NewBuffer(frames, 1, 44100, 16)
	for i := range b.Samples {
		b.Samples[i] = float64(i)
	}
	return b
}

func TestFades(t *testing.T) {
	b := constant(10, 1)
	b.FadeIn(0.5)
	want := []float64{0, 0.2, 0.4, 0.6, 0.8, 1, 1, 1, 1, 1}
	for i, w := range want {
		if math.Abs(b.Samples[i]-w) > 1e-9 {
			t.Errorf("FadeIn() frame %d = %v, want %v", i, b.Samples[i], w)
		}
	}

	b = constant(10, 1)
	b.FadeOut(0.5)
	want = []float64{1, 1, 1, 1, 1, 0.8, 0.6, 0.4, 0.2, 0}
	for i, w := range want {
		if math.Abs(b.Samples[i]-w) > 1e-9 {
			t.Errorf("FadeOut() frame %d = %v, want %v", i, b.Samples[i], w)
		}
	}
}

func TestStretch(t *testing.T) {
	tests := []struct {
		name   string
		factor int
		want   []float64
	}{
		{"unchanged", 0, []float64{0, 1, 2, 3, 4, 5}},
		{"every second frame", 1, []float64{0, 2, 4}},
		{"every third frame", 2, []float64{0, 3}},
		{"doubled", -1, []float64{0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ramp(6)
			b.Stretch(tt.factor)
			if len(b.Samples) != len(tt.want) {
				t.Fatalf("Stretch(%d) = %v, want %v", tt.factor, b.Samples, tt.want)
			}
			for i := range tt.want {
				if b.Samples[i] != tt.want[i] {
					t.Errorf("Stretch(%d) = %v, want %v", tt.factor, b.Samples, tt.want)
					break
				}
			}
		})
	}
}

func TestStretchStereoKeepsFramesTogether(t *testing.T) {
	b := &Buffer{Samples: []float64{0, 10, 1, 11, 2, 12, 3, 13}, Channels: 2, SampleRate: 44100, BitDepth: 16}
	b.Stretch(1)
	want := []float64{0, 10, 2, 12}
	for i := range want {
		if b.Samples[i] != want[i] {
			t.Fatalf("Stretch(1) = %v, want %v", b.Samples, want)
		}
	}
}

func TestProcessingOrder(t *testing.T) {
	// the loudest sample sits inside the fade-in region
	src := constant(100, 0.25)
	src.Samples[5] = 0.5

	p := Processing{FadeIn: 0.1, FadeOut: 0.1, Normalize: true}
	got := src.Clone()
	p.Apply(got)
	if peak := got.Peak(); math.Abs(peak-1) > 1e-12 {
		t.Errorf("Peak() after Apply = %v, want 1", peak)
	}

	normalizedFirst := src.Clone()
	normalizedFirst.Normalize()
	normalizedFirst.FadeIn(0.1)
	normalizedFirst.FadeOut(0.1)
	if math.Abs(normalizedFirst.Peak()-got.Peak()) < 1e-6 {
		t.Error("normalizing before fading gave the same peak as fading first")
	}
	if src.Samples[5] != 0.5 {
		t.Error("Apply() on a clone changed the source buffer")
	}
}

func TestProcessingValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Processing
		ok   bool
	}{
		{"zero", Processing{}, true},
		{"full fades", Processing{FadeIn: 1, FadeOut: 1, Stretch: -127}, true},
		{"fade in", Processing{FadeIn: 1.5}, false},
		{"fade out", Processing{FadeOut: -0.1}, false},
		{"stretch", Processing{Stretch: 128}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			var ve *codec.ValidationError
			if !tt.ok && !errors.As(err, &ve) {
				t.Errorf("Validate() error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestAssembleChainBound(t *testing.T) {
	buffers := make([]*Buffer, 65)
	for i := range buffers {
		buffers[i] = constant(10, 0.5)
	}

	pairs, err := Assemble(buffers, octatrack.DefaultSampleSettings(), Processing{})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("len(Assemble()) = %d, want 2", len(pairs))
	}

	first := pairs[0].Slices()
	if len(first) != 64 {
		t.Errorf("first chain has %d slices, want 64", len(first))
	}
	for i, s := range first {
		want := octatrack.Slice{TrimStart: uint32(i * 10), TrimEnd: uint32(i*10 + 10), LoopStart: octatrack.LoopDisabled}
		if s != want {
			t.Errorf("slice %d = %+v, want %+v", i, s, want)
		}
	}
	if n := len(pairs[1].Slices()); n != 1 {
		t.Errorf("second chain has %d slices, want 1", n)
	}
	if frames := pairs[0].Audio.Frames(); frames != 640 {
		t.Errorf("first chain Frames() = %d, want 640", frames)
	}

	attrs := pairs[0].Attributes
	if attrs.TrimEnd != 640 || attrs.TrimLength != octatrack.BarsX100(120, 640, 44100) {
		t.Errorf("trim = %d/%d, want 640/%d", attrs.TrimEnd, attrs.TrimLength, octatrack.BarsX100(120, 640, 44100))
	}
	if !attrs.ChecksumValid() {
		t.Error("chain attributes checksum is stale")
	}
}

func TestAssembleSettings(t *testing.T) {
	s := octatrack.SampleSettings{Tempo: 140, Gain: -6, Loop: octatrack.LoopNormal, Stretch: octatrack.StretchBeat, Quantization: octatrack.QuantPatternLength}
	pairs, err := Assemble([]*Buffer{constant(4, 0.1)}, s, Processing{})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	a := pairs[0].Attributes
	if a.Tempo != 3360 || a.Gain != 36 || a.Loop != s.Loop || a.Stretch != s.Stretch || a.Quantization != s.Quantization {
		t.Errorf("attributes = %+v, want settings %+v", a, s)
	}
}

func TestAssembleMixedInputs(t *testing.T) {
	stereo := &Buffer{Samples: []float64{0.1, 0.2, 0.3, 0.4}, Channels: 2, SampleRate: 44100, BitDepth: 24}
	pairs, err := Assemble([]*Buffer{constant(3, 0.5), stereo}, octatrack.DefaultSampleSettings(), Processing{})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	out := pairs[0].Audio
	if out.Channels != 2 || out.BitDepth != 24 || out.Frames() != 5 {
		t.Errorf("chain = %d channels, %d bit, %d frames, want 2, 24, 5", out.Channels, out.BitDepth, out.Frames())
	}
	if out.Samples[0] != 0.5 || out.Samples[1] != 0.5 {
		t.Errorf("upmixed frame = %v, want [0.5 0.5]", out.Samples[:2])
	}

	other := constant(3, 0.5)
	other.SampleRate = 48000
	_, err = Assemble([]*Buffer{constant(3, 0.5), other}, octatrack.DefaultSampleSettings(), Processing{})
	var ve *codec.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("Assemble() with mixed rates error = %v, want *ValidationError", err)
	}
}

func TestAssembleEmpty(t *testing.T) {
	if _, err := Assemble(nil, octatrack.DefaultSampleSettings(), Processing{}); !errors.Is(err, ErrNoInputs) {
		t.Errorf("Assemble(nil) error = %v, want ErrNoInputs", err)
	}
}

func writeInputs(t *testing.T, dir string, lengths ...int) []string {
	t.Helper()
	var paths []string
	for i, n := range lengths {
		path := filepath.Join(dir, "in", "sample"+string(rune('a'+i))+".wav")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := WriteWAV(path, constant(n, 0.5)); err != nil {
			t.Fatalf("WriteWAV() error = %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	src := &Buffer{Samples: []float64{0, 0.5, -0.5, -1, 0.25, 0.75}, Channels: 2, SampleRate: 48000, BitDepth: 16}
	if err := WriteWAV(path, src); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}
	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV() error = %v", err)
	}
	if got.Channels != 2 || got.SampleRate != 48000 || got.BitDepth != 16 || got.Frames() != 3 {
		t.Fatalf("ReadWAV() = %d ch %d Hz %d bit %d frames", got.Channels, got.SampleRate, got.BitDepth, got.Frames())
	}
	for i := range src.Samples {
		if got.Samples[i] != src.Samples[i] {
			t.Errorf("sample %d = %v, want %v", i, got.Samples[i], src.Samples[i])
		}
	}
}

func TestReadWAVInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadWAV(path)
	var fe *codec.FormatError
	if !errors.As(err, &fe) {
		t.Errorf("ReadWAV() error = %v, want *FormatError", err)
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	c := Chain{
		Name:     "drums",
		Inputs:   writeInputs(t, dir, 100, 200, 50),
		Settings: octatrack.DefaultSampleSettings(),
	}
	outDir := filepath.Join(dir, "out")

	outputs, err := Build(c, outDir)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("len(Build()) = %d, want 1", len(outputs))
	}
	o := outputs[0]
	if o.AudioPath != filepath.Join(outDir, "drums-1.wav") || o.AttributesPath != filepath.Join(outDir, "drums-1.ot") {
		t.Errorf("Build() paths = %s, %s", o.AudioPath, o.AttributesPath)
	}

	audio, err := ReadWAV(o.AudioPath)
	if err != nil {
		t.Fatalf("ReadWAV() error = %v", err)
	}
	if audio.Frames() != 350 {
		t.Errorf("chain Frames() = %d, want 350", audio.Frames())
	}
	attrs, err := octatrack.ReadSampleAttributesFile(o.AttributesPath)
	if err != nil {
		t.Fatalf("ReadSampleAttributesFile() error = %v", err)
	}
	slices := attrs.ActiveSlices()
	wantEnds := []uint32{100, 300, 350}
	if len(slices) != len(wantEnds) {
		t.Fatalf("len(slices) = %d, want %d", len(slices), len(wantEnds))
	}
	for i, end := range wantEnds {
		if slices[i].TrimEnd != end {
			t.Errorf("slice %d end = %d, want %d", i, slices[i].TrimEnd, end)
		}
	}

	parts, err := Deconstruct(o.AudioPath, "", filepath.Join(dir, "split"))
	if err != nil {
		t.Fatalf("Deconstruct() error = %v", err)
	}
	if len(parts) != 3 || filepath.Base(parts[1]) != "drums-1-2.wav" {
		t.Fatalf("Deconstruct() = %v", parts)
	}
	second, err := ReadWAV(parts[1])
	if err != nil {
		t.Fatalf("ReadWAV() error = %v", err)
	}
	if second.Frames() != 200 {
		t.Errorf("second slice Frames() = %d, want 200", second.Frames())
	}
}

func TestBuildMissingInput(t *testing.T) {
	dir := t.TempDir()
	c := Chain{
		Name:     "broken",
		Inputs:   append(writeInputs(t, dir, 10), filepath.Join(dir, "missing.wav")),
		Settings: octatrack.DefaultSampleSettings(),
	}
	if _, err := Build(c, filepath.Join(dir, "out")); err == nil {
		t.Fatal("Build() error = nil, want error")
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "broken-1.wav")); !os.IsNotExist(err) {
		t.Error("Build() wrote output despite a failed input")
	}
}

func TestSliceLinear(t *testing.T) {
	path := writeInputs(t, t.TempDir(), 10)[0]
	attrs, err := SliceLinear(path, 3, octatrack.DefaultSampleSettings())
	if err != nil {
		t.Fatalf("SliceLinear() error = %v", err)
	}
	want := [][2]uint32{{0, 3}, {3, 6}, {6, 10}}
	slices := attrs.ActiveSlices()
	if len(slices) != len(want) {
		t.Fatalf("len(slices) = %d, want %d", len(slices), len(want))
	}
	for i, w := range want {
		if slices[i].TrimStart != w[0] || slices[i].TrimEnd != w[1] {
			t.Errorf("slice %d = [%d, %d), want [%d, %d)", i, slices[i].TrimStart, slices[i].TrimEnd, w[0], w[1])
		}
	}
	if _, err := os.Stat(octatrack.AttributesPath(path)); err != nil {
		t.Errorf("SliceLinear() did not write the .ot file: %v", err)
	}

	if _, err := SliceLinear(path, 11, octatrack.DefaultSampleSettings()); err == nil {
		t.Error("SliceLinear() with more slices than frames error = nil, want error")
	}
}

func TestSliceRandom(t *testing.T) {
	path := writeInputs(t, t.TempDir(), 1000)[0]
	first, err := SliceRandom(path, 8, 42, octatrack.DefaultSampleSettings())
	if err != nil {
		t.Fatalf("SliceRandom() error = %v", err)
	}
	again, err := SliceRandom(path, 8, 42, octatrack.DefaultSampleSettings())
	if err != nil {
		t.Fatalf("SliceRandom() error = %v", err)
	}
	a, b := first.ActiveSlices(), again.ActiveSlices()
	if len(a) != 8 {
		t.Fatalf("len(slices) = %d, want 8", len(a))
	}
	var next uint32
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("slice %d differs between runs with the same seed", i)
		}
		if a[i].TrimStart != next || a[i].TrimEnd <= a[i].TrimStart {
			t.Errorf("slice %d = %+v, want a non-empty slice starting at %d", i, a[i], next)
		}
		next = a[i].TrimEnd
	}
	if next != 1000 {
		t.Errorf("slices end at %d, want 1000", next)
	}
}
