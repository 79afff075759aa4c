package chain

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/dijksterhuis/octatools/pkg/codec"
	"github.com/dijksterhuis/octatools/pkg/debug"
	"github.com/dijksterhuis/octatools/pkg/fileio"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

// Deconstruct splits a chain back into one WAV per slice, written as
// {outDir}/{stem}-{n}.wav. An empty otPath means the .ot next to wavPath.
func Deconstruct(wavPath, otPath, outDir string) ([]string, error) {
	if otPath == "" {
		otPath = octatrack.AttributesPath(wavPath)
	}
	attrs, err := octatrack.ReadSampleAttributesFile(otPath)
	if err != nil {
		return nil, err
	}
	audio, err := ReadWAV(wavPath)
	if err != nil {
		return nil, err
	}
	if err := fileio.MkdirAll(outDir); err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	var paths []string
	for i, s := range attrs.ActiveSlices() {
		part, err := audio.Slice(int(s.TrimStart), int(s.TrimEnd))
		if err != nil {
			return nil, errors.Wrapf(err, "slice %d", i+1)
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s-%d.wav", stem, i+1))
		if err := WriteWAV(path, part); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	debug.Log("chain", "deconstructed %s into %d files", wavPath, len(paths))
	return paths, nil
}

// SliceLinear writes an .ot next to wavPath splitting it into n equal slices.
// The last slice absorbs any remainder.
func SliceLinear(wavPath string, n int, s octatrack.SampleSettings) (*octatrack.SampleAttributes, error) {
	audio, err := ReadWAV(wavPath)
	if err != nil {
		return nil, err
	}
	frames := audio.Frames()
	if err := checkSliceCount(n, frames); err != nil {
		return nil, err
	}
	cuts := make([]int, n-1)
	for i := range cuts {
		cuts[i] = (i + 1) * (frames / n)
	}
	return writeSlices(wavPath, audio, cuts, s)
}

// SliceRandom writes an .ot next to wavPath splitting it into n slices at
// random boundaries. The same seed always gives the same slices.
func SliceRandom(wavPath string, n int, seed int64, s octatrack.SampleSettings) (*octatrack.SampleAttributes, error) {
	audio, err := ReadWAV(wavPath)
	if err != nil {
		return nil, err
	}
	frames := audio.Frames()
	if err := checkSliceCount(n, frames); err != nil {
		return nil, err
	}
	return writeSlices(wavPath, audio, randomCuts(rand.New(rand.NewSource(seed)), n-1, frames), s)
}

// randomCuts picks n distinct boundaries in 1..frames-1, ascending
func randomCuts(rng *rand.Rand, n, frames int) []int {
	seen := make(map[int]bool, n)
	cuts := make([]int, 0, n)
	for len(cuts) < n {
		c := 1 + rng.Intn(frames-1)
		if !seen[c] {
			seen[c] = true
			cuts = append(cuts, c)
		}
	}
	sort.Ints(cuts)
	return cuts
}

func checkSliceCount(n, frames int) error {
	if n < 1 || n > MaxSlices {
		return codec.Invalid("slice count", n, "1..64")
	}
	if n > frames {
		return codec.Invalid("slice count", n, fmt.Sprintf("at most the %d frames of audio", frames))
	}
	return nil
}

// writeSlices turns ascending cut points into contiguous slices covering the whole file
func writeSlices(wavPath string, audio *Buffer, cuts []int, s octatrack.SampleSettings) (*octatrack.SampleAttributes, error) {
	bounds := append(append([]int{0}, cuts...), audio.Frames())
	slices := make([]octatrack.Slice, len(bounds)-1)
	for i := range slices {
		slices[i] = octatrack.Slice{
			TrimStart: uint32(bounds[i]),
			TrimEnd:   uint32(bounds[i+1]),
			LoopStart: octatrack.LoopDisabled,
		}
	}
	attrs, err := attributesFor(audio, slices, s)
	if err != nil {
		return nil, err
	}
	if err := octatrack.WriteFile(octatrack.AttributesPath(wavPath), attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
