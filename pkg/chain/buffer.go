// Package chain builds Octatrack sample chains: many short WAV files joined
// into one, with an .ot slice table addressing each original sample.
package chain

import (
	"io"
	"math"
	"os"
	"strconv"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"github.com/dijksterhuis/octatools/pkg/codec"
	"github.com/dijksterhuis/octatools/pkg/fileio"
)

// Buffer is interleaved PCM audio scaled to [-1, 1]
type Buffer struct {
	Samples    []float64
	Channels   int
	SampleRate int
	BitDepth   int
}

// NewBuffer returns a silent buffer of frames frames
func NewBuffer(frames, channels, sampleRate, bitDepth int) *Buffer {
	return &Buffer{
		Samples:    make([]float64, frames*channels),
		Channels:   channels,
		SampleRate: sampleRate,
		BitDepth:   bitDepth,
	}
}

// Frames returns the number of sample frames
func (b *Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Clone returns a deep copy
func (b *Buffer) Clone() *Buffer {
	c := *b
	c.Samples = append([]float64(nil), b.Samples...)
	return &c
}

// Peak returns the largest absolute sample value
func (b *Buffer) Peak() float64 {
	var peak float64
	for _, s := range b.Samples {
		peak = math.Max(peak, math.Abs(s))
	}
	return peak
}

// Upmix copies a mono buffer onto channels channels
func (b *Buffer) Upmix(channels int) *Buffer {
	if b.Channels != 1 || channels == 1 {
		return b.Clone()
	}
	out := NewBuffer(b.Frames(), channels, b.SampleRate, b.BitDepth)
	for i, s := range b.Samples {
		for c := 0; c < channels; c++ {
			out.Samples[i*channels+c] = s
		}
	}
	return out
}

// Slice returns frames [start, end) as a new buffer
func (b *Buffer) Slice(start, end int) (*Buffer, error) {
	if start < 0 || end > b.Frames() || start > end {
		return nil, codec.Invalid("slice", [2]int{start, end}, "within the audio's frames")
	}
	out := *b
	out.Samples = append([]float64(nil), b.Samples[start*b.Channels:end*b.Channels]...)
	return &out, nil
}

func fullScale(bitDepth int) float64 {
	return float64(int(1) << (bitDepth - 1))
}

func checkBitDepth(depth int) error {
	if depth != 16 && depth != 24 {
		return codec.Invalid("bit depth", depth, "16, 24")
	}
	return nil
}

// DecodeWAV reads a 16 or 24 bit PCM WAV stream
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, &codec.FormatError{Record: "wav", Expected: "RIFF WAVE header", Actual: "invalid header"}
	}
	if d.WavAudioFormat != 1 {
		return nil, &codec.FormatError{
			Record:   "wav",
			Field:    "audio_format",
			Offset:   20,
			Expected: "1 (PCM)",
			Actual:   strconv.Itoa(int(d.WavAudioFormat)),
		}
	}
	depth := int(d.BitDepth)
	if err := checkBitDepth(depth); err != nil {
		return nil, err
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read PCM data")
	}

	b := &Buffer{
		Samples:    make([]float64, len(pcm.Data)),
		Channels:   int(d.NumChans),
		SampleRate: int(d.SampleRate),
		BitDepth:   depth,
	}
	full := fullScale(depth)
	for i, v := range pcm.Data {
		b.Samples[i] = float64(v) / full
	}
	return b, nil
}

// ReadWAV reads a WAV file
func ReadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(&fileio.IOError{Op: "open", Path: path, Err: err})
	}
	defer f.Close()

	b, err := DecodeWAV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return b, nil
}

// EncodeWAV writes b as PCM at its own bit depth, clipping at full scale
func EncodeWAV(w io.WriteSeeker, b *Buffer) error {
	if err := checkBitDepth(b.BitDepth); err != nil {
		return err
	}
	full := fullScale(b.BitDepth)
	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = int(math.Max(-full, math.Min(full-1, math.Round(s*full))))
	}

	enc := wav.NewEncoder(w, b.SampleRate, b.BitDepth, b.Channels, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: b.SampleRate, NumChannels: b.Channels},
		SourceBitDepth: b.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "failed to encode PCM data")
	}
	return enc.Close()
}

// WriteWAV replaces path with b encoded as WAV
func WriteWAV(path string, b *Buffer) error {
	return fileio.WriteFileFunc(path, 0644, func(w io.WriteSeeker) error {
		return EncodeWAV(w, b)
	})
}
