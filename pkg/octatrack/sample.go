package octatrack

import (
	"fmt"
	"math"

	"github.com/dijksterhuis/octatools/pkg/codec"
)

// Sample attributes constants
const (
	SampleAttributesSize = 832
	MaxSlices            = 64
	LoopDisabled         = 0xFFFFFFFF

	MinTempo = 30.0
	MaxTempo = 300.0
	MinGain  = -24.0
	MaxGain  = 24.0

	checksumStart = 16
)

// SampleAttributesHeader opens every .ot file
var SampleAttributesHeader = [23]byte{
	0x46, 0x4F, 0x52, 0x4D, 0x00, 0x00, 0x00, 0x00,
	0x44, 0x50, 0x53, 0x31, 0x53, 0x4D, 0x50, 0x41,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00,
}

// Slice is one addressable region of a sample, in frames
type Slice struct {
	TrimStart uint32 `json:"trim_start" yaml:"trim_start"`
	TrimEnd   uint32 `json:"trim_end" yaml:"trim_end"`
	LoopStart uint32 `json:"loop_start" yaml:"loop_start"`
}

// NewSlice validates and returns a slice; pass LoopDisabled for no loop point
func NewSlice(start, end, loop uint32) (Slice, error) {
	s := Slice{TrimStart: start, TrimEnd: end, LoopStart: loop}
	return s, s.Validate()
}

// Validate checks start <= end and that an enabled loop point lies inside the slice
func (s Slice) Validate() error {
	if s.TrimStart > s.TrimEnd {
		return codec.Invalid("slice", fmt.Sprintf("start %d after end %d", s.TrimStart, s.TrimEnd), "start <= end")
	}
	if s.LoopStart != LoopDisabled && (s.LoopStart < s.TrimStart || s.LoopStart >= s.TrimEnd) {
		return codec.Invalid("slice loop point", s.LoopStart,
			fmt.Sprintf("%d..%d or disabled", s.TrimStart, s.TrimEnd))
	}
	return nil
}

// Len returns the slice length in frames
func (s Slice) Len() uint32 {
	return s.TrimEnd - s.TrimStart
}

// SampleAttributes is the .ot file stored next to an audio file
type SampleAttributes struct {
	Header       [23]byte         `json:"header" yaml:"header"`
	Tempo        uint32           `json:"tempo" yaml:"tempo"`
	TrimLength   uint32           `json:"trim_length" yaml:"trim_length"`
	LoopLength   uint32           `json:"loop_length" yaml:"loop_length"`
	Stretch      TimestretchMode  `json:"stretch" yaml:"stretch"`
	Loop         LoopMode         `json:"loop" yaml:"loop"`
	Gain         uint16           `json:"gain" yaml:"gain"`
	Quantization TrigQuantization `json:"quantization" yaml:"quantization"`
	TrimStart    uint32           `json:"trim_start" yaml:"trim_start"`
	TrimEnd      uint32           `json:"trim_end" yaml:"trim_end"`
	LoopStart    uint32           `json:"loop_start" yaml:"loop_start"`
	Slices       [MaxSlices]Slice `json:"slices" yaml:"slices"`
	SliceCount   uint32           `json:"slice_count" yaml:"slice_count"`
	Checksum     uint16           `json:"checksum" yaml:"checksum"`
}

var sliceLayout = codec.NewLayout("slice",
	codec.Uint32("trim_start", func(s *Slice) *uint32 { return &s.TrimStart }),
	codec.Uint32("trim_end", func(s *Slice) *uint32 { return &s.TrimEnd }),
	codec.Uint32("loop_start", func(s *Slice) *uint32 { return &s.LoopStart }),
)

var sampleAttributesLayout = codec.NewLayout("sample attributes",
	codec.Magic("header", SampleAttributesHeader[:], func(a *SampleAttributes) []byte { return a.Header[:] }),
	codec.Uint32In("tempo", MinTempo*24, MaxTempo*24, func(a *SampleAttributes) *uint32 { return &a.Tempo }),
	codec.Uint32("trim_length", func(a *SampleAttributes) *uint32 { return &a.TrimLength }),
	codec.Uint32("loop_length", func(a *SampleAttributes) *uint32 { return &a.LoopLength }),
	codec.Enum32("stretch", func(a *SampleAttributes) *TimestretchMode { return &a.Stretch }),
	codec.Enum32("loop", func(a *SampleAttributes) *LoopMode { return &a.Loop }),
	codec.Uint16In("gain", 0, 96, func(a *SampleAttributes) *uint16 { return &a.Gain }),
	codec.Enum8("quantization", func(a *SampleAttributes) *TrigQuantization { return &a.Quantization }),
	codec.Uint32("trim_start", func(a *SampleAttributes) *uint32 { return &a.TrimStart }),
	codec.Uint32("trim_end", func(a *SampleAttributes) *uint32 { return &a.TrimEnd }),
	codec.Uint32("loop_start", func(a *SampleAttributes) *uint32 { return &a.LoopStart }),
	codec.Array("slices", MaxSlices, sliceLayout, func(a *SampleAttributes, i int) *Slice { return &a.Slices[i] }),
	codec.Uint32In("slice_count", 0, MaxSlices, func(a *SampleAttributes) *uint32 { return &a.SliceCount }),
	codec.Uint16("checksum", func(a *SampleAttributes) *uint16 { return &a.Checksum }),
)

// DefaultSampleAttributes returns an empty attributes record: 120 BPM, 0 dB,
// normal timestretch, no loop, direct quantization and no slices
func DefaultSampleAttributes() *SampleAttributes {
	a := &SampleAttributes{
		Header:       SampleAttributesHeader,
		Tempo:        120 * 24,
		Stretch:      StretchNormal,
		Loop:         LoopOff,
		Gain:         48,
		Quantization: QuantDirect,
	}
	a.UpdateChecksum()
	return a
}

// DecodeSampleAttributes parses an .ot file image
func DecodeSampleAttributes(data []byte) (*SampleAttributes, error) {
	return sampleAttributesLayout.Decode(data)
}

// Encode serializes the record with its stored checksum
func (a *SampleAttributes) Encode() ([]byte, error) {
	return sampleAttributesLayout.Encode(a)
}

// ComputeChecksum returns the checksum the current field values produce
func (a *SampleAttributes) ComputeChecksum() (uint16, error) {
	b, err := a.Encode()
	if err != nil {
		return 0, err
	}
	return checksum(b), nil
}

// UpdateChecksum stores the checksum of the current field values.
// Fields outside their domain leave the stored value untouched.
func (a *SampleAttributes) UpdateChecksum() {
	if sum, err := a.ComputeChecksum(); err == nil {
		a.Checksum = sum
	}
}

// ChecksumValid reports whether the stored checksum matches the content
func (a *SampleAttributes) ChecksumValid() bool {
	sum, err := a.ComputeChecksum()
	return err == nil && sum == a.Checksum
}

// checksum sums the bytes after the header prefix, excluding the checksum itself
func checksum(b []byte) uint16 {
	var sum uint32
	for _, x := range b[checksumStart : len(b)-2] {
		sum += uint32(x)
	}
	return uint16(sum % 65536)
}

// BPM returns the tempo in beats per minute
func (a *SampleAttributes) BPM() float64 {
	return DecodeTempo(a.Tempo)
}

// GainDB returns the gain in decibels
func (a *SampleAttributes) GainDB() float64 {
	return DecodeGain(a.Gain)
}

// Apply writes tempo, gain and mode settings into the record
func (a *SampleAttributes) Apply(s SampleSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	a.Tempo, _ = EncodeTempo(s.Tempo)
	a.Gain, _ = EncodeGain(s.Gain)
	a.Loop = s.Loop
	a.Stretch = s.Stretch
	a.Quantization = s.Quantization
	a.UpdateChecksum()
	return nil
}

// SetSlices replaces the slice table; unused entries are zeroed
func (a *SampleAttributes) SetSlices(slices []Slice) error {
	if len(slices) > MaxSlices {
		return codec.Invalid("slice count", len(slices), "0..64")
	}
	for i, s := range slices {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("slice %d: %w", i+1, err)
		}
	}
	a.Slices = [MaxSlices]Slice{}
	copy(a.Slices[:], slices)
	a.SliceCount = uint32(len(slices))
	a.UpdateChecksum()
	return nil
}

// ActiveSlices returns the slices in use
func (a *SampleAttributes) ActiveSlices() []Slice {
	n := min(int(a.SliceCount), MaxSlices)
	out := make([]Slice, n)
	copy(out, a.Slices[:n])
	return out
}

// SetTrim sets the whole-sample trim region and its length in bars x100
func (a *SampleAttributes) SetTrim(start, end, barsX100 uint32) {
	a.TrimStart = start
	a.TrimEnd = end
	a.LoopStart = start
	a.TrimLength = barsX100
	a.LoopLength = barsX100
	a.UpdateChecksum()
}

// SampleSettings are the user-facing playback settings of a sample
type SampleSettings struct {
	Tempo        float64          `yaml:"bpm" json:"bpm"`
	Gain         float64          `yaml:"gain" json:"gain"`
	Loop         LoopMode         `yaml:"loop_mode" json:"loop_mode"`
	Stretch      TimestretchMode  `yaml:"timestretch_mode" json:"timestretch_mode"`
	Quantization TrigQuantization `yaml:"trig_quantization" json:"trig_quantization"`
}

// DefaultSampleSettings matches the hardware's settings for a freshly loaded sample
func DefaultSampleSettings() SampleSettings {
	return SampleSettings{
		Tempo:        120,
		Gain:         0,
		Loop:         LoopOff,
		Stretch:      StretchNormal,
		Quantization: QuantDirect,
	}
}

// Validate checks every setting against its domain
func (s SampleSettings) Validate() error {
	if _, err := EncodeTempo(s.Tempo); err != nil {
		return err
	}
	if _, err := EncodeGain(s.Gain); err != nil {
		return err
	}
	if !s.Loop.Valid() {
		return codec.Invalid("loop mode", uint32(s.Loop), "off, normal, pingpong")
	}
	if !s.Stretch.Valid() {
		return codec.Invalid("timestretch mode", uint32(s.Stretch), "off, normal, beat")
	}
	if !s.Quantization.Valid() {
		return codec.Invalid("trig quantization", uint8(s.Quantization), "closed enumeration")
	}
	return nil
}

// EncodeGain converts decibels to the stored 0..96 value
func EncodeGain(db float64) (uint16, error) {
	if math.IsNaN(db) || db < MinGain || db > MaxGain {
		return 0, codec.Invalid("gain", fmt.Sprintf("%.1f dB", db), "-24.0..24.0 dB")
	}
	return uint16(math.Round((db + 24.0) * 2.0)), nil
}

// DecodeGain converts a stored gain value to decibels
func DecodeGain(v uint16) float64 {
	return float64(v)/2.0 - 24.0
}

// EncodeTempo converts BPM to the stored BPM x24 value. Tempo has one
// decimal of precision; finer values are rounded to it first.
func EncodeTempo(bpm float64) (uint32, error) {
	bpm = roundTempo(bpm)
	if math.IsNaN(bpm) || bpm < MinTempo || bpm > MaxTempo {
		return 0, codec.Invalid("tempo", fmt.Sprintf("%.1f BPM", bpm), "30.0..300.0 BPM")
	}
	return uint32(math.Round(bpm * 24.0)), nil
}

// DecodeTempo converts a stored tempo to BPM, rounded to one decimal
func DecodeTempo(v uint32) float64 {
	return roundTempo(float64(v) / 24.0)
}

func roundTempo(bpm float64) float64 {
	return math.Round(bpm*10) / 10
}

// BarsX100 returns the length of frames at bpm in bars (4/4) multiplied by 100
func BarsX100(bpm float64, frames, sampleRate int) uint32 {
	if sampleRate <= 0 || frames <= 0 {
		return 0
	}
	bars := bpm * float64(frames) / (float64(sampleRate) * 60.0 * 4.0)
	return uint32(math.Round(bars * 100.0))
}
