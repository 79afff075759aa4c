package chain

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/dijksterhuis/octatools/pkg/codec"
	"github.com/dijksterhuis/octatools/pkg/debug"
	"github.com/dijksterhuis/octatools/pkg/fileio"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

// MaxSlices is the most samples one chain file can address
const MaxSlices = octatrack.MaxSlices

// ErrNoInputs is returned when a chain has nothing to join
var ErrNoInputs = errors.New("chain has no input audio")

// Chain describes one named chain build
type Chain struct {
	Name       string
	Inputs     []string
	Settings   octatrack.SampleSettings
	Processing Processing
}

// Validate checks the name, inputs and settings
func (c Chain) Validate() error {
	if c.Name == "" || strings.ContainsAny(c.Name, `/\`) {
		return codec.Invalid("chain name", c.Name, "a non-empty file name without separators")
	}
	if len(c.Inputs) == 0 {
		return ErrNoInputs
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	return c.Processing.Validate()
}

// Pair is one chained audio buffer and the attributes addressing it
type Pair struct {
	Audio      *Buffer
	Attributes *octatrack.SampleAttributes
}

// Slices returns the pair's slice table
func (p Pair) Slices() []octatrack.Slice {
	return p.Attributes.ActiveSlices()
}

// Output is one written chain
type Output struct {
	AudioPath      string            `json:"audio_path" yaml:"audio_path"`
	AttributesPath string            `json:"attributes_path" yaml:"attributes_path"`
	Slices         []octatrack.Slice `json:"slices" yaml:"slices"`
}

// Assemble joins buffers into chains of at most MaxSlices samples each.
// Buffers are processed on copies; the inputs are left untouched.
func Assemble(buffers []*Buffer, s octatrack.SampleSettings, p Processing) ([]Pair, error) {
	if len(buffers) == 0 {
		return nil, ErrNoInputs
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var pairs []Pair
	for start := 0; start < len(buffers); start += MaxSlices {
		end := min(start+MaxSlices, len(buffers))
		pair, err := assembleGroup(buffers[start:end], s, p)
		if err != nil {
			return nil, fmt.Errorf("failed to assemble chain %d: %w", len(pairs)+1, err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func assembleGroup(group []*Buffer, s octatrack.SampleSettings, p Processing) (Pair, error) {
	rate, channels, depth := group[0].SampleRate, 0, 0
	for i, b := range group {
		if b.SampleRate != rate {
			return Pair{}, codec.Invalid(fmt.Sprintf("sample rate of input %d", i+1), b.SampleRate, fmt.Sprintf("%d, matching the first input", rate))
		}
		if b.Channels < 1 || b.Channels > 2 {
			return Pair{}, codec.Invalid(fmt.Sprintf("channels of input %d", i+1), b.Channels, "1, 2")
		}
		if err := checkBitDepth(b.BitDepth); err != nil {
			return Pair{}, err
		}
		channels = max(channels, b.Channels)
		depth = max(depth, b.BitDepth)
	}

	out := NewBuffer(0, channels, rate, depth)
	slices := make([]octatrack.Slice, 0, len(group))
	for _, b := range group {
		c := b.Upmix(channels)
		p.Apply(c)
		start := out.Frames()
		out.Samples = append(out.Samples, c.Samples...)
		slices = append(slices, octatrack.Slice{
			TrimStart: uint32(start),
			TrimEnd:   uint32(out.Frames()),
			LoopStart: octatrack.LoopDisabled,
		})
	}

	attrs, err := attributesFor(out, slices, s)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Audio: out, Attributes: attrs}, nil
}

// attributesFor builds the .ot record for b: settings, slices and a whole-file trim
func attributesFor(b *Buffer, slices []octatrack.Slice, s octatrack.SampleSettings) (*octatrack.SampleAttributes, error) {
	attrs := octatrack.DefaultSampleAttributes()
	if err := attrs.Apply(s); err != nil {
		return nil, err
	}
	if err := attrs.SetSlices(slices); err != nil {
		return nil, err
	}
	frames := b.Frames()
	attrs.SetTrim(0, uint32(frames), octatrack.BarsX100(s.Tempo, frames, b.SampleRate))
	return attrs, nil
}

// Build reads the chain's inputs, assembles them and writes
// {outDir}/{name}-{i}.wav and .ot for each resulting chain
func Build(c Chain, outDir string) ([]Output, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	debug.Log("chain", "building %s from %d inputs", c.Name, len(c.Inputs))

	buffers := make([]*Buffer, len(c.Inputs))
	for i, path := range c.Inputs {
		b, err := ReadWAV(path)
		if err != nil {
			return nil, errors.Wrapf(err, "chain %s: failed to read input %d", c.Name, i+1)
		}
		buffers[i] = b
	}

	pairs, err := Assemble(buffers, c.Settings, c.Processing)
	if err != nil {
		return nil, errors.Wrapf(err, "chain %s", c.Name)
	}
	if err := fileio.MkdirAll(outDir); err != nil {
		return nil, err
	}

	outputs := make([]Output, len(pairs))
	for i, pair := range pairs {
		base := filepath.Join(outDir, fmt.Sprintf("%s-%d", c.Name, i+1))
		o := Output{
			AudioPath:      base + ".wav",
			AttributesPath: base + ".ot",
			Slices:         pair.Slices(),
		}
		if err := WriteWAV(o.AudioPath, pair.Audio); err != nil {
			return nil, err
		}
		if err := octatrack.WriteFile(o.AttributesPath, pair.Attributes); err != nil {
			return nil, err
		}
		debug.Log("chain", "wrote %s with %d slices", o.AudioPath, len(o.Slices))
		outputs[i] = o
	}
	return outputs, nil
}
